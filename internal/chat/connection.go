// Package chat maintains the live chat stream: one WebSocket per session
// with automatic reconnect on drop. Sending goes over the REST endpoint and
// works independently of the stream state.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmarquina/tienda-cli/internal/api"
	"github.com/dmarquina/tienda-cli/internal/logger"
)

// ConnectionState represents the current state of the live stream
type ConnectionState int

const (
	// StateDisconnected indicates there is no live stream
	StateDisconnected ConnectionState = iota
	// StateConnecting indicates a connection attempt is in flight
	StateConnecting
	// StateConnected indicates the live stream is up
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ErrEmptyMessage is returned by Send for empty or whitespace-only input;
// no network call is made in that case.
var ErrEmptyMessage = errors.New("message is empty")

const defaultReconnectDelay = 3 * time.Second

// Dialer abstracts the WebSocket dial so tests can inject failures.
type Dialer interface {
	Dial(urlStr string, requestHeader http.Header) (*websocket.Conn, error)
}

type gorillaDialer struct{}

func (gorillaDialer) Dial(urlStr string, requestHeader http.Header) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(urlStr, requestHeader)
	return conn, err
}

// Connection owns one live stream handle per session. The message log is
// append-only in arrival order; entries are never reordered or deduplicated
// by id, matching the behavior of the send/broadcast path (a duplicate
// delivery after a reconnect shows up twice).
type Connection struct {
	client *api.Client
	tokens api.TokenSource
	dialer Dialer

	mu             sync.Mutex
	state          ConnectionState
	conn           *websocket.Conn
	messages       []api.ChatMessage
	reconnectTimer *time.Timer
	reconnectDelay time.Duration
	closed         bool
	gen            int

	onMessage func(api.ChatMessage)
	onState   func(ConnectionState, error)
}

// NewConnection creates a Connection. The token source decides whether a
// connect attempt is allowed at all.
func NewConnection(client *api.Client, tokens api.TokenSource) *Connection {
	return &Connection{
		client:         client,
		tokens:         tokens,
		dialer:         gorillaDialer{},
		state:          StateDisconnected,
		reconnectDelay: defaultReconnectDelay,
	}
}

// SetDialer replaces the WebSocket dialer. Test hook.
func (c *Connection) SetDialer(d Dialer) {
	c.mu.Lock()
	c.dialer = d
	c.mu.Unlock()
}

// SetReconnectDelay overrides the fixed delay between reconnect attempts.
func (c *Connection) SetReconnectDelay(d time.Duration) {
	c.mu.Lock()
	c.reconnectDelay = d
	c.mu.Unlock()
}

// OnMessage registers a callback for every parsed inbound message.
func (c *Connection) OnMessage(fn func(api.ChatMessage)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// OnStateChange registers a callback for connection state transitions. The
// error is non-nil when the transition was caused by a failure.
func (c *Connection) OnStateChange(fn func(ConnectionState, error)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns a copy of the in-memory message log.
func (c *Connection) Messages() []api.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Connection) notifyState(state ConnectionState, err error) {
	c.mu.Lock()
	cb := c.onState
	c.mu.Unlock()
	if cb != nil {
		cb(state, err)
	}
}

// LoadHistory fetches the stored chat log and resets the in-memory log to
// it. Meant to be called once when the chat view opens, before Connect.
func (c *Connection) LoadHistory(ctx context.Context) error {
	history, err := c.client.ChatHistory(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.messages = history
	c.mu.Unlock()
	return nil
}

// Connect opens the live stream. It is a no-op when a stream is already up
// or an attempt is in flight, and refuses silently (logged, no error
// surfaced) when no session token is available, which is also what ends the
// reconnect loop after a logout.
func (c *Connection) Connect() {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token == "" {
		c.mu.Unlock()
		logger.Info("chat: no session token, not connecting")
		return
	}

	// A deliberate connect supersedes any scheduled retry.
	c.stopReconnectTimerLocked()
	c.closed = false
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	dialer := c.dialer
	url := c.client.WebSocketURL(token)
	c.mu.Unlock()

	c.notifyState(StateConnecting, nil)

	conn, err := dialer.Dial(url, nil)

	c.mu.Lock()
	if gen != c.gen || c.closed {
		// Torn down while dialing; discard the result.
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.state = StateDisconnected
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		logger.Warn("chat: connect failed: %v", err)
		c.notifyState(StateDisconnected, err)
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	logger.Info("chat: connected")
	c.notifyState(StateConnected, nil)

	go c.readPump(conn, gen)
}

// readPump reads frames until the connection drops. A frame that does not
// parse as a ChatMessage is dropped with a log line; the stream continues.
func (c *Connection) readPump(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}

		var msg api.ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("chat: dropping unparseable frame: %v", err)
			continue
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.messages = append(c.messages, msg)
		cb := c.onMessage
		c.mu.Unlock()

		if cb != nil {
			cb(msg)
		}
	}
}

// handleClose reacts to the stream dropping for any reason. Close and error
// events can both arrive for one drop; the generation check plus the
// cancel-before-schedule rule guarantee at most one pending retry.
func (c *Connection) handleClose(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
	if !c.closed {
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()

	logger.Info("chat: disconnected: %v", err)
	c.notifyState(StateDisconnected, err)
}

// scheduleReconnectLocked arms the single retry timer. Callers hold c.mu.
func (c *Connection) scheduleReconnectLocked() {
	c.stopReconnectTimerLocked()
	c.reconnectTimer = time.AfterFunc(c.reconnectDelay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		// Connect re-checks the token, so a vanished session ends the loop.
		c.Connect()
	})
}

func (c *Connection) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// Send posts a message over the REST endpoint. It does not require the live
// stream to be up; the sender's own copy arrives via the next inbound
// broadcast. Empty or whitespace-only input is rejected locally with
// ErrEmptyMessage and no network call.
func (c *Connection) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	_, err := c.client.SendChatMessage(ctx, text)
	return err
}

// Disconnect tears the stream down: closes the socket, cancels any pending
// retry and suppresses auto-reconnect until the next explicit Connect.
// Idempotent.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.gen++
	c.stopReconnectTimerLocked()
	conn := c.conn
	c.conn = nil
	wasConnected := c.state != StateDisconnected
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if wasConnected {
		logger.Info("chat: torn down")
		c.notifyState(StateDisconnected, nil)
	}
}

// pendingReconnect reports whether a retry timer is armed. Test hook.
func (c *Connection) pendingReconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectTimer != nil
}
