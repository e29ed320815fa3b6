package stubserver

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dmarquina/tienda-cli/internal/logger"
)

// hub maintains the set of live chat sockets and fans each posted message
// out to all of them.
type hub struct {
	mu         sync.RWMutex
	clients    map[*hubClient]bool
	broadcast  chan []byte
	register   chan *hubClient
	unregister chan *hubClient
	quit       chan struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub() *hub {
	return &hub{
		clients:    make(map[*hubClient]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		quit:       make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client, drop it.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				client.conn.Close()
			}
			h.clients = make(map[*hubClient]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *hub) stop() {
	close(h.quit)
}

func (h *hub) send(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		logger.Warn("stubserver: broadcast channel full, dropping message")
	}
}

// writePump drains the client's send channel onto the socket.
func (c *hubClient) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; the stub is push-only. It exists to
// notice the peer going away.
func (c *hubClient) readPump(h *hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
