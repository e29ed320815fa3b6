package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmarquina/tienda-cli/internal/logger"
)

const defaultTimeout = 30 * time.Second

// HTTPClient abstracts the underlying HTTP transport so tests can inject
// their own implementation.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource provides the current bearer token. An empty string means no
// session. The session manager is the canonical implementation.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource holding a fixed token. Useful in tests.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token() string { return string(s) }

// APIError is a non-2xx response decoded into a human-readable message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client talks to the storefront backend over HTTP.
type Client struct {
	baseURL   string
	http      HTTPClient
	tokens    TokenSource
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP transport.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout on the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.http.(*http.Client); ok {
			hc.Timeout = d
		}
	}
}

// WithTokenSource sets the source of the bearer token for authenticated
// calls.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: "tienda-cli/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetTokenSource replaces the token source after construction.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// WebSocketURL returns the chat live-stream URL for the given token,
// translating the HTTP scheme to its WebSocket counterpart.
func (c *Client) WebSocketURL(token string) string {
	wsBase := c.baseURL
	switch {
	case strings.HasPrefix(wsBase, "https://"):
		wsBase = "wss://" + strings.TrimPrefix(wsBase, "https://")
	case strings.HasPrefix(wsBase, "http://"):
		wsBase = "ws://" + strings.TrimPrefix(wsBase, "http://")
	}
	return wsBase + "/ws/chat?token=" + url.QueryEscape(token)
}

// do performs one request. body and out may be nil; authed attaches the
// bearer token. Non-2xx responses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token := ""
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError extracts a message from an error response body. The backend
// sends {"detail": ...} (or {"message": ...}); absent both, a generic
// "<status>: <statusText>" is synthesized.
func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if readErr == nil && json.Unmarshal(data, &payload) == nil {
		switch {
		case payload.Detail != "":
			apiErr.Message = payload.Detail
		case payload.Message != "":
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("%d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	logger.Debug("api: %s %s -> %d (%s)", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, apiErr.Message)
	return apiErr
}
