package api

import (
	"context"
	"net/http"
)

// ChatHistory returns the stored chat log, oldest first.
func (c *Client) ChatHistory(ctx context.Context) ([]ChatMessage, error) {
	var messages []ChatMessage
	if err := c.do(ctx, http.MethodGet, "/chat/messages", nil, &messages, true); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendChatMessage posts a message. Delivery to other clients happens via the
// live stream; the sender receives their own copy the same way.
func (c *Client) SendChatMessage(ctx context.Context, text string) (*ChatMessage, error) {
	var msg ChatMessage
	req := SendMessageRequest{Message: text}
	if err := c.do(ctx, http.MethodPost, "/chat/messages", req, &msg, true); err != nil {
		return nil, err
	}
	return &msg, nil
}
