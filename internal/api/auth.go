package api

import (
	"context"
	"net/http"
)

// Register creates a new account and returns the issued token plus profile.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a bearer token. The profile may be absent
// from the response; fetch it via Me when it is.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the profile of the authenticated user. A 401 here means the
// token is expired or invalid.
func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &profile, true); err != nil {
		return nil, err
	}
	return &profile, nil
}
