package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Admin user-management surface.

// ListUsers returns all users. Requires the admin role.
func (c *Client) ListUsers(ctx context.Context) ([]UserProfile, error) {
	var users []UserProfile
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users, true); err != nil {
		return nil, err
	}
	return users, nil
}

// SearchUsers returns users matching the query string.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]UserProfile, error) {
	var users []UserProfile
	path := "/users/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &users, true); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser updates the given user and returns the new profile.
func (c *Client) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (*UserProfile, error) {
	var user UserProfile
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), req, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the given user.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil, true)
}

// ToggleUserStatus flips the active flag on the given user and returns the
// updated profile.
func (c *Client) ToggleUserStatus(ctx context.Context, id int64) (*UserProfile, error) {
	var user UserProfile
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/users/%d/toggle-status", id), nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}
