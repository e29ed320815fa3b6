package api

import (
	"context"
	"net/http"
)

// GetCart returns the current user's cart.
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &cart, true); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart adds quantity units of a product and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int) (*Cart, error) {
	var cart Cart
	req := AddToCartRequest{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/cart/add", req, &cart, true); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveFromCart removes a product line and returns the updated cart.
func (c *Client) RemoveFromCart(ctx context.Context, productID int64) (*Cart, error) {
	var cart Cart
	req := RemoveFromCartRequest{ProductID: productID}
	if err := c.do(ctx, http.MethodPost, "/cart/remove", req, &cart, true); err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCartTotal returns the current cart total.
func (c *Client) GetCartTotal(ctx context.Context) (float64, error) {
	var total CartTotal
	if err := c.do(ctx, http.MethodGet, "/cart/total", nil, &total, true); err != nil {
		return 0, err
	}
	return total.Total, nil
}
