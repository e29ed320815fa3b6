package api

import (
	"context"
	"fmt"
	"net/http"
)

// ListProducts returns the full catalog. No auth required.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &products, false); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns a single product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &product, false); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct adds a product to the catalog. Requires auth.
func (c *Client) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodPost, "/products", req, &product, true); err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct updates a product. Fields left nil keep their values.
func (c *Client) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), req, &product, true); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct removes a product from the catalog.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d", id), nil, nil, true)
}
