package api

import (
	"context"
	"net/http"
)

// CreateInvoice checks out the current cart into a new invoice.
func (c *Client) CreateInvoice(ctx context.Context) (*Invoice, error) {
	var invoice Invoice
	if err := c.do(ctx, http.MethodPost, "/invoicing/create", nil, &invoice, true); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// MyInvoices returns the authenticated user's invoice history.
func (c *Client) MyInvoices(ctx context.Context) ([]Invoice, error) {
	var invoices []Invoice
	if err := c.do(ctx, http.MethodGet, "/invoicing/me", nil, &invoices, true); err != nil {
		return nil, err
	}
	return invoices, nil
}

// GetDashboardStats returns aggregate store metrics. Admin only.
func (c *Client) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.do(ctx, http.MethodGet, "/dashboard/stats", nil, &stats, true); err != nil {
		return nil, err
	}
	return &stats, nil
}
