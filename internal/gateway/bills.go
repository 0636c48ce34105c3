package gateway

import (
	"context"
	"fmt"
	"net/http"

	"billtracker/internal/core"
	"billtracker/internal/store"
)

func (c *Client) ListBills(ctx context.Context) ([]core.Bill, error) {
	var bills []core.Bill
	if err := c.call(ctx, http.MethodGet, "/api/bills", nil, &bills); err != nil {
		return nil, err
	}
	return bills, nil
}

func (c *Client) CreateBill(ctx context.Context, b core.Bill) (store.MutationResult, error) {
	b.SerialNo = 0
	return c.mutate(ctx, http.MethodPost, "/api/bills", b)
}

func (c *Client) UpdateBill(ctx context.Context, serialNo int, b core.Bill) (store.MutationResult, error) {
	b.SerialNo = serialNo
	return c.mutate(ctx, http.MethodPut, fmt.Sprintf("/api/bills/%d", serialNo), b)
}

func (c *Client) DeleteBill(ctx context.Context, serialNo int) (store.MutationResult, error) {
	return c.mutate(ctx, http.MethodDelete, fmt.Sprintf("/api/bills/%d", serialNo), nil)
}

func (c *Client) mutate(ctx context.Context, method, path string, in any) (store.MutationResult, error) {
	var res store.MutationResult
	if err := c.call(ctx, method, path, in, &res); err != nil {
		return store.MutationResult{}, err
	}
	return res, nil
}

func (c *Client) GetConfig(ctx context.Context) (core.Configuration, error) {
	var cfg core.Configuration
	if err := c.call(ctx, http.MethodGet, "/api/bills/config", nil, &cfg); err != nil {
		return core.Configuration{}, err
	}
	return cfg, nil
}

func (c *Client) SaveConfig(ctx context.Context, cfg core.Configuration) error {
	return c.call(ctx, http.MethodPost, "/api/bills/config", cfg, nil)
}

func (c *Client) ListLocations(ctx context.Context) ([]string, error) {
	var locations []string
	if err := c.call(ctx, http.MethodGet, "/api/bills/locations", nil, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}
