package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListOrders returns the buyer's orders, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var payload struct {
		Orders []Order `json:"orders"`
	}
	if err := c.Do(ctx, http.MethodGet, "/orders", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Orders, nil
}

// GetOrder returns one order.
func (c *Client) GetOrder(ctx context.Context, id string) (Order, error) {
	var payload struct {
		Order Order `json:"order"`
	}
	if err := c.Do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &payload); err != nil {
		return Order{}, err
	}
	return payload.Order, nil
}

// TrackOrder returns the tracking view of an order.
func (c *Client) TrackOrder(ctx context.Context, id string) (Tracking, error) {
	var payload struct {
		Tracking Tracking `json:"tracking"`
	}
	if err := c.Do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id)+"/track", nil, &payload); err != nil {
		return Tracking{}, err
	}
	return payload.Tracking, nil
}
