package api

import (
	"context"
	"net/http"
	"net/url"
)

type cartResponse struct {
	Cart struct {
		Items []CartItem `json:"items"`
	} `json:"cart"`
}

// GetCart returns the server-side cart.
func (c *Client) GetCart(ctx context.Context) ([]CartItem, error) {
	return c.cartCall(ctx, http.MethodGet, "/cart", nil)
}

// AddCartItem adds quantity units of a product.
func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) ([]CartItem, error) {
	body := map[string]any{"productId": productID, "quantity": quantity}
	return c.cartCall(ctx, http.MethodPost, "/cart", body)
}

// UpdateCartItem sets the absolute quantity of a line.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) ([]CartItem, error) {
	body := map[string]any{"quantity": quantity}
	return c.cartCall(ctx, http.MethodPut, "/cart/"+url.PathEscape(productID), body)
}

// RemoveCartItem drops a line.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) ([]CartItem, error) {
	return c.cartCall(ctx, http.MethodDelete, "/cart/"+url.PathEscape(productID), nil)
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.Do(ctx, http.MethodDelete, "/cart", nil, nil)
}

func (c *Client) cartCall(ctx context.Context, method, path string, body any) ([]CartItem, error) {
	var payload cartResponse
	if err := c.Do(ctx, method, path, body, &payload); err != nil {
		return nil, err
	}
	return payload.Cart.Items, nil
}
