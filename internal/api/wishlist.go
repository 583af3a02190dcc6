package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// GetWishlist returns the saved products. Entries arrive either as products
// or as {product: {...}} wrappers.
func (c *Client) GetWishlist(ctx context.Context) ([]Product, error) {
	var payload struct {
		Wishlist []json.RawMessage `json:"wishlist"`
	}
	if err := c.Do(ctx, http.MethodGet, "/wishlist", nil, &payload); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(payload.Wishlist))
	for _, raw := range payload.Wishlist {
		p, err := parseWishlistEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("decode wishlist entry: %w", err)
		}
		if p.ID != "" {
			products = append(products, p)
		}
	}
	return products, nil
}

func parseWishlistEntry(raw json.RawMessage) (Product, error) {
	var wrapper struct {
		Product json.RawMessage `json:"product"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Product) > 0 {
		return decodeProductRef(wrapper.Product)
	}
	return decodeProductRef(raw)
}

// AddToWishlist saves a product and returns the backend's membership verdict.
func (c *Client) AddToWishlist(ctx context.Context, productID string) (bool, error) {
	return c.wishlistCall(ctx, http.MethodPost, productID, true)
}

// RemoveFromWishlist unsaves a product and returns the backend's membership
// verdict.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) (bool, error) {
	return c.wishlistCall(ctx, http.MethodDelete, productID, false)
}

func (c *Client) wishlistCall(ctx context.Context, method, productID string, expected bool) (bool, error) {
	var payload struct {
		InWishlist *bool `json:"inWishlist"`
	}
	if err := c.Do(ctx, method, "/wishlist/"+url.PathEscape(productID), nil, &payload); err != nil {
		return false, err
	}
	if payload.InWishlist == nil {
		return expected, nil
	}
	return *payload.InWishlist, nil
}
