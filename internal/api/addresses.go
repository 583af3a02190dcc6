package api

import (
	"context"
	"net/http"
	"net/url"
)

type addressesResponse struct {
	Addresses []Address `json:"addresses"`
}

// ListAddresses returns the buyer's saved addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]Address, error) {
	var payload addressesResponse
	if err := c.Do(ctx, http.MethodGet, "/addresses", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Addresses, nil
}

// AddAddress saves a new address.
func (c *Client) AddAddress(ctx context.Context, addr Address) (Address, error) {
	addr.ID = ""
	if addr.Country == "" {
		addr.Country = "India"
	}
	if addr.AddressType == "" {
		addr.AddressType = "home"
	}
	var payload struct {
		Address Address `json:"address"`
	}
	if err := c.Do(ctx, http.MethodPost, "/addresses", addr, &payload); err != nil {
		return Address{}, err
	}
	return payload.Address, nil
}

// UpdateAddress replaces an existing address.
func (c *Client) UpdateAddress(ctx context.Context, id string, addr Address) (Address, error) {
	addr.ID = ""
	var payload struct {
		Address Address `json:"address"`
	}
	if err := c.Do(ctx, http.MethodPut, "/addresses/"+url.PathEscape(id), addr, &payload); err != nil {
		return Address{}, err
	}
	return payload.Address, nil
}

// DeleteAddress removes an address.
func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/addresses/"+url.PathEscape(id), nil, nil)
}

// SetDefaultAddress marks an address as the default delivery address.
func (c *Client) SetDefaultAddress(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodPut, "/addresses/"+url.PathEscape(id)+"/default", nil, nil)
}
