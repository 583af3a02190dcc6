package api

import (
	"context"
	"net/http"
)

// AuthStatus is the /auth/check response.
type AuthStatus struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user"`
}

type authResponse struct {
	User *User `json:"user"`
}

// CheckAuth asks the backend who the current session belongs to.
func (c *Client) CheckAuth(ctx context.Context) (AuthStatus, error) {
	var payload AuthStatus
	if err := c.Do(ctx, http.MethodGet, "/auth/check", nil, &payload); err != nil {
		return AuthStatus{}, err
	}
	if payload.User == nil {
		payload.Authenticated = false
	}
	return payload, nil
}

// Login starts a session. The buyer-frontend flag lets the backend refuse
// staff accounts early.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	body := map[string]any{
		"email":           email,
		"password":        password,
		"isBuyerFrontend": true,
	}
	var payload authResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/login", body, &payload); err != nil {
		return User{}, err
	}
	if payload.User == nil {
		return User{}, &Error{Status: http.StatusOK, Path: "/auth/login", Message: "Login failed"}
	}
	return *payload.User, nil
}

// Register creates a buyer account and starts a session.
func (c *Client) Register(ctx context.Context, name, email, password string) (User, error) {
	body := map[string]any{
		"name":     name,
		"email":    email,
		"password": password,
		"role":     RoleBuyer,
	}
	var payload authResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/register", body, &payload); err != nil {
		return User{}, err
	}
	if payload.User == nil {
		return User{}, &Error{Status: http.StatusOK, Path: "/auth/register", Message: "Registration failed"}
	}
	return *payload.User, nil
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}
