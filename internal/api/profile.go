package api

import (
	"context"
	"io"
	"net/http"
)

// ProfileUpdate carries editable profile fields.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type userResponse struct {
	User User `json:"user"`
}

// UpdateProfile saves profile fields and returns the updated identity.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error) {
	var payload userResponse
	if err := c.Do(ctx, http.MethodPut, "/profile", update, &payload); err != nil {
		return User{}, err
	}
	return payload.User, nil
}

// UploadProfilePicture uploads an already-encoded image.
func (c *Client) UploadProfilePicture(ctx context.Context, filename string, image io.Reader) (User, error) {
	var payload userResponse
	if err := c.doMultipart(ctx, http.MethodPost, "/profile/picture", "profilePicture", filename, image, &payload); err != nil {
		return User{}, err
	}
	return payload.User, nil
}

// DeleteProfilePicture removes the avatar.
func (c *Client) DeleteProfilePicture(ctx context.Context) (User, error) {
	var payload userResponse
	if err := c.Do(ctx, http.MethodDelete, "/profile/picture", nil, &payload); err != nil {
		return User{}, err
	}
	return payload.User, nil
}
