// Package profile edits the signed-in buyer's profile and avatar.
//
// Every successful change returns the backend's fresh identity, which is
// merged into the session without a loading round trip.
package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/state"
	"github.com/five82/shopaura/internal/toast"
)

const (
	// AvatarSize bounds both avatar dimensions; aspect ratio is kept.
	AvatarSize  = 512
	jpegQuality = 85
)

// ErrNoChanges is returned by Update when every field is blank.
var ErrNoChanges = errors.New("no profile changes")

// Gateway is the subset of the API client used here.
type Gateway interface {
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (api.User, error)
	UploadProfilePicture(ctx context.Context, filename string, image io.Reader) (api.User, error)
	DeleteProfilePicture(ctx context.Context) (api.User, error)
}

// Session receives the updated identity.
type Session interface {
	UpdateUser(api.User)
}

// State reports whether a profile change is being saved.
type State struct {
	Saving bool
}

// Manager coordinates profile changes with the session.
type Manager struct {
	gw      Gateway
	session Session
	toasts  toast.Notifier
	log     *slog.Logger

	store state.Store[State]
}

// New builds a Manager.
func New(gw Gateway, session Session, toasts toast.Notifier, logger *slog.Logger) *Manager {
	if toasts == nil {
		toasts = toast.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{gw: gw, session: session, toasts: toasts, log: logger}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() State { return m.store.Snapshot() }

// Subscribe signals after every state change.
func (m *Manager) Subscribe() (<-chan struct{}, func()) { return m.store.Subscribe() }

// Update saves profile fields.
func (m *Manager) Update(ctx context.Context, update api.ProfileUpdate) (api.User, error) {
	update.Name = strings.TrimSpace(update.Name)
	update.Email = strings.TrimSpace(update.Email)
	update.Phone = strings.TrimSpace(update.Phone)
	if update == (api.ProfileUpdate{}) {
		return api.User{}, ErrNoChanges
	}
	return m.save(ctx, "Profile updated successfully", "Failed to update profile", func(ctx context.Context) (api.User, error) {
		return m.gw.UpdateProfile(ctx, update)
	})
}

// UploadAvatar reads the image at path, fits it into AvatarSize square and
// uploads it as JPEG.
func (m *Manager) UploadAvatar(ctx context.Context, path string) (api.User, error) {
	data, err := encodeAvatar(path)
	if err != nil {
		m.log.Warn("avatar encode failed", "path", path, "error", err)
		m.toasts.Error("Please choose a valid image file")
		return api.User{}, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".jpg"
	return m.save(ctx, "Profile picture updated", "Failed to upload profile picture", func(ctx context.Context) (api.User, error) {
		return m.gw.UploadProfilePicture(ctx, name, bytes.NewReader(data))
	})
}

// DeleteAvatar removes the profile picture.
func (m *Manager) DeleteAvatar(ctx context.Context) (api.User, error) {
	return m.save(ctx, "Profile picture removed", "Failed to remove profile picture", m.gw.DeleteProfilePicture)
}

func (m *Manager) save(ctx context.Context, okMsg, failMsg string, call func(context.Context) (api.User, error)) (api.User, error) {
	m.store.Update(func(st *State) { st.Saving = true })
	defer m.store.Update(func(st *State) { st.Saving = false })

	u, err := call(ctx)
	if err != nil {
		if !errors.Is(err, api.ErrUnauthorized) {
			m.toasts.Error(api.Message(err, failMsg))
		}
		return api.User{}, err
	}
	if m.session != nil {
		m.session.UpdateUser(u)
	}
	m.toasts.Success(okMsg)
	return u, nil
}

func encodeAvatar(path string) ([]byte, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() > AvatarSize || b.Dy() > AvatarSize {
		img = imaging.Fit(img, AvatarSize, AvatarSize, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
