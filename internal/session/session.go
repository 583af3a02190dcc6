// Package session owns the authenticated buyer identity.
//
// Store is the single writer of the session. It persists the identity to a
// Storage for optimistic rehydration on the next start, but never trusts that
// copy for authorization: only CheckAuthStatus, Login and Register flip
// Authenticated on. Identities whose role is not the buyer role are rejected
// at all three entry points: the user is told, the session is logged out, and
// after RedirectDelay the navigator is sent to the admin panel.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/nav"
	"github.com/five82/shopaura/internal/state"
	"github.com/five82/shopaura/internal/toast"
)

const (
	defaultAdminPanelURL = "http://localhost:5174"
	defaultRedirectDelay = 2 * time.Second

	roleRejectedMessage = "Sellers and admins cannot access the buyer portal. Redirecting..."
)

// ErrRoleNotPermitted is returned when a non-buyer identity tries to use the
// storefront.
var ErrRoleNotPermitted = errors.New("role not permitted in buyer storefront")

// Gateway is the subset of the API client the session needs.
type Gateway interface {
	CheckAuth(ctx context.Context) (api.AuthStatus, error)
	Login(ctx context.Context, email, password string) (api.User, error)
	Register(ctx context.Context, name, email, password string) (api.User, error)
	Logout(ctx context.Context) error
}

// Storage persists the identity between runs.
type Storage interface {
	LoadUser() (*api.User, error)
	SaveUser(api.User) error
	ClearUser() error
}

// State is a point-in-time view of the session.
type State struct {
	User          *api.User
	Authenticated bool
	// Verified is false while User only comes from Storage.
	Verified bool
	Loading  bool
}

// Options configure a Store.
type Options struct {
	Gateway       Gateway
	Storage       Storage
	Toasts        toast.Notifier
	Navigator     nav.Navigator
	AdminPanelURL string
	RedirectDelay time.Duration
	Logger        *slog.Logger
}

// Store holds the session.
type Store struct {
	gw            Gateway
	storage       Storage
	toasts        toast.Notifier
	nav           nav.Navigator
	adminPanelURL string
	redirectDelay time.Duration
	log           *slog.Logger

	store state.Store[State]

	timerMu  sync.Mutex
	redirect *time.Timer
}

// New builds a Store. The session starts in the loading state until
// CheckAuthStatus settles.
func New(opts Options) *Store {
	s := &Store{
		gw:            opts.Gateway,
		storage:       opts.Storage,
		toasts:        opts.Toasts,
		nav:           opts.Navigator,
		adminPanelURL: opts.AdminPanelURL,
		redirectDelay: opts.RedirectDelay,
		log:           opts.Logger,
	}
	if s.toasts == nil {
		s.toasts = toast.Discard{}
	}
	if s.nav == nil {
		s.nav = nav.NavigatorFunc(func(nav.Target) {})
	}
	if s.adminPanelURL == "" {
		s.adminPanelURL = defaultAdminPanelURL
	}
	if s.redirectDelay <= 0 {
		s.redirectDelay = defaultRedirectDelay
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.store.Update(func(st *State) { st.Loading = true })
	return s
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() State {
	st := s.store.Snapshot()
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Subscribe signals after every session change.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	return s.store.Subscribe()
}

// Rehydrate loads the stored identity for display before CheckAuthStatus has
// answered. The session stays unauthenticated and unverified.
func (s *Store) Rehydrate() {
	if s.storage == nil {
		return
	}
	u, err := s.storage.LoadUser()
	if err != nil {
		s.log.Warn("stored identity unreadable", "error", err)
		return
	}
	if u == nil {
		return
	}
	s.store.Update(func(st *State) {
		if st.Verified {
			return
		}
		st.User = u
	})
}

// CheckAuthStatus asks the backend who owns the session. Any failure is
// treated as signed out.
func (s *Store) CheckAuthStatus(ctx context.Context) error {
	s.store.Update(func(st *State) { st.Loading = true })
	defer s.store.Update(func(st *State) { st.Loading = false })

	status, err := s.gw.CheckAuth(ctx)
	if err != nil {
		s.log.Info("auth check failed", "error", err)
		s.clearLocal()
		return nil
	}
	if !status.Authenticated || status.User == nil {
		s.clearLocal()
		return nil
	}
	if status.User.Role != api.RoleBuyer {
		s.rejectRole(ctx)
		return ErrRoleNotPermitted
	}
	s.establish(*status.User)
	return nil
}

// Login signs in with email and password.
func (s *Store) Login(ctx context.Context, email, password string) (api.User, error) {
	u, err := s.gw.Login(ctx, email, password)
	if err != nil {
		return api.User{}, err
	}
	if u.Role != api.RoleBuyer {
		s.rejectRole(ctx)
		return api.User{}, ErrRoleNotPermitted
	}
	s.establish(u)
	return u, nil
}

// Register creates a buyer account and signs in.
func (s *Store) Register(ctx context.Context, name, email, password string) (api.User, error) {
	u, err := s.gw.Register(ctx, name, email, password)
	if err != nil {
		s.toasts.Error(api.Message(err, "Registration failed"))
		return api.User{}, err
	}
	if u.Role != api.RoleBuyer {
		s.rejectRole(ctx)
		return api.User{}, ErrRoleNotPermitted
	}
	s.establish(u)
	s.toasts.Success("Account created successfully!")
	return u, nil
}

// Logout invalidates the session remotely when possible and always clears it
// locally.
func (s *Store) Logout(ctx context.Context) {
	s.logout(ctx)
	s.toasts.Success("Logged out successfully")
}

func (s *Store) logout(ctx context.Context) {
	if err := s.gw.Logout(ctx); err != nil {
		s.log.Warn("logout request failed", "error", err)
	}
	s.clearLocal()
}

// Expire drops the session after the backend rejected it. No remote call is
// made.
func (s *Store) Expire() {
	if st := s.Snapshot(); st.User == nil && !st.Authenticated {
		return
	}
	s.log.Info("session expired")
	s.clearLocal()
}

// UpdateUser merges a fresh identity from a profile change. It never touches
// Loading and never re-checks the session.
func (s *Store) UpdateUser(u api.User) {
	if u.ID == "" {
		return
	}
	s.store.Update(func(st *State) {
		st.User = &u
		st.Authenticated = true
		st.Verified = true
	})
	s.persist(u)
}

func (s *Store) establish(u api.User) {
	s.store.Update(func(st *State) {
		st.User = &u
		st.Authenticated = true
		st.Verified = true
	})
	s.persist(u)
}

func (s *Store) persist(u api.User) {
	if s.storage == nil {
		return
	}
	if err := s.storage.SaveUser(u); err != nil {
		s.log.Warn("persist identity failed", "error", err)
	}
}

func (s *Store) clearLocal() {
	s.store.Update(func(st *State) {
		st.User = nil
		st.Authenticated = false
		st.Verified = false
	})
	if s.storage == nil {
		return
	}
	if err := s.storage.ClearUser(); err != nil {
		s.log.Warn("clear stored identity failed", "error", err)
	}
}

func (s *Store) rejectRole(ctx context.Context) {
	s.log.Warn("non-buyer identity rejected")
	s.toasts.Error(roleRejectedMessage)
	s.logout(ctx)

	target := nav.ExternalURL(s.adminPanelURL)
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.redirect != nil {
		s.redirect.Stop()
	}
	s.redirect = time.AfterFunc(s.redirectDelay, func() {
		s.nav.Navigate(target)
	})
}

// Close cancels a pending admin-panel redirect.
func (s *Store) Close() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.redirect != nil {
		s.redirect.Stop()
		s.redirect = nil
	}
}
