// Package wishlist keeps the buyer's saved products in step with the backend.
//
// Toggle flips membership locally and sends an explicit add or remove. Calls
// for the same product are sent in the order they were issued. Only the
// response to the most recent toggle of a product is trusted: its inWishlist
// verdict becomes the local truth, and if it fails the local flip is undone.
// Responses to superseded toggles are ignored. Sync replaces the whole set and
// invalidates every response still in flight.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/state"
	"github.com/five82/shopaura/internal/toast"
)

// Gateway is the subset of the API client the wishlist needs.
type Gateway interface {
	GetWishlist(ctx context.Context) ([]api.Product, error)
	AddToWishlist(ctx context.Context, productID string) (bool, error)
	RemoveFromWishlist(ctx context.Context, productID string) (bool, error)
}

// State is a point-in-time view of the wishlist.
type State struct {
	Items   []api.Product
	Loading bool
}

func (st *State) index(productID string) int {
	for i := range st.Items {
		if st.Items[i].ID == productID {
			return i
		}
	}
	return -1
}

func (st *State) set(p api.Product, member bool) {
	i := st.index(p.ID)
	switch {
	case member && i < 0:
		st.Items = append(st.Items, p)
	case !member && i >= 0:
		st.Items = append(st.Items[:i], st.Items[i+1:]...)
	}
}

func cloneState(st State) State {
	st.Items = state.CloneSlice(st.Items)
	return st
}

// Manager owns the wishlist state.
type Manager struct {
	gw     Gateway
	toasts toast.Notifier
	log    *slog.Logger

	store *state.Store[State]
	seq   state.Sequencer

	// Only touched inside store.Update.
	inflight int
	epoch    uint64
	latest   map[string]uint64
	issued   uint64
}

// New returns an empty wishlist manager.
func New(gw Gateway, toasts toast.Notifier, logger *slog.Logger) *Manager {
	if toasts == nil {
		toasts = toast.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		gw:     gw,
		toasts: toasts,
		log:    logger,
		store:  state.New(State{}, cloneState),
		latest: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the wishlist state.
func (m *Manager) Snapshot() State { return m.store.Snapshot() }

// Subscribe signals after every wishlist change.
func (m *Manager) Subscribe() (<-chan struct{}, func()) { return m.store.Subscribe() }

// Items returns the saved products.
func (m *Manager) Items() []api.Product { return m.Snapshot().Items }

// Count is the number of saved products.
func (m *Manager) Count() int {
	n := 0
	m.store.Read(func(st State) { n = len(st.Items) })
	return n
}

// Loading reports whether any wishlist call is in flight.
func (m *Manager) Loading() bool { return m.Snapshot().Loading }

// IsInWishlist reports local membership.
func (m *Manager) IsInWishlist(productID string) bool {
	in := false
	m.store.Read(func(st State) { in = st.index(productID) >= 0 })
	return in
}

// Reset drops the local wishlist. Responses still in flight are ignored.
func (m *Manager) Reset() {
	m.store.Update(func(st *State) {
		m.epoch++
		m.latest = make(map[string]uint64)
		st.Items = nil
	})
}

// Sync replaces the local set with the backend's list.
func (m *Manager) Sync(ctx context.Context) error {
	var epoch uint64
	m.store.Update(func(st *State) {
		m.epoch++
		epoch = m.epoch
		m.begin(st)
	})

	items, err := m.gw.GetWishlist(ctx)

	m.store.Update(func(st *State) {
		m.end(st)
		if err != nil || epoch != m.epoch {
			return
		}
		st.Items = dedupe(items)
	})
	if err != nil {
		m.report(err, "Failed to load wishlist")
		return fmt.Errorf("sync wishlist: %w", err)
	}
	return nil
}

func dedupe(items []api.Product) []api.Product {
	out := make([]api.Product, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, p := range items {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// Toggle adds p when absent and removes it when present. It returns the
// membership the backend settled on, or the local prediction when a newer
// toggle of the same product has superseded this one.
func (m *Manager) Toggle(ctx context.Context, p api.Product) (bool, error) {
	if p.ID == "" {
		return false, fmt.Errorf("toggle wishlist: product id required")
	}
	id := p.ID
	var (
		want   bool
		gen    uint64
		epoch  uint64
		ticket *state.Ticket
	)
	m.store.Update(func(st *State) {
		want = st.index(id) < 0
		st.set(p, want)
		m.issued++
		gen = m.issued
		m.latest[id] = gen
		epoch = m.epoch
		ticket = m.seq.Take(id)
		m.begin(st)
	})

	var member bool
	err := ticket.Wait(ctx)
	if err == nil {
		if want {
			member, err = m.gw.AddToWishlist(ctx, id)
		} else {
			member, err = m.gw.RemoveFromWishlist(ctx, id)
		}
	}

	current := true
	m.store.Update(func(st *State) {
		defer ticket.Release()
		m.end(st)
		if epoch != m.epoch || m.latest[id] != gen {
			current = false
			return
		}
		delete(m.latest, id)
		if err != nil {
			st.set(p, !want)
			return
		}
		st.set(p, member)
	})

	if err != nil {
		if current {
			m.report(err, "Failed to update wishlist")
		}
		return !want, err
	}
	if !current {
		return want, nil
	}
	if member {
		m.toasts.Success("Added to wishlist")
	} else {
		m.toasts.Success("Removed from wishlist")
	}
	return member, nil
}

// ClearAll removes every saved product one at a time and stops at the first
// failure.
func (m *Manager) ClearAll(ctx context.Context) error {
	for _, p := range m.Items() {
		if !m.IsInWishlist(p.ID) {
			continue
		}
		if _, err := m.Toggle(ctx, p); err != nil {
			return fmt.Errorf("clear wishlist: %w", err)
		}
	}
	return nil
}

func (m *Manager) begin(st *State) {
	m.inflight++
	st.Loading = true
}

func (m *Manager) end(st *State) {
	m.inflight--
	st.Loading = m.inflight > 0
}

func (m *Manager) report(err error, fallback string) {
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, context.Canceled) {
		m.log.Debug("wishlist call abandoned", "error", err)
		return
	}
	m.log.Warn("wishlist call failed", "error", err)
	m.toasts.Error(api.Message(err, fallback))
}
