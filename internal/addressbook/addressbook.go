// Package addressbook manages the buyer's saved delivery addresses.
//
// Every change goes to the backend first and the local list is replaced by
// a fresh listing afterwards, so the default flag always matches what the
// backend settled on.
package addressbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/state"
	"github.com/five82/shopaura/internal/toast"
)

// ErrIncomplete is returned when a required address field is blank.
var ErrIncomplete = errors.New("address is incomplete")

// Gateway is the subset of the API client the address book needs.
type Gateway interface {
	ListAddresses(ctx context.Context) ([]api.Address, error)
	AddAddress(ctx context.Context, addr api.Address) (api.Address, error)
	UpdateAddress(ctx context.Context, id string, addr api.Address) (api.Address, error)
	DeleteAddress(ctx context.Context, id string) error
	SetDefaultAddress(ctx context.Context, id string) error
}

// State is a point-in-time view of the address book.
type State struct {
	Items   []api.Address
	Loading bool
}

func cloneState(st State) State {
	st.Items = state.CloneSlice(st.Items)
	return st
}

// Manager owns the address list.
type Manager struct {
	gw     Gateway
	toasts toast.Notifier
	log    *slog.Logger

	store *state.Store[State]

	// Only touched inside store.Update.
	epoch    uint64
	inflight int
}

// New returns an empty address book.
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
	}
}

// Snapshot returns a copy of the address book.
func (m *Manager) Snapshot() State { return m.store.Snapshot() }

// Subscribe signals after every change.
func (m *Manager) Subscribe() (<-chan struct{}, func()) { return m.store.Subscribe() }

// Items returns the saved addresses.
func (m *Manager) Items() []api.Address { return m.Snapshot().Items }

// Default returns the default address, if one is flagged.
func (m *Manager) Default() (api.Address, bool) {
	var (
		addr  api.Address
		found bool
	)
	m.store.Read(func(st State) {
		for _, a := range st.Items {
			if a.IsDefault {
				addr, found = a, true
				return
			}
		}
	})
	return addr, found
}

// Reset drops the local list. Listings still in flight are ignored.
func (m *Manager) Reset() {
	m.store.Update(func(st *State) {
		m.epoch++
		st.Items = nil
	})
}

// Load replaces the local list with the backend's.
func (m *Manager) Load(ctx context.Context) error {
	if err := m.refresh(ctx); err != nil {
		m.report(err, "Failed to load addresses")
		return fmt.Errorf("load addresses: %w", err)
	}
	return nil
}

// Save adds addr when it has no id and updates it otherwise. It returns the
// stored address.
func (m *Manager) Save(ctx context.Context, addr api.Address) (api.Address, error) {
	addr = trimAddress(addr)
	if missing := missingFields(addr); len(missing) > 0 {
		m.toasts.Error("Please fill in " + strings.Join(missing, ", "))
		return api.Address{}, fmt.Errorf("save address: %w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	var (
		saved api.Address
		err   error
		okMsg = "Address added"
	)
	m.begin()
	if addr.ID == "" {
		saved, err = m.gw.AddAddress(ctx, addr)
	} else {
		okMsg = "Address updated"
		saved, err = m.gw.UpdateAddress(ctx, addr.ID, addr)
	}
	m.end()
	if err != nil {
		m.report(err, "Failed to save address")
		return api.Address{}, fmt.Errorf("save address: %w", err)
	}
	m.log.Info("address saved", "address", saved.ID)
	m.toasts.Success(okMsg)
	m.relist(ctx)
	return saved, nil
}

// Delete removes an address.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.begin()
	err := m.gw.DeleteAddress(ctx, id)
	m.end()
	if err != nil {
		m.report(err, "Failed to delete address")
		return fmt.Errorf("delete address: %w", err)
	}
	m.toasts.Success("Address deleted")
	m.relist(ctx)
	return nil
}

// SetDefault makes id the default delivery address.
func (m *Manager) SetDefault(ctx context.Context, id string) error {
	m.begin()
	err := m.gw.SetDefaultAddress(ctx, id)
	m.end()
	if err != nil {
		m.report(err, "Failed to set default address")
		return fmt.Errorf("set default address: %w", err)
	}
	m.toasts.Success("Default address updated")
	m.relist(ctx)
	return nil
}

// relist refreshes after a successful change. A failed listing leaves the
// old list in place; the change itself already succeeded.
func (m *Manager) relist(ctx context.Context) {
	if err := m.refresh(ctx); err != nil {
		m.log.Warn("address relist failed", "error", err)
	}
}

func (m *Manager) refresh(ctx context.Context) error {
	var epoch uint64
	m.store.Update(func(st *State) {
		epoch = m.epoch
		m.inflight++
		st.Loading = true
	})

	items, err := m.gw.ListAddresses(ctx)

	m.store.Update(func(st *State) {
		m.inflight--
		st.Loading = m.inflight > 0
		if err == nil && epoch == m.epoch {
			st.Items = items
		}
	})
	return err
}

func (m *Manager) begin() {
	m.store.Update(func(st *State) {
		m.inflight++
		st.Loading = true
	})
}

func (m *Manager) end() {
	m.store.Update(func(st *State) {
		m.inflight--
		st.Loading = m.inflight > 0
	})
}

func (m *Manager) report(err error, fallback string) {
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, context.Canceled) {
		m.log.Debug("address call abandoned", "error", err)
		return
	}
	m.log.Warn("address call failed", "error", err)
	m.toasts.Error(api.Message(err, fallback))
}

func trimAddress(a api.Address) api.Address {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Pincode = strings.TrimSpace(a.Pincode)
	a.AddressLine1 = strings.TrimSpace(a.AddressLine1)
	a.AddressLine2 = strings.TrimSpace(a.AddressLine2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	return a
}

// missingFields names the blank required fields in form order.
func missingFields(a api.Address) []string {
	required := []struct {
		name  string
		value string
	}{
		{"full name", a.FullName},
		{"phone", a.Phone},
		{"address", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"pincode", a.Pincode},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
