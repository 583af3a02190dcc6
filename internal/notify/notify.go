// Package notify merges fetched and pushed notifications into one list.
//
// Two producers feed the Manager: Fetch, which replaces the visible page, and
// Receive, which prepends a single pushed notification. Entries are keyed by
// id so a push that a later fetch also returns shows up once. Read marking is
// pessimistic: flags and counters only move after the backend confirms.
//
// UnreadCount is always derived from the list. TotalUnread mirrors the
// server-wide badge from the unread-count endpoint and is adjusted by the same
// mutations, never dropping below zero.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/state"
	"github.com/five82/shopaura/internal/toast"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Gateway is the subset of the API client notifications need.
type Gateway interface {
	ListNotifications(ctx context.Context, query api.NotificationQuery) ([]api.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
	ClearNotifications(ctx context.Context) error
}

// State is a point-in-time view of the notifications.
type State struct {
	Items       []api.Notification
	TotalUnread int
	Loading     bool
}

// UnreadCount counts unread entries in Items.
func (st State) UnreadCount() int {
	n := 0
	for _, it := range st.Items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

func (st *State) index(id string) int {
	for i := range st.Items {
		if st.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (st *State) decrementTotal() {
	if st.TotalUnread > 0 {
		st.TotalUnread--
	}
}

func cloneState(st State) State {
	st.Items = state.CloneSlice(st.Items)
	return st
}

// Manager owns the notification state.
type Manager struct {
	gw     Gateway
	toasts toast.Notifier
	log    *slog.Logger
	store  *state.Store[State]

	// Fields below are only touched inside store.Update.
	epoch    uint64
	inflight int
	fetching int
	lastList uint64
	tick     uint64
	arrived  map[string]uint64
	readAt   map[string]uint64
	gone     map[string]uint64
	allRead  uint64
	cleared  uint64
	hooks    []func(api.Notification)
}

// New returns an empty notification manager.
func New(gw Gateway, toasts toast.Notifier, logger *slog.Logger) *Manager {
	if toasts == nil {
		toasts = toast.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		gw:     gw,
		toasts: toasts,
		log:    logger,
		store:  state.New(State{}, cloneState),
	}
	m.resetMarks()
	return m
}

func (m *Manager) resetMarks() {
	m.arrived = make(map[string]uint64)
	m.readAt = make(map[string]uint64)
	m.gone = make(map[string]uint64)
	m.allRead = 0
	m.cleared = 0
}

// Snapshot returns a copy of the notification state.
func (m *Manager) Snapshot() State { return m.store.Snapshot() }

// Subscribe signals after every change.
func (m *Manager) Subscribe() (<-chan struct{}, func()) { return m.store.Subscribe() }

// Items returns the visible notifications, newest first.
func (m *Manager) Items() []api.Notification { return m.Snapshot().Items }

// UnreadCount is the number of unread visible notifications.
func (m *Manager) UnreadCount() int {
	n := 0
	m.store.Read(func(st State) { n = st.UnreadCount() })
	return n
}

// TotalUnread is the server-wide unread badge.
func (m *Manager) TotalUnread() int {
	n := 0
	m.store.Read(func(st State) { n = st.TotalUnread })
	return n
}

// OnReceive registers fn to run after every pushed notification is merged.
func (m *Manager) OnReceive(fn func(api.Notification)) {
	if fn == nil {
		return
	}
	m.store.Update(func(*State) { m.hooks = append(m.hooks, fn) })
}

// Reset drops every notification locally. Responses still in flight are
// ignored.
func (m *Manager) Reset() {
	m.store.Update(func(st *State) {
		m.epoch++
		m.resetMarks()
		st.Items = nil
		st.TotalUnread = 0
	})
}

// Receive merges a pushed notification at the top of the list. A notification
// already present is left as is.
func (m *Manager) Receive(n api.Notification) {
	if n.ID == "" {
		m.log.Warn("dropping notification without id")
		return
	}
	added := false
	var hooks []func(api.Notification)
	m.store.Update(func(st *State) {
		if st.index(n.ID) >= 0 {
			return
		}
		added = true
		m.tick++
		m.arrived[n.ID] = m.tick
		st.Items = append([]api.Notification{n}, st.Items...)
		if !n.IsRead {
			st.TotalUnread++
		}
		hooks = append(hooks, m.hooks...)
	})
	if !added {
		return
	}
	title := n.Title
	if title == "" {
		title = "New notification"
	}
	m.toasts.Success(title)
	for _, fn := range hooks {
		fn(n)
	}
}

// Fetch replaces the visible list with one page from the backend. Pushed
// notifications that arrived after the request left and are missing from the
// page are kept. Reads, deletes and clears confirmed while the request was in
// flight are applied on top of the page.
func (m *Manager) Fetch(ctx context.Context, page, limit int, unreadOnly bool) error {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	var epoch, issued, gen uint64
	m.store.Update(func(st *State) {
		epoch = m.epoch
		issued = m.tick
		m.lastList++
		gen = m.lastList
		m.fetching++
		m.begin(st)
	})

	items, err := m.gw.ListNotifications(ctx, api.NotificationQuery{Page: page, Limit: limit, UnreadOnly: unreadOnly})

	m.store.Update(func(st *State) {
		m.end(st)
		m.fetching--
		defer func() {
			if m.fetching == 0 && epoch == m.epoch {
				m.resetMarks()
			}
		}()
		if err != nil || epoch != m.epoch || gen != m.lastList {
			return
		}
		st.Items = m.merge(st.Items, items, issued)
	})
	if err != nil {
		m.log.Warn("fetch notifications failed", "error", err)
		return fmt.Errorf("fetch notifications: %w", err)
	}
	return nil
}

// merge builds the next list from a fetched page and the local list, given
// the tick at which the fetch was issued.
func (m *Manager) merge(local, fetched []api.Notification, issued uint64) []api.Notification {
	next := make([]api.Notification, 0, len(fetched)+len(local))
	seen := make(map[string]bool, len(fetched)+len(local))

	for _, n := range local {
		if at, ok := m.arrived[n.ID]; ok && at > issued {
			seen[n.ID] = true
			next = append(next, n)
		}
	}
	for _, n := range fetched {
		if n.ID == "" || seen[n.ID] {
			continue
		}
		if at, ok := m.gone[n.ID]; ok && at > issued {
			continue
		}
		if m.cleared > issued {
			continue
		}
		if at, ok := m.readAt[n.ID]; (ok && at > issued) || m.allRead > issued {
			n.IsRead = true
		}
		seen[n.ID] = true
		next = append(next, n)
	}
	return next
}

// FetchUnreadCount refreshes TotalUnread from the backend.
func (m *Manager) FetchUnreadCount(ctx context.Context) error {
	var epoch, issued uint64
	m.store.Update(func(*State) {
		epoch = m.epoch
		issued = m.tick
	})

	count, err := m.gw.UnreadCount(ctx)
	if err != nil {
		m.log.Warn("fetch unread count failed", "error", err)
		return fmt.Errorf("fetch unread count: %w", err)
	}
	m.store.Update(func(st *State) {
		if epoch != m.epoch || m.tick != issued {
			// Something changed the badge meanwhile; the next poll settles it.
			return
		}
		st.TotalUnread = max(count, 0)
	})
	return nil
}

// MarkAsRead marks one notification read once the backend confirms.
func (m *Manager) MarkAsRead(ctx context.Context, id string) error {
	epoch := m.start()
	err := m.gw.MarkNotificationRead(ctx, id)
	m.store.Update(func(st *State) {
		m.end(st)
		if err != nil || epoch != m.epoch {
			return
		}
		m.tick++
		m.readAt[id] = m.tick
		// Entries outside the list are left to the next unread count.
		i := st.index(id)
		if i < 0 || st.Items[i].IsRead {
			return
		}
		st.Items[i].IsRead = true
		st.decrementTotal()
	})
	if err != nil {
		m.log.Warn("mark notification read failed", "id", id, "error", err)
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks every notification read once the backend confirms.
// Repeating it is harmless.
func (m *Manager) MarkAllAsRead(ctx context.Context) error {
	epoch := m.start()
	err := m.gw.MarkAllNotificationsRead(ctx)
	m.store.Update(func(st *State) {
		m.end(st)
		if err != nil || epoch != m.epoch {
			return
		}
		m.tick++
		m.allRead = m.tick
		for i := range st.Items {
			st.Items[i].IsRead = true
		}
		st.TotalUnread = 0
	})
	if err != nil {
		m.report(err, "Failed to mark all as read")
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	m.toasts.Success("All notifications marked as read")
	return nil
}

// Delete removes one notification.
func (m *Manager) Delete(ctx context.Context, id string) error {
	epoch := m.start()
	err := m.gw.DeleteNotification(ctx, id)
	m.store.Update(func(st *State) {
		m.end(st)
		if err != nil || epoch != m.epoch {
			return
		}
		m.tick++
		m.gone[id] = m.tick
		i := st.index(id)
		if i < 0 {
			return
		}
		if !st.Items[i].IsRead {
			st.decrementTotal()
		}
		st.Items = append(st.Items[:i], st.Items[i+1:]...)
	})
	if err != nil {
		m.report(err, "Failed to delete notification")
		return fmt.Errorf("delete notification: %w", err)
	}
	m.toasts.Success("Notification deleted")
	return nil
}

// ClearAll removes every notification.
func (m *Manager) ClearAll(ctx context.Context) error {
	epoch := m.start()
	err := m.gw.ClearNotifications(ctx)
	m.store.Update(func(st *State) {
		m.end(st)
		if err != nil || epoch != m.epoch {
			return
		}
		m.tick++
		m.cleared = m.tick
		st.Items = nil
		st.TotalUnread = 0
	})
	if err != nil {
		m.report(err, "Failed to clear notifications")
		return fmt.Errorf("clear notifications: %w", err)
	}
	m.toasts.Success("All notifications cleared")
	return nil
}

func (m *Manager) start() uint64 {
	var epoch uint64
	m.store.Update(func(st *State) {
		epoch = m.epoch
		m.begin(st)
	})
	return epoch
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
		m.log.Debug("notification call abandoned", "error", err)
		return
	}
	m.log.Warn("notification call failed", "error", err)
	m.toasts.Error(fallback)
}
