package notify

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/apitest"
	"github.com/five82/shopaura/internal/toast"
)

func setup(t *testing.T) (*apitest.Server, api.User, *toast.Queue, *Manager) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	u := srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)
	client, err := api.NewClient(api.Options{BaseURL: srv.APIURL()})
	require.NoError(t, err)
	_, err = client.Login(context.Background(), "asha@example.com", "secret")
	require.NoError(t, err)
	toasts := &toast.Queue{}
	return srv, u, toasts, New(client, toasts, nil)
}

func requireDerivedUnread(t *testing.T, m *Manager) {
	t.Helper()
	st := m.Snapshot()
	want := 0
	for _, n := range st.Items {
		if !n.IsRead {
			want++
		}
	}
	require.Equal(t, want, m.UnreadCount())
	require.GreaterOrEqual(t, st.TotalUnread, 0)
}

func TestFetchAndUnreadCount(t *testing.T) {
	srv, u, _, m := setup(t)
	srv.AddNotification(u.ID, api.Notification{Title: "old", IsRead: true})
	srv.AddNotification(u.ID, api.Notification{Title: "new"})
	ctx := context.Background()

	require.NoError(t, m.Fetch(ctx, 0, 0, false))
	require.NoError(t, m.FetchUnreadCount(ctx))

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].Title)
	assert.Equal(t, 1, m.UnreadCount())
	assert.Equal(t, 1, m.TotalUnread())
	assert.Equal(t, 1, srv.CountCalls(http.MethodGet, "/notifications"))
}

func TestPushThenFetchDoesNotDuplicate(t *testing.T) {
	srv, u, toasts, m := setup(t)
	ctx := context.Background()

	pushed := srv.AddNotification(u.ID, api.Notification{Title: "Order shipped"})
	m.Receive(pushed)
	m.Receive(pushed)
	assert.Len(t, m.Items(), 1)
	assert.Equal(t, 1, m.TotalUnread())
	latest, _ := toasts.Latest()
	assert.Equal(t, "Order shipped", latest.Text)
	assert.Len(t, toasts.Messages(), 1)

	require.NoError(t, m.Fetch(ctx, 1, 20, false))
	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, pushed.ID, items[0].ID)
	requireDerivedUnread(t, m)
}

func TestPushDuringFetchIsKept(t *testing.T) {
	srv, u, _, m := setup(t)
	srv.AddNotification(u.ID, api.Notification{Title: "existing"})
	ctx := context.Background()

	release := srv.Block(http.MethodGet, "/notifications")
	done := make(chan error, 1)
	go func() { done <- m.Fetch(ctx, 1, 20, false) }()
	require.Eventually(t, func() bool { return m.Snapshot().Loading }, time.Second, 5*time.Millisecond)

	// Local only, so the page cannot contain it.
	m.Receive(api.Notification{ID: "live-1", Title: "live"})
	release()
	require.NoError(t, <-done)

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "live-1", items[0].ID)
	assert.Equal(t, "existing", items[1].Title)
	requireDerivedUnread(t, m)
}

func TestMarkAsReadIsPessimistic(t *testing.T) {
	srv, u, _, m := setup(t)
	n := srv.AddNotification(u.ID, api.Notification{Title: "hello"})
	ctx := context.Background()
	require.NoError(t, m.Fetch(ctx, 1, 20, false))
	require.NoError(t, m.FetchUnreadCount(ctx))

	srv.FailNext(http.MethodPut, "/notifications/"+n.ID+"/read", http.StatusInternalServerError, "")
	require.Error(t, m.MarkAsRead(ctx, n.ID))
	assert.Equal(t, 1, m.UnreadCount())
	assert.Equal(t, 1, m.TotalUnread())

	require.NoError(t, m.MarkAsRead(ctx, n.ID))
	assert.Zero(t, m.UnreadCount())
	assert.Zero(t, m.TotalUnread())

	require.NoError(t, m.MarkAsRead(ctx, n.ID))
	assert.Zero(t, m.TotalUnread(), "badge never goes negative")
}

func TestMarkAsReadOutsideListLeavesBadgeToServer(t *testing.T) {
	srv, u, _, m := setup(t)
	n := srv.AddNotification(u.ID, api.Notification{Title: "first"})
	srv.AddNotification(u.ID, api.Notification{Title: "second"})
	ctx := context.Background()
	require.NoError(t, m.FetchUnreadCount(ctx))
	require.Equal(t, 2, m.TotalUnread())
	require.Empty(t, m.Items())

	require.NoError(t, m.MarkAsRead(ctx, n.ID))
	assert.Equal(t, 2, m.TotalUnread(), "badge only moves for a listed unread entry")

	require.NoError(t, m.FetchUnreadCount(ctx))
	assert.Equal(t, 1, m.TotalUnread())
}

// staleGateway serves a page captured before it is released, so reads
// confirmed in between arrive after the page was built.
type staleGateway struct {
	Gateway
	page    []api.Notification
	release chan struct{}
}

func (g *staleGateway) ListNotifications(ctx context.Context, _ api.NotificationQuery) ([]api.Notification, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return append([]api.Notification(nil), g.page...), nil
}

func (g *staleGateway) MarkNotificationRead(context.Context, string) error { return nil }

func (g *staleGateway) DeleteNotification(context.Context, string) error { return nil }

func TestMutationsConfirmedDuringFetchSurviveStalePage(t *testing.T) {
	gw := &staleGateway{
		page: []api.Notification{
			{ID: "a", Title: "a"},
			{ID: "b", Title: "b"},
		},
		release: make(chan struct{}),
	}
	m := New(gw, nil, nil)
	ctx := context.Background()
	m.Receive(api.Notification{ID: "a", Title: "a"})
	m.Receive(api.Notification{ID: "b", Title: "b"})

	done := make(chan error, 1)
	go func() { done <- m.Fetch(ctx, 1, 20, false) }()
	require.Eventually(t, func() bool { return m.Snapshot().Loading }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.MarkAsRead(ctx, "a"))
	require.NoError(t, m.Delete(ctx, "b"))
	close(gw.release)
	require.NoError(t, <-done)

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
	assert.True(t, items[0].IsRead)
	assert.Zero(t, m.UnreadCount())
	assert.Zero(t, m.TotalUnread())
}

func TestMarkAllAsReadIsIdempotent(t *testing.T) {
	srv, u, toasts, m := setup(t)
	for range 3 {
		srv.AddNotification(u.ID, api.Notification{Title: "n"})
	}
	ctx := context.Background()
	require.NoError(t, m.Fetch(ctx, 1, 20, false))
	require.NoError(t, m.FetchUnreadCount(ctx))
	require.Equal(t, 3, m.UnreadCount())

	require.NoError(t, m.MarkAllAsRead(ctx))
	require.NoError(t, m.MarkAllAsRead(ctx))
	assert.Zero(t, m.UnreadCount())
	assert.Zero(t, m.TotalUnread())
	latest, _ := toasts.Latest()
	assert.Equal(t, "All notifications marked as read", latest.Text)

	srv.FailNext(http.MethodPut, "/notifications/read-all", http.StatusInternalServerError, "")
	require.Error(t, m.MarkAllAsRead(ctx))
	latest, _ = toasts.Latest()
	assert.Equal(t, "Failed to mark all as read", latest.Text)
}

func TestDeleteAndClearAll(t *testing.T) {
	srv, u, _, m := setup(t)
	a := srv.AddNotification(u.ID, api.Notification{Title: "a"})
	srv.AddNotification(u.ID, api.Notification{Title: "b"})
	ctx := context.Background()
	require.NoError(t, m.Fetch(ctx, 1, 20, false))
	require.NoError(t, m.FetchUnreadCount(ctx))

	require.NoError(t, m.Delete(ctx, a.ID))
	assert.Len(t, m.Items(), 1)
	assert.Equal(t, 1, m.TotalUnread())
	requireDerivedUnread(t, m)

	require.Error(t, m.Delete(ctx, "missing"))
	assert.Len(t, m.Items(), 1)

	require.NoError(t, m.ClearAll(ctx))
	assert.Empty(t, m.Items())
	assert.Zero(t, m.TotalUnread())
	assert.Empty(t, srv.Notifications(u.ID))
}

func TestOnReceiveHookAndReset(t *testing.T) {
	_, _, _, m := setup(t)
	var got []string
	m.OnReceive(func(n api.Notification) { got = append(got, n.ID) })

	m.Receive(api.Notification{ID: "x", Title: "x"})
	m.Receive(api.Notification{Title: "no id"})
	assert.Equal(t, []string{"x"}, got)

	m.Reset()
	assert.Empty(t, m.Items())
	assert.Zero(t, m.TotalUnread())
}

func TestStateUnreadCount(t *testing.T) {
	tests := []struct {
		name  string
		items []api.Notification
		want  int
	}{
		{name: "empty"},
		{name: "mixed", items: []api.Notification{{ID: "1"}, {ID: "2", IsRead: true}, {ID: "3"}}, want: 2},
		{name: "all read", items: []api.Notification{{ID: "1", IsRead: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, State{Items: tt.items}.UnreadCount())
		})
	}
}
