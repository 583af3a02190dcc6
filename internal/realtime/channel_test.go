package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/apitest"
)

type recorder struct {
	mu     sync.Mutex
	got    []api.Notification
	states []State
}

func (r *recorder) handle(n api.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) state(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) notifications() []api.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Notification(nil), r.got...)
}

func (r *recorder) sawState(s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.states {
		if got == s {
			return true
		}
	}
	return false
}

func signedIn(t *testing.T) (*apitest.Server, *api.Client, api.User) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	u := srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)
	client, err := api.NewClient(api.Options{BaseURL: srv.APIURL()})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = client.Login(ctx, "asha@example.com", "secret")
	require.NoError(t, err)
	return srv, client, u
}

func TestChannelJoinsAndDeliversNormalizedNotifications(t *testing.T) {
	srv, client, u := signedIn(t)
	rec := &recorder{}

	ch, err := Start(Options{URL: srv.SocketURL(), Jar: client.Jar(), OnStateChange: rec.state}, u.ID, rec.handle)
	require.NoError(t, err)
	t.Cleanup(ch.Close)

	require.Eventually(t, func() bool { return srv.Joins(u.ID) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return ch.State() == Connected }, time.Second, 10*time.Millisecond)

	pushed, reached := srv.Push(u.ID, api.Notification{Type: "ORDER", Title: "Shipped", Message: "Your order shipped"})
	assert.Equal(t, 1, reached)

	require.Eventually(t, func() bool { return len(rec.notifications()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := rec.notifications()[0]
	assert.Equal(t, pushed.ID, got.ID)
	assert.Equal(t, api.NotificationOrder, got.Type)
	assert.False(t, got.Timestamp.IsZero())
	assert.True(t, rec.sawState(Connecting))
}

func TestChannelReconnectsAfterDrop(t *testing.T) {
	srv, client, u := signedIn(t)
	rec := &recorder{}

	ch, err := Start(Options{
		URL:           srv.SocketURL(),
		Jar:           client.Jar(),
		RetryDelay:    20 * time.Millisecond,
		OnStateChange: rec.state,
	}, u.ID, rec.handle)
	require.NoError(t, err)
	t.Cleanup(ch.Close)

	require.Eventually(t, func() bool { return srv.Joins(u.ID) == 1 }, 2*time.Second, 10*time.Millisecond)
	srv.DropSockets()

	require.Eventually(t, func() bool { return srv.Joins(u.ID) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, rec.sawState(Reconnecting))
	require.Eventually(t, func() bool { return ch.State() == Connected }, time.Second, 10*time.Millisecond)
}

func TestChannelGivesUpAfterMaxAttempts(t *testing.T) {
	srv, client, u := signedIn(t)
	srv.RefuseSockets(true)

	ch, err := Start(Options{
		URL:         srv.SocketURL(),
		Jar:         client.Jar(),
		MaxAttempts: 3,
		RetryDelay:  10 * time.Millisecond,
	}, u.ID, func(api.Notification) {})
	require.NoError(t, err)
	t.Cleanup(ch.Close)

	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("channel kept retrying past MaxAttempts")
	}
	assert.Equal(t, Disconnected, ch.State())
	assert.Zero(t, srv.Joins(u.ID))
}

func TestChannelGivesUpWhenDroppedBeforeAnyFrame(t *testing.T) {
	srv, client, u := signedIn(t)
	srv.DropAfterJoin(true)

	ch, err := Start(Options{
		URL:         srv.SocketURL(),
		Jar:         client.Jar(),
		MaxAttempts: 3,
		RetryDelay:  10 * time.Millisecond,
	}, u.ID, func(api.Notification) {})
	require.NoError(t, err)
	t.Cleanup(ch.Close)

	select {
	case <-ch.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("channel kept reconnecting to a socket that never delivers")
	}
	assert.Equal(t, Disconnected, ch.State())
	assert.Equal(t, 3, srv.Joins(u.ID))
}

func TestChannelDeliveryResetsAttempts(t *testing.T) {
	srv, client, u := signedIn(t)
	rec := &recorder{}

	ch, err := Start(Options{
		URL:         srv.SocketURL(),
		Jar:         client.Jar(),
		MaxAttempts: 2,
		RetryDelay:  10 * time.Millisecond,
	}, u.ID, rec.handle)
	require.NoError(t, err)
	t.Cleanup(ch.Close)

	for round := 1; round <= 3; round++ {
		require.Eventually(t, func() bool { return srv.Joins(u.ID) == round }, 2*time.Second, 10*time.Millisecond)
		require.Eventually(t, func() bool {
			_, reached := srv.Push(u.ID, api.Notification{Title: "tick"})
			return reached == 1
		}, 2*time.Second, 10*time.Millisecond)
		require.Eventually(t, func() bool { return len(rec.notifications()) >= round }, 2*time.Second, 10*time.Millisecond)
		srv.DropSockets()
	}
	require.Eventually(t, func() bool { return srv.Joins(u.ID) == 4 }, 2*time.Second, 10*time.Millisecond)
	select {
	case <-ch.Done():
		t.Fatal("channel gave up although every connection delivered")
	default:
	}
}

func TestChannelCloseDetachesHandlerOnce(t *testing.T) {
	srv, client, u := signedIn(t)
	rec := &recorder{}

	ch, err := Start(Options{URL: srv.SocketURL(), Jar: client.Jar()}, u.ID, rec.handle)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Joins(u.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	ch.Close()
	ch.Close()
	assert.Equal(t, Disconnected, ch.State())

	require.Eventually(t, func() bool { return srv.SocketCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	_, reached := srv.Push(u.ID, api.Notification{Title: "late"})
	assert.Zero(t, reached)
	assert.Empty(t, rec.notifications())
}

func TestStartValidatesInput(t *testing.T) {
	_, err := Start(Options{}, "u1", nil)
	assert.Error(t, err)
	_, err = Start(Options{URL: "ws://127.0.0.1:1/ws"}, "", nil)
	assert.Error(t, err)
}
