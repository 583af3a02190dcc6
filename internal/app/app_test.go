package app

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/apitest"
	"github.com/five82/shopaura/internal/checkout"
	"github.com/five82/shopaura/internal/config"
	"github.com/five82/shopaura/internal/nav"
	"github.com/five82/shopaura/internal/prefs"
	"github.com/five82/shopaura/internal/realtime"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type env struct {
	srv   *apitest.Server
	user  api.User
	prefs *prefs.File
	app   *App
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	u := srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)

	store := prefs.Open(filepath.Join(t.TempDir(), "prefs.toml"))
	cfg := config.Config{
		APIURL:            srv.APIURL(),
		SocketURL:         srv.SocketURL(),
		PaymentBridgeAddr: "127.0.0.1:0",
		ReconnectAttempts: 2,
		ReconnectDelay:    10 * time.Millisecond,
		RoleRedirectDelay: 10 * time.Millisecond,
	}
	a, err := New(cfg, Deps{Storage: store})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return &env{srv: srv, user: u, prefs: store, app: a}
}

func (e *env) waitBootstrap(t *testing.T) {
	t.Helper()
	done := e.app.BootstrapDone()
	require.NotNil(t, done, "no active session")
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("bootstrap did not finish")
	}
}

func TestLoginBootstrapsSessionData(t *testing.T) {
	e := newEnv(t)
	p := e.srv.AddProduct(api.Product{Name: "Kettle", Price: 1200, Stock: 4})
	w := e.srv.AddProduct(api.Product{Name: "Lamp", Price: 800, Stock: 2})
	e.srv.SeedCart(e.user.ID, p.ID, 2)
	e.srv.SeedWishlist(e.user.ID, w.ID)
	e.srv.AddNotification(e.user.ID, api.Notification{Title: "Welcome"})
	ctx := context.Background()
	e.app.Start(ctx)
	assert.Nil(t, e.app.BootstrapDone(), "no session before login")

	require.NoError(t, e.app.Login(ctx, "asha@example.com", "secret"))
	e.waitBootstrap(t)

	assert.Equal(t, 2, e.app.Cart.Count())
	assert.True(t, e.app.Wishlist.IsInWishlist(w.ID))
	assert.Len(t, e.app.Notify.Items(), 1)
	assert.Equal(t, 1, e.app.Notify.TotalUnread())

	require.Eventually(t, func() bool { return e.app.Realtime.Snapshot() == realtime.Connected }, waitFor, tick)
	require.Eventually(t, func() bool { return e.srv.Joins(e.user.ID) == 1 }, waitFor, tick)

	stored, err := e.prefs.LoadUser()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, e.user.ID, stored.ID)
}

func TestPushReachesNotifications(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.app.Start(ctx)
	require.NoError(t, e.app.Login(ctx, "asha@example.com", "secret"))
	e.waitBootstrap(t)
	require.Eventually(t, func() bool { return e.srv.Joins(e.user.ID) == 1 }, waitFor, tick)

	pushed, sent := e.srv.Push(e.user.ID, api.Notification{Title: "Order shipped"})
	require.Equal(t, 1, sent)
	require.Eventually(t, func() bool {
		items := e.app.Notify.Items()
		return len(items) == 1 && items[0].ID == pushed.ID
	}, waitFor, tick)
	latest, ok := e.app.Toasts.Latest()
	require.True(t, ok)
	assert.Equal(t, "Order shipped", latest.Text)
}

func TestLogoutResetsManagersAndClosesChannel(t *testing.T) {
	e := newEnv(t)
	p := e.srv.AddProduct(api.Product{Name: "Kettle", Price: 1200, Stock: 4})
	e.srv.SeedCart(e.user.ID, p.ID, 1)
	e.srv.SeedWishlist(e.user.ID, p.ID)
	ctx := context.Background()
	e.app.Start(ctx)
	require.NoError(t, e.app.Login(ctx, "asha@example.com", "secret"))
	e.waitBootstrap(t)
	require.Eventually(t, func() bool { return e.srv.SocketCount() == 1 }, waitFor, tick)

	e.app.Logout(ctx)

	assert.Zero(t, e.app.Cart.Count())
	assert.Zero(t, e.app.Wishlist.Count())
	assert.Empty(t, e.app.Notify.Items())
	assert.Nil(t, e.app.BootstrapDone())
	assert.Equal(t, realtime.Disconnected, e.app.Realtime.Snapshot())
	assert.Equal(t, nav.RouteLogin, e.app.History.Current().Path)
	require.Eventually(t, func() bool { return e.srv.SocketCount() == 0 }, waitFor, tick)

	stored, err := e.prefs.LoadUser()
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Equal(t, 1, e.srv.CartQuantities(e.user.ID)[p.ID], "logout keeps the remote cart")
}

func TestUnauthorizedResponseEndsSession(t *testing.T) {
	e := newEnv(t)
	p := e.srv.AddProduct(api.Product{Name: "Kettle", Price: 1200, Stock: 4})
	ctx := context.Background()
	e.app.Start(ctx)
	require.NoError(t, e.app.Login(ctx, "asha@example.com", "secret"))
	e.waitBootstrap(t)

	e.srv.ExpireSessions()
	err := e.app.Cart.AddToCart(ctx, p, 1)
	require.ErrorIs(t, err, api.ErrUnauthorized)

	require.Eventually(t, func() bool { return e.app.BootstrapDone() == nil }, waitFor, tick)
	st := e.app.Session.Snapshot()
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.User)
	assert.Zero(t, e.app.Cart.Count())
	assert.Equal(t, nav.RouteLogin, e.app.History.Current().Path)
}

func TestStoredIdentityIsNotTrusted(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.prefs.SaveUser(e.user))

	e.app.Start(context.Background())

	st := e.app.Session.Snapshot()
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.User)
	assert.Nil(t, e.app.BootstrapDone())
	assert.Zero(t, e.srv.CountCalls(http.MethodGet, "/cart"))
}

func TestExistingSessionBootstrapsOnStart(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.app.Client.Login(ctx, "asha@example.com", "secret")
	require.NoError(t, err)

	e.app.Start(ctx)
	e.waitBootstrap(t)
	assert.True(t, e.app.Session.Snapshot().Authenticated)
	assert.Equal(t, 1, e.srv.CountCalls(http.MethodGet, "/cart"))
	assert.Equal(t, 1, e.srv.CountCalls(http.MethodGet, "/wishlist"))
}

func TestEmptiedCartExitsCheckout(t *testing.T) {
	e := newEnv(t)
	p := e.srv.AddProduct(api.Product{Name: "Kettle", Price: 1200, Stock: 4})
	e.srv.AddAddress(e.user.ID, api.Address{FullName: "Asha", Phone: "9999999999", City: "Pune"})
	ctx := context.Background()
	e.app.Start(ctx)
	require.NoError(t, e.app.Login(ctx, "asha@example.com", "secret"))
	e.waitBootstrap(t)

	require.NoError(t, e.app.Cart.AddToCart(ctx, p, 1))
	require.NoError(t, e.app.Checkout.Begin(ctx))
	require.Equal(t, checkout.AddressSelection, e.app.Checkout.Step())

	require.NoError(t, e.app.Cart.RemoveFromCart(ctx, p.ID))
	require.Eventually(t, func() bool { return e.app.Checkout.Step() == checkout.Exited }, waitFor, tick)
	assert.Equal(t, nav.RouteProducts, e.app.History.Current().Path)
}

func TestRefreshSkipsWhenSignedOut(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.app.refreshNotifications(context.Background()))
	assert.Zero(t, e.srv.CountCalls(http.MethodGet, "/notifications"))
}

func TestLogoutWithdrawsOpenPaymentPage(t *testing.T) {
	e := newEnv(t)
	p := e.srv.AddProduct(api.Product{Name: "Kettle", Price: 1200, Stock: 4})
	e.srv.SeedCart(e.user.ID, p.ID, 1)
	e.srv.AddAddress(e.user.ID, api.Address{FullName: "Asha", Phone: "9876543210", Pincode: "560001", AddressLine1: "1 MG Road", City: "Bengaluru", State: "KA"})
	ctx := context.Background()
	e.app.Start(ctx)
	require.NoError(t, e.app.Login(ctx, "asha@example.com", "secret"))
	e.waitBootstrap(t)

	require.NoError(t, e.app.Checkout.Begin(ctx))
	require.NoError(t, e.app.Checkout.ConfirmAddress())
	require.NoError(t, e.app.Checkout.ProceedToPayment())
	require.NoError(t, e.app.Checkout.SelectMethod(api.PaymentOnline))
	require.NoError(t, e.app.Checkout.Pay(ctx))
	ids := e.app.Bridge.Sessions()
	require.Len(t, ids, 1)

	e.app.Logout(ctx)

	assert.Empty(t, e.app.Bridge.Sessions())
	resp, err := http.Get(e.app.Bridge.PageURL(ids[0]))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}
