package cart

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/apitest"
	"github.com/five82/shopaura/internal/toast"
)

type fixture struct {
	srv    *apitest.Server
	user   api.User
	toasts *toast.Queue
	cart   *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	u := srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)
	client, err := api.NewClient(api.Options{BaseURL: srv.APIURL()})
	require.NoError(t, err)
	_, err = client.Login(testCtx(t), "asha@example.com", "secret")
	require.NoError(t, err)

	toasts := &toast.Queue{}
	return &fixture{srv: srv, user: u, toasts: toasts, cart: New(client, toasts, nil)}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (f *fixture) product(id string, price float64, stock int) api.Product {
	return f.srv.AddProduct(api.Product{ID: id, Name: "Product " + id, Price: price, Stock: stock})
}

func assertInvariants(t *testing.T, m *Manager) {
	t.Helper()
	var want float64
	for _, l := range m.Lines() {
		assert.GreaterOrEqual(t, l.Quantity, 1, "line %s", l.Product.ID)
		assert.LessOrEqual(t, l.Quantity, l.Product.Stock, "line %s", l.Product.ID)
		want += l.FinalPrice * float64(l.Quantity)
	}
	assert.InDelta(t, want, m.Total(), 1e-9)
	assert.GreaterOrEqual(t, m.Total(), 0.0)
}

func TestAddToCartMergesAndCapsAtStock(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 120, 4)
	ctx := testCtx(t)

	require.NoError(t, f.cart.AddToCart(ctx, p, 1))
	require.NoError(t, f.cart.AddToCart(ctx, p, 10))

	lines := f.cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, 4, f.srv.CartQuantities(f.user.ID)["p1"])

	err := f.cart.AddToCart(ctx, p, 1)
	require.ErrorIs(t, err, ErrStockLimit)
	assert.Equal(t, 4, f.cart.ItemQuantity("p1"))
	latest, _ := f.toasts.Latest()
	assert.Equal(t, "Only 4 items available in stock", latest.Text)
	assert.InDelta(t, 480, f.cart.Total(), 1e-9)
}

func TestAddOutOfStockMakesNoCall(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 99, 0)

	err := f.cart.AddToCart(testCtx(t), p, 1)
	require.ErrorIs(t, err, ErrOutOfStock)
	assert.Empty(t, f.cart.Lines())
	assert.Zero(t, f.srv.CountCalls(http.MethodPost, "/cart"))
}

func TestRapidIncrementsClampAtStock(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 500, 3)
	ctx := testCtx(t)
	require.NoError(t, f.cart.AddToCart(ctx, p, 2))
	f.srv.SetLatency(http.MethodPut, "/cart/p1", 30*time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.cart.IncrementQuantity(ctx, "p1")
		}()
	}
	wg.Wait()

	limited := 0
	for _, err := range errs {
		if errors.Is(err, ErrStockLimit) {
			limited++
		} else {
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 1, limited)

	lines := f.cart.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, 3, f.srv.CartQuantities(f.user.ID)["p1"])
	assert.InDelta(t, 1500, f.cart.Total(), 1e-9)
	assert.Equal(t, 1, f.srv.CountCalls(http.MethodPut, "/cart/p1"))
}

func TestSlowNetworkDoesNotRevertAction(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 100, 5)
	ctx := testCtx(t)
	require.NoError(t, f.cart.AddToCart(ctx, p, 1))

	release := f.srv.Block(http.MethodPut, "/cart/p1")
	done := make(chan error, 1)
	go func() { done <- f.cart.IncrementQuantity(ctx, "p1") }()

	require.Eventually(t, func() bool { return f.cart.ItemQuantity("p1") == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, f.cart.Loading())

	release()
	require.NoError(t, <-done)
	assert.Equal(t, 2, f.cart.ItemQuantity("p1"))
	assert.False(t, f.cart.Loading())
}

func TestRejectionRevertsOnlyItsOwnDelta(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 100, 5)
	ctx := testCtx(t)
	require.NoError(t, f.cart.AddToCart(ctx, p, 1))

	release := f.srv.Block(http.MethodPut, "/cart/p1")
	f.srv.FailNext(http.MethodPut, "/cart/p1", http.StatusBadRequest, "Temporarily unavailable")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.cart.IncrementQuantity(ctx, "p1")
		}()
	}
	require.Eventually(t, func() bool { return f.cart.ItemQuantity("p1") == 3 }, time.Second, 5*time.Millisecond)
	release()
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if err != nil {
			failed++
			assert.Equal(t, "Temporarily unavailable", api.Message(err, ""))
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 3, f.cart.ItemQuantity("p1"))
	assert.Equal(t, 3, f.srv.CartQuantities(f.user.ID)["p1"])
	latest, _ := f.toasts.Latest()
	assert.Equal(t, "Temporarily unavailable", latest.Text)
}

func TestFailedAddRemovesOptimisticLine(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 100, 5)
	f.srv.FailNext(http.MethodPost, "/cart", http.StatusBadRequest, "Product is no longer available")

	err := f.cart.AddToCart(testCtx(t), p, 1)
	require.Error(t, err)
	assert.True(t, api.IsRejection(err))
	assert.False(t, f.cart.IsInCart("p1"))
}

func TestLateResponseNeverResurrectsRemovedLine(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 100, 5)
	ctx := testCtx(t)
	require.NoError(t, f.cart.AddToCart(ctx, p, 1))

	release := f.srv.Block(http.MethodPut, "/cart/p1")
	incDone := make(chan error, 1)
	go func() { incDone <- f.cart.IncrementQuantity(ctx, "p1") }()
	require.Eventually(t, func() bool { return f.cart.ItemQuantity("p1") == 2 }, time.Second, 5*time.Millisecond)

	removeDone := make(chan error, 1)
	go func() { removeDone <- f.cart.RemoveFromCart(ctx, "p1") }()
	require.Eventually(t, func() bool { return !f.cart.IsInCart("p1") }, time.Second, 5*time.Millisecond)

	release()
	require.NoError(t, <-incDone)
	require.NoError(t, <-removeDone)

	assert.False(t, f.cart.IsInCart("p1"))
	assert.Empty(t, f.srv.CartQuantities(f.user.ID))

	require.NoError(t, f.cart.RemoveFromCart(ctx, "p1"), "removing an absent line is a no-op")
}

func TestDecrementLastUnitRemovesLine(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 100, 5)
	ctx := testCtx(t)
	require.NoError(t, f.cart.AddToCart(ctx, p, 2))

	require.NoError(t, f.cart.DecrementQuantity(ctx, "p1"))
	assert.Equal(t, 1, f.cart.ItemQuantity("p1"))
	require.NoError(t, f.cart.DecrementQuantity(ctx, "p1"))
	assert.False(t, f.cart.IsInCart("p1"))
	assert.Empty(t, f.srv.CartQuantities(f.user.ID))

	require.ErrorIs(t, f.cart.DecrementQuantity(ctx, "p1"), ErrNotInCart)
}

func TestFailedRemoveRestoresLineInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, f.cart.AddToCart(ctx, f.product(id, 10, 5), 1))
	}
	f.srv.FailNext(http.MethodDelete, "/cart/b", http.StatusInternalServerError, "")

	require.Error(t, f.cart.RemoveFromCart(ctx, "b"))
	ids := []string{}
	for _, l := range f.cart.Lines() {
		ids = append(ids, l.Product.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	latest, _ := f.toasts.Latest()
	assert.Equal(t, "Failed to update cart", latest.Text)
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 100, 5)
	ctx := testCtx(t)
	require.NoError(t, f.cart.AddToCart(ctx, p, 1))

	require.NoError(t, f.cart.UpdateQuantity(ctx, "p1", 4))
	assert.Equal(t, 4, f.cart.ItemQuantity("p1"))
	require.ErrorIs(t, f.cart.UpdateQuantity(ctx, "p1", 6), ErrStockLimit)
	assert.Equal(t, 4, f.cart.ItemQuantity("p1"))
	require.NoError(t, f.cart.UpdateQuantity(ctx, "p1", 4))
	require.NoError(t, f.cart.UpdateQuantity(ctx, "p1", 0))
	assert.False(t, f.cart.IsInCart("p1"))
}

func TestUnauthorizedRevertsSilently(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 100, 5)
	ctx := testCtx(t)
	require.NoError(t, f.cart.AddToCart(ctx, p, 1))
	before := len(f.toasts.Messages())

	f.srv.ExpireSessions()
	err := f.cart.IncrementQuantity(ctx, "p1")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, 1, f.cart.ItemQuantity("p1"))
	assert.Len(t, f.toasts.Messages(), before)
}

func TestSyncReplacesAndResetClears(t *testing.T) {
	f := newFixture(t)
	f.product("p1", 100, 5)
	f.srv.AddProduct(api.Product{ID: "p2", Name: "Discounted", Price: 200, FinalPrice: 150, Stock: 2})
	f.srv.SeedCart(f.user.ID, "p1", 2)
	f.srv.SeedCart(f.user.ID, "p2", 1)

	require.NoError(t, f.cart.Sync(testCtx(t)))
	assert.Equal(t, 3, f.cart.Count())
	assert.InDelta(t, 350, f.cart.Total(), 1e-9)

	f.cart.SetOpen(true)
	f.cart.Reset()
	assert.Empty(t, f.cart.Lines())
	assert.False(t, f.cart.IsOpen())
	assert.Equal(t, 1, f.srv.CartQuantities(f.user.ID)["p2"], "reset is local only")
}

func TestResponsesAfterResetAreIgnored(t *testing.T) {
	f := newFixture(t)
	p := f.product("p1", 100, 5)
	ctx := testCtx(t)

	release := f.srv.Block(http.MethodPost, "/cart")
	done := make(chan error, 1)
	go func() { done <- f.cart.AddToCart(ctx, p, 1) }()
	require.Eventually(t, func() bool { return f.cart.IsInCart("p1") }, time.Second, 5*time.Millisecond)

	f.cart.Reset()
	release()
	require.NoError(t, <-done)
	assert.Empty(t, f.cart.Lines())
}

func TestClearCartRestoresOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	require.NoError(t, f.cart.AddToCart(ctx, f.product("p1", 10, 5), 2))

	f.srv.FailNext(http.MethodDelete, "/cart", http.StatusBadGateway, "")
	require.Error(t, f.cart.ClearCart(ctx))
	assert.Equal(t, 2, f.cart.ItemQuantity("p1"))

	require.NoError(t, f.cart.ClearCart(ctx))
	assert.Empty(t, f.cart.Lines())
	assert.Empty(t, f.srv.CartQuantities(f.user.ID))
}

func TestToggle(t *testing.T) {
	m := New(nil, nil, nil)
	assert.False(t, m.IsOpen())
	m.Toggle()
	assert.True(t, m.IsOpen())
	m.Toggle()
	assert.False(t, m.IsOpen())
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := testCtx(t)
	products := []api.Product{
		f.product("a", 19.5, 3),
		f.product("b", 250, 1),
		f.product("c", 7.25, 6),
	}
	rng := rand.New(rand.NewPCG(7, 11))

	for step := 0; step < 120; step++ {
		p := products[rng.IntN(len(products))]
		switch rng.IntN(4) {
		case 0:
			_ = f.cart.AddToCart(ctx, p, 1+rng.IntN(3))
		case 1:
			_ = f.cart.IncrementQuantity(ctx, p.ID)
		case 2:
			_ = f.cart.DecrementQuantity(ctx, p.ID)
		case 3:
			_ = f.cart.RemoveFromCart(ctx, p.ID)
		}
		assertInvariants(t, f.cart)
	}

	server := f.srv.CartQuantities(f.user.ID)
	for _, l := range f.cart.Lines() {
		assert.Equal(t, server[l.Product.ID], l.Quantity, "line %s", l.Product.ID)
	}
	assert.Len(t, server, len(f.cart.Lines()))
	assert.False(t, math.IsNaN(f.cart.Total()))
}
