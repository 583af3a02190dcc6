package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shopaura/internal/addressbook"
	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/apitest"
	"github.com/five82/shopaura/internal/cart"
	"github.com/five82/shopaura/internal/checkout"
	"github.com/five82/shopaura/internal/nav"
	"github.com/five82/shopaura/internal/notify"
	"github.com/five82/shopaura/internal/profile"
	"github.com/five82/shopaura/internal/session"
	"github.com/five82/shopaura/internal/toast"
	"github.com/five82/shopaura/internal/wishlist"
)

// sessionAuth signs in through the session store alone.
type sessionAuth struct{ s *session.Store }

func (a sessionAuth) Login(ctx context.Context, email, password string) error {
	_, err := a.s.Login(ctx, email, password)
	return err
}

func (a sessionAuth) Register(ctx context.Context, name, email, password string) error {
	_, err := a.s.Register(ctx, name, email, password)
	return err
}

func (a sessionAuth) Logout(ctx context.Context) { a.s.Logout(ctx) }

type fixture struct {
	srv    *apitest.Server
	svc    Services
	user   api.User
	themes []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	user := srv.AddUser("Asha", "asha@example.com", "secret", api.RoleBuyer)

	client, err := api.NewClient(api.Options{BaseURL: srv.APIURL()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	toasts := &toast.Queue{}
	history := &nav.History{}
	sess := session.New(session.Options{Gateway: client, Toasts: toasts, Navigator: history})
	if err := sess.CheckAuthStatus(context.Background()); err != nil {
		t.Fatalf("CheckAuthStatus: %v", err)
	}
	cartMgr := cart.New(client, toasts, nil)
	f := &fixture{srv: srv, user: user}
	f.svc = Services{
		Catalog:   client,
		Session:   sess,
		Cart:      cartMgr,
		Wishlist:  wishlist.New(client, toasts, nil),
		Notify:    notify.New(client, toasts, nil),
		Addresses: addressbook.New(client, toasts, nil),
		Checkout:  checkout.New(checkout.Options{Gateway: client, Cart: cartMgr, Toasts: toasts, Navigator: history}),
		Profile:   profile.New(client, sess, toasts, nil),
		Toasts:    toasts,
		History:   history,
		Auth:      sessionAuth{s: sess},
	}
	return f
}

func (f *fixture) model(t *testing.T) Model {
	t.Helper()
	m := New(Options{
		Context:   context.Background(),
		Services:  f.svc,
		ThemeName: "Dracula",
		SaveTheme: func(name string) error {
			f.themes = append(f.themes, name)
			return nil
		},
		PollTick: 10 * time.Millisecond,
	})
	return update(t, m, tea.WindowSizeMsg{Width: 130, Height: 40})
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	if _, err := f.svc.Session.Login(context.Background(), "asha@example.com", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out
}

// press sends one key. Single runes become rune keys; names such as
// "enter" or "tab" become the matching special key.
func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		msg = tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = press(t, m, string(r))
	}
	return m
}

// finish runs a manager command and feeds its result back.
func finish(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return update(t, m, cmd())
}

func TestThemeCycleSavesPreference(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	m, _ = press(t, m, "T")
	if m.theme.Name != "Slate" {
		t.Fatalf("theme = %q, want Slate", m.theme.Name)
	}
	if len(f.themes) != 1 || f.themes[0] != "Slate" {
		t.Fatalf("saved themes = %v, want [Slate]", f.themes)
	}
}

func TestPrivateViewOpensLogin(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	m, _ = press(t, m, "2")
	if m.currentView != ViewLogin {
		t.Fatalf("view = %v, want sign in", m.currentView)
	}
	if got := f.svc.History.Current().Path; got != nav.RouteLogin {
		t.Fatalf("history = %q, want %q", got, nav.RouteLogin)
	}
	if !strings.Contains(m.View(), "Sign in to") {
		t.Fatalf("login form not rendered")
	}
}

func TestLoginFormSignsIn(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	m, _ = press(t, m, "2")

	m = typeText(t, m, "asha@example.com")
	m, _ = press(t, m, "tab")
	m = typeText(t, m, "secret")
	m, cmd := press(t, m, "enter")
	m = finish(t, m, cmd)

	if !f.svc.Session.Snapshot().Authenticated {
		t.Fatal("session not authenticated")
	}
	if m.currentView != ViewProducts {
		t.Fatalf("view = %v, want products", m.currentView)
	}
	if m.loginInputs[fieldPassword].Value() != "" {
		t.Fatal("password kept after submit")
	}
}

func TestLoginFormRequiresFields(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	m, _ = press(t, m, "2")
	m, _ = press(t, m, "tab")

	_, cmd := press(t, m, "enter")
	if cmd != nil {
		t.Fatal("submitted an empty form")
	}
	latest, ok := f.svc.Toasts.Latest()
	if !ok || latest.Level != toast.LevelError {
		t.Fatalf("latest toast = %+v, want an error", latest)
	}
}

func TestAddToCartFromProducts(t *testing.T) {
	f := newFixture(t)
	p := f.srv.AddProduct(api.Product{Name: "Kettle", Price: 1200, Stock: 4})
	f.login(t)
	m := f.model(t)
	m = update(t, m, m.loadProductsCmd()())
	if len(m.products) != 1 {
		t.Fatalf("products = %d, want 1", len(m.products))
	}

	m, cmd := press(t, m, "a")
	if m.busy.Load() != 1 {
		t.Fatalf("busy = %d, want 1", m.busy.Load())
	}
	m = finish(t, m, cmd)

	if m.busy.Load() != 0 {
		t.Fatalf("busy = %d after completion", m.busy.Load())
	}
	if got := f.svc.Cart.ItemQuantity(p.ID); got != 1 {
		t.Fatalf("cart quantity = %d, want 1", got)
	}
	if got := f.srv.CartQuantities(f.user.ID)[p.ID]; got != 1 {
		t.Fatalf("remote quantity = %d, want 1", got)
	}
	if !strings.Contains(m.View(), "Cart 1") {
		t.Fatal("header does not show the cart count")
	}
}

func TestSearchPromptFiltersProducts(t *testing.T) {
	f := newFixture(t)
	f.srv.AddProduct(api.Product{Name: "Kettle", Price: 1200, Stock: 4})
	f.srv.AddProduct(api.Product{Name: "Lamp", Price: 800, Stock: 2})
	m := f.model(t)

	m, _ = press(t, m, "/")
	if m.promptKind != promptSearch {
		t.Fatalf("prompt = %v, want search", m.promptKind)
	}
	m = typeText(t, m, "lamp")
	m, cmd := press(t, m, "enter")
	if m.promptKind != promptNone {
		t.Fatal("prompt still open after enter")
	}
	m = finish(t, m, cmd)

	if m.query.Search != "lamp" || m.query.Page != 1 {
		t.Fatalf("query = %+v", m.query)
	}
	if len(m.products) != 1 || m.products[0].Name != "Lamp" {
		t.Fatalf("products = %+v, want only Lamp", m.products)
	}
}

func TestNavigationFollowsHistory(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	m := f.model(t)

	f.svc.History.Navigate(nav.To(nav.RouteNotifications))
	m = update(t, m, tickMsg(time.Now()))
	if m.currentView != ViewNotifications {
		t.Fatalf("view = %v, want notifications", m.currentView)
	}

	f.svc.History.Navigate(nav.To(nav.OrderDetail("o-9")))
	m = update(t, m, tickMsg(time.Now()))
	if m.currentView != ViewOrderDetail || m.orderDetail.id != "o-9" {
		t.Fatalf("view = %v order = %q, want order detail o-9", m.currentView, m.orderDetail.id)
	}
}

func TestEndedSessionClosesPrivateView(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	m := f.model(t)
	m, _ = press(t, m, "6")
	if m.currentView != ViewProfile {
		t.Fatalf("view = %v, want profile", m.currentView)
	}

	f.svc.Session.Expire()
	m = update(t, m, tickMsg(time.Now()))
	if m.currentView != ViewLogin {
		t.Fatalf("view = %v, want sign in", m.currentView)
	}
}

func TestHelpOverlayClosesOnAnyKey(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	m, _ = press(t, m, "?")
	if !m.showHelp || !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("help not shown")
	}
	m, _ = press(t, m, "x")
	if m.showHelp {
		t.Fatal("help still shown")
	}
}

func TestEveryViewRenders(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	m := f.model(t)
	for v := ViewProducts; v <= ViewLogin; v++ {
		m.currentView = v
		out := m.View()
		if !strings.Contains(out, v.String()) {
			t.Errorf("view %d output lacks its title %q", v, v.String())
		}
	}
}
