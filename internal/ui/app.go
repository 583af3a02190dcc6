package ui

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shopaura/internal/addressbook"
	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/cart"
	"github.com/five82/shopaura/internal/checkout"
	"github.com/five82/shopaura/internal/logtail"
	"github.com/five82/shopaura/internal/nav"
	"github.com/five82/shopaura/internal/notify"
	"github.com/five82/shopaura/internal/profile"
	"github.com/five82/shopaura/internal/realtime"
	"github.com/five82/shopaura/internal/session"
	"github.com/five82/shopaura/internal/state"
	"github.com/five82/shopaura/internal/toast"
	"github.com/five82/shopaura/internal/wishlist"
)

// View represents the current active view.
type View int

const (
	ViewProducts View = iota
	ViewCart
	ViewWishlist
	ViewNotifications
	ViewCheckout
	ViewOrders
	ViewProfile
	ViewAddresses
	ViewProductDetail
	ViewOrderDetail
	ViewLogs
	ViewLogin
)

var viewTitles = map[View]string{
	ViewProducts:      "Products",
	ViewCart:          "Cart",
	ViewWishlist:      "Wishlist",
	ViewNotifications: "Notifications",
	ViewCheckout:      "Checkout",
	ViewOrders:        "Orders",
	ViewProfile:       "Profile",
	ViewAddresses:     "Addresses",
	ViewProductDetail: "Product",
	ViewOrderDetail:   "Order",
	ViewLogs:          "Logs",
	ViewLogin:         "Sign in",
}

func (v View) String() string { return viewTitles[v] }

// needsSession reports whether the view is only reachable when signed in.
func (v View) needsSession() bool {
	switch v {
	case ViewProducts, ViewProductDetail, ViewLogs, ViewLogin:
		return false
	default:
		return true
	}
}

// Catalog is the read-only slice of the API the product and order views use.
type Catalog interface {
	ListCategories(ctx context.Context) ([]api.Category, error)
	ListProducts(ctx context.Context, query api.ProductQuery) (api.ProductPage, error)
	GetProduct(ctx context.Context, id string, authenticated bool) (api.Product, error)
	ListReviews(ctx context.Context, productID string) ([]api.Review, error)
	ListOrders(ctx context.Context) ([]api.Order, error)
	GetOrder(ctx context.Context, id string) (api.Order, error)
	TrackOrder(ctx context.Context, id string) (api.Tracking, error)
}

// Auth signs the user in and out, keeping every manager in step.
type Auth interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, name, email, password string) error
	Logout(ctx context.Context)
}

// Services are the stores and managers the views render and drive.
type Services struct {
	Catalog   Catalog
	Session   *session.Store
	Cart      *cart.Manager
	Wishlist  *wishlist.Manager
	Notify    *notify.Manager
	Addresses *addressbook.Manager
	Checkout  *checkout.Orchestrator
	Profile   *profile.Manager
	Toasts    *toast.Queue
	History   *nav.History
	Realtime  *state.Store[realtime.State]
	Auth      Auth
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Services  Services
	ThemeName string
	SaveTheme func(name string) error
	LogFile   string
	StoreName string
	Currency  string
	PollTick  time.Duration
}

// promptKind says what the single-line prompt is collecting.
type promptKind int

const (
	promptNone promptKind = iota
	promptSearch
	promptCoupon
	promptAvatar
	promptQuantity
	promptName
	promptPhone
)

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	svc       Services
	saveTheme func(string) error
	logFile   string
	storeName string
	currency  string
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	lastRoute   string
	width       int
	height      int
	ready       bool
	showHelp    bool
	now         time.Time

	// In-flight manager calls, shared by every copy of the model.
	busy *atomic.Int32

	// Per-view list cursors
	cursors map[View]int

	// Products
	query          api.ProductQuery
	products       []api.Product
	totalPages     int
	productsErr    error
	productsSeen   bool
	categories     []categoryOption
	categoriesSeen bool

	// Product detail
	detail      productDetail
	detailError error

	// Orders
	orders        []api.Order
	ordersErr     error
	focusOrderID  string
	ordersLoading bool

	// Order detail
	orderDetail    orderDetail
	orderDetailErr error

	// Checkout
	methods []string

	// Addresses
	addrForm       addressForm
	addrToCheckout bool

	// Prompt (search, coupon, avatar path, quantity, profile fields)
	prompt       textinput.Model
	promptKind   promptKind
	promptTarget string

	// Login form: name, email, password
	loginInputs [3]textinput.Model
	loginFocus  int
	registering bool

	// Logs
	logViewport viewport.Model
	logEntries  []logtail.Entry
	logLevel    slog.Level
	logErr      error
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = DefaultThemeName
	}

	storeName := opts.StoreName
	if storeName == "" {
		storeName = checkout.DefaultStoreName
	}

	m := Model{
		ctx:         ctx,
		svc:         opts.Services,
		saveTheme:   opts.SaveTheme,
		logFile:     opts.LogFile,
		storeName:   storeName,
		currency:    opts.Currency,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewProducts,
		cursors:     make(map[View]int),
		query:       api.ProductQuery{Page: 1, Limit: ProductPageSize},
		methods:     []string{api.PaymentCOD, api.PaymentOnline},
		logLevel:    slog.LevelInfo,
		now:         time.Now(),
		busy:        new(atomic.Int32),
	}
	m.initPrompt()
	m.initLoginInputs()
	m.initAddressForm()
	m.logViewport = viewport.New(0, 0)
	if m.svc.History != nil {
		m.lastRoute = m.svc.History.Current().Path
		if v, ok := viewForRoute(m.lastRoute); ok {
			m.currentView = v
		}
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.pollTick),
		m.loadProductsCmd(),
		m.loadCategoriesCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case productsMsg:
		m.productsSeen = true
		m.productsErr = msg.err
		if msg.err == nil {
			m.products = msg.page.Products
			m.totalPages = msg.page.TotalPages
			m.clampCursor(ViewProducts, len(m.products))
		}
		return m, nil

	case categoriesMsg:
		m.categoriesSeen = true
		if msg.err != nil {
			slog.Debug("load categories failed", "error", msg.err)
			return m, nil
		}
		m.categories = categoryOptions(msg.categories)
		return m, nil

	case productDetailMsg:
		if msg.id != m.detail.id {
			return m, nil
		}
		m.detail.loading = false
		m.detailError = msg.err
		if msg.err == nil {
			m.detail.product = msg.product
			m.detail.reviews = msg.reviews
		}
		return m, nil

	case orderDetailMsg:
		if msg.id != m.orderDetail.id {
			return m, nil
		}
		m.orderDetail.loading = false
		m.orderDetailErr = msg.err
		if msg.err == nil {
			m.orderDetail.order = msg.order
			m.orderDetail.tracking = msg.tracking
		}
		return m, nil

	case addressSavedMsg:
		if m.busy.Load() > 0 {
			m.busy.Add(-1)
		}
		if msg.err != nil {
			slog.Debug("ui action failed", "action", "save address", "error", msg.err)
			return m, nil
		}
		m.closeAddressForm()
		if m.addrToCheckout {
			m.addrToCheckout = false
			return m.switchView(ViewCheckout)
		}
		return m, nil

	case ordersMsg:
		m.ordersLoading = false
		m.ordersErr = msg.err
		if msg.err == nil {
			m.orders = msg.orders
			m.focusOrder()
		}
		return m, nil

	case logsMsg:
		m.logErr = msg.err
		if msg.err == nil {
			m.logEntries = msg.entries
			m.refreshLogViewport()
		}
		return m, nil

	case opDoneMsg:
		if m.busy.Load() > 0 {
			m.busy.Add(-1)
		}
		if msg.err != nil {
			slog.Debug("ui action failed", "action", msg.action, "error", msg.err)
			return m, nil
		}
		if msg.next != nil {
			return m.switchView(*msg.next)
		}
		return m, nil

	case quitMsg:
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.promptKind != promptNone {
		return m.handlePromptKey(msg)
	}
	if m.currentView == ViewLogin {
		return m.handleLoginKey(msg)
	}
	if m.currentView == ViewAddresses && m.addrForm.open {
		return m.handleAddressFormKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil
	case key.Matches(msg, m.keys.ViewProducts), key.Matches(msg, m.keys.Escape):
		return m.switchView(ViewProducts)
	case key.Matches(msg, m.keys.ViewCart):
		return m.switchView(ViewCart)
	case key.Matches(msg, m.keys.ViewWishlist):
		return m.switchView(ViewWishlist)
	case key.Matches(msg, m.keys.ViewNotifications):
		return m.switchView(ViewNotifications)
	case key.Matches(msg, m.keys.ViewOrders):
		return m.switchView(ViewOrders)
	case key.Matches(msg, m.keys.ViewProfile):
		return m.switchView(ViewProfile)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	}

	switch m.currentView {
	case ViewProducts:
		return m.handleProductsKey(msg)
	case ViewCart:
		return m.handleCartKey(msg)
	case ViewWishlist:
		return m.handleWishlistKey(msg)
	case ViewNotifications:
		return m.handleNotificationsKey(msg)
	case ViewCheckout:
		return m.handleCheckoutKey(msg)
	case ViewOrders:
		return m.handleOrdersKey(msg)
	case ViewProfile:
		return m.handleProfileKey(msg)
	case ViewAddresses:
		return m.handleAddressesKey(msg)
	case ViewProductDetail:
		return m.handleProductDetailKey(msg)
	case ViewOrderDetail:
		return m.handleOrderDetailKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}

	return m, nil
}

// cycleTheme switches to the next theme and persists the choice.
func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	if m.saveTheme != nil {
		if err := m.saveTheme(m.theme.Name); err != nil {
			slog.Warn("save theme preference failed", "theme", m.theme.Name, "error", err)
		}
	}
}

// switchView moves to v, routing through the login form when v needs a
// session, and records the move in the navigation history.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	if v.needsSession() && !m.authenticated() {
		v = ViewLogin
	}
	// The cart drawer belongs to the product list.
	if m.currentView == ViewProducts && v != ViewProducts && m.svc.Cart != nil {
		m.svc.Cart.SetOpen(false)
	}
	if v != ViewAddresses {
		m.closeAddressForm()
		m.addrToCheckout = false
	}
	m.currentView = v
	if m.svc.History != nil {
		// Keep a more specific route (an order detail) that already maps to v.
		if cur, ok := viewForRoute(m.svc.History.Current().Path); !ok || cur != v {
			m.svc.History.Navigate(nav.To(routeForView(v)))
		}
		m.lastRoute = m.svc.History.Current().Path
	}
	if v == ViewLogin {
		m.focusLoginInput(m.loginFocus)
	}
	cmd := m.enterViewCmd(v)
	return m, cmd
}

// enterViewCmd loads whatever the view shows that is not held by a manager.
func (m *Model) enterViewCmd(v View) tea.Cmd {
	switch v {
	case ViewProducts:
		var cmds []tea.Cmd
		if !m.productsSeen {
			cmds = append(cmds, m.loadProductsCmd())
		}
		if !m.categoriesSeen {
			cmds = append(cmds, m.loadCategoriesCmd())
		}
		return tea.Batch(cmds...)
	case ViewCheckout:
		m.syncCheckoutCursor()
	case ViewOrders:
		m.ordersLoading = true
		return m.loadOrdersCmd()
	case ViewProductDetail:
		return m.loadProductDetailCmd(productIDFromRoute(m.lastRoute))
	case ViewOrderDetail:
		return m.loadOrderDetailCmd(orderIDFromRoute(m.lastRoute))
	case ViewAddresses:
		if m.svc.Addresses != nil {
			return m.runOp("load addresses", nil, m.svc.Addresses.Load)
		}
	case ViewLogs:
		return m.loadLogsCmd()
	}
	return nil
}

// handleTick follows navigation issued by the managers and schedules the
// next refresh.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.now = now
	var cmds []tea.Cmd

	if m.svc.History != nil {
		current := m.svc.History.Current()
		if current.Path != m.lastRoute {
			m.lastRoute = current.Path
			if v, ok := viewForRoute(current.Path); ok && !current.External {
				next, cmd := m.switchView(v)
				m = next.(Model)
				cmds = append(cmds, cmd)
			}
		}
	}

	// A session that ended elsewhere (logout, expiry) closes private views.
	if m.currentView.needsSession() && !m.authenticated() && !m.sessionLoading() {
		m.currentView = ViewLogin
		m.focusLoginInput(m.loginFocus)
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

func (m Model) authenticated() bool {
	return m.svc.Session != nil && m.svc.Session.Snapshot().Authenticated
}

func (m Model) sessionLoading() bool {
	return m.svc.Session != nil && m.svc.Session.Snapshot().Loading
}

// moveCursor applies a navigation key to the view's cursor.
func (m *Model) moveCursor(v View, msg tea.KeyMsg, count int) bool {
	if count == 0 {
		return false
	}
	cur := m.cursors[v]
	switch {
	case key.Matches(msg, m.keys.Down):
		if cur < count-1 {
			cur++
		}
	case key.Matches(msg, m.keys.Up):
		if cur > 0 {
			cur--
		}
	case key.Matches(msg, m.keys.Top):
		cur = 0
	case key.Matches(msg, m.keys.Bottom):
		cur = count - 1
	default:
		return false
	}
	m.cursors[v] = cur
	return true
}

func (m *Model) clampCursor(v View, count int) int {
	cur := m.cursors[v]
	if cur >= count {
		cur = count - 1
	}
	if cur < 0 {
		cur = 0
	}
	m.cursors[v] = cur
	return cur
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	// Header line 1: logo + session status
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Header line 2: command bar
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderContent())
	b.WriteString("\n")

	b.WriteString(m.renderFooter())

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	var body string
	switch m.currentView {
	case ViewProducts:
		body = m.renderProducts()
	case ViewCart:
		body = m.renderCart()
	case ViewWishlist:
		body = m.renderWishlist()
	case ViewNotifications:
		body = m.renderNotifications()
	case ViewCheckout:
		body = m.renderCheckout()
	case ViewOrders:
		body = m.renderOrders()
	case ViewProfile:
		body = m.renderProfile()
	case ViewAddresses:
		body = m.renderAddresses()
	case ViewProductDetail:
		body = m.renderProductDetail()
	case ViewOrderDetail:
		body = m.renderOrderDetail()
	case ViewLogs:
		body = m.renderLogs()
	case ViewLogin:
		body = m.renderLogin()
	}
	return m.renderTitledBox(m.currentView.String(), body, m.width, m.contentHeight())
}

// contentHeight is what is left after the header, command bar and footer.
func (m Model) contentHeight() int {
	return max(m.height-3, 3)
}

// Messages

type tickMsg time.Time

type productsMsg struct {
	page api.ProductPage
	err  error
}

type categoriesMsg struct {
	categories []api.Category
	err        error
}

type productDetailMsg struct {
	id      string
	product api.Product
	reviews []api.Review
	err     error
}

type orderDetailMsg struct {
	id       string
	order    api.Order
	tracking *api.Tracking
	err      error
}

type addressSavedMsg struct {
	address api.Address
	err     error
}

type ordersMsg struct {
	orders []api.Order
	err    error
}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

// opDoneMsg reports a manager call started from a key press. The managers
// toast their own failures; next, when set, is the view to show on success.
type opDoneMsg struct {
	action string
	err    error
	next   *View
}

type quitMsg struct{}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runOp runs fn against a bounded context and reports it as an opDoneMsg.
func (m Model) runOp(action string, next *View, fn func(ctx context.Context) error) tea.Cmd {
	m.busy.Add(1)
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, RequestTimeout)
		defer cancel()
		return opDoneMsg{action: action, err: fn(ctx), next: next}
	}
}

func viewPtr(v View) *View { return &v }

// Run starts the Bubble Tea program and stops it when the context ends.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	go func() {
		<-m.ctx.Done()
		p.Send(quitMsg{})
	}()
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		// Cancellation is a normal shutdown.
		return nil
	}
	return err
}
