package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/shopaura/internal/addressbook"
	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/cart"
	"github.com/five82/shopaura/internal/checkout"
	"github.com/five82/shopaura/internal/config"
	"github.com/five82/shopaura/internal/nav"
	"github.com/five82/shopaura/internal/notify"
	"github.com/five82/shopaura/internal/paybridge"
	"github.com/five82/shopaura/internal/prefs"
	"github.com/five82/shopaura/internal/profile"
	"github.com/five82/shopaura/internal/realtime"
	"github.com/five82/shopaura/internal/session"
	"github.com/five82/shopaura/internal/state"
	"github.com/five82/shopaura/internal/toast"
	"github.com/five82/shopaura/internal/ui"
	"github.com/five82/shopaura/internal/wishlist"
)

const bridgeShutdownTimeout = 2 * time.Second

// Options configure the storefront application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses the configured prefs_path
	PollEvery  int    // seconds; zero uses the configured poll_seconds
}

// Run boots the storefront TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PrefsPath != "" {
		cfg.PrefsPath = opts.PrefsPath
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	logFile, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	prefsFile := prefs.Open(cfg.PrefsPath)
	a, err := New(cfg, Deps{Storage: prefsFile, Logger: logger})
	if err != nil {
		return err
	}
	defer a.Close()

	a.Start(ctx)

	uiOpts := ui.Options{
		Context:   ctx,
		Services:  a.services(),
		ThemeName: prefsFile.Theme(),
		SaveTheme: prefsFile.SetTheme,
		LogFile:   cfg.LogFile,
		StoreName: cfg.StoreName,
		Currency:  cfg.Currency,
	}
	return ui.Run(uiOpts)
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Deps are the collaborators New does not build from config.
type Deps struct {
	Storage session.Storage
	// OpenURL is handed to the payment bridge to show payment pages.
	OpenURL func(string) error
	Logger  *slog.Logger
}

// App is the composition root: one gateway, one session and the managers
// that hang off it.
type App struct {
	cfg config.Config
	log *slog.Logger

	Toasts    *toast.Queue
	History   *nav.History
	Client    *api.Client
	Session   *session.Store
	Cart      *cart.Manager
	Wishlist  *wishlist.Manager
	Notify    *notify.Manager
	Addresses *addressbook.Manager
	Checkout  *checkout.Orchestrator
	Profile   *profile.Manager
	Bridge    *paybridge.Bridge

	// Realtime mirrors the current push channel's state.
	Realtime state.Store[realtime.State]

	reconcileMu sync.Mutex
	mu          sync.Mutex
	activeUser  string
	channel     *realtime.Channel
	cancelBoot  context.CancelFunc
	bootDone    chan struct{}

	stopWatch context.CancelFunc
	watchers  sync.WaitGroup
	closeOnce sync.Once
}

// New wires every component. Nothing talks to the backend until Start.
func New(cfg config.Config, deps Deps) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		cfg:     cfg,
		log:     logger,
		Toasts:  &toast.Queue{},
		History: &nav.History{},
	}

	client, err := api.NewClient(api.Options{
		BaseURL:           cfg.APIURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		OnUnauthorized:    a.handleUnauthorized,
		Logger:            logger.With("component", "api"),
	})
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	a.Client = client

	a.Session = session.New(session.Options{
		Gateway:       client,
		Storage:       deps.Storage,
		Toasts:        a.Toasts,
		Navigator:     a.History,
		AdminPanelURL: cfg.AdminPanelURL,
		RedirectDelay: cfg.RoleRedirectDelay,
		Logger:        logger.With("component", "session"),
	})
	a.Cart = cart.New(client, a.Toasts, logger.With("component", "cart"))
	a.Wishlist = wishlist.New(client, a.Toasts, logger.With("component", "wishlist"))
	a.Notify = notify.New(client, a.Toasts, logger.With("component", "notify"))
	a.Addresses = addressbook.New(client, a.Toasts, logger.With("component", "addresses"))
	a.Profile = profile.New(client, a.Session, a.Toasts, logger.With("component", "profile"))

	bridge, err := paybridge.Start(paybridge.Options{
		Addr:    cfg.PaymentBridgeAddr,
		Toasts:  a.Toasts,
		OpenURL: deps.OpenURL,
		Logger:  logger.With("component", "paybridge"),
	})
	if err != nil {
		return nil, err
	}
	a.Bridge = bridge

	a.Checkout = checkout.New(checkout.Options{
		Gateway:               client,
		Cart:                  a.Cart,
		Launcher:              bridge,
		Toasts:                a.Toasts,
		Navigator:             a.History,
		Identity:              func() *api.User { return a.Session.Snapshot().User },
		PaymentKey:            cfg.PaymentKeyID,
		StoreName:             cfg.StoreName,
		Currency:              cfg.Currency,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFee:           cfg.ShippingFee,
		Logger:                logger.With("component", "checkout"),
	})
	return a, nil
}

// Start rehydrates the stored identity, verifies the session and starts the
// background watchers. It returns once the first auth check has settled.
func (a *App) Start(ctx context.Context) {
	watchCtx, cancel := context.WithCancel(ctx)
	a.stopWatch = cancel

	a.watch(watchCtx, a.Session.Subscribe, a.reconcile)
	a.watch(watchCtx, a.Cart.Subscribe, a.Checkout.CartChanged)
	if a.cfg.PollInterval > 0 {
		done := StartPoller(watchCtx, a.refreshNotifications, a.cfg.PollInterval, a.log)
		a.watchers.Add(1)
		go func() {
			defer a.watchers.Done()
			<-done
		}()
	}

	a.Session.Rehydrate()
	if err := a.Session.CheckAuthStatus(ctx); err != nil {
		a.log.Warn("auth check rejected session", "error", err)
	}
	a.reconcile()
}

// watch runs fn after every signal from subscribe until ctx ends.
func (a *App) watch(ctx context.Context, subscribe func() (<-chan struct{}, func()), fn func()) {
	ch, cancel := subscribe()
	a.watchers.Add(1)
	go func() {
		defer a.watchers.Done()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				fn()
			}
		}
	}()
}

// Login signs in and starts the session's bootstrap. Failures other than a
// role rejection are toasted here.
func (a *App) Login(ctx context.Context, email, password string) error {
	if _, err := a.Session.Login(ctx, email, password); err != nil {
		if !errors.Is(err, session.ErrRoleNotPermitted) {
			a.Toasts.Error(api.Message(err, "Login failed"))
		}
		return err
	}
	a.reconcile()
	return nil
}

// Register creates an account and bootstraps like Login.
func (a *App) Register(ctx context.Context, name, email, password string) error {
	if _, err := a.Session.Register(ctx, name, email, password); err != nil {
		return err
	}
	a.reconcile()
	return nil
}

// Logout ends the session and clears every per-session manager.
func (a *App) Logout(ctx context.Context) {
	a.Session.Logout(ctx)
	a.reconcile()
	a.History.Navigate(nav.To(nav.RouteLogin))
}

// reconcile brings the per-session machinery in line with the session:
// a new authenticated identity gets a bootstrap and a push channel, and a
// lost one tears both down. Safe to call from any goroutine, any number of
// times.
func (a *App) reconcile() {
	a.reconcileMu.Lock()
	defer a.reconcileMu.Unlock()

	st := a.Session.Snapshot()
	var userID string
	if st.Authenticated && st.User != nil {
		userID = st.User.ID
	}

	a.mu.Lock()
	current := a.activeUser
	a.mu.Unlock()
	if userID == current {
		return
	}
	if current != "" {
		a.teardown()
	}
	if userID != "" {
		a.bootstrap(userID)
	}
}

func (a *App) bootstrap(userID string) {
	a.log.Info("session started", "user", userID)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error { return a.Cart.Sync(ctx) })
	g.Go(func() error { return a.Wishlist.Sync(ctx) })
	g.Go(func() error { return a.Notify.Fetch(ctx, notify.DefaultPage, notify.DefaultLimit, false) })
	g.Go(func() error { return a.Notify.FetchUnreadCount(ctx) })
	go func() {
		defer close(done)
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("session bootstrap incomplete", "error", err)
		}
	}()

	ch, err := realtime.Start(realtime.Options{
		URL:           a.cfg.SocketURL,
		Jar:           a.Client.Jar(),
		MaxAttempts:   a.cfg.ReconnectAttempts,
		RetryDelay:    a.cfg.ReconnectDelay,
		OnStateChange: a.setRealtimeState,
		Logger:        a.log.With("component", "realtime"),
	}, userID, a.Notify.Receive)
	if err != nil {
		a.log.Warn("realtime channel not started", "error", err)
	}

	a.mu.Lock()
	a.activeUser = userID
	a.channel = ch
	a.cancelBoot = cancel
	a.bootDone = done
	a.mu.Unlock()
}

func (a *App) teardown() {
	a.mu.Lock()
	user := a.activeUser
	ch := a.channel
	cancel := a.cancelBoot
	done := a.bootDone
	a.activeUser = ""
	a.channel = nil
	a.cancelBoot = nil
	a.bootDone = nil
	a.mu.Unlock()
	if user == "" {
		return
	}

	a.log.Info("session ended", "user", user)
	if cancel != nil {
		cancel()
		<-done
	}
	if ch != nil {
		ch.Close()
	}
	a.Realtime.Update(func(s *realtime.State) { *s = realtime.Disconnected })
	a.Cart.Reset()
	a.Wishlist.Reset()
	a.Notify.Reset()
	a.Addresses.Reset()
	a.Checkout.Leave()
}

func (a *App) services() ui.Services {
	return ui.Services{
		Catalog:   a.Client,
		Session:   a.Session,
		Cart:      a.Cart,
		Wishlist:  a.Wishlist,
		Notify:    a.Notify,
		Addresses: a.Addresses,
		Checkout:  a.Checkout,
		Profile:   a.Profile,
		Toasts:    a.Toasts,
		History:   a.History,
		Realtime:  &a.Realtime,
		Auth:      a,
	}
}

// BootstrapDone is closed once the current session's initial loads have
// finished. It is nil when no session is active.
func (a *App) BootstrapDone() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bootDone
}

func (a *App) setRealtimeState(s realtime.State) {
	a.Realtime.Update(func(cur *realtime.State) { *cur = s })
}

// handleUnauthorized runs on every 401 outside the auth routes.
func (a *App) handleUnauthorized() {
	a.Session.Expire()
	a.History.Navigate(nav.To(nav.RouteLogin))
	go a.reconcile()
}

func (a *App) refreshNotifications(ctx context.Context) error {
	if st := a.Session.Snapshot(); !st.Authenticated {
		return nil
	}
	return errors.Join(
		a.Notify.Fetch(ctx, notify.DefaultPage, notify.DefaultLimit, false),
		a.Notify.FetchUnreadCount(ctx),
	)
}

// Close stops the watchers, tears down the session machinery and shuts the
// payment bridge. It does not log the user out.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.stopWatch != nil {
			a.stopWatch()
		}
		a.watchers.Wait()

		a.reconcileMu.Lock()
		a.teardown()
		a.reconcileMu.Unlock()

		a.Session.Close()
		ctx, cancel := context.WithTimeout(context.Background(), bridgeShutdownTimeout)
		defer cancel()
		if err := a.Bridge.Close(ctx); err != nil {
			a.log.Warn("payment bridge shutdown", "error", err)
		}
	})
}
