// Package paybridge hosts the payment provider's checkout for a terminal
// client.
//
// The provider only ships a browser widget, so the bridge serves a one-page
// site on a loopback port. Open registers a payment session and returns its
// page URL; the page loads the provider's script with the session's options
// and posts the provider's success payload or the dismiss event back to the
// bridge, which hands it to the checkout Outcome exactly once.
package paybridge

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/checkout"
	"github.com/five82/shopaura/internal/toast"
)

const (
	defaultAddr      = "127.0.0.1:0"
	defaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"

	readHeaderTimeout = 5 * time.Second
)

//go:embed page.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("payment").Parse(pageSource))

// Options configure a Bridge.
type Options struct {
	// Addr is the listen address; it should stay on loopback.
	Addr      string
	ScriptURL string
	Toasts    toast.Notifier
	// OpenURL, when set, is asked to show the page (for example a browser
	// launcher). Its failure is logged; the URL is still toasted.
	OpenURL func(url string) error
	Logger  *slog.Logger
}

type session struct {
	opts checkout.PaymentOptions
	out  checkout.Outcome
	done bool
}

// Bridge serves payment pages and relays their outcomes.
type Bridge struct {
	scriptURL string
	toasts    toast.Notifier
	openURL   func(string) error
	log       *slog.Logger

	listener net.Listener
	server   *http.Server
	baseURL  string

	mu       sync.Mutex
	sessions map[string]*session
}

var _ checkout.Launcher = (*Bridge)(nil)

// Start listens on opts.Addr and begins serving.
func Start(opts Options) (*Bridge, error) {
	addr := opts.Addr
	if addr == "" {
		addr = defaultAddr
	}
	b := &Bridge{
		scriptURL: opts.ScriptURL,
		toasts:    opts.Toasts,
		openURL:   opts.OpenURL,
		log:       opts.Logger,
		sessions:  make(map[string]*session),
	}
	if b.scriptURL == "" {
		b.scriptURL = defaultScriptURL
	}
	if b.toasts == nil {
		b.toasts = toast.Discard{}
	}
	if b.log == nil {
		b.log = slog.Default()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen payment bridge: %w", err)
	}
	b.listener = ln
	b.baseURL = "http://" + ln.Addr().String()
	b.server = &http.Server{Handler: b.routes(), ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		if err := b.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.log.Error("payment bridge stopped", "error", err)
		}
	}()
	b.log.Info("payment bridge listening", "url", b.baseURL)
	return b, nil
}

// URL is the bridge's base URL.
func (b *Bridge) URL() string { return b.baseURL }

// Close stops the server. Pending sessions are dropped without an outcome.
func (b *Bridge) Close(ctx context.Context) error {
	return b.server.Shutdown(ctx)
}

func (b *Bridge) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/pay/{session}", b.handlePage)
	r.Route("/callback/{session}", func(r chi.Router) {
		r.Post("/success", b.handleSuccess)
		r.Post("/dismiss", b.handleDismiss)
	})
	return r
}

// Open registers a payment session and shows its page URL.
func (b *Bridge) Open(_ context.Context, opts checkout.PaymentOptions, out checkout.Outcome) error {
	if out == nil {
		return errors.New("open payment: outcome required")
	}
	if opts.ProviderOrderID == "" {
		return errors.New("open payment: provider order id required")
	}
	id := uuid.NewString()
	b.mu.Lock()
	b.sessions[id] = &session{opts: opts, out: out}
	b.mu.Unlock()

	pageURL := b.PageURL(id)
	b.log.Info("payment page ready", "session", id, "provider_order", opts.ProviderOrderID)
	b.toasts.Info("Complete your payment at " + pageURL)
	if b.openURL != nil {
		if err := b.openURL(pageURL); err != nil {
			b.log.Warn("open payment page failed", "url", pageURL, "error", err)
		}
	}
	return nil
}

// Cancel withdraws every session still waiting for an outcome. Their pages
// answer 410 and their callbacks 409 from now on.
func (b *Bridge) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.sessions {
		if !s.done {
			s.done = true
			b.log.Info("payment session withdrawn", "session", id, "provider_order", s.opts.ProviderOrderID)
		}
	}
}

// PageURL is the page address for a session id.
func (b *Bridge) PageURL(id string) string {
	return b.baseURL + "/pay/" + id
}

// Sessions returns the ids of sessions still waiting for an outcome.
func (b *Bridge) Sessions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.sessions))
	for id, s := range b.sessions {
		if !s.done {
			ids = append(ids, id)
		}
	}
	return ids
}

type pageData struct {
	ScriptURL  string
	Options    checkout.PaymentOptions
	ThemeColor string
	SuccessURL string
	DismissURL string
}

func (b *Bridge) handlePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	b.mu.Lock()
	s, ok := b.sessions[id]
	var done bool
	var opts checkout.PaymentOptions
	if ok {
		done = s.done
		opts = s.opts
	}
	b.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if done {
		http.Error(w, "this payment has already finished", http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err := pageTemplate.Execute(w, pageData{
		ScriptURL:  b.scriptURL,
		Options:    opts,
		ThemeColor: opts.ThemeColor,
		SuccessURL: "/callback/" + id + "/success",
		DismissURL: "/callback/" + id + "/dismiss",
	})
	if err != nil {
		b.log.Error("render payment page failed", "session", id, "error", err)
	}
}

// claim marks a session finished and returns its outcome. Only the first
// caller gets it.
func (b *Bridge) claim(id string) (checkout.Outcome, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok || s.done {
		return nil, false
	}
	s.done = true
	return s.out, true
}

func (b *Bridge) handleSuccess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	var confirmation api.PaymentConfirmation
	if err := json.NewDecoder(r.Body).Decode(&confirmation); err != nil {
		writeResult(w, http.StatusBadRequest, false, "invalid payment payload")
		return
	}
	if confirmation.PaymentID == "" || confirmation.Signature == "" {
		writeResult(w, http.StatusBadRequest, false, "incomplete payment payload")
		return
	}
	out, ok := b.claim(id)
	if !ok {
		writeResult(w, http.StatusConflict, false, "payment already finished")
		return
	}
	b.log.Info("payment success reported", "session", id, "payment", confirmation.PaymentID)
	if err := out.PaymentSucceeded(context.WithoutCancel(r.Context()), confirmation); err != nil {
		writeResult(w, http.StatusOK, false, "Payment verification failed")
		return
	}
	writeResult(w, http.StatusOK, true, "Payment successful")
}

func (b *Bridge) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	out, ok := b.claim(id)
	if !ok {
		writeResult(w, http.StatusConflict, false, "payment already finished")
		return
	}
	b.log.Info("payment dismissed", "session", id)
	if err := out.PaymentDismissed(context.WithoutCancel(r.Context())); err != nil {
		b.log.Warn("dismiss not accepted", "session", id, "error", err)
	}
	writeResult(w, http.StatusOK, false, "Payment cancelled")
}

func writeResult(w http.ResponseWriter, status int, ok bool, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": ok, "message": message})
}
