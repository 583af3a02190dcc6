// Package apitest runs an in-process storefront backend for tests.
//
// The fake keeps every collection in memory behind one mutex, speaks the same
// JSON shapes as the real backend, and exposes knobs for latency, forced
// failures and blocked routes so ordering and reconciliation behaviour can be
// exercised deterministically.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/five82/shopaura/internal/api"
)

const sessionCookie = "token"

// Call is one request observed by the fake.
type Call struct {
	Method string
	Path   string
}

type account struct {
	user     api.User
	password string
}

type fault struct {
	status  int
	message string
}

type cartLine struct {
	productID string
	quantity  int
}

// Server is the fake backend. Create it with NewServer and Close it when done.
type Server struct {
	http *httptest.Server

	mu            sync.Mutex
	accounts      map[string]*account // by email
	sessions      map[string]string   // token -> user id
	products      map[string]api.Product
	productOrder  []string
	categories    []api.Category
	reviews       map[string][]api.Review
	carts         map[string][]cartLine
	wishlists     map[string][]string
	notifications map[string][]api.Notification
	addresses     map[string][]api.Address
	coupons       map[string]api.Coupon
	orders        map[string][]api.Order
	avatars       map[string][]byte
	failures      []paymentFailure
	orderSeq      int

	latency map[string]time.Duration
	faults  map[string][]fault
	blocks  map[string]chan struct{}
	calls   []Call

	sockets *hub
}

type paymentFailure struct {
	ProviderOrderID string
	Reason          string
}

// NewServer starts the fake on a loopback port.
func NewServer() *Server {
	s := &Server{
		accounts:      make(map[string]*account),
		sessions:      make(map[string]string),
		products:      make(map[string]api.Product),
		reviews:       make(map[string][]api.Review),
		carts:         make(map[string][]cartLine),
		wishlists:     make(map[string][]string),
		notifications: make(map[string][]api.Notification),
		addresses:     make(map[string][]api.Address),
		coupons:       make(map[string]api.Coupon),
		orders:        make(map[string][]api.Order),
		avatars:       make(map[string][]byte),
		latency:       make(map[string]time.Duration),
		faults:        make(map[string][]fault),
		blocks:        make(map[string]chan struct{}),
		sockets:       newHub(),
	}
	s.http = httptest.NewServer(s.routes())
	return s
}

// Close stops the server and drops every socket.
func (s *Server) Close() {
	s.sockets.closeAll()
	s.http.Close()
}

// APIURL is the REST root to hand to api.NewClient.
func (s *Server) APIURL() string { return s.http.URL + "/api" }

// SocketURL is the websocket endpoint.
func (s *Server) SocketURL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws"
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.handleSocket)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.faultMiddleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/register", s.handleRegister)
			r.Get("/check", s.handleCheck)
			r.Post("/logout", s.handleLogout)
		})

		r.Get("/categories", s.handleCategories)
		r.Get("/products", s.handleProducts)
		r.Get("/products/{id}/public", s.handlePublicProduct)
		r.Get("/reviews/product/{id}", s.handleReviews)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/products/{id}", s.handleProduct)

			r.Get("/cart", s.handleGetCart)
			r.Post("/cart", s.handleAddCart)
			r.Put("/cart/{productID}", s.handleUpdateCart)
			r.Delete("/cart/{productID}", s.handleRemoveCart)
			r.Delete("/cart", s.handleClearCart)

			r.Get("/wishlist", s.handleGetWishlist)
			r.Post("/wishlist/{productID}", s.handleAddWishlist)
			r.Delete("/wishlist/{productID}", s.handleRemoveWishlist)

			r.Get("/addresses", s.handleListAddresses)
			r.Post("/addresses", s.handleAddAddress)
			r.Put("/addresses/{id}", s.handleUpdateAddress)
			r.Delete("/addresses/{id}", s.handleDeleteAddress)
			r.Put("/addresses/{id}/default", s.handleDefaultAddress)

			r.Post("/checkout/validate-coupon", s.handleValidateCoupon)
			r.Post("/checkout/remove-coupon", s.handleOK)

			r.Post("/payment/create-order", s.handleCreateOrder)
			r.Post("/payment/verify", s.handleVerifyPayment)
			r.Post("/payment/failure", s.handlePaymentFailure)

			r.Get("/orders", s.handleListOrders)
			r.Get("/orders/{id}", s.handleGetOrder)
			r.Get("/orders/{id}/track", s.handleTrackOrder)

			r.Put("/profile", s.handleUpdateProfile)
			r.Post("/profile/picture", s.handleUploadPicture)
			r.Delete("/profile/picture", s.handleDeletePicture)

			r.Get("/notifications", s.handleListNotifications)
			r.Get("/notifications/unread-count", s.handleUnreadCount)
			r.Put("/notifications/read-all", s.handleReadAll)
			r.Put("/notifications/{id}/read", s.handleReadOne)
			r.Delete("/notifications/{id}", s.handleDeleteNotification)
			r.Delete("/notifications", s.handleClearNotifications)
		})
	})
	return r
}

// --- fault injection -------------------------------------------------------

func routeKey(method, path string) string {
	return method + " " + path
}

// SetLatency delays every request matching method and path (relative to the
// API root, e.g. "/cart/p1").
func (s *Server) SetLatency(method, path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency[routeKey(method, path)] = d
}

// FailNext makes the next matching request fail with status and message.
// Calls stack: each queued failure is consumed by one request.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := routeKey(method, path)
	s.faults[key] = append(s.faults[key], fault{status: status, message: message})
}

// Block holds every matching request until the returned release func runs.
func (s *Server) Block(method, path string) (release func()) {
	ch := make(chan struct{})
	key := routeKey(method, path)
	s.mu.Lock()
	s.blocks[key] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.blocks[key] == ch {
				delete(s.blocks, key)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns every request seen so far, in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CountCalls returns how many requests matched method and path.
func (s *Server) CountCalls(method, path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) faultMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimPrefix(r.URL.Path, "/api")
		key := routeKey(r.Method, rel)

		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: rel})
		delay := s.latency[key]
		block := s.blocks[key]
		var injected *fault
		if queued := s.faults[key]; len(queued) > 0 {
			injected = &queued[0]
			s.faults[key] = queued[1:]
		}
		s.mu.Unlock()

		if block != nil {
			select {
			case <-block:
			case <-r.Context().Done():
				return
			}
		}
		if delay > 0 {
			if !sleep(r.Context(), delay) {
				return
			}
		}
		if injected != nil {
			writeJSON(w, injected.status, map[string]any{"success": false, "message": injected.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// --- sessions --------------------------------------------------------------

type ctxKey struct{}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.sessionUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func (s *Server) sessionUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[cookie.Value]
	return id, ok
}

func currentUser(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// ExpireSessions invalidates every session so the next request gets a 401.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]string)
}

func (s *Server) startSession(w http.ResponseWriter, userID string) {
	token := uuid.NewString()
	s.sessions[token] = userID
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
}

func (s *Server) userByIDLocked(id string) (*account, bool) {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc, true
		}
	}
	return nil, false
}

// --- helpers ---------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func decodeBody(r *http.Request, dest any) error {
	return json.NewDecoder(r.Body).Decode(dest)
}

func (s *Server) handleOK(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
