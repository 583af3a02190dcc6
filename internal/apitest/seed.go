package apitest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/five82/shopaura/internal/api"
)

// AddUser registers an account and returns its identity.
func (s *Server) AddUser(name, email, password, role string) api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, password, role)
}

func (s *Server) addUserLocked(name, email, password, role string) api.User {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now().UTC().Format(time.RFC3339)
	u := api.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[email] = &account{user: u, password: password}
	return u
}

// AddProduct stores a product. An empty ID gets a generated one.
func (s *Server) AddProduct(p api.Product) api.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := s.products[p.ID]; !exists {
		s.productOrder = append(s.productOrder, p.ID)
	}
	s.products[p.ID] = p
	return p
}

// SetStock changes a product's stock.
func (s *Server) SetStock(productID string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[productID]
	p.Stock = stock
	s.products[productID] = p
}

// AddCategory stores a category.
func (s *Server) AddCategory(c api.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

// AddReview appends a review to a product.
func (s *Server) AddReview(productID string, r api.Review) api.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	s.reviews[productID] = append(s.reviews[productID], r)
	return r
}

// AddCoupon makes a coupon code valid. discountType is "percentage" or
// "fixed".
func (s *Server) AddCoupon(code, discountType string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons[code] = api.Coupon{Code: code, DiscountType: discountType, DiscountValue: value}
}

// AddAddress stores an address for a user.
func (s *Server) AddAddress(userID string, addr api.Address) api.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAddressLocked(userID, addr)
}

func (s *Server) addAddressLocked(userID string, addr api.Address) api.Address {
	addr.ID = uuid.NewString()
	if len(s.addresses[userID]) == 0 {
		addr.IsDefault = true
	}
	if addr.IsDefault {
		for i := range s.addresses[userID] {
			s.addresses[userID][i].IsDefault = false
		}
	}
	s.addresses[userID] = append(s.addresses[userID], addr)
	return addr
}

// Addresses returns the user's saved addresses.
func (s *Server) Addresses(userID string) []api.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Address(nil), s.addresses[userID]...)
}

// SeedCart puts quantity units of a product in the user's server-side cart.
func (s *Server) SeedCart(userID, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = append(s.carts[userID], cartLine{productID: productID, quantity: quantity})
}

// CartQuantities returns the server-side cart as product id -> quantity.
func (s *Server) CartQuantities(userID string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, line := range s.carts[userID] {
		out[line.productID] = line.quantity
	}
	return out
}

// SeedWishlist saves a product in the user's wishlist.
func (s *Server) SeedWishlist(userID, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishlists[userID] = append(s.wishlists[userID], productID)
}

// WishlistIDs returns the server-side wishlist.
func (s *Server) WishlistIDs(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.wishlists[userID]...)
}

// AddNotification stores a notification without pushing it. Missing ids and
// timestamps are filled in.
func (s *Server) AddNotification(userID string, n api.Notification) api.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addNotificationLocked(userID, n)
}

func (s *Server) addNotificationLocked(userID string, n api.Notification) api.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	if n.Type == "" {
		n.Type = api.NotificationOther
	}
	s.notifications[userID] = append([]api.Notification{n}, s.notifications[userID]...)
	return n
}

// Notifications returns the server-side notifications, newest first.
func (s *Server) Notifications(userID string) []api.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Notification(nil), s.notifications[userID]...)
}

// Orders returns the user's orders, newest first.
func (s *Server) Orders(userID string) []api.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Order(nil), s.orders[userID]...)
}

// PaymentFailures returns every reported payment failure as
// (provider order id, reason) pairs.
func (s *Server) PaymentFailures() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][2]string, 0, len(s.failures))
	for _, f := range s.failures {
		out = append(out, [2]string{f.ProviderOrderID, f.Reason})
	}
	return out
}

// Avatar returns the bytes last uploaded as the user's profile picture.
func (s *Server) Avatar(userID string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.avatars[userID]...)
}

// Signature is the payment signature the fake accepts for a provider order
// and payment id pair.
func Signature(providerOrderID, paymentID string) string {
	return "sig_" + providerOrderID + "_" + paymentID
}
