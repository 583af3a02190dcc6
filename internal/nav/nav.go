// Package nav models navigation intents issued by the storefront managers.
//
// Managers never render anything; when a flow has to move the user somewhere
// (expired session, empty checkout, confirmed order) they hand a Target to a
// Navigator. The UI follows the History; tests inspect it.
package nav

import (
	"net/url"
	"strings"

	"github.com/five82/shopaura/internal/state"
)

// Well-known in-app routes.
const (
	RouteHome          = "/"
	RouteLogin         = "/login"
	RouteProducts      = "/products"
	RouteCart          = "/cart"
	RouteWishlist      = "/wishlist"
	RouteCheckout      = "/checkout"
	RoutePayment       = "/payment"
	RouteOrders        = "/orders"
	RouteNotifications = "/notifications"
	RouteAddresses     = "/addresses"
	RouteProfile       = "/profile"
)

// OrderDetail returns the route for a single order.
func OrderDetail(orderID string) string {
	return RouteOrders + "/" + url.PathEscape(orderID)
}

// OrderTracking returns the tracking route for a single order.
func OrderTracking(orderID string) string {
	return OrderDetail(orderID) + "/track"
}

// ProductDetail returns the route for a single product.
func ProductDetail(productID string) string {
	return RouteProducts + "/" + url.PathEscape(productID)
}

// Target is one navigation request.
type Target struct {
	Path     string
	External bool
	State    map[string]any
}

// To builds an in-app target.
func To(path string) Target {
	return Target{Path: path}
}

// ExternalURL builds a target that leaves the storefront entirely.
func ExternalURL(rawURL string) Target {
	return Target{Path: strings.TrimSpace(rawURL), External: true}
}

// Navigator receives navigation requests.
type Navigator interface {
	Navigate(Target)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Target)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(t Target) { f(t) }

// History records every navigation and exposes the current location.
type History struct {
	store state.Store[[]Target]
}

var _ Navigator = (*History)(nil)

// Navigate appends t to the history.
func (h *History) Navigate(t Target) {
	h.store.Update(func(entries *[]Target) {
		*entries = append(*entries, t)
	})
}

// Current returns the latest target, or the home route when empty.
func (h *History) Current() Target {
	var cur Target
	h.store.Read(func(entries []Target) {
		if len(entries) == 0 {
			cur = To(RouteHome)
			return
		}
		cur = entries[len(entries)-1]
	})
	return cur
}

// Entries returns a copy of the full history.
func (h *History) Entries() []Target {
	var out []Target
	h.store.Read(func(entries []Target) {
		out = state.CloneSlice(entries)
	})
	return out
}

// Subscribe signals after every navigation.
func (h *History) Subscribe() (<-chan struct{}, func()) {
	return h.store.Subscribe()
}
