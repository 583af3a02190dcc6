package ui

import (
	"net/url"
	"strings"

	"github.com/five82/shopaura/internal/nav"
)

var routeViews = map[string]View{
	nav.RouteHome:          ViewProducts,
	nav.RouteProducts:      ViewProducts,
	nav.RouteLogin:         ViewLogin,
	nav.RouteCart:          ViewCart,
	nav.RouteWishlist:      ViewWishlist,
	nav.RouteCheckout:      ViewCheckout,
	nav.RoutePayment:       ViewCheckout,
	nav.RouteOrders:        ViewOrders,
	nav.RouteNotifications: ViewNotifications,
	nav.RouteAddresses:     ViewAddresses,
	nav.RouteProfile:       ViewProfile,
}

// viewForRoute maps an in-app route to the view that renders it.
func viewForRoute(path string) (View, bool) {
	path = strings.TrimSuffix(strings.TrimSpace(path), "/")
	if path == "" {
		path = nav.RouteHome
	}
	if v, ok := routeViews[path]; ok {
		return v, true
	}
	if strings.HasPrefix(path, nav.RouteOrders+"/") {
		return ViewOrderDetail, true
	}
	if strings.HasPrefix(path, nav.RouteProducts+"/") {
		return ViewProductDetail, true
	}
	return 0, false
}

// routeForView is the route recorded in the history when v is opened.
func routeForView(v View) string {
	switch v {
	case ViewProducts:
		return nav.RouteProducts
	case ViewCart:
		return nav.RouteCart
	case ViewWishlist:
		return nav.RouteWishlist
	case ViewNotifications:
		return nav.RouteNotifications
	case ViewCheckout:
		return nav.RouteCheckout
	case ViewOrders:
		return nav.RouteOrders
	case ViewProfile:
		return nav.RouteProfile
	case ViewAddresses:
		return nav.RouteAddresses
	case ViewProductDetail:
		return nav.RouteProducts
	case ViewOrderDetail:
		return nav.RouteOrders
	case ViewLogs:
		return "/logs"
	default:
		return nav.RouteLogin
	}
}

// orderIDFromRoute extracts the order id from an order detail or tracking
// route.
func orderIDFromRoute(path string) string {
	rest, ok := strings.CutPrefix(path, nav.RouteOrders+"/")
	if !ok {
		return ""
	}
	return unescapeID(strings.TrimSuffix(rest, "/track"))
}

// productIDFromRoute extracts the product id from a product detail route.
func productIDFromRoute(path string) string {
	rest, ok := strings.CutPrefix(path, nav.RouteProducts+"/")
	if !ok {
		return ""
	}
	return unescapeID(rest)
}

func unescapeID(raw string) string {
	if raw == "" {
		return ""
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return id
}
