// Package api provides the HTTP gateway to the storefront backend.
//
// # Overview
//
// Client is the only component that talks HTTP to the backend. It owns the
// session cookie jar, stamps every request with a request id, applies an
// optional client-side rate limit, and normalizes the backend's loosely shaped
// responses into the types in this package.
//
// # Architecture
//
//   - client.go: request construction, cookie jar, envelope and error handling
//   - errors.go: Error, ErrUnauthorized and message helpers
//   - types.go: wire types and their normalizing decoders
//   - auth.go, catalog.go, cart.go, wishlist.go, addresses.go, checkout.go,
//     orders.go, profile.go, notifications.go: one file per backend area
//
// # Client Usage
//
//	client, err := api.NewClient(api.Options{
//		BaseURL:        cfg.APIURL,
//		OnUnauthorized: sess.Expire,
//	})
//	if err != nil {
//		return err
//	}
//	status, err := client.CheckAuth(ctx)
//
// # Error Handling
//
// Any response with status 400 or above becomes an *Error carrying the
// status, route and the backend's message or error field. A 2xx body of the
// form {"success": false, "message": ...} is treated the same way.
//
// A 401 on any route outside /auth/ triggers Options.OnUnauthorized before the
// error is returned; errors.Is(err, ErrUnauthorized) reports true for every
// 401. Auth routes are excluded so bad credentials surface as a message
// instead of bouncing the user back to the login screen they are already on.
//
// IsRejection separates business rejections (4xx other than 401) from
// transport failures and server errors.
//
// # Response Shapes
//
// The backend is inconsistent across versions. Products may arrive as a bare
// array, {products}, {data: [...]}, or {data: {products, total, totalPages}}.
// Categories may arrive as a bare array, {categories} or {data}. Cart lines
// reference products by id or by populated object. Notifications use either
// _id or id. All of these are normalized at decode time so callers see one
// shape.
//
// # Retries
//
// A request is one attempt. Retry and backoff policy belongs to callers such
// as the notification poller.
package api
