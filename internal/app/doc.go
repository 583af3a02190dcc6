// Package app is the composition root of the storefront client.
//
// # Overview
//
// New builds one API gateway and hangs everything else off it: the session
// store, the cart, wishlist and notification managers, the checkout
// orchestrator, the profile manager and the loopback payment bridge. Run
// loads configuration, points log/slog at the log file, starts the App and
// hands its services to the TUI.
//
// # Session lifecycle
//
// The App watches the session store and reconciles on every change:
//
//	authenticated identity appears
//	   ├─> bootstrap (errgroup): cart sync, wishlist sync,
//	   │                         notification page, unread count
//	   └─> realtime.Start (one channel per session)
//
//	identity lost (logout, 401, role rejection)
//	   ├─> cancel bootstrap and wait for it
//	   ├─> close the channel (exactly once)
//	   ├─> reset cart, wishlist, notifications
//	   └─> leave checkout
//
// Login, Register and Logout reconcile synchronously as well, so callers see
// the new state when they return. A 401 on any non-auth request expires the
// session without a remote call and navigates to the login route.
//
// The cart store also feeds the checkout orchestrator, so emptying the cart
// mid-checkout closes it.
//
// # Polling Behavior
//
// StartPoller refreshes the notification list and unread badge every
// poll_seconds while a session is authenticated. Consecutive failures back
// off exponentially (calculateBackoff), capped at 30 seconds; the first
// success returns to the base interval. Push delivery over the realtime
// channel is the primary path; polling covers missed pushes and a channel
// that gave up reconnecting.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file invalid
//   - Log file cannot be opened
//   - API client or payment bridge cannot start
//
// Everything after startup is recoverable and logged: bootstrap failures,
// poll failures and channel drops.
package app
