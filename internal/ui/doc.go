// Package ui is the Bubble Tea terminal storefront.
//
// # Architecture Overview
//
// The UI owns no business state. Every list it shows comes from the managers
// in Services (cart, wishlist, notifications, addresses, checkout, session,
// profile), which it reads on each render. Key presses start manager calls as tea.Cmds
// bounded by RequestTimeout; managers toast their own successes and
// failures, and the footer shows the freshest toast.
//
// Read-only pages are fetched by the UI itself through Catalog: the product
// list and its categories, a product with its reviews, the order history,
// and an order with its tracking. The detail fetches run their two calls
// concurrently. The Logs view reads the client's own log file through
// logtail.
//
// # Navigation
//
// Managers never touch the UI directly. When a flow has to move the user
// (session expired, empty checkout, order confirmed) it navigates the
// nav.History. The model checks the history on every tick and switches to
// the view mapped to the new route; product and order detail routes load
// the item they name. Views switched by key press are recorded in the
// history the same way.
//
// Views other than Products, product detail and Logs need a session; opening one while
// signed out shows the sign-in form instead, and an ended session closes
// them on the next tick.
//
// # Views
//
//   - Products: paged catalog with search, category filter, cart drawer
//   - Product: description, stock, reviews, add to cart, wishlist toggle
//   - Cart: quantities, removal, clear, begin checkout
//   - Wishlist: saved products, move to cart, clear
//   - Notifications: unread markers, mark read, delete, clear
//   - Checkout: address, coupon, payment method, payment status
//   - Orders: history with status badges and the selected order's items
//   - Order: one order with its tracking timeline
//   - Profile: identity, name and phone edit, picture upload and removal
//   - Addresses: add, edit, delete, set default; opened from checkout it
//     returns there with the new address selected
//   - Logs: the client's own slog output with a level filter
//   - Sign in: login and registration form
//
// # Usage Example
//
//	err := ui.Run(ui.Options{
//		Context:   ctx,
//		Services:  services,
//		ThemeName: prefsFile.Theme(),
//		SaveTheme: prefsFile.SetTheme,
//		LogFile:   cfg.LogFile,
//	})
//
// Run returns when the user quits or the context is cancelled.
package ui
