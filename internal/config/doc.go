// Package config loads the storefront client's configuration.
//
// # Overview
//
// Settings come from three layers, later layers winning:
//
//  1. The TOML file (explicit path, or ~/.config/shopaura/config.toml)
//  2. A .env file in the working directory
//  3. The process environment
//
// Only the endpoint and payment key settings are read from the .env file and
// the environment, under the same VITE_* names the web storefront uses:
//
//   - VITE_API_URL: REST root, e.g. http://localhost:5000/api
//   - VITE_SOCKET_URL: push channel endpoint
//   - VITE_ADMIN_PANEL_URL: where non-buyer accounts are sent
//   - VITE_RAZORPAY_KEY_ID: public key handed to the payment page
//
// A missing config file or .env file is not an error; every field has a
// default. Whitespace-only values count as unset.
//
// # TOML Format
//
//	api_url = "http://localhost:5000/api"
//	socket_url = "ws://localhost:5000/ws"
//	admin_panel_url = "http://localhost:5174"
//	payment_key_id = "rzp_test_xxx"
//	log_file = "~/.local/state/shopaura/shopaura.log"
//	prefs_path = "~/.config/shopaura/prefs.toml"
//	poll_seconds = 30
//	requests_per_second = 0
//	free_shipping_threshold = 500
//	shipping_fee = 50
//	role_redirect_delay_ms = 2000
//	reconnect_attempts = 5
//	reconnect_delay_ms = 1000
//	currency = "INR"
//	store_name = "ShopAura"
//	payment_bridge_addr = "127.0.0.1:0"
//
// When socket_url is unset it is derived from api_url: the scheme becomes
// ws or wss and a trailing /api is replaced with /ws. A poll_seconds of 0
// disables background notification polling; requests_per_second of 0
// disables client-side throttling.
//
// # Path Expansion
//
// log_file, prefs_path and the config path itself accept ~ and relative
// paths; both are resolved to absolute paths.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors other than os.ErrNotExist
//   - TOML or .env parsing errors
//   - An api_url that cannot be parsed while deriving socket_url
package config
