package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutWideWidth is the minimum width to show rating and stock columns.
	LayoutWideWidth = 120

	// drawerWidth is the width of the cart drawer beside the product list.
	drawerWidth = 34
)

// Fetch limits.
const (
	// ProductPageSize is the number of products requested per page.
	ProductPageSize = 20

	// LogTailLines is the number of log lines loaded into the Logs view.
	LogTailLines = 500

	// ReviewLimit is the number of reviews shown on a product page.
	ReviewLimit = 10
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = 250 * time.Millisecond

	// RequestTimeout bounds every call started from a key press.
	RequestTimeout = 15 * time.Second

	// ToastLifetime is how long the latest toast stays in the footer.
	ToastLifetime = 5 * time.Second
)
