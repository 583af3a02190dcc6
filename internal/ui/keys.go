package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding

	// View switching
	ViewProducts      key.Binding
	ViewCart          key.Binding
	ViewWishlist      key.Binding
	ViewNotifications key.Binding
	ViewOrders        key.Binding
	ViewProfile       key.Binding
	ViewLogs          key.Binding

	// Navigation
	Up      key.Binding
	Down    key.Binding
	Top     key.Binding
	Bottom  key.Binding
	Confirm key.Binding
	Back    key.Binding

	// Actions
	Reload         key.Binding
	Search         key.Binding
	NextPage       key.Binding
	PrevPage       key.Binding
	AddToCart      key.Binding
	ToggleWishlist key.Binding
	Increment      key.Binding
	Decrement      key.Binding
	Remove         key.Binding
	ClearAll       key.Binding
	Checkout       key.Binding
	MarkRead       key.Binding
	MarkAllRead    key.Binding
	Coupon         key.Binding
	Category       key.Binding
	CartDrawer     key.Binding
	Quantity       key.Binding
	NewAddress     key.Binding
	Edit           key.Binding
	SetDefault     key.Binding
	Addresses      key.Binding
	CycleLevel     key.Binding
	Logout         key.Binding
	ToggleRegister key.Binding
	NextField      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "Q"),
			key.WithHelp("Q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to products"),
		),

		ViewProducts: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Products"),
		),
		ViewCart: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Cart"),
		),
		ViewWishlist: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Wishlist"),
		),
		ViewNotifications: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Notifications"),
		),
		ViewOrders: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "Orders"),
		),
		ViewProfile: key.NewBinding(
			key.WithKeys("6"),
			key.WithHelp("6", "Profile"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("7"),
			key.WithHelp("7", "Logs"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Back: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Back"),
		),

		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search products"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "Next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "Previous page"),
		),
		AddToCart: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add to cart"),
		),
		ToggleWishlist: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "Toggle wishlist"),
		),
		Increment: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "Increase quantity"),
		),
		Decrement: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "Decrease quantity"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "Remove"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "Clear all"),
		),
		Checkout: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Checkout"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Mark read"),
		),
		MarkAllRead: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "Mark all read"),
		),
		Coupon: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Enter coupon"),
		),
		Category: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Next category"),
		),
		CartDrawer: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Cart drawer"),
		),
		Quantity: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "Set quantity"),
		),
		NewAddress: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New address"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit"),
		),
		SetDefault: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Set default"),
		),
		Addresses: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "Addresses"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle level filter"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Log out"),
		),
		ToggleRegister: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Login/Register"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "Next field"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ViewProducts, k.ViewCart, k.ViewWishlist, k.ViewNotifications, k.ViewOrders, k.ViewProfile, k.ViewLogs, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.Confirm},
		{k.Search, k.Category, k.NextPage, k.PrevPage, k.AddToCart, k.ToggleWishlist, k.CartDrawer},
		{k.Increment, k.Decrement, k.Quantity, k.Remove, k.ClearAll, k.Checkout},
		{k.Coupon, k.Back, k.MarkRead, k.MarkAllRead},
		{k.Addresses, k.NewAddress, k.Edit, k.SetDefault},
		{k.Reload, k.CycleLevel, k.Logout, k.CycleTheme, k.Help, k.Quit},
	}
}
