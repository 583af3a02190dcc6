package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shopaura/internal/api"
)

// handleCartKey processes keyboard input for the cart.
func (m Model) handleCartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lines := m.svc.Cart.Lines()
	if m.moveCursor(ViewCart, msg, len(lines)) {
		return m, nil
	}
	cartMgr := m.svc.Cart

	switch {
	case key.Matches(msg, m.keys.Checkout), key.Matches(msg, m.keys.Confirm):
		return m.beginCheckout()
	case key.Matches(msg, m.keys.ClearAll):
		return m, m.runOp("clear cart", nil, cartMgr.ClearCart)
	}

	if len(lines) == 0 {
		return m, nil
	}
	line := lines[m.clampedCursor(ViewCart, len(lines))]
	id := line.Product.ID
	switch {
	case key.Matches(msg, m.keys.Quantity):
		m.openPrompt(promptQuantity, "Quantity: ", strconv.Itoa(line.Quantity))
		m.promptTarget = id
		return m, nil
	case key.Matches(msg, m.keys.Increment):
		return m, m.runOp("increment", nil, func(ctx context.Context) error {
			return cartMgr.IncrementQuantity(ctx, id)
		})
	case key.Matches(msg, m.keys.Decrement):
		return m, m.runOp("decrement", nil, func(ctx context.Context) error {
			return cartMgr.DecrementQuantity(ctx, id)
		})
	case key.Matches(msg, m.keys.Remove):
		return m, m.runOp("remove from cart", nil, func(ctx context.Context) error {
			return cartMgr.RemoveFromCart(ctx, id)
		})
	}
	return m, nil
}

// beginCheckout closes the cart drawer and opens checkout.
func (m Model) beginCheckout() (tea.Model, tea.Cmd) {
	m.svc.Cart.SetOpen(false)
	co := m.svc.Checkout
	return m, m.runOp("begin checkout", viewPtr(ViewCheckout), co.Begin)
}

// applyQuantity sets the prompted quantity on a cart line. Zero removes it.
func (m Model) applyQuantity(productID, value string) (tea.Model, tea.Cmd) {
	quantity, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || quantity < 0 {
		m.svc.Toasts.Error("Please enter a whole number")
		return m, nil
	}
	cartMgr := m.svc.Cart
	return m, m.runOp("set quantity", nil, func(ctx context.Context) error {
		return cartMgr.UpdateQuantity(ctx, productID, quantity)
	})
}

// renderCart renders cart lines and the running total.
func (m Model) renderCart() string {
	styles := m.theme.Styles()
	st := m.svc.Cart.Snapshot()
	if st.Loading && len(st.Lines) == 0 {
		return m.emptyState("Loading cart...")
	}
	if len(st.Lines) == 0 {
		return m.emptyState("Your cart is empty. Press 1 to browse products.")
	}

	width := m.innerWidth()
	rows := make([]string, len(st.Lines))
	for i, l := range st.Lines {
		rows[i] = padRight(truncate(l.Product.Name, 40), 44) +
			padRight(fmt.Sprintf("x%d", l.Quantity), 6) +
			padRight(api.FormatPrice(m.currency, l.FinalPrice), 12) +
			api.FormatPrice(m.currency, l.Subtotal())
	}
	cursor := m.clampedCursor(ViewCart, len(rows))
	list := m.renderList(rows, cursor, m.listHeight(2), width)

	total := styles.Text.Bold(true).Render("Total " + api.FormatPrice(m.currency, m.svc.Cart.Total()))
	return list + "\n\n" + total + "  " + styles.FaintText.Render(fmt.Sprintf("%d items", m.svc.Cart.Count()))
}

// handleWishlistKey processes keyboard input for the wishlist.
func (m Model) handleWishlistKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.svc.Wishlist.Items()
	if m.moveCursor(ViewWishlist, msg, len(items)) {
		return m, nil
	}
	wl := m.svc.Wishlist

	if key.Matches(msg, m.keys.ClearAll) {
		return m, m.runOp("clear wishlist", nil, wl.ClearAll)
	}
	if len(items) == 0 {
		return m, nil
	}
	p := items[m.clampedCursor(ViewWishlist, len(items))]
	switch {
	case key.Matches(msg, m.keys.AddToCart):
		cartMgr := m.svc.Cart
		return m, m.runOp("add to cart", nil, func(ctx context.Context) error {
			return cartMgr.AddToCart(ctx, p, 1)
		})
	case key.Matches(msg, m.keys.Remove), key.Matches(msg, m.keys.ToggleWishlist):
		return m, m.runOp("remove from wishlist", nil, func(ctx context.Context) error {
			_, err := wl.Toggle(ctx, p)
			return err
		})
	}
	return m, nil
}

// renderWishlist renders saved products.
func (m Model) renderWishlist() string {
	st := m.svc.Wishlist.Snapshot()
	if st.Loading && len(st.Items) == 0 {
		return m.emptyState("Loading wishlist...")
	}
	if len(st.Items) == 0 {
		return m.emptyState("Your wishlist is empty. Press w on a product to save it.")
	}

	rows := make([]string, len(st.Items))
	for i, p := range st.Items {
		row := padRight(truncate(p.Name, 40), 44) + padRight(api.FormatPrice(m.currency, productPrice(p)), 12)
		if m.svc.Cart.IsInCart(p.ID) {
			row += "in cart"
		} else if p.Stock <= 0 {
			row += "out of stock"
		}
		rows[i] = row
	}
	cursor := m.clampedCursor(ViewWishlist, len(rows))
	return m.renderList(rows, cursor, m.listHeight(0), m.innerWidth())
}
