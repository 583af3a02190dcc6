package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shopaura/internal/api"
)

func (m *Model) loadOrdersCmd() tea.Cmd {
	if m.svc.Catalog == nil {
		return nil
	}
	catalog := m.svc.Catalog
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, RequestTimeout)
		defer cancel()
		orders, err := catalog.ListOrders(ctx)
		return ordersMsg{orders: orders, err: err}
	}
}

// focusOrder moves the cursor to the order named by the last detail route.
func (m *Model) focusOrder() {
	if m.focusOrderID == "" {
		m.clampCursor(ViewOrders, len(m.orders))
		return
	}
	for i, o := range m.orders {
		if o.ID == m.focusOrderID {
			m.cursors[ViewOrders] = i
			break
		}
	}
	m.focusOrderID = ""
}

// handleOrdersKey processes keyboard input for the order history.
func (m Model) handleOrdersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveCursor(ViewOrders, msg, len(m.orders)) {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Reload):
		m.ordersLoading = true
		return m, m.loadOrdersCmd()
	case key.Matches(msg, m.keys.Confirm) && len(m.orders) > 0:
		return m.openOrder(m.orders[m.clampedCursor(ViewOrders, len(m.orders))].ID)
	}
	return m, nil
}

// renderOrders renders the order list with the selected order's detail.
func (m Model) renderOrders() string {
	styles := m.theme.Styles()
	if m.ordersErr != nil {
		return styles.DangerText.Render("Could not load orders: " + api.Message(m.ordersErr, "request failed"))
	}
	if len(m.orders) == 0 {
		if m.ordersLoading {
			return m.emptyState("Loading orders...")
		}
		return m.emptyState("No orders yet")
	}

	rows := make([]string, len(m.orders))
	for i, o := range m.orders {
		rows[i] = padRight(o.OrderNumber, 22) +
			padRight(titleCase(o.Status), 18) +
			padRight(api.FormatPrice(m.currency, o.TotalAmount), 12) +
			titleCase(o.PaymentStatus)
	}
	cursor := m.clampedCursor(ViewOrders, len(rows))
	detailLines := 6
	list := m.renderList(rows, cursor, m.listHeight(detailLines+1), m.innerWidth())
	return list + "\n\n" + m.renderOrderSummary(m.orders[cursor])
}

// renderOrderSummary renders status, items and destination of one order.
func (m Model) renderOrderSummary(o api.Order) string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.StatusStyle(o.Status).Render(titleCase(o.Status)))
	if o.PaymentStatus != "" {
		b.WriteString(" ")
		b.WriteString(styles.StatusStyle(o.PaymentStatus).Render("Payment " + titleCase(o.PaymentStatus)))
	}
	b.WriteString("\n")
	for _, it := range o.Items {
		b.WriteString(styles.Text.Render(fmt.Sprintf("%dx %s  %s", it.Quantity, truncate(it.Name, 40), api.FormatPrice(m.currency, it.Price))))
		b.WriteString("\n")
	}
	if o.ShippingAddress != nil {
		b.WriteString(styles.MutedText.Render("Ship to " + formatAddress(*o.ShippingAddress)))
	}
	return b.String()
}
