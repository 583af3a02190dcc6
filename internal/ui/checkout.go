package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/checkout"
)

var methodLabels = map[string]string{
	api.PaymentCOD:    "Cash on delivery",
	api.PaymentOnline: "Pay online",
}

// handleCheckoutKey drives the checkout orchestrator one step at a time.
func (m Model) handleCheckoutKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	co := m.svc.Checkout
	st := co.Snapshot()

	if key.Matches(msg, m.keys.Back) {
		_ = co.Back()
		return m, nil
	}

	switch st.Step {
	case checkout.Idle, checkout.Exited:
		if key.Matches(msg, m.keys.Confirm) {
			return m.switchView(ViewCart)
		}

	case checkout.AddressSelection:
		if m.moveCursor(ViewCheckout, msg, len(st.Addresses)) {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.NewAddress):
			next, cmd := m.manageAddresses()
			nm := next.(Model)
			nm.openAddressForm(api.Address{})
			return nm, cmd
		case key.Matches(msg, m.keys.Addresses):
			return m.manageAddresses()
		}
		if key.Matches(msg, m.keys.Confirm) && len(st.Addresses) > 0 {
			addr := st.Addresses[m.clampedCursor(ViewCheckout, len(st.Addresses))]
			if err := co.SelectAddress(addr.ID); err == nil {
				_ = co.ConfirmAddress()
			}
		}

	case checkout.CouponOptional:
		switch {
		case key.Matches(msg, m.keys.Coupon):
			m.openPrompt(promptCoupon, "Coupon: ", "")
		case key.Matches(msg, m.keys.Remove):
			return m, m.runOp("remove coupon", nil, co.RemoveCoupon)
		case key.Matches(msg, m.keys.Confirm):
			if err := co.ProceedToPayment(); err == nil {
				m.cursors[ViewCheckout] = methodIndex(m.methods, st.Method)
			}
		}

	case checkout.PaymentMethodSelection, checkout.PaymentFailed:
		if m.moveCursor(ViewCheckout, msg, len(m.methods)) {
			return m, nil
		}
		if key.Matches(msg, m.keys.Confirm) {
			method := m.methods[m.clampedCursor(ViewCheckout, len(m.methods))]
			if err := co.SelectMethod(method); err != nil {
				return m, nil
			}
			return m, m.runOp("pay", nil, co.Pay)
		}

	case checkout.OrderConfirmed:
		if key.Matches(msg, m.keys.Confirm) {
			if st.Order == nil {
				return m.switchView(ViewOrders)
			}
			return m.openOrder(st.Order.ID)
		}
	}
	return m, nil
}

// manageAddresses opens the address book on behalf of the address step.
func (m Model) manageAddresses() (tea.Model, tea.Cmd) {
	next, cmd := m.switchView(ViewAddresses)
	nm := next.(Model)
	nm.addrToCheckout = nm.currentView == ViewAddresses
	return nm, cmd
}

// syncCheckoutCursor points the address cursor at the selected address.
func (m *Model) syncCheckoutCursor() {
	st := m.svc.Checkout.Snapshot()
	if st.Step != checkout.AddressSelection || st.AddressID == "" {
		return
	}
	for i, a := range st.Addresses {
		if a.ID == st.AddressID {
			m.cursors[ViewCheckout] = i
			return
		}
	}
}

// applyCoupon submits the prompt's code.
func (m Model) applyCoupon(code string) (tea.Model, tea.Cmd) {
	co := m.svc.Checkout
	code = strings.TrimSpace(code)
	return m, m.runOp("apply coupon", nil, func(ctx context.Context) error {
		return co.ApplyCoupon(ctx, code)
	})
}

func methodIndex(methods []string, method string) int {
	for i, candidate := range methods {
		if candidate == method {
			return i
		}
	}
	return 0
}

// renderCheckout renders the current step followed by the price summary.
func (m Model) renderCheckout() string {
	styles := m.theme.Styles()
	st := m.svc.Checkout.Snapshot()

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(stepTitle(st.Step)))
	b.WriteString("\n\n")

	switch st.Step {
	case checkout.Idle, checkout.Exited:
		b.WriteString(m.emptyState("No checkout in progress. Press enter to open your cart."))
		return b.String()

	case checkout.AddressSelection:
		if st.Loading {
			b.WriteString(m.emptyState("Loading addresses..."))
			break
		}
		if len(st.Addresses) == 0 {
			b.WriteString(m.emptyState("No saved addresses. Press n to add one."))
			break
		}
		rows := make([]string, len(st.Addresses))
		for i, a := range st.Addresses {
			rows[i] = formatAddress(a)
		}
		b.WriteString(m.renderList(rows, m.clampedCursor(ViewCheckout, len(rows)), m.listHeight(8), m.innerWidth()))

	case checkout.CouponOptional:
		if st.Coupon != nil {
			b.WriteString(styles.SuccessText.Render(fmt.Sprintf("Coupon %s applied", st.Coupon.Code)))
		} else {
			b.WriteString(m.emptyState("Press p to enter a coupon, or enter to continue."))
		}

	case checkout.PaymentMethodSelection, checkout.PaymentFailed:
		if st.Step == checkout.PaymentFailed {
			b.WriteString(styles.DangerText.Render("Payment did not complete. Choose a method to try again."))
			b.WriteString("\n\n")
		}
		rows := make([]string, len(m.methods))
		for i, method := range m.methods {
			rows[i] = methodLabels[method]
		}
		b.WriteString(m.renderList(rows, m.clampedCursor(ViewCheckout, len(rows)), len(rows), m.innerWidth()))

	case checkout.PaymentInFlight:
		b.WriteString(styles.WarningText.Render("Waiting for payment. Complete it in your browser."))

	case checkout.OrderConfirmed:
		if st.Order != nil {
			b.WriteString(styles.SuccessText.Render("Order " + st.Order.OrderNumber + " placed"))
			b.WriteString("\n")
		}
		b.WriteString(m.emptyState("Press enter to track your order."))
		return b.String()
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderSummary(m.svc.Checkout.Summary()))
	return b.String()
}

func (m Model) renderSummary(s checkout.Summary) string {
	styles := m.theme.Styles()
	shipping := api.FormatPrice(m.currency, s.Shipping)
	if s.Shipping == 0 {
		shipping = "Free"
	}
	lines := []string{
		padRight("Subtotal", 12) + api.FormatPrice(m.currency, s.Subtotal),
		padRight("Shipping", 12) + shipping,
	}
	if s.Discount > 0 {
		lines = append(lines, padRight("Discount", 12)+"-"+api.FormatPrice(m.currency, s.Discount))
	}
	out := styles.MutedText.Render(strings.Join(lines, "\n"))
	return out + "\n" + styles.Text.Bold(true).Render(padRight("Total", 12)+api.FormatPrice(m.currency, s.Total))
}

func stepTitle(s checkout.Step) string {
	switch s {
	case checkout.AddressSelection:
		return "1. Delivery address"
	case checkout.CouponOptional:
		return "2. Coupon"
	case checkout.PaymentMethodSelection:
		return "3. Payment method"
	case checkout.PaymentInFlight:
		return "Payment in progress"
	case checkout.PaymentFailed:
		return "Payment failed"
	case checkout.OrderConfirmed:
		return "Order confirmed"
	default:
		return "Checkout"
	}
}

func formatAddress(a api.Address) string {
	parts := []string{a.FullName, a.AddressLine1, a.City, a.State, a.Pincode}
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	line := strings.Join(kept, ", ")
	if a.IsDefault {
		line += "  (default)"
	}
	return line
}
