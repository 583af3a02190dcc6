package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/five82/shopaura/internal/api"
	"github.com/five82/shopaura/internal/nav"
)

// orderDetail is one order with its tracking timeline.
type orderDetail struct {
	id       string
	order    api.Order
	tracking *api.Tracking
	loading  bool
}

// openOrder records the order route and shows its detail.
func (m Model) openOrder(id string) (tea.Model, tea.Cmd) {
	if m.svc.History != nil {
		m.svc.History.Navigate(nav.To(nav.OrderDetail(id)))
	}
	return m.switchView(ViewOrderDetail)
}

// loadOrderDetailCmd fetches the order and its tracking together. Without
// tracking the order is still shown and the user is told.
func (m *Model) loadOrderDetailCmd(id string) tea.Cmd {
	if m.orderDetail.id != id {
		m.orderDetail = orderDetail{id: id}
	}
	m.orderDetailErr = nil
	if id == "" || m.svc.Catalog == nil {
		return nil
	}
	m.orderDetail.loading = true
	catalog := m.svc.Catalog
	toasts := m.svc.Toasts
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, RequestTimeout)
		defer cancel()

		var (
			order    api.Order
			tracking *api.Tracking
		)
		var g errgroup.Group
		g.Go(func() error {
			var err error
			order, err = catalog.GetOrder(ctx, id)
			return err
		})
		g.Go(func() error {
			t, err := catalog.TrackOrder(ctx, id)
			if err != nil {
				if !errors.Is(err, api.ErrUnauthorized) && toasts != nil {
					toasts.Error("Failed to load tracking information")
				}
				return nil
			}
			tracking = &t
			return nil
		})
		err := g.Wait()
		return orderDetailMsg{id: id, order: order, tracking: tracking, err: err}
	}
}

// handleOrderDetailKey processes keyboard input for the order detail.
func (m Model) handleOrderDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.focusOrderID = m.orderDetail.id
		return m.switchView(ViewOrders)
	case key.Matches(msg, m.keys.Reload):
		return m, m.loadOrderDetailCmd(m.orderDetail.id)
	}
	return m, nil
}

// renderOrderDetail renders the order followed by its tracking timeline.
func (m Model) renderOrderDetail() string {
	styles := m.theme.Styles()
	if m.orderDetailErr != nil {
		return styles.DangerText.Render("Could not load order: " + api.Message(m.orderDetailErr, "request failed"))
	}
	o := m.orderDetail.order
	if o.ID == "" {
		if m.orderDetail.loading {
			return m.emptyState("Loading order...")
		}
		return m.emptyState("No order selected")
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Order " + o.OrderNumber))
	b.WriteString(styles.MutedText.Render("  " + api.FormatPrice(m.currency, o.TotalAmount)))
	b.WriteString("\n")
	b.WriteString(m.renderOrderSummary(o))
	b.WriteString("\n\n")

	t := m.orderDetail.tracking
	if t == nil {
		b.WriteString(m.emptyState("Tracking unavailable"))
		return b.String()
	}
	b.WriteString(m.renderTimeline(*t))
	return b.String()
}

// renderTimeline marks each lifecycle step reached so far, then lists the
// recorded status changes.
func (m Model) renderTimeline(t api.Tracking) string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Tracking"))
	b.WriteString("\n")

	status := t.Status()
	if status == "cancelled" {
		b.WriteString(styles.DangerText.Render("This order was cancelled"))
		b.WriteString("\n")
	} else {
		current := t.StepIndex()
		steps := make([]string, len(api.TrackingSteps))
		for i, step := range api.TrackingSteps {
			label := titleCase(step)
			switch {
			case i < current:
				steps[i] = styles.SuccessText.Render("● " + label)
			case i == current:
				steps[i] = styles.StatusStyle(step).Bold(true).Render("● " + label)
			default:
				steps[i] = styles.FaintText.Render("○ " + label)
			}
		}
		b.WriteString(strings.Join(steps, styles.FaintText.Render(" ─ ")))
		b.WriteString("\n")
	}

	if t.Courier != "" || t.TrackingNumber != "" {
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("%s %s", t.Courier, t.TrackingNumber)))
		b.WriteString("\n")
	}
	for _, e := range t.History {
		line := padRight(titleCase(e.Status), 18)
		if age := humanizeAge(e.Time(), m.now); age != "" {
			line += padRight(age, 10)
		}
		if e.Note != "" {
			line += e.Note
		}
		b.WriteString(styles.Text.Render(line))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
