package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shopaura/internal/checkout"
	"github.com/five82/shopaura/internal/realtime"
	"github.com/five82/shopaura/internal/toast"
)

// renderHeader renders the status bar: store, identity, badges and the push
// channel state.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{bg.Render(m.storeName, styles.Logo)}

	st := m.svc.Session.Snapshot()
	switch {
	case st.Loading:
		parts = append(parts, bg.Render("Checking session...", styles.WarningText))
	case st.Authenticated && st.User != nil:
		parts = append(parts, bg.Render(truncate(st.User.Name, 24), styles.Text.Bold(true)))
	default:
		parts = append(parts, bg.Render("Signed out", styles.MutedText))
	}

	if st.Authenticated {
		parts = append(parts,
			bg.Render(fmt.Sprintf("Cart %d", m.svc.Cart.Count()), styles.AccentText),
			bg.Render(fmt.Sprintf("Wishlist %d", m.svc.Wishlist.Count()), styles.AccentText),
		)
		unread := m.svc.Notify.TotalUnread()
		unreadStyle := styles.MutedText
		if unread > 0 {
			unreadStyle = styles.WarningText.Bold(true)
		}
		parts = append(parts, bg.Render(fmt.Sprintf("Unread %d", unread), unreadStyle))
		parts = append(parts, m.renderRealtime(styles, bg))
	}

	if m.busy.Load() > 0 {
		parts = append(parts, bg.Render("Working...", styles.InfoText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(strings.Join(parts, sep))
}

func (m Model) renderRealtime(styles Styles, bg BgStyle) string {
	if m.svc.Realtime == nil {
		return ""
	}
	s := m.svc.Realtime.Snapshot()
	style := styles.MutedText
	switch s {
	case realtime.Connected:
		style = styles.SuccessText
	case realtime.Connecting, realtime.Reconnecting:
		style = styles.WarningText
	}
	return bg.Render("Live "+s.String(), style)
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var bindings []key.Binding
	switch m.currentView {
	case ViewProducts:
		bindings = []key.Binding{m.keys.Search, m.keys.Category, m.keys.AddToCart, m.keys.ToggleWishlist, m.keys.CartDrawer, m.keys.PrevPage, m.keys.NextPage}
	case ViewProductDetail:
		bindings = []key.Binding{m.keys.AddToCart, m.keys.ToggleWishlist, m.keys.Reload, m.keys.Back}
	case ViewCart:
		bindings = []key.Binding{m.keys.Increment, m.keys.Decrement, m.keys.Quantity, m.keys.Remove, m.keys.ClearAll, m.keys.Checkout}
	case ViewWishlist:
		bindings = []key.Binding{m.keys.AddToCart, m.keys.Remove, m.keys.ClearAll}
	case ViewNotifications:
		bindings = []key.Binding{m.keys.MarkRead, m.keys.MarkAllRead, m.keys.Remove, m.keys.ClearAll, m.keys.Reload}
	case ViewCheckout:
		if m.svc.Checkout.Step() == checkout.AddressSelection {
			bindings = []key.Binding{m.keys.Confirm, m.keys.NewAddress, m.keys.Addresses, m.keys.Back}
		} else {
			bindings = []key.Binding{m.keys.Confirm, m.keys.Coupon, m.keys.Remove, m.keys.Back}
		}
	case ViewOrders:
		bindings = []key.Binding{m.keys.Up, m.keys.Down, m.keys.Confirm, m.keys.Reload}
	case ViewOrderDetail:
		bindings = []key.Binding{m.keys.Reload, m.keys.Back}
	case ViewProfile:
		bindings = []key.Binding{
			m.keys.Edit,
			m.keys.Addresses,
			key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "Upload picture")),
			key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "Remove picture")),
			m.keys.Logout,
		}
	case ViewAddresses:
		if m.addrForm.open {
			bindings = []key.Binding{m.keys.NextField, m.keys.Confirm}
		} else {
			bindings = []key.Binding{m.keys.NewAddress, m.keys.Edit, m.keys.Remove, m.keys.SetDefault, m.keys.Back}
		}
	case ViewLogs:
		bindings = []key.Binding{m.keys.CycleLevel, m.keys.Reload}
	case ViewLogin:
		bindings = []key.Binding{m.keys.NextField, m.keys.Confirm, m.keys.ToggleRegister, m.keys.Escape}
	}
	if m.currentView != ViewLogin {
		bindings = append(bindings, m.keys.Help)
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(bindings)+2)
	for _, b := range bindings {
		h := b.Help()
		segments = append(segments,
			bg.Render(h.Key, styles.AccentText)+colon+bg.Render(h.Desc, styles.MutedText))
	}

	if m.currentView == ViewProducts && m.query.Search != "" {
		segments = append(segments, bg.Render("/"+truncate(m.query.Search, 18), styles.AccentText))
	}
	if m.currentView == ViewProducts && m.query.Category != "" {
		segments = append(segments, bg.Render("#"+truncate(m.categoryLabel(), 24), styles.AccentText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

// renderFooter shows the latest toast while it is fresh, or the prompt when
// one is open.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	footer := styles.Footer.Width(m.width)

	if m.promptKind != promptNone {
		return footer.Render(m.prompt.View())
	}

	msg, ok := m.svc.Toasts.Latest()
	if !ok || m.now.Sub(msg.At) > ToastLifetime {
		return footer.Render("")
	}
	style := styles.InfoText
	switch msg.Level {
	case toast.LevelSuccess:
		style = styles.SuccessText
	case toast.LevelError:
		style = styles.DangerText
	}
	return footer.Render(style.Render(truncate(msg.Text, max(m.width-4, 10))))
}

// renderTitledBox draws a rounded border with the title set into the top edge.
func (m Model) renderTitledBox(title, body string, width, height int) string {
	border := lipgloss.RoundedBorder()
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.BorderFocus))
	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent)).Bold(true)

	inner := max(width-2, 1)
	label := " " + title + " "
	fill := max(inner-lipgloss.Width(label)-1, 0)
	top := borderStyle.Render(border.TopLeft+border.Top) +
		titleStyle.Render(label) +
		borderStyle.Render(strings.Repeat(border.Top, fill)+border.TopRight)

	box := lipgloss.NewStyle().
		Border(border, false, true, true, true).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Width(inner).
		Height(max(height-2, 1)).
		MaxHeight(max(height-1, 2)).
		Render(body)
	return top + "\n" + box
}
