package ui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shopaura/internal/api"
)

const (
	addrFullName = iota
	addrPhone
	addrLine1
	addrLine2
	addrCity
	addrState
	addrPincode
	addrFieldCount
)

var addrLabels = [addrFieldCount]string{"Full name", "Phone", "Address", "Address line 2", "City", "State", "Pincode"}

// addressForm is the add/edit form of the Addresses view.
type addressForm struct {
	inputs    [addrFieldCount]textinput.Model
	focus     int
	editingID string
	open      bool
}

func (m *Model) initAddressForm() {
	for i := range m.addrForm.inputs {
		in := textinput.New()
		in.Placeholder = addrLabels[i]
		in.CharLimit = 128
		in.Width = 40
		m.addrForm.inputs[i] = in
	}
}

// openAddressForm fills the form from a and focuses the first field. An
// address without an id is added; one with an id is updated.
func (m *Model) openAddressForm(a api.Address) {
	values := [addrFieldCount]string{a.FullName, a.Phone, a.AddressLine1, a.AddressLine2, a.City, a.State, a.Pincode}
	for i := range m.addrForm.inputs {
		m.addrForm.inputs[i].SetValue(values[i])
	}
	m.addrForm.editingID = a.ID
	m.addrForm.open = true
	m.focusAddressField(addrFullName)
}

func (m *Model) closeAddressForm() {
	for i := range m.addrForm.inputs {
		m.addrForm.inputs[i].Blur()
		m.addrForm.inputs[i].SetValue("")
	}
	m.addrForm.editingID = ""
	m.addrForm.open = false
}

func (m *Model) focusAddressField(field int) {
	for i := range m.addrForm.inputs {
		if i == field {
			m.addrForm.inputs[i].Focus()
		} else {
			m.addrForm.inputs[i].Blur()
		}
	}
	m.addrForm.focus = field
}

// handleAddressFormKey drives the open form; enter on the last field saves.
func (m Model) handleAddressFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		m.closeAddressForm()
		if m.addrToCheckout {
			m.addrToCheckout = false
			return m.switchView(ViewCheckout)
		}
		return m, nil
	case msg.Type == tea.KeyShiftTab, msg.Type == tea.KeyUp:
		m.focusAddressField((m.addrForm.focus + addrFieldCount - 1) % addrFieldCount)
		return m, nil
	case msg.Type == tea.KeyTab, msg.Type == tea.KeyDown:
		m.focusAddressField((m.addrForm.focus + 1) % addrFieldCount)
		return m, nil
	case msg.Type == tea.KeyEnter:
		if m.addrForm.focus < addrFieldCount-1 {
			m.focusAddressField(m.addrForm.focus + 1)
			return m, nil
		}
		return m.submitAddress()
	}

	var cmd tea.Cmd
	f := m.addrForm.focus
	m.addrForm.inputs[f], cmd = m.addrForm.inputs[f].Update(msg)
	return m, cmd
}

func (m Model) formAddress() api.Address {
	v := func(i int) string { return strings.TrimSpace(m.addrForm.inputs[i].Value()) }
	return api.Address{
		ID:           m.addrForm.editingID,
		FullName:     v(addrFullName),
		Phone:        v(addrPhone),
		AddressLine1: v(addrLine1),
		AddressLine2: v(addrLine2),
		City:         v(addrCity),
		State:        v(addrState),
		Pincode:      v(addrPincode),
	}
}

// submitAddress saves the form. When the form was opened from checkout the
// checkout list is refreshed with the saved address selected.
func (m Model) submitAddress() (tea.Model, tea.Cmd) {
	addr := m.formAddress()
	book := m.svc.Addresses
	co := m.svc.Checkout
	toCheckout := m.addrToCheckout
	m.busy.Add(1)
	parent := m.ctx
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, RequestTimeout)
		defer cancel()
		saved, err := book.Save(ctx, addr)
		if err == nil && toCheckout {
			if rerr := co.ReloadAddresses(ctx, saved.ID); rerr != nil {
				slog.Debug("checkout address reload failed", "error", rerr)
			}
		}
		return addressSavedMsg{address: saved, err: err}
	}
}

// handleAddressesKey processes keyboard input for the address list.
func (m Model) handleAddressesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	book := m.svc.Addresses
	items := book.Items()
	if m.moveCursor(ViewAddresses, msg, len(items)) {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.NewAddress):
		m.openAddressForm(api.Address{})
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m, m.runOp("load addresses", nil, book.Load)
	case key.Matches(msg, m.keys.Back):
		if m.addrToCheckout {
			return m.switchView(ViewCheckout)
		}
		return m.switchView(ViewProfile)
	}

	if len(items) == 0 {
		return m, nil
	}
	a := items[m.clampedCursor(ViewAddresses, len(items))]
	switch {
	case key.Matches(msg, m.keys.Edit):
		m.openAddressForm(a)
	case key.Matches(msg, m.keys.Remove):
		return m, m.runOp("delete address", nil, func(ctx context.Context) error {
			return book.Delete(ctx, a.ID)
		})
	case key.Matches(msg, m.keys.SetDefault):
		if a.IsDefault {
			return m, nil
		}
		return m, m.runOp("set default address", nil, func(ctx context.Context) error {
			return book.SetDefault(ctx, a.ID)
		})
	case key.Matches(msg, m.keys.Confirm) && m.addrToCheckout:
		co := m.svc.Checkout
		return m, m.runOp("use address", viewPtr(ViewCheckout), func(ctx context.Context) error {
			if err := co.ReloadAddresses(ctx, a.ID); err != nil {
				return err
			}
			return co.SelectAddress(a.ID)
		})
	}
	return m, nil
}

// renderAddresses renders the saved addresses, or the form when open.
func (m Model) renderAddresses() string {
	if m.addrForm.open {
		return m.renderAddressForm()
	}
	styles := m.theme.Styles()
	st := m.svc.Addresses.Snapshot()
	if st.Loading && len(st.Items) == 0 {
		return m.emptyState("Loading addresses...")
	}
	if len(st.Items) == 0 {
		return m.emptyState("No saved addresses. Press n to add one.")
	}

	rows := make([]string, len(st.Items))
	for i, a := range st.Items {
		rows[i] = padRight(truncate(formatAddress(a), 80), 84) + a.Phone
	}
	cursor := m.clampedCursor(ViewAddresses, len(rows))
	list := m.renderList(rows, cursor, m.listHeight(2), m.innerWidth())
	hint := "n new  e edit  x delete  d default"
	if m.addrToCheckout {
		hint += "  enter deliver here"
	}
	return list + "\n\n" + styles.FaintText.Render(hint)
}

func (m Model) renderAddressForm() string {
	styles := m.theme.Styles()
	title := "New address"
	if m.addrForm.editingID != "" {
		title = "Edit address"
	}
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n\n")
	for i, in := range m.addrForm.inputs {
		b.WriteString(styles.MutedText.Render(padRight(addrLabels[i], 16)))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("tab next field  enter on the last field saves  esc cancel"))
	return b.String()
}
