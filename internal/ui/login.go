package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

func (m *Model) initLoginInputs() {
	placeholders := [3]string{"Full name", "Email", "Password"}
	for i := range m.loginInputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 128
		in.Width = 40
		m.loginInputs[i] = in
	}
	m.loginInputs[fieldPassword].EchoMode = textinput.EchoPassword
	m.loginInputs[fieldPassword].EchoCharacter = '•'
	m.loginFocus = fieldEmail
}

// loginFields lists the inputs shown for the current mode.
func (m Model) loginFields() []int {
	if m.registering {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (m *Model) focusLoginInput(field int) {
	for i := range m.loginInputs {
		if i == field {
			m.loginInputs[i].Focus()
		} else {
			m.loginInputs[i].Blur()
		}
	}
	m.loginFocus = field
}

// nextLoginField cycles focus through the visible fields.
func (m *Model) nextLoginField(step int) {
	fields := m.loginFields()
	idx := 0
	for i, f := range fields {
		if f == m.loginFocus {
			idx = i
		}
	}
	idx = (idx + step + len(fields)) % len(fields)
	m.focusLoginInput(fields[idx])
}

// handleLoginKey processes keyboard input for the sign-in form.
func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		return m.switchView(ViewProducts)
	case key.Matches(msg, m.keys.ToggleRegister):
		m.registering = !m.registering
		if m.registering {
			m.focusLoginInput(fieldName)
		} else {
			m.focusLoginInput(fieldEmail)
		}
		return m, nil
	case msg.Type == tea.KeyShiftTab, msg.Type == tea.KeyUp:
		m.nextLoginField(-1)
		return m, nil
	case msg.Type == tea.KeyTab, msg.Type == tea.KeyDown:
		m.nextLoginField(1)
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		if m.loginFocus != fieldPassword {
			m.nextLoginField(1)
			return m, nil
		}
		return m.submitLogin()
	}

	var cmd tea.Cmd
	m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	return m, cmd
}

// submitLogin signs in or registers, then opens the product list.
func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.loginInputs[fieldName].Value())
	email := strings.TrimSpace(m.loginInputs[fieldEmail].Value())
	password := m.loginInputs[fieldPassword].Value()
	if email == "" || password == "" || (m.registering && name == "") {
		m.svc.Toasts.Error("Please fill in all fields")
		return m, nil
	}

	auth := m.svc.Auth
	registering := m.registering
	m.loginInputs[fieldPassword].SetValue("")
	return m, m.runOp("login", viewPtr(ViewProducts), func(ctx context.Context) error {
		if registering {
			return auth.Register(ctx, name, email, password)
		}
		return auth.Login(ctx, email, password)
	})
}

// renderLogin renders the sign-in or registration form.
func (m Model) renderLogin() string {
	styles := m.theme.Styles()
	title := "Sign in to " + m.storeName
	hint := "ctrl+r to create an account"
	if m.registering {
		title = "Create your " + m.storeName + " account"
		hint = "ctrl+r to sign in instead"
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n\n")
	for _, f := range m.loginFields() {
		b.WriteString(m.loginInputs[f].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(hint))
	return b.String()
}
