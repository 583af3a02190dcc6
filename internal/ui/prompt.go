package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) initPrompt() {
	m.prompt = textinput.New()
	m.prompt.CharLimit = 256
	m.promptKind = promptNone
}

// openPrompt focuses the footer prompt for kind, prefilled with value.
func (m *Model) openPrompt(kind promptKind, label, value string) {
	m.promptKind = kind
	m.prompt.Prompt = label
	m.prompt.SetValue(value)
	m.prompt.CursorEnd()
	m.prompt.Focus()
}

func (m *Model) closePrompt() {
	m.prompt.Blur()
	m.prompt.SetValue("")
	m.promptKind = promptNone
	m.promptTarget = ""
}

// handlePromptKey feeds keys to the prompt; enter submits and esc cancels.
func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		kind, value, target := m.promptKind, m.prompt.Value(), m.promptTarget
		m.closePrompt()
		switch kind {
		case promptSearch:
			return m.applySearch(value)
		case promptCoupon:
			return m.applyCoupon(value)
		case promptAvatar:
			return m.uploadAvatar(value)
		case promptQuantity:
			return m.applyQuantity(target, value)
		case promptName:
			return m.promptPhone(value)
		case promptPhone:
			return m.saveProfile(target, value)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}
