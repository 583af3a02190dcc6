package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shopaura/internal/api"
)

// handleProfileKey processes keyboard input for the profile view.
func (m Model) handleProfileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pm := m.svc.Profile
	switch {
	case key.Matches(msg, m.keys.Logout):
		auth := m.svc.Auth
		return m, m.runOp("logout", viewPtr(ViewProducts), func(ctx context.Context) error {
			auth.Logout(ctx)
			return nil
		})
	case key.Matches(msg, m.keys.Edit):
		name := ""
		if u := m.svc.Session.Snapshot().User; u != nil {
			name = u.Name
		}
		m.openPrompt(promptName, "Name: ", name)
	case key.Matches(msg, m.keys.Addresses):
		return m.switchView(ViewAddresses)
	case msg.String() == "u":
		m.openPrompt(promptAvatar, "Image path: ", "")
	case msg.String() == "D":
		return m, m.runOp("remove picture", nil, func(ctx context.Context) error {
			_, err := pm.DeleteAvatar(ctx)
			return err
		})
	}
	return m, nil
}

// promptPhone follows the name prompt; the name rides along as the target.
func (m Model) promptPhone(name string) (tea.Model, tea.Cmd) {
	phone := ""
	if u := m.svc.Session.Snapshot().User; u != nil {
		phone = u.Phone
	}
	m.openPrompt(promptPhone, "Phone: ", phone)
	m.promptTarget = strings.TrimSpace(name)
	return m, nil
}

// saveProfile sends the edited name and phone. Unchanged fields are left
// out of the update.
func (m Model) saveProfile(name, phone string) (tea.Model, tea.Cmd) {
	update := api.ProfileUpdate{Name: strings.TrimSpace(name), Phone: strings.TrimSpace(phone)}
	if u := m.svc.Session.Snapshot().User; u != nil {
		if update.Name == u.Name {
			update.Name = ""
		}
		if update.Phone == u.Phone {
			update.Phone = ""
		}
	}
	if update == (api.ProfileUpdate{}) {
		m.svc.Toasts.Info("No changes to save")
		return m, nil
	}
	pm := m.svc.Profile
	return m, m.runOp("update profile", nil, func(ctx context.Context) error {
		_, err := pm.Update(ctx, update)
		return err
	})
}

// uploadAvatar submits the image at path as the new profile picture.
func (m Model) uploadAvatar(path string) (tea.Model, tea.Cmd) {
	path = strings.TrimSpace(path)
	if path == "" {
		return m, nil
	}
	pm := m.svc.Profile
	return m, m.runOp("upload picture", nil, func(ctx context.Context) error {
		_, err := pm.UploadAvatar(ctx, path)
		return err
	})
}

// renderProfile shows the signed-in identity.
func (m Model) renderProfile() string {
	styles := m.theme.Styles()
	st := m.svc.Session.Snapshot()
	if st.User == nil {
		return m.emptyState("Not signed in")
	}
	u := st.User

	field := func(label, value string) string {
		if value == "" {
			value = "-"
		}
		return styles.MutedText.Render(padRight(label, 10)) + styles.Text.Render(value)
	}
	picture := "none"
	if u.ProfilePicture != nil && u.ProfilePicture.URL != "" {
		picture = u.ProfilePicture.URL
	}
	lines := []string{
		field("Name", u.Name),
		field("Email", u.Email),
		field("Phone", u.Phone),
		field("Role", titleCase(u.Role)),
		field("Picture", picture),
	}
	if m.svc.Profile.Snapshot().Saving {
		lines = append(lines, "", styles.InfoText.Render("Saving..."))
	}
	return strings.Join(lines, "\n")
}
