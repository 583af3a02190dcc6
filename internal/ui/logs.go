package ui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shopaura/internal/logtail"
)

// logLevels is the cycle order of the minimum-level filter.
var logLevels = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

func nextLogLevel(current slog.Level) slog.Level {
	for i, l := range logLevels {
		if l == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[0]
}

func (m *Model) loadLogsCmd() tea.Cmd {
	path := m.logFile
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := logtail.Tail(path, LogTailLines)
		return logsMsg{entries: entries, err: err}
	}
}

func (m *Model) resizeLogViewport() {
	m.logViewport.Width = m.innerWidth()
	m.logViewport.Height = max(m.contentHeight()-3, 1)
	m.refreshLogViewport()
}

// refreshLogViewport re-renders the filtered entries and keeps the view
// pinned to the newest line.
func (m *Model) refreshLogViewport() {
	styles := m.theme.Styles()
	entries := logtail.Filter(m.logEntries, m.logLevel)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, m.formatLogEntry(e, styles))
	}
	m.logViewport.SetContent(strings.Join(lines, "\n"))
	m.logViewport.GotoBottom()
}

func (m Model) formatLogEntry(e logtail.Entry, styles Styles) string {
	if !e.Parsed {
		return styles.FaintText.Render(e.Raw)
	}
	var levelStyle lipgloss.Style
	switch {
	case e.Level >= slog.LevelError:
		levelStyle = styles.DangerText
	case e.Level >= slog.LevelWarn:
		levelStyle = styles.WarningText
	case e.Level >= slog.LevelInfo:
		levelStyle = styles.InfoText
	default:
		levelStyle = styles.FaintText
	}

	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(styles.MutedText.Render(e.Time.Local().Format("15:04:05")))
		b.WriteString(" ")
	}
	b.WriteString(levelStyle.Render(padRight(e.Level.String(), 5)))
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(e.Message))
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(styles.AccentText.Render(a.Key + "="))
		b.WriteString(styles.MutedText.Render(a.Value))
	}
	return b.String()
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Reload):
		return m, m.loadLogsCmd()
	case key.Matches(msg, m.keys.CycleLevel):
		m.logLevel = nextLogLevel(m.logLevel)
		m.refreshLogViewport()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

// renderLogs renders the log viewport under a filter line.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	if m.logFile == "" {
		return m.emptyState("Logging to a file is disabled")
	}
	if m.logErr != nil {
		return styles.DangerText.Render("Could not read " + m.logFile + ": " + m.logErr.Error())
	}
	status := styles.MutedText.Render("Level ≥ ") + styles.AccentText.Render(m.logLevel.String()) +
		styles.FaintText.Render("  "+truncate(m.logFile, 60))
	return status + "\n\n" + m.logViewport.View()
}
