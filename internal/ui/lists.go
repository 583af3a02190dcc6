package ui

import (
	"strings"
)

// listWindow returns the [start, end) range of rows to draw so the cursor
// stays visible in height rows.
func listWindow(count, cursor, height int) (int, int) {
	if height <= 0 || count <= height {
		return 0, count
	}
	start := cursor - height/2
	start = max(start, 0)
	start = min(start, count-height)
	return start, start + height
}

// renderList draws rows with the cursor row highlighted. Rows are plain
// text; styling per column is left to the caller.
func (m Model) renderList(rows []string, cursor, height, width int) string {
	styles := m.theme.Styles()
	start, end := listWindow(len(rows), cursor, height)
	var b strings.Builder
	for i := start; i < end; i++ {
		row := truncate(rows[i], width)
		if i == cursor {
			b.WriteString(styles.Selected.Width(width).Render(row))
		} else {
			b.WriteString(styles.Text.Render(row))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// innerWidth is the usable width inside the content box.
func (m Model) innerWidth() int {
	return max(m.width-4, 10)
}

// listHeight is the number of rows a list can take, leaving extra lines for
// a summary under it.
func (m Model) listHeight(extra int) int {
	return max(m.contentHeight()-2-extra, 1)
}

// emptyState renders a muted one-line message.
func (m Model) emptyState(text string) string {
	return m.theme.Styles().MutedText.Render(text)
}
