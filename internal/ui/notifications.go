package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shopaura/internal/notify"
)

// handleNotificationsKey processes keyboard input for the notification list.
func (m Model) handleNotificationsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.svc.Notify.Items()
	if m.moveCursor(ViewNotifications, msg, len(items)) {
		return m, nil
	}
	n := m.svc.Notify

	switch {
	case key.Matches(msg, m.keys.Reload):
		return m, m.runOp("fetch notifications", nil, func(ctx context.Context) error {
			return n.Fetch(ctx, notify.DefaultPage, notify.DefaultLimit, false)
		})
	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.runOp("mark all read", nil, n.MarkAllAsRead)
	case key.Matches(msg, m.keys.ClearAll):
		return m, m.runOp("clear notifications", nil, n.ClearAll)
	}

	if len(items) == 0 {
		return m, nil
	}
	item := items[m.clampedCursor(ViewNotifications, len(items))]
	switch {
	case key.Matches(msg, m.keys.MarkRead), key.Matches(msg, m.keys.Confirm):
		if item.IsRead {
			return m, nil
		}
		return m, m.runOp("mark read", nil, func(ctx context.Context) error {
			return n.MarkAsRead(ctx, item.ID)
		})
	case key.Matches(msg, m.keys.Remove):
		return m, m.runOp("delete notification", nil, func(ctx context.Context) error {
			return n.Delete(ctx, item.ID)
		})
	}
	return m, nil
}

// renderNotifications renders the list newest first, unread entries marked.
func (m Model) renderNotifications() string {
	styles := m.theme.Styles()
	st := m.svc.Notify.Snapshot()
	if st.Loading && len(st.Items) == 0 {
		return m.emptyState("Loading notifications...")
	}
	if len(st.Items) == 0 {
		return m.emptyState("No notifications")
	}

	rows := make([]string, len(st.Items))
	for i, n := range st.Items {
		mark := "  "
		if !n.IsRead {
			mark = "● "
		}
		rows[i] = mark + padRight(truncate(n.Title, 36), 38) +
			padRight(humanizeAge(n.Timestamp, m.now), 10) +
			n.Message
	}
	cursor := m.clampedCursor(ViewNotifications, len(rows))
	list := m.renderList(rows, cursor, m.listHeight(2), m.innerWidth())
	summary := fmt.Sprintf("%d unread of %d", st.TotalUnread, len(st.Items))
	return list + "\n\n" + styles.FaintText.Render(summary)
}
