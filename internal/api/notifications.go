package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// NotificationQuery selects a page of notifications.
type NotificationQuery struct {
	Page       int
	Limit      int
	UnreadOnly bool
}

// ListNotifications returns one page of notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, query NotificationQuery) ([]Notification, error) {
	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	values.Set("limit", strconv.Itoa(limit))
	values.Set("unreadOnly", strconv.FormatBool(query.UnreadOnly))

	var payload struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := c.doQuery(ctx, http.MethodGet, "/notifications", values, &payload); err != nil {
		return nil, err
	}
	return payload.Notifications, nil
}

// UnreadCount returns the server-wide unread badge count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var payload struct {
		UnreadCount int `json:"unreadCount"`
	}
	if err := c.Do(ctx, http.MethodGet, "/notifications/unread-count", nil, &payload); err != nil {
		return 0, err
	}
	return payload.UnreadCount, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllNotificationsRead marks every notification as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.Do(ctx, http.MethodPut, "/notifications/read-all", nil, nil)
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil)
}

// ClearNotifications removes every notification.
func (c *Client) ClearNotifications(ctx context.Context) error {
	return c.Do(ctx, http.MethodDelete, "/notifications", nil, nil)
}
