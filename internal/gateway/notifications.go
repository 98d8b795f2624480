package gateway

import (
	"context"

	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// Notifications returns the notification feed, newest first.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	var notifications []model.Notification
	if err := c.get(ctx, "/notifications", nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.post(ctx, "/notifications/"+id+"/read", nil, nil)
}

// MarkAllNotificationsRead marks every notification as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.post(ctx, "/notifications/read-all", nil, nil)
}

// UnreadCount returns the backend's unread notification count. The store
// derives its own count from the canonical collection; this call exists for
// cheap badge refreshes without pulling the full feed.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var payload struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/notifications/unread-count", nil, &payload); err != nil {
		return 0, err
	}
	return payload.Count, nil
}
