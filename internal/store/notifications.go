package store

import (
	"context"

	"github.com/kestrelhq/kestrel-sync/internal/bus"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// MarkNotificationRead marks one notification read. The local mutation is
// authoritative: the remote sync is best-effort and a failure is only
// logged, never rolled back — read/unread is a low-stakes, user-reversible
// classification, unlike device toggles.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	found := false
	isLocal := false
	next := make([]model.Notification, len(s.notifications))
	copy(next, s.notifications)
	for i := range next {
		if next[i].ID == id {
			next[i].Read = true
			found = true
			isLocal = next[i].Local
			break
		}
	}
	if found {
		s.notifications = next
	}
	snapshot := make([]model.Notification, len(s.notifications))
	copy(snapshot, s.notifications)
	s.mu.Unlock()

	if !found {
		return ErrNotificationNotFound
	}
	s.publishNotifications(snapshot)

	// Local alerts have no backend record to update.
	if !isLocal {
		if err := s.gw.MarkNotificationRead(ctx, id); err != nil {
			s.logger.Warn("marking notification read on backend failed", "id", id, "error", err)
		}
	}
	return nil
}

// MarkAllRead marks the whole feed read, with the same local-authority
// semantics as MarkNotificationRead.
func (s *Store) MarkAllRead(ctx context.Context) {
	s.mu.Lock()
	next := make([]model.Notification, len(s.notifications))
	copy(next, s.notifications)
	for i := range next {
		next[i].Read = true
	}
	s.notifications = next
	snapshot := make([]model.Notification, len(next))
	copy(snapshot, next)
	s.mu.Unlock()

	s.publishNotifications(snapshot)

	if err := s.gw.MarkAllNotificationsRead(ctx); err != nil {
		s.logger.Warn("marking all notifications read on backend failed", "error", err)
	}
}

// publishNotifications announces a notification collection change on the
// bus.
func (s *Store) publishNotifications(snapshot []model.Notification) {
	s.bus.Publish(bus.NotificationsUpdated(), snapshot)
}
