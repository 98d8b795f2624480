package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelhq/kestrel-sync/internal/store"
)

// handleListNotifications returns the canonical notification list together
// with the derived unread count.
func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": s.store.Notifications(),
		"unread_count":  s.store.UnreadCount(),
	})
}

// handleMarkRead marks a single notification as read. The local collection
// updates immediately regardless of whether the backend sync succeeds.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.MarkNotificationRead(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotificationNotFound) {
			writeNotFound(w, "notification not found")
			return
		}
		writeInternalError(w, "failed to mark notification read")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           id,
		"unread_count": s.store.UnreadCount(),
	})
}

// handleMarkAllRead marks every notification as read.
func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	s.store.MarkAllRead(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"unread_count": s.store.UnreadCount(),
	})
}
