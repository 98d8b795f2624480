package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelhq/kestrel-sync/internal/model"
	"github.com/kestrelhq/kestrel-sync/internal/store"
)

// handleListRooms returns the canonical room collection with derived
// per-room device counts.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := s.store.Rooms()
	counts := s.store.RoomDeviceCounts()
	for i := range rooms {
		rooms[i].DeviceCount = counts[rooms[i].ID]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": rooms,
	})
}

// handleRoomDevices opens a room's detail screen and returns its member
// devices. A cached list is served immediately when available; the refresh
// result arrives over the WebSocket feed.
func (s *Server) handleRoomDevices(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.rooms == nil {
		writeInternalError(w, "room views not available")
		return
	}

	// Detach from the request context so the debounced refresh survives
	// the response being written.
	devices, fromCache := s.rooms.Open(context.WithoutCancel(r.Context()), id)
	if devices == nil {
		devices = []model.Device{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":    id,
		"devices":    devices,
		"from_cache": fromCache,
	})
}

// roomControlRequest is the request body for POST /rooms/{id}/control.
type roomControlRequest struct {
	Action string `json:"action"`
}

// handleRoomControl applies a bulk on/off action to every device in a room.
func (s *Server) handleRoomControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req roomControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	action := model.RoomAction(req.Action)
	if action != model.RoomActionOn && action != model.RoomActionOff {
		writeBadRequest(w, "action must be \"on\" or \"off\"")
		return
	}

	if err := s.store.ControlRoom(r.Context(), id, action); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			writeNotFound(w, "room not found")
			return
		}
		writeUpstreamError(w, "room command rejected by backend")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"room_id": id,
		"action":  string(action),
	})
}
