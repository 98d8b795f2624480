package api

import (
	"encoding/json"
	"net/http"

	"github.com/kestrelhq/kestrel-sync/internal/store"
)

// handleState returns a point-in-time snapshot of every canonical collection.
// Panels render from this once at startup and then apply WebSocket events.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// setViewRequest is the request body for PUT /view.
type setViewRequest struct {
	View string `json:"view"`
}

// handleSetView records the active dashboard view so background refreshes
// fetch only the collections that view needs.
func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req setViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	switch store.View(req.View) {
	case store.ViewRooms, store.ViewDevices, store.ViewAll:
	default:
		writeBadRequest(w, "view must be one of: rooms, devices, all")
		return
	}

	s.store.SetActiveView(store.View(req.View))
	writeJSON(w, http.StatusOK, map[string]string{"view": req.View})
}
