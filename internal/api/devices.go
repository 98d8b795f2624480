package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelhq/kestrel-sync/internal/store"
)

// handleListDevices returns the canonical device collection.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.store.Devices(),
	})
}

// handleGetDevice returns a single device and opens its detail screen.
// The response carries the store's current record for an instant render;
// fresh detail arrives over the WebSocket feed once the background fetch
// completes.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var err error
	var device any
	if s.devices != nil {
		// Detach from the request context so the debounced detail fetch
		// survives the response being written.
		device, err = s.devices.Open(context.WithoutCancel(r.Context()), id)
	} else {
		device, err = s.store.Device(id)
	}
	if err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to load device")
		return
	}

	writeJSON(w, http.StatusOK, device)
}

// devicePowerRequest is the request body for POST /devices/{id}/power.
type devicePowerRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleDevicePower toggles a device on or off. The store applies the change
// optimistically, so a success response means the local state is updated;
// backend confirmation or rollback follows over the WebSocket feed.
func (s *Server) handleDevicePower(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req devicePowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}

	if err := s.store.ToggleDevicePower(r.Context(), id, *req.Enabled); err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeUpstreamError(w, "power change rejected by backend")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":      id,
		"enabled": *req.Enabled,
	})
}

// sensorEnabledRequest is the request body for POST /sensors/{id}/enabled.
type sensorEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleSensorEnabled toggles a sensor's monitoring state.
func (s *Server) handleSensorEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req sensorEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}

	if err := s.store.ToggleSensorEnabled(r.Context(), id, *req.Enabled); err != nil {
		if errors.Is(err, store.ErrSensorNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		writeUpstreamError(w, "sensor change rejected by backend")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":      id,
		"enabled": *req.Enabled,
	})
}

// sensorThresholdRequest is the request body for POST /sensors/{id}/threshold.
// Omitted bounds clear the corresponding threshold.
type sensorThresholdRequest struct {
	MinThreshold *float64 `json:"min_threshold"`
	MaxThreshold *float64 `json:"max_threshold"`
}

// handleSensorThreshold updates a sensor's alert thresholds.
func (s *Server) handleSensorThreshold(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req sensorThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.MinThreshold != nil && req.MaxThreshold != nil && *req.MinThreshold > *req.MaxThreshold {
		writeBadRequest(w, "min_threshold must not exceed max_threshold")
		return
	}

	if err := s.store.SetSensorThreshold(r.Context(), id, req.MinThreshold, req.MaxThreshold); err != nil {
		if errors.Is(err, store.ErrSensorNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		writeUpstreamError(w, "threshold change rejected by backend")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"id": id})
}

// actuatorControlRequest is the request body for POST /actuators/{id}/control.
type actuatorControlRequest struct {
	State *bool `json:"state"`
}

// handleActuatorControl switches an actuator on or off.
func (s *Server) handleActuatorControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req actuatorControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.State == nil {
		writeBadRequest(w, "state is required")
		return
	}

	if err := s.store.ControlActuator(r.Context(), id, *req.State); err != nil {
		if errors.Is(err, store.ErrActuatorNotFound) {
			writeNotFound(w, "actuator not found")
			return
		}
		writeUpstreamError(w, "actuator command rejected by backend")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":    id,
		"state": *req.State,
	})
}
