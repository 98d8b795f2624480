package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.withRequestID)
	r.Use(s.withRequestLog)
	r.Use(s.withRecovery)
	r.Use(s.withCORS)
	r.Use(s.withBodyLimit)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		// Full state snapshot for initial panel render
		r.Get("/state", s.handleState)
		r.Put("/view", s.handleSetView)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Post("/power", s.handleDevicePower)
			})
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/devices", s.handleRoomDevices)
				r.Post("/control", s.handleRoomControl)
			})
		})

		r.Route("/sensors/{id}", func(r chi.Router) {
			r.Post("/enabled", s.handleSensorEnabled)
			r.Post("/threshold", s.handleSensorThreshold)
		})

		r.Post("/actuators/{id}/control", s.handleActuatorControl)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Post("/read-all", s.handleMarkAllRead)
			r.Post("/{id}/read", s.handleMarkRead)
		})

		// Historical readings, proxied to the backend
		r.Route("/data", func(r chi.Router) {
			r.Get("/sensors", s.handleSensorData)
			r.Get("/latest", s.handleLatestSensorData)
			r.Get("/statistics", s.handleSensorStatistics)
			r.Get("/trends", s.handleSensorTrends)
		})

		// WebSocket event feed
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
