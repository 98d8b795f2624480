package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kestrelhq/kestrel-sync/internal/gateway"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin exchanges panel-supplied credentials for a backend session.
// On success the token is installed on the gateway and persisted, so the
// next start reuses it without asking again.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.gw == nil {
		writeInternalError(w, "backend gateway not available")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	result, err := s.gw.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeUpstreamError(w, "login failed")
		return
	}

	if s.sessions != nil {
		if saveErr := s.sessions.Save(r.Context(), result.Token, result.User); saveErr != nil {
			s.logger.Warn("failed to persist session", "error", saveErr)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": result.User,
	})
}

// handleLogout drops the backend token and clears the persisted session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.gw != nil {
		s.gw.SetToken("")
	}
	if s.sessions != nil {
		if err := s.sessions.Clear(r.Context()); err != nil {
			s.logger.Warn("failed to clear persisted session", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
