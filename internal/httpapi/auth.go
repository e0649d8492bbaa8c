package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mfranzon/donna/internal/googleauth"
)

func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	s.mu.Lock()
	s.pendingState = state
	s.mu.Unlock()

	authURL, err := s.auth.AuthURL(state)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "auth_unavailable", err.Error())
		return
	}
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	s.mu.Lock()
	expected := s.pendingState
	s.pendingState = ""
	s.mu.Unlock()
	if expected == "" || state != expected {
		respondError(w, http.StatusBadRequest, "invalid_state", "oauth state mismatch")
		return
	}

	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		respondError(w, http.StatusBadRequest, "missing_code", "authorization code not found")
		return
	}
	if err := s.auth.Exchange(r.Context(), code); err != nil {
		respondError(w, http.StatusBadGateway, "exchange_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"connected": true})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"connected": s.auth.Connected()})
}

func (s *Server) handleAuthUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.User(r.Context())
	if err != nil {
		if errors.Is(err, googleauth.ErrNotConnected) {
			respondError(w, http.StatusUnauthorized, "not_connected", err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, "userinfo_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, _ *http.Request) {
	if err := s.auth.Logout(); err != nil {
		respondError(w, http.StatusInternalServerError, "logout_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"connected": false})
}
