package httpapi

import (
	"errors"
	"net/http"

	"github.com/mfranzon/donna/internal/googleauth"
	"github.com/mfranzon/donna/internal/reliability"
)

type updateSettingsRequest struct {
	CalendarSyncEnabled *bool `json:"calendar_sync_enabled"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.CalendarSyncEnabled == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "calendar_sync_enabled is required")
		return
	}
	updated, err := s.settings.SetCalendarSync(*req.CalendarSyncEnabled)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "settings_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// handleTestCalendar inserts a short probe event so the user can verify the
// whole Google link without phrasing a real request.
func (s *Server) handleTestCalendar(w http.ResponseWriter, r *http.Request) {
	result, err := s.calendar.CreateTestEvent(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, googleauth.ErrNotConnected):
			respondError(w, http.StatusUnauthorized, "not_connected", err.Error())
		case reliability.IsNetworkFailure(err):
			respondError(w, http.StatusServiceUnavailable, "offline", err.Error())
		default:
			respondError(w, http.StatusBadGateway, "calendar_error", err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"link":   result.Link,
	})
}
