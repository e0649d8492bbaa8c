package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mfranzon/donna/internal/calendar"
	"github.com/mfranzon/donna/internal/config"
	"github.com/mfranzon/donna/internal/executor"
	"github.com/mfranzon/donna/internal/googleauth"
	"github.com/mfranzon/donna/internal/observability"
	"github.com/mfranzon/donna/internal/settings"
	"github.com/mfranzon/donna/internal/tasks"
)

type Server struct {
	cfg      config.Config
	service  *executor.Service
	auth     *googleauth.Service
	settings *settings.Store
	calendar *calendar.Client
	broker   *tasks.Broker
	metrics  *observability.Metrics
	upgrader websocket.Upgrader

	mu           sync.Mutex
	pendingState string
}

func New(
	cfg config.Config,
	service *executor.Service,
	auth *googleauth.Service,
	st *settings.Store,
	cal *calendar.Client,
	broker *tasks.Broker,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		cfg:      cfg,
		service:  service,
		auth:     auth,
		settings: st,
		calendar: cal,
		broker:   broker,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless explicitly
				// opened up; other sites must not read the task feed if the
				// backend is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/agent", s.handleAgent)
	r.Get("/tasks", s.handleListTasks)
	r.Get("/tasks/{id}", s.handleGetTask)
	r.Post("/tasks/{id}/complete", s.handleCompleteTask)
	r.Get("/v1/tasks/ws", s.handleTaskEventsWS)

	r.Get("/auth/google", s.handleAuthStart)
	r.Get("/auth/google/callback", s.handleAuthCallback)
	r.Get("/auth/status", s.handleAuthStatus)
	r.Get("/auth/user", s.handleAuthUser)
	r.Post("/auth/logout", s.handleAuthLogout)

	r.Get("/settings", s.handleGetSettings)
	r.Post("/settings", s.handleUpdateSettings)
	r.Post("/test/calendar", s.handleTestCalendar)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ready",
		"google_connected": s.auth != nil && s.auth.Connected(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
