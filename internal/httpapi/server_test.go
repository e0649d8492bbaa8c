package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mfranzon/donna/internal/calendar"
	"github.com/mfranzon/donna/internal/config"
	"github.com/mfranzon/donna/internal/executor"
	"github.com/mfranzon/donna/internal/googleauth"
	"github.com/mfranzon/donna/internal/llm"
	"github.com/mfranzon/donna/internal/settings"
	"github.com/mfranzon/donna/internal/tasks"
)

type stubPlanner struct{}

func (stubPlanner) Plan(context.Context, string) (string, string, error) {
	return "1. handle it", "fast", nil
}

type stubClassifier struct{}

func (stubClassifier) RequiresInternet(context.Context, string) bool { return false }

type stubProber struct{ online bool }

func (p stubProber) Online(context.Context) bool { return p.online }

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, string, string, string) (llm.EventDetails, error) {
	return llm.EventDetails{Summary: "Meeting", StartTime: "2026-09-01T10:00:00", DurationMinutes: 30}, nil
}

type stubCalendar struct{}

func (stubCalendar) CreateEvent(context.Context, string, string, int) (calendar.EventResult, error) {
	return calendar.EventResult{Link: "https://calendar.google.com/e/1", Summary: "Meeting"}, nil
}

type testEnv struct {
	srv    *httptest.Server
	store  tasks.Store
	broker *tasks.Broker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store := tasks.NewFileStore(filepath.Join(dir, "tasks.json"))
	st := settings.NewStore(filepath.Join(dir, "settings.json"))
	broker := tasks.NewBroker()
	creds := filepath.Join(dir, "credentials.json")
	credsJSON := `{"web": {"client_id": "id", "client_secret": "secret",
		"auth_uri": "https://accounts.google.com/o/oauth2/auth",
		"token_uri": "https://oauth2.googleapis.com/token",
		"redirect_uris": ["http://localhost:8000/auth/google/callback"]}}`
	if err := os.WriteFile(creds, []byte(credsJSON), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	auth := googleauth.NewService(creds, filepath.Join(dir, "token.json"), "")
	cal := calendar.NewClient(auth, nil)

	exec := executor.New(store, stubProber{online: true}, stubExtractor{}, stubCalendar{}, st, broker, nil)
	service := executor.NewService(store, stubPlanner{}, stubClassifier{}, exec, broker, nil)

	server := New(config.Config{AllowAnyOrigin: true}, service, auth, st, cal, broker, nil)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return &testEnv{srv: ts, store: store, broker: broker}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	resp, err := http.Post(e.srv.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func waitStatus(t *testing.T, e *testEnv, id string, want tasks.TaskStatus) tasks.Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		task, err := e.store.Get(context.Background(), id)
		if err == nil && task.Status == want {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached %q", id, want)
	return tasks.Task{}
}

func TestAgentEndpointAcceptsAndExecutes(t *testing.T) {
	e := newTestEnv(t)

	resp := e.postJSON(t, "/agent", map[string]string{"message": "summarize my notes"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST /agent status = %d, want 202", resp.StatusCode)
	}
	task := decodeBody[tasks.Task](t, resp)
	if task.Status != tasks.TaskStatusPlanned {
		t.Fatalf("accepted task status = %q, want planned", task.Status)
	}
	waitStatus(t, e, task.ID, tasks.TaskStatusCompleted)
}

func TestAgentEndpointRejectsEmptyMessage(t *testing.T) {
	e := newTestEnv(t)
	resp := e.postJSON(t, "/agent", map[string]string{"message": "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("POST /agent status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAgentEndpointCarriesExtractedTime(t *testing.T) {
	e := newTestEnv(t)

	resp := e.postJSON(t, "/agent", map[string]string{
		"message":        "Meeting tomorrow at 2pm",
		"extracted_time": "2024-01-03T14:00:00+05:30",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST /agent status = %d, want 202", resp.StatusCode)
	}
	task := decodeBody[tasks.Task](t, resp)
	if task.ExtractedTime != "2024-01-03T14:00:00+05:30" {
		t.Fatalf("ExtractedTime = %q, want the request's hint", task.ExtractedTime)
	}

	after := waitStatus(t, e, task.ID, tasks.TaskStatusCompleted)
	if after.ExtractedTime != "2024-01-03T14:00:00+05:30" {
		t.Fatalf("stored ExtractedTime = %q, want hint preserved through execution", after.ExtractedTime)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	e := newTestEnv(t)
	resp, err := http.Get(e.srv.URL + "/tasks/missing-id")
	if err != nil {
		t.Fatalf("GET /tasks/missing-id: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestListTasksEnvelope(t *testing.T) {
	e := newTestEnv(t)
	resp := e.postJSON(t, "/agent", map[string]string{"message": "tidy my desk"})
	task := decodeBody[tasks.Task](t, resp)
	waitStatus(t, e, task.ID, tasks.TaskStatusCompleted)

	listResp, err := http.Get(e.srv.URL + "/tasks")
	if err != nil {
		t.Fatalf("GET /tasks: %v", err)
	}
	body := decodeBody[map[string][]tasks.Task](t, listResp)
	if len(body["tasks"]) != 1 {
		t.Fatalf("tasks = %+v, want one entry", body["tasks"])
	}
}

func TestCompleteTaskEndpoint(t *testing.T) {
	e := newTestEnv(t)
	seed := tasks.Task{ID: "t-1", OriginalRequest: "x", Status: tasks.TaskStatusWaitingForInternet}
	if err := e.store.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp := e.postJSON(t, "/tasks/t-1/complete", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	task := decodeBody[tasks.Task](t, resp)
	if task.Status != tasks.TaskStatusCompleted {
		t.Fatalf("status = %q, want completed", task.Status)
	}
}

func TestCompleteTaskAppliesPlanAndSources(t *testing.T) {
	e := newTestEnv(t)
	seed := tasks.Task{
		ID:              "t-2",
		OriginalRequest: "research italian recipes",
		Plan:            "1. search",
		Status:          tasks.TaskStatusWaitingForInternet,
	}
	if err := e.store.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp := e.postJSON(t, "/tasks/t-2/complete", map[string]any{
		"plan_update": "1. search\n\nFound three recipes.",
		"sources":     []map[string]string{{"title": "Recipe", "url": "https://recipes.example/1"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	task := decodeBody[tasks.Task](t, resp)
	if task.Status != tasks.TaskStatusCompleted {
		t.Fatalf("status = %q, want completed", task.Status)
	}
	if task.Plan != "1. search\n\nFound three recipes." {
		t.Fatalf("plan = %q, want the body's update", task.Plan)
	}
	if len(task.Sources) != 1 || task.Sources[0].URL != "https://recipes.example/1" {
		t.Fatalf("sources = %+v, want replaced from body", task.Sources)
	}

	stored, err := e.store.Get(context.Background(), "t-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Plan != task.Plan || len(stored.Sources) != 1 {
		t.Fatalf("stored task = %+v, want persisted update", stored)
	}
}

func TestCompleteTaskEmptyBody(t *testing.T) {
	e := newTestEnv(t)
	seed := tasks.Task{ID: "t-3", OriginalRequest: "x", Plan: "keep", Status: tasks.TaskStatusWaitingForInternet}
	if err := e.store.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp, err := http.Post(e.srv.URL+"/tasks/t-3/complete", "application/json", strings.NewReader(""))
	if err != nil {
		t.Fatalf("POST complete: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 for empty body", resp.StatusCode)
	}
	task := decodeBody[tasks.Task](t, resp)
	if task.Status != tasks.TaskStatusCompleted || task.Plan != "keep" {
		t.Fatalf("task = %+v, want completed with plan untouched", task)
	}
}

func TestAuthStatusDisconnected(t *testing.T) {
	e := newTestEnv(t)
	resp, err := http.Get(e.srv.URL + "/auth/status")
	if err != nil {
		t.Fatalf("GET /auth/status: %v", err)
	}
	body := decodeBody[map[string]bool](t, resp)
	if body["connected"] {
		t.Fatal("connected = true with no token on disk")
	}
}

func TestAuthStartRedirectsToConsent(t *testing.T) {
	e := newTestEnv(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(e.srv.URL + "/auth/google")
	if err != nil {
		t.Fatalf("GET /auth/google: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.Contains(loc, "accounts.google.com") || !strings.Contains(loc, "state=") {
		t.Fatalf("redirect location = %q, want Google consent URL with state", loc)
	}
}

func TestAuthCallbackRejectsStateMismatch(t *testing.T) {
	e := newTestEnv(t)
	resp, err := http.Get(e.srv.URL + "/auth/google/callback?state=bogus&code=abc")
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 on state mismatch", resp.StatusCode)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Get(e.srv.URL + "/settings")
	if err != nil {
		t.Fatalf("GET /settings: %v", err)
	}
	got := decodeBody[settings.Settings](t, resp)
	if !got.CalendarSyncEnabled {
		t.Fatal("default calendar_sync_enabled = false, want true")
	}

	enabled := false
	resp = e.postJSON(t, "/settings", map[string]*bool{"calendar_sync_enabled": &enabled})
	got = decodeBody[settings.Settings](t, resp)
	if got.CalendarSyncEnabled {
		t.Fatal("calendar_sync_enabled still true after update")
	}
}

func TestUpdateSettingsRequiresField(t *testing.T) {
	e := newTestEnv(t)
	resp := e.postJSON(t, "/settings", map[string]string{"other": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTestCalendarRequiresConnection(t *testing.T) {
	e := newTestEnv(t)
	resp := e.postJSON(t, "/test/calendar", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 when Google is not linked", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTaskEventsWebsocketFeed(t *testing.T) {
	e := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/v1/tasks/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	resp := e.postJSON(t, "/agent", map[string]string{"message": "water the plants"})
	task := decodeBody[tasks.Task](t, resp)

	deadline := time.Now().Add(2 * time.Second)
	seen := map[tasks.EventType]bool{}
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		var evt tasks.Event
		if err := conn.ReadJSON(&evt); err != nil {
			continue
		}
		if evt.TaskID == task.ID {
			seen[evt.Type] = true
		}
		if seen[tasks.EventTaskCompleted] {
			break
		}
	}
	if !seen[tasks.EventTaskCreated] || !seen[tasks.EventTaskCompleted] {
		t.Fatalf("event feed missing lifecycle events, saw %v", seen)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	resp, err := http.Get(e.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Fatalf("status field = %q", body["status"])
	}
}
