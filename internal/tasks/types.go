package tasks

import "time"

type TaskStatus string

const (
	TaskStatusPlanned            TaskStatus = "planned"
	TaskStatusWaitingForInternet TaskStatus = "waiting_for_internet"
	TaskStatusExecuting          TaskStatus = "executing"
	TaskStatusCompleted          TaskStatus = "completed"
)

// Source is a reference link attached to a task. Sources are append-only.
type Source struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

type Task struct {
	ID               string     `json:"id"`
	OriginalRequest  string     `json:"original_request"`
	Plan             string     `json:"plan"`
	Status           TaskStatus `json:"status"`
	RequiresInternet bool       `json:"requires_internet"`
	ModelUsed        string     `json:"model_used"`
	Sources          []Source   `json:"sources,omitempty"`
	ExtractedTime    string     `json:"extracted_time,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type EventType string

const (
	EventTaskCreated   EventType = "task_created"
	EventTaskParked    EventType = "task_parked"
	EventTaskExecuting EventType = "task_executing"
	EventTaskResumed   EventType = "task_resumed"
	EventTaskCompleted EventType = "task_completed"
)

type Event struct {
	Type   EventType  `json:"type"`
	TaskID string     `json:"task_id"`
	Status TaskStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
	At     time.Time  `json:"at"`
}

func (t Task) Clone() Task {
	out := t
	if t.Sources != nil {
		out.Sources = make([]Source, len(t.Sources))
		copy(out.Sources, t.Sources)
	}
	return out
}

func (t Task) Terminal() bool {
	return t.Status == TaskStatusCompleted
}

func ValidStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPlanned, TaskStatusWaitingForInternet, TaskStatusExecuting, TaskStatusCompleted:
		return true
	default:
		return false
	}
}
