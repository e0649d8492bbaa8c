package executor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mfranzon/donna/internal/calendar"
	"github.com/mfranzon/donna/internal/connectivity"
	"github.com/mfranzon/donna/internal/intent"
	"github.com/mfranzon/donna/internal/llm"
	"github.com/mfranzon/donna/internal/observability"
	"github.com/mfranzon/donna/internal/reliability"
	"github.com/mfranzon/donna/internal/settings"
	"github.com/mfranzon/donna/internal/tasks"
)

// Outcome says how a single execution attempt resolved.
type Outcome string

const (
	// OutcomeParked means the task is waiting for connectivity.
	OutcomeParked Outcome = "parked"
	// OutcomeCompleted means the task reached its terminal state.
	OutcomeCompleted Outcome = "completed"
	// OutcomeSkipped means another attempt already owns or finished the task.
	OutcomeSkipped Outcome = "skipped"
)

// EventExtractor pulls structured event details out of a request.
type EventExtractor interface {
	Extract(ctx context.Context, text, clientTime, startTimeOverride string) (llm.EventDetails, error)
}

// CalendarCreator performs the calendar side effect.
type CalendarCreator interface {
	CreateEvent(ctx context.Context, summary, startTime string, durationMinutes int) (calendar.EventResult, error)
}

// Executor drives one task from hand-off to a parked or terminal state.
// Every attempt resolves to exactly one Outcome; faults never cross the
// Execute boundary.
type Executor struct {
	store     tasks.Store
	prober    connectivity.Prober
	extractor EventExtractor
	calendar  CalendarCreator
	settings  *settings.Store
	broker    *tasks.Broker
	metrics   *observability.Metrics
}

func New(
	store tasks.Store,
	prober connectivity.Prober,
	extractor EventExtractor,
	cal CalendarCreator,
	st *settings.Store,
	broker *tasks.Broker,
	metrics *observability.Metrics,
) *Executor {
	return &Executor{
		store:     store,
		prober:    prober,
		extractor: extractor,
		calendar:  cal,
		settings:  st,
		broker:    broker,
		metrics:   metrics,
	}
}

// Execute runs one attempt for the task. clientTime is the requester's
// local time when known; resumed attempts pass "" and the current time is
// used instead.
func (e *Executor) Execute(ctx context.Context, task tasks.Task, clientTime string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("executor: task %s panicked, leaving last durable status: %v", task.ID, r)
			outcome = OutcomeSkipped
		}
	}()
	return e.run(ctx, task, clientTime)
}

// Resume satisfies the connectivity monitor's dispatch interface.
func (e *Executor) Resume(ctx context.Context, task tasks.Task) {
	e.Execute(ctx, task, "")
}

func (e *Executor) run(ctx context.Context, task tasks.Task, clientTime string) Outcome {
	fresh, err := e.store.Get(ctx, task.ID)
	if err != nil {
		log.Printf("executor: task %s not readable, skipping: %v", task.ID, err)
		return OutcomeSkipped
	}
	if fresh.Terminal() {
		return OutcomeSkipped
	}
	if fresh.Status == tasks.TaskStatusExecuting {
		// another attempt owns it
		return OutcomeSkipped
	}
	task = fresh

	// offline at hand-off for a network-requiring task parks it before
	// any side effect
	if task.RequiresInternet && !e.prober.Online(ctx) {
		return e.park(ctx, task)
	}

	// claim check-and-write happens inside one store lock acquisition, so
	// of two racing attempts exactly one proceeds past this point
	claimed, ok, err := e.store.Claim(ctx, task.ID)
	if err != nil {
		log.Printf("executor: task %s claim failed: %v", task.ID, err)
		return OutcomeSkipped
	}
	if !ok {
		return OutcomeSkipped
	}
	task = claimed
	e.metrics.ObserveTaskEvent(string(tasks.EventTaskExecuting))
	e.broker.Publish(tasks.Event{
		Type:   tasks.EventTaskExecuting,
		TaskID: task.ID,
		Status: task.Status,
		At:     task.UpdatedAt,
	})

	if !intent.IsCalendarIntent(task.OriginalRequest) {
		return e.complete(ctx, task, "")
	}

	if !e.settings.Get().CalendarSyncEnabled {
		return e.complete(ctx, task, "Calendar sync is disabled; no event was created.")
	}

	if clientTime == "" {
		clientTime = time.Now().Format("2006-01-02T15:04:05 Monday")
	}
	// extracted_time is the creation-time hint and stays untouched; it
	// only overrides what the model infers
	details, err := e.extractor.Extract(ctx, task.OriginalRequest, clientTime, task.ExtractedTime)
	if err != nil {
		// bad input, not a network fault: terminal with annotation
		return e.complete(ctx, task, fmt.Sprintf("Could not extract event details: %v", err))
	}

	// the calendar call is a harder network dependency than the intake
	// heuristic assumed, so re-probe right before it
	if !e.prober.Online(ctx) {
		task.RequiresInternet = true
		return e.park(ctx, task)
	}
	task.RequiresInternet = true

	result, err := e.calendar.CreateEvent(ctx, details.Summary, details.StartTime, details.DurationMinutes)
	if err != nil {
		if reliability.IsNetworkFailure(err) {
			return e.park(ctx, task)
		}
		return e.complete(ctx, task, fmt.Sprintf("Could not create calendar event: %v", err))
	}

	task.Sources = append(task.Sources, tasks.Source{Title: "Calendar event: " + result.Summary, URL: result.Link})
	return e.complete(ctx, task, fmt.Sprintf("Calendar event created: %s", result.Link))
}

func (e *Executor) park(ctx context.Context, task tasks.Task) Outcome {
	if err := e.setStatus(ctx, &task, tasks.TaskStatusWaitingForInternet, tasks.EventTaskParked); err != nil {
		log.Printf("executor: task %s park failed: %v", task.ID, err)
	}
	return OutcomeParked
}

func (e *Executor) complete(ctx context.Context, task tasks.Task, annotation string) Outcome {
	if annotation != "" {
		task.Plan = appendAnnotation(task.Plan, annotation)
	}
	if err := e.setStatus(ctx, &task, tasks.TaskStatusCompleted, tasks.EventTaskCompleted); err != nil {
		log.Printf("executor: task %s completion write failed: %v", task.ID, err)
	}
	return OutcomeCompleted
}

// setStatus persists the task wholesale so flag upgrades and plan
// annotations land together with the status change, then publishes the
// matching event.
func (e *Executor) setStatus(ctx context.Context, task *tasks.Task, status tasks.TaskStatus, event tasks.EventType) error {
	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	if err := e.store.Upsert(ctx, *task); err != nil {
		return err
	}
	e.metrics.ObserveTaskEvent(string(event))
	e.broker.Publish(tasks.Event{
		Type:   event,
		TaskID: task.ID,
		Status: status,
		At:     task.UpdatedAt,
	})
	return nil
}

func appendAnnotation(plan, annotation string) string {
	plan = strings.TrimRight(plan, "\n")
	if plan == "" {
		return annotation
	}
	return plan + "\n\n" + annotation
}
