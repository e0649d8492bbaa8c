package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mfranzon/donna/internal/observability"
	"github.com/mfranzon/donna/internal/tasks"
)

// Planner generates a step plan and reports which model produced it.
type Planner interface {
	Plan(ctx context.Context, request string) (plan, modelUsed string, err error)
}

// InternetClassifier decides whether a request needs live internet access.
type InternetClassifier interface {
	RequiresInternet(ctx context.Context, request string) bool
}

// Service is the intake front of the execution pipeline: it plans and
// classifies a request, persists the planned task, and hands it to the
// executor in the background. The HTTP layer talks only to this type.
type Service struct {
	store      tasks.Store
	planner    Planner
	classifier InternetClassifier
	exec       *Executor
	broker     *tasks.Broker
	metrics    *observability.Metrics
}

func NewService(
	store tasks.Store,
	planner Planner,
	classifier InternetClassifier,
	exec *Executor,
	broker *tasks.Broker,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		store:      store,
		planner:    planner,
		classifier: classifier,
		exec:       exec,
		broker:     broker,
		metrics:    metrics,
	}
}

// Intake accepts a raw request, persists it as a planned task, and starts
// executing it in the background. extractedTime is the caller's optional
// pre-parsed event time; once stored it is immutable and takes precedence
// over anything the model infers later. The returned task is the planned
// snapshot; execution progress is visible through the store and the event
// feed.
func (s *Service) Intake(ctx context.Context, request, clientTime, extractedTime string) (tasks.Task, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return tasks.Task{}, fmt.Errorf("empty request")
	}

	plan, modelUsed, err := s.planner.Plan(ctx, request)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("plan request: %w", err)
	}

	now := time.Now().UTC()
	task := tasks.Task{
		ID:               uuid.NewString(),
		OriginalRequest:  request,
		Plan:             plan,
		Status:           tasks.TaskStatusPlanned,
		RequiresInternet: s.classifier.RequiresInternet(ctx, request),
		ModelUsed:        modelUsed,
		ExtractedTime:    strings.TrimSpace(extractedTime),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Upsert(ctx, task); err != nil {
		return tasks.Task{}, fmt.Errorf("persist task: %w", err)
	}
	s.metrics.ObserveTaskEvent(string(tasks.EventTaskCreated))
	s.broker.Publish(tasks.Event{Type: tasks.EventTaskCreated, TaskID: task.ID, Status: task.Status, At: now})

	// background hand-off; the executor owns all further status writes
	go func() {
		s.exec.Execute(context.Background(), task, clientTime)
	}()

	return task, nil
}

// Complete marks a task done by hand, regardless of where execution left
// it. A non-empty planUpdate replaces the stored plan, and a non-nil
// sources slice replaces the stored sources.
func (s *Service) Complete(ctx context.Context, taskID, planUpdate string, sources []tasks.Source) (tasks.Task, error) {
	if err := s.store.UpdateStatus(ctx, taskID, tasks.TaskStatusCompleted, planUpdate); err != nil {
		return tasks.Task{}, err
	}
	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		return tasks.Task{}, err
	}
	if sources != nil {
		task.Sources = sources
		task.UpdatedAt = time.Now().UTC()
		if err := s.store.Upsert(ctx, task); err != nil {
			return tasks.Task{}, err
		}
	}
	s.metrics.ObserveTaskEvent(string(tasks.EventTaskCompleted))
	s.broker.Publish(tasks.Event{Type: tasks.EventTaskCompleted, TaskID: task.ID, Status: task.Status, At: task.UpdatedAt})
	return task, nil
}

func (s *Service) Get(ctx context.Context, taskID string) (tasks.Task, error) {
	return s.store.Get(ctx, taskID)
}

func (s *Service) List(ctx context.Context) []tasks.Task {
	all := s.store.ListAll(ctx)
	if all == nil {
		return []tasks.Task{}
	}
	return all
}
