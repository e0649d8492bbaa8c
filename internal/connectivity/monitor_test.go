package connectivity

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mfranzon/donna/internal/tasks"
)

type fakeProber struct {
	mu     sync.Mutex
	online bool
}

func (p *fakeProber) Online(_ context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *fakeProber) set(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

type recordingResumer struct {
	mu    sync.Mutex
	seen  map[string]int
	panic bool
}

func (r *recordingResumer) Resume(_ context.Context, task tasks.Task) {
	r.mu.Lock()
	if r.seen == nil {
		r.seen = make(map[string]int)
	}
	r.seen[task.ID]++
	shouldPanic := r.panic
	r.mu.Unlock()
	if shouldPanic {
		panic("resume blew up")
	}
}

func (r *recordingResumer) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[id]
}

func seedStore(t *testing.T, seed ...tasks.Task) tasks.Store {
	t.Helper()
	store := tasks.NewFileStore(filepath.Join(t.TempDir(), "tasks.json"))
	for _, task := range seed {
		if err := store.Upsert(context.Background(), task); err != nil {
			t.Fatalf("seed Upsert() error = %v", err)
		}
	}
	return store
}

func waitingTask(id string) tasks.Task {
	now := time.Now().UTC()
	return tasks.Task{
		ID:               id,
		OriginalRequest:  "check the weather",
		Status:           tasks.TaskStatusWaitingForInternet,
		RequiresInternet: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestMonitorResumesParkedTasksWhenOnline(t *testing.T) {
	done := waitingTask("t-done")
	done.Status = tasks.TaskStatusCompleted
	store := seedStore(t, waitingTask("t-parked"), done)

	prober := &fakeProber{}
	resumer := &recordingResumer{}
	m := NewMonitor(10*time.Millisecond, prober, store, resumer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	// Offline ticks must not dispatch anything.
	time.Sleep(50 * time.Millisecond)
	if got := resumer.count("t-parked"); got != 0 {
		t.Fatalf("resume count while offline = %d, want 0", got)
	}

	prober.set(true)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if resumer.count("t-parked") > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if resumer.count("t-parked") == 0 {
		t.Fatalf("parked task never resumed after connectivity returned")
	}
	if resumer.count("t-done") != 0 {
		t.Fatalf("completed task was resumed")
	}
}

func TestMonitorSurvivesResumerPanic(t *testing.T) {
	store := seedStore(t, waitingTask("t-boom"))
	prober := &fakeProber{online: true}
	resumer := &recordingResumer{panic: true}
	m := NewMonitor(10*time.Millisecond, prober, store, resumer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if resumer.count("t-boom") >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("loop stopped after panic: resume count = %d, want >= 2", resumer.count("t-boom"))
}
