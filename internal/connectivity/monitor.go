package connectivity

import (
	"context"
	"log"
	"time"

	"github.com/mfranzon/donna/internal/observability"
	"github.com/mfranzon/donna/internal/tasks"
)

const DefaultMonitorInterval = 10 * time.Second

// Resumer re-runs the execution hand-off for a parked task. Implementations
// must absorb their own failures; the monitor only dispatches.
type Resumer interface {
	Resume(ctx context.Context, task tasks.Task)
}

// Monitor is the background loop that watches connectivity and resumes every
// task parked in waiting_for_internet once the network is back.
type Monitor struct {
	interval time.Duration
	prober   Prober
	store    tasks.Store
	resumer  Resumer
	metrics  *observability.Metrics
}

func NewMonitor(interval time.Duration, prober Prober, store tasks.Store, resumer Resumer, metrics *observability.Metrics) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{
		interval: interval,
		prober:   prober,
		store:    store,
		resumer:  resumer,
		metrics:  metrics,
	}
}

// Run blocks until ctx is cancelled. A failure while resuming one task never
// stops the loop or affects other tasks.
func (m *Monitor) Run(ctx context.Context) {
	log.Printf("connectivity monitor started (interval %s)", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("connectivity monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	start := time.Now()
	online := m.prober.Online(ctx)
	m.metrics.ObserveProbe(online, time.Since(start))
	if !online {
		return
	}

	var parked []tasks.Task
	for _, task := range m.store.ListAll(ctx) {
		if task.Status == tasks.TaskStatusWaitingForInternet {
			parked = append(parked, task)
		}
	}
	m.metrics.SetTasksWaiting(len(parked))
	if len(parked) == 0 {
		return
	}

	log.Printf("monitor: resuming %d parked task(s)", len(parked))
	for _, task := range parked {
		go func(task tasks.Task) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("monitor: resume of task %s panicked: %v", task.ID, r)
				}
			}()
			m.metrics.ObserveTaskEvent("resumed")
			m.resumer.Resume(ctx, task)
		}(task.Clone())
	}
}
