package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	TaskEvents         *prometheus.CounterVec
	TasksWaiting       prometheus.Gauge
	ConnectivityProbes *prometheus.CounterVec
	ProbeLatency       prometheus.Histogram
	CalendarCalls      *prometheus.CounterVec
	PlanLatency        prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TaskEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_events_total",
			Help:      "Task lifecycle events by type.",
		}, []string{"event"}),
		TasksWaiting: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_waiting_for_internet",
			Help:      "Number of tasks parked on connectivity.",
		}),
		ConnectivityProbes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connectivity_probes_total",
			Help:      "Connectivity probe attempts by result.",
		}, []string{"result"}),
		ProbeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connectivity_probe_latency_ms",
			Help:      "Connectivity probe latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 3000},
		}),
		CalendarCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_calls_total",
			Help:      "Calendar API calls by outcome.",
		}, []string{"outcome"}),
		PlanLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_generation_latency_ms",
			Help:      "Plan generation latency in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}),
	}
}

func (m *Metrics) ObserveTaskEvent(event string) {
	if m == nil {
		return
	}
	m.TaskEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveProbe(online bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "offline"
	if online {
		result = "online"
	}
	m.ConnectivityProbes.WithLabelValues(result).Inc()
	m.ProbeLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveCalendarCall(outcome string) {
	if m == nil {
		return
	}
	m.CalendarCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePlanLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.PlanLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) SetTasksWaiting(n int) {
	if m == nil {
		return
	}
	m.TasksWaiting.Set(float64(n))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
