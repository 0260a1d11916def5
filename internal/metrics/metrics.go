// CLAUDE:SUMMARY Prometheus collectors for captured actions, session lifecycle and sink failures.
// Package metrics exposes recorder service counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/actrec/action"
)

// Metrics tracks captured actions and session lifecycle. Each instance owns
// its registry, so several services (or tests) can coexist in a process.
type Metrics struct {
	Registry *prometheus.Registry

	ActionsCaptured *prometheus.CounterVec
	SessionsStarted prometheus.Counter
	SessionsStopped prometheus.Counter
	SessionsActive  prometheus.Gauge
	SinkFailures    prometheus.Counter
	SessionDuration prometheus.Histogram
}

// New creates a Metrics instance with every collector registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		ActionsCaptured: f.NewCounterVec(prometheus.CounterOpts{
			Name: "actrec_actions_captured_total",
			Help: "Actions appended to recording logs, by event type",
		}, []string{"type"}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "actrec_sessions_started_total",
			Help: "Recording sessions started",
		}),
		SessionsStopped: f.NewCounter(prometheus.CounterOpts{
			Name: "actrec_sessions_stopped_total",
			Help: "Recording sessions stopped",
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "actrec_sessions_active",
			Help: "Recording sessions currently open",
		}),
		SinkFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "actrec_sink_failures_total",
			Help: "Finished sessions at least one sink failed to deliver",
		}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "actrec_session_duration_seconds",
			Help:    "Wall time between start and stop of a session",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900, 1800, 3600},
		}),
	}
}

// ObserveAction counts one captured action. Suitable as a recorder observer.
func (m *Metrics) ObserveAction(a action.Action) {
	m.ActionsCaptured.WithLabelValues(string(a.Type)).Inc()
}

// SessionStarted records a session start.
func (m *Metrics) SessionStarted() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// SessionStopped records a session stop and its duration.
func (m *Metrics) SessionStopped(d time.Duration) {
	m.SessionsStopped.Inc()
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(d.Seconds())
}

// SinkFailed records a delivery failure.
func (m *Metrics) SinkFailed() {
	m.SinkFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
