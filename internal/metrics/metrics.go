// Package metrics provides Prometheus metrics for editing sessions.
//
// A nil *Recorder is valid and records nothing, so sessions built without
// metrics need no special casing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Persist results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped" // content unchanged since the last persist
)

// Recorder holds the session metrics registered on one registry.
type Recorder struct {
	// mutationsTotal records applied and rejected mutations.
	// Labels:
	//   - kind: mutation kind (e.g. "add_field", "undo")
	//   - outcome: "applied" or "rejected"
	mutationsTotal *prometheus.CounterVec

	// persistsTotal records persist attempts.
	// Labels:
	//   - result: "success", "failure" or "skipped"
	//   - reason: what triggered the flush ("debounce", "save_now", ...)
	persistsTotal *prometheus.CounterVec

	// persistDuration records gateway latency.
	// Buckets: 5ms .. 10s
	persistDuration prometheus.Histogram

	// transitionsTotal records status transitions by target state.
	transitionsTotal *prometheus.CounterVec

	// pendingChanges is the size of the pending change set after the last
	// mutation or persist.
	pendingChanges prometheus.Gauge
}

// New creates a Recorder and registers its collectors on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		mutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "formsession",
				Name:      "mutations_total",
				Help:      "Total number of mutations issued to editing sessions",
			},
			[]string{"kind", "outcome"},
		),
		persistsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "formsession",
				Name:      "persists_total",
				Help:      "Total number of document persist attempts",
			},
			[]string{"result", "reason"},
		),
		persistDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "formsession",
				Name:      "persist_duration_seconds",
				Help:      "Duration of persistence gateway calls in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "formsession",
				Name:      "status_transitions_total",
				Help:      "Total number of save status transitions by target state",
			},
			[]string{"to"},
		),
		pendingChanges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "formsession",
				Name:      "pending_changes",
				Help:      "Number of change tokens awaiting persistence",
			},
		),
	}
	reg.MustRegister(
		r.mutationsTotal,
		r.persistsTotal,
		r.persistDuration,
		r.transitionsTotal,
		r.pendingChanges,
	)
	return r
}

// RecordMutation counts one mutation.
func (r *Recorder) RecordMutation(kind string, applied bool) {
	if r == nil {
		return
	}
	outcome := "applied"
	if !applied {
		outcome = "rejected"
	}
	r.mutationsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordPersist counts one persist attempt. d is ignored for skipped writes.
func (r *Recorder) RecordPersist(result, reason string, d time.Duration) {
	if r == nil {
		return
	}
	r.persistsTotal.WithLabelValues(result, reason).Inc()
	if result != ResultSkipped {
		r.persistDuration.Observe(d.Seconds())
	}
}

// RecordTransition counts a status transition into state to.
func (r *Recorder) RecordTransition(to string) {
	if r == nil {
		return
	}
	r.transitionsTotal.WithLabelValues(to).Inc()
}

// SetPending records the current pending change count.
func (r *Recorder) SetPending(n int) {
	if r == nil {
		return
	}
	r.pendingChanges.Set(float64(n))
}
