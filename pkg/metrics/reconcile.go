package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records metadata for counter reconciliation runs.
type ReconcileMetrics struct {
	duration *prometheus.HistogramVec
	drift    *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_duration_seconds",
		Help:    "Duration of counter reconciliation runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_drift_total",
		Help: "Denormalized counters found out of sync and repaired.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_failure_total",
		Help: "Failed reconciliation runs.",
	}, []string{"job"})
	reg.MustRegister(duration, drift, failure)
	return &ReconcileMetrics{
		duration: duration,
		drift:    drift,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named job.
func (r *ReconcileMetrics) ObserveDuration(job string, duration time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// AddDrift counts counters that had to be repaired.
func (r *ReconcileMetrics) AddDrift(job string, count int) {
	if r == nil || r.drift == nil || count <= 0 {
		return
	}
	r.drift.WithLabelValues(normalizeLabel(job)).Add(float64(count))
}

// IncFailure increments the failure counter for the named job.
func (r *ReconcileMetrics) IncFailure(job string) {
	if r == nil || r.failure == nil {
		return
	}
	r.failure.WithLabelValues(normalizeLabel(job)).Inc()
}
