package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics records code redemption outcomes.
type ScanMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewScanMetrics registers the scan metrics on the provided registerer.
func NewScanMetrics(reg prometheus.Registerer) *ScanMetrics {
	if reg == nil {
		return &ScanMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scan_duration_seconds",
		Help:    "Duration of code redemption attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"region"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_success_total",
		Help: "Successful code redemptions.",
	}, []string{"region"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_rejected_total",
		Help: "Code redemptions rejected by a business rule.",
	}, []string{"reason"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_failure_total",
		Help: "Code redemptions that failed on a backend error.",
	}, []string{"region"})
	reg.MustRegister(duration, success, rejected, failure)
	return &ScanMetrics{
		duration: duration,
		success:  success,
		rejected: rejected,
		failure:  failure,
	}
}

// ObserveDuration records the duration of a redemption attempt.
func (s *ScanMetrics) ObserveDuration(region string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(region)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the region.
func (s *ScanMetrics) IncSuccess(region string) {
	if s == nil || s.success == nil {
		return
	}
	s.success.WithLabelValues(normalizeLabel(region)).Inc()
}

// IncRejected increments the rejection counter for the given rule.
func (s *ScanMetrics) IncRejected(reason string) {
	if s == nil || s.rejected == nil {
		return
	}
	s.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncFailure increments the backend failure counter for the region.
func (s *ScanMetrics) IncFailure(region string) {
	if s == nil || s.failure == nil {
		return
	}
	s.failure.WithLabelValues(normalizeLabel(region)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
