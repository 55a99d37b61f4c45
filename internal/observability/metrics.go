// Package observability exposes Prometheus metrics for message submissions.
//
// All recording methods are safe on a nil *SubmissionMetrics so components
// can run without instrumentation in tests.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace    = "notebook"
	submissionSubsystem = "submission"
)

type SubmissionMetrics struct {
	// SubmissionsTotal counts finished submissions.
	// Labels: outcome (completed, cancelled, failed)
	SubmissionsTotal *prometheus.CounterVec

	// ActiveSubmissions tracks submissions whose upstream stream is open.
	ActiveSubmissions prometheus.Gauge

	// StatusTokensTotal counts status tokens relayed to clients.
	StatusTokensTotal prometheus.Counter

	// CancellationsTotal counts winning cancellation triggers.
	// Labels: trigger (client_disconnect, user_stop, transport_stall)
	CancellationsTotal *prometheus.CounterVec

	// UpstreamDurationSeconds measures how long the answer engine stream
	// stayed open. Labels: outcome
	UpstreamDurationSeconds *prometheus.HistogramVec

	// MarkFailedErrorsTotal counts failed attempts to flag an assistant
	// message as failed.
	MarkFailedErrorsTotal prometheus.Counter
}

// NewSubmissionMetrics registers the metrics on reg. Passing nil uses the
// default Prometheus registerer.
func NewSubmissionMetrics(reg prometheus.Registerer) *SubmissionMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &SubmissionMetrics{
		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: submissionSubsystem,
				Name:      "total",
				Help:      "Finished message submissions by outcome",
			},
			[]string{"outcome"},
		),
		ActiveSubmissions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: submissionSubsystem,
				Name:      "active",
				Help:      "Submissions with an open answer engine stream",
			},
		),
		StatusTokensTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: submissionSubsystem,
				Name:      "status_tokens_total",
				Help:      "Status tokens relayed to clients",
			},
		),
		CancellationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: submissionSubsystem,
				Name:      "cancellations_total",
				Help:      "Submission cancellations by trigger",
			},
			[]string{"trigger"},
		),
		UpstreamDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: submissionSubsystem,
				Name:      "upstream_duration_seconds",
				Help:      "Answer engine stream duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),
		MarkFailedErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: submissionSubsystem,
				Name:      "mark_failed_errors_total",
				Help:      "Failed attempts to flag an assistant message as failed",
			},
		),
	}
}

func (m *SubmissionMetrics) SubmissionStarted() {
	if m == nil {
		return
	}
	m.ActiveSubmissions.Inc()
}

func (m *SubmissionMetrics) SubmissionFinished(outcome string, upstream time.Duration) {
	if m == nil {
		return
	}
	m.ActiveSubmissions.Dec()
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	m.UpstreamDurationSeconds.WithLabelValues(outcome).Observe(upstream.Seconds())
}

func (m *SubmissionMetrics) StatusRelayed() {
	if m == nil {
		return
	}
	m.StatusTokensTotal.Inc()
}

func (m *SubmissionMetrics) Cancelled(trigger string) {
	if m == nil {
		return
	}
	m.CancellationsTotal.WithLabelValues(trigger).Inc()
}

func (m *SubmissionMetrics) MarkFailedError() {
	if m == nil {
		return
	}
	m.MarkFailedErrorsTotal.Inc()
}
