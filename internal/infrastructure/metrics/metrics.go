package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the verification pipeline.
type Metrics struct {
	SessionsCreated   prometheus.Counter
	SessionsStarted   prometheus.Counter
	SessionsCompleted *prometheus.CounterVec
	ChecksResolved    *prometheus.CounterVec
	CallWaitDuration  prometheus.Histogram
	ReportRiskLevel   *prometheus.CounterVec
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "verihire_sessions_created_total",
			Help: "Verification sessions created.",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "verihire_sessions_started_total",
			Help: "Verification sessions started.",
		}),
		SessionsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verihire_sessions_finished_total",
			Help: "Verification sessions that reached a terminal stage.",
		}, []string{"stage"}),
		ChecksResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verihire_checks_resolved_total",
			Help: "Sub-checks resolved per check type and outcome.",
		}, []string{"check", "outcome"}),
		CallWaitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "verihire_call_wait_seconds",
			Help:    "Time spent waiting for outbound call completion.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
		ReportRiskLevel: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "verihire_reports_total",
			Help: "Final fraud reports by risk level.",
		}, []string{"risk_level"}),
	}
}
