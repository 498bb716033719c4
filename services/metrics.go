// services/metrics.go
package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeClaimed        = "claimed"
	outcomeAlreadyClaimed = "already_claimed"
	outcomeRejected       = "rejected"
	outcomeException      = "exception"
	outcomeAuthFailed     = "auth_failed"
)

var (
	claimOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skport_checkin_claims_total",
			Help: "Check-in attempts by outcome.",
		},
		[]string{"outcome"},
	)

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skport_checkin_run_duration_seconds",
		Help:    "Wall time of a full check-in batch.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	lastRunSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skport_checkin_last_run_success",
		Help: "1 when every account in the last batch succeeded, 0 otherwise.",
	})
)

// InitMetrics registers the check-in metrics in the default registry.
func InitMetrics() {
	prometheus.MustRegister(claimOutcomes, runDuration, lastRunSuccess)
}
