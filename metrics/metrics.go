// Package metrics declares the prometheus collectors incremented by the
// core components. Exposition is left to the embedding process; ticketd
// itself only counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketd_verifications_total",
			Help: "Ticket verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	checkIns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketd_checkins_total",
			Help: "Tickets checked in",
		},
	)

	claims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketd_refund_claims_total",
			Help: "Refund claim submissions by result",
		},
		[]string{"result"},
	)

	pipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketd_pipeline_runs_total",
			Help: "Pipeline runs by terminal status",
		},
		[]string{"status"},
	)
)

// Verification records one verification attempt outcome ("valid",
// "already_used", "event_not_found", "token_not_found", "wrong_event",
// "invalid", "error").
func Verification(outcome string) {
	verifications.WithLabelValues(outcome).Inc()
}

// CheckIn records one successful check-in.
func CheckIn() {
	checkIns.Inc()
}

// Claim records one refund claim submission result ("submitted",
// "confirmed", "failed").
func Claim(result string) {
	claims.WithLabelValues(result).Inc()
}

// PipelineRun records one terminal pipeline status ("succeeded", "failed").
func PipelineRun(status string) {
	pipelineRuns.WithLabelValues(status).Inc()
}
