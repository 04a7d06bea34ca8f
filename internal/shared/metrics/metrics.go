package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeAccepted     = "accepted"
	OutcomeInsufficient = "insufficient_credits"
	OutcomeInvalid      = "invalid_input"
	OutcomeStorage      = "storage_failure"
)

var (
	scansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docscan_submissions_total",
		Help: "Document submissions by outcome",
	}, []string{"outcome"})

	creditRefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docscan_credit_refunds_total",
		Help: "Credits refunded after a failed submission",
	})

	creditResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docscan_credit_resets_total",
		Help: "Global daily credit resets performed by this process",
	})

	matchQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docscan_match_query_duration_seconds",
		Help:    "Similarity query latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	matchCandidatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docscan_match_candidates_skipped_total",
		Help: "Corpus documents skipped during a similarity scan",
	})
)

// IncSubmission counts a submission attempt with the given outcome.
func IncSubmission(outcome string) {
	scansTotal.WithLabelValues(outcome).Inc()
}

// IncCreditRefund counts a compensating refund.
func IncCreditRefund() {
	creditRefundsTotal.Inc()
}

// IncCreditReset counts a global reset.
func IncCreditReset() {
	creditResetsTotal.Inc()
}

// IncCandidateSkipped counts an unreadable corpus candidate.
func IncCandidateSkipped() {
	matchCandidatesSkipped.Inc()
}

// ObserveMatchQuery records a similarity query duration.
func ObserveMatchQuery(d time.Duration) {
	if d < 0 {
		d = 0
	}
	matchQueryDuration.Observe(d.Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
