package app

import (
	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recipientEntriesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "broadcast",
			Name:      "recipient_entries_total",
			Help:      "Recipient entries seen during validation, by outcome.",
		},
		[]string{"outcome"}, // valid, invalid, duplicate
	)

	templateChecksCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "broadcast",
			Name:      "template_checks_total",
			Help:      "Template placeholder checks, by result.",
		},
		[]string{"result"}, // complete, missing, config_error
	)

	dispatchJobsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "broadcast",
			Name:      "dispatch_jobs_total",
			Help:      "Dispatch attempts, by status.",
		},
		[]string{"status"},
	)

	outcomesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "broadcast",
			Name:      "dispatch_outcomes_total",
			Help:      "Dispatch outcomes consumed, by resolved broadcast status.",
		},
		[]string{"status"}, // Draft, Sent, Partially Sent, Failed, invalid, error
	)

	dispatchRecipientsHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "broadcast",
			Name:      "dispatch_recipients",
			Help:      "Valid recipients per dispatched job.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)
)

// observeValidation counts distinct values per bucket, matching what the
// result reports.
func observeValidation(r domain.ValidationResult) {
	recipientEntriesCounter.WithLabelValues("valid").Add(float64(r.FinalCount))
	recipientEntriesCounter.WithLabelValues("invalid").Add(float64(len(r.InvalidEntries)))
	recipientEntriesCounter.WithLabelValues("duplicate").Add(float64(len(r.DuplicateEntries)))
}
