package escalation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	escalatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusdesk_escalations_total",
		Help: "Tickets escalated by the sweep, by breached deadline kind",
	}, []string{"kind"})

	skippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusdesk_escalation_skips_total",
		Help: "Overdue tickets skipped by the sweep (missing category, errors)",
	})

	conflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusdesk_escalation_conflicts_total",
		Help: "Escalations abandoned because the ticket changed concurrently",
	})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "campusdesk_escalation_sweep_duration_seconds",
		Help:    "Wall-clock duration of a full escalation sweep",
		Buckets: prometheus.DefBuckets,
	})
)
