package discover

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agripulse",
		Subsystem: "discover",
		Name:      "runs_started_total",
		Help:      "Discovery runs started, by strategy selection.",
	}, []string{"strategy"})

	runsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "agripulse",
		Subsystem: "discover",
		Name:      "runs_failed_total",
		Help:      "Discovery runs that ended in an error or cancellation.",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agripulse",
		Subsystem: "discover",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of discovery runs.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	candidatesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "agripulse",
		Subsystem: "discover",
		Name:      "candidates_evaluated_total",
		Help:      "Candidate sensors evaluated across all strategies.",
	})
)
