// Package metrics registers the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UnitTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unit_transitions_total",
			Help: "Total number of successful unit status transitions",
		},
		[]string{"from", "to", "source"},
	)

	UnitTransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unit_transitions_rejected_total",
			Help: "Total number of unit status transitions rejected by the lifecycle",
		},
		[]string{"to", "error_code"},
	)

	PriceComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unit_price_computations_total",
			Help: "Total number of unit price computations by outcome",
		},
		[]string{"outcome"},
	)

	LocksReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unit_locks_reclaimed_total",
			Help: "Total number of expired unit locks released",
		},
	)

	ReclaimFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unit_lock_reclaim_failures_total",
			Help: "Total number of expired locks the reclaimer failed to release",
		},
	)

	ReclaimDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "unit_lock_reclaim_duration_seconds",
			Help: "Duration of lock reclaim sweeps in seconds",
		},
	)
)
