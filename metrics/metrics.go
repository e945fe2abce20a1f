package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlm_registrations_total",
			Help: "Total number of registration attempts",
		},
		[]string{"kind", "status"},
	)

	StakesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlm_stakes_total",
			Help: "Total number of staking attempts",
		},
		[]string{"status"},
	)

	AccrualOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlm_accrual_outcomes_total",
			Help: "Per-participant results of daily profit accrual",
		},
		[]string{"outcome"},
	)

	AccrualRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mlm_accrual_run_duration_seconds",
			Help:    "Duration of a full accrual cycle",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~41s
		},
	)

	RoiUpgradesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mlm_roi_upgrades_total",
			Help: "Total number of participants upgraded to the higher ROI cap",
		},
	)

	TraversalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mlm_traversal_duration_seconds",
			Help:    "Duration of forest build plus traversal, by operation",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4.1s
		},
		[]string{"operation"},
	)

	VersionConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mlm_store_version_conflicts_total",
			Help: "Total number of optimistic write conflicts retried against the participant store",
		},
	)

	SchedulerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlm_scheduler_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "status"},
	)
)
