package orchestration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	instancesStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestration_instances_started_total",
			Help: "Total orchestration instances started",
		},
		[]string{"workflow"},
	)

	instancesCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestration_instances_completed_total",
			Help: "Total orchestration instances completed, by terminal result",
		},
		[]string{"workflow", "result"},
	)

	instancesFaultedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestration_instances_faulted_total",
			Help: "Total orchestration instances that ended in a fault",
		},
		[]string{"workflow"},
	)

	eventsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestration_events_raised_total",
			Help: "Total external events raised against instances",
		},
		[]string{"event"},
	)

	activityExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestration_activity_executions_total",
			Help: "Total activity executions, by outcome",
		},
		[]string{"activity", "status"},
	)

	activityDedupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestration_activity_dedup_total",
			Help: "Activity redeliveries answered from the idempotency guard",
		},
		[]string{"activity"},
	)

	compensationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestration_compensation_runs_total",
			Help: "Compensating activities executed",
		},
		[]string{"activity"},
	)

	compensationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestration_compensation_failures_total",
			Help: "Compensating activities that failed",
		},
		[]string{"activity"},
	)
)
