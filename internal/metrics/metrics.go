package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobtracker_jobs_created_total",
		Help: "Total number of jobs created",
	})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobtracker_status_transitions_total",
		Help: "Total number of status transitions applied, by target status",
	}, []string{"status"})

	SummariesDispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobtracker_summaries_dispatched_total",
		Help: "Total number of daily summaries dispatched successfully",
	})

	DispatchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobtracker_dispatch_failures_total",
		Help: "Total number of daily summary dispatch attempts that failed",
	})

	LastDispatchTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jobtracker_last_dispatch_timestamp_seconds",
		Help: "Unix timestamp of the last successful summary dispatch",
	})
)
