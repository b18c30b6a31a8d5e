package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kiln_jobs_submitted_total",
			Help: "Total number of jobs submitted.",
		},
	)

	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_job_runs_total",
			Help: "Total number of job executions by final status.",
		},
		[]string{"status"},
	)

	JobRunDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kiln_job_run_duration_seconds",
			Help:    "Duration of job executions in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"status"},
	)

	JobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kiln_jobs_running",
			Help: "Number of jobs currently executing (0 or 1).",
		},
	)

	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_store_errors_total",
			Help: "Total number of store failures seen by the runner, by operation.",
		},
		[]string{"op"},
	)

	EventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kiln_events_dropped_total",
			Help: "Total number of status events dropped for lagging subscribers.",
		},
	)

	EventSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kiln_event_subscribers",
			Help: "Number of attached status event subscribers.",
		},
	)
)

// Collectors returns every kiln collector.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		JobsSubmittedTotal,
		JobRunsTotal,
		JobRunDurationSeconds,
		JobsRunning,
		StoreErrorsTotal,
		EventsDroppedTotal,
		EventSubscribers,
	}
}

// Register registers all kiln metrics with the given registerer.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(Collectors()...)
}
