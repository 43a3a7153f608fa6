// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	MatchesComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matches_computed_total",
			Help: "Matches scored, split by whether the row was created or refreshed",
		},
		[]string{"outcome"},
	)

	MatchScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_score",
			Help:    "Distribution of computed match scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	MatchDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_decisions_total",
			Help: "Match decisions applied",
		},
		[]string{"decision", "changed"},
	)

	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_transitions_total",
			Help: "Application stage moves by destination template",
		},
		[]string{"template", "automatic"},
	)

	StageMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_mutations_total",
			Help: "Stage registry mutations by operation and result",
		},
		[]string{"operation", "result"},
	)

	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_emitted_total",
			Help: "Notifications published to the outbox stream",
		},
		[]string{"type"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Notifications that could not be published or delivered",
		},
		[]string{"type", "stage"},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Delivery attempts per channel and outcome",
		},
		[]string{"channel", "status"},
	)

	DataIntegrityWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "data_integrity_warnings_total",
			Help: "Inconsistent rows observed while serving requests",
		},
		[]string{"code"},
	)
)
