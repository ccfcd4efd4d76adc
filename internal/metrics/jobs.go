package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobsSubmitted, jobsFinished, generationDuration, exportBytes, tasksRejected, staleJobs)
}

// Job kinds used as label values.
const (
	KindGeneration = "generation"
	KindExport     = "export"
)

var (
	jobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exercise_jobs_submitted_total",
			Help: "Jobs accepted by the job manager, by kind.",
		},
		[]string{"kind"},
	)

	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exercise_jobs_finished_total",
			Help: "Jobs that reached a terminal status, by kind and status.",
		},
		[]string{"kind", "status"},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exercise_generation_duration_seconds",
			Help:    "Wall time from claim to completion of generation jobs.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
	)

	exportBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exercise_export_file_bytes",
			Help:    "Size of rendered export files.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"format"},
	)

	tasksRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exercise_tasks_rejected_total",
			Help: "Task submissions that could not be queued, by kind.",
		},
		[]string{"kind"},
	)

	staleJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exercise_stale_jobs_failed_total",
			Help: "Jobs stuck in processing that the monitor marked failed, by kind.",
		},
		[]string{"kind"},
	)
)

// IncJobSubmitted counts an accepted job.
func IncJobSubmitted(kind string) {
	jobsSubmitted.WithLabelValues(norm(kind)).Inc()
}

// IncJobFinished counts a job reaching status.
func IncJobFinished(kind, status string) {
	jobsFinished.WithLabelValues(norm(kind), norm(status)).Inc()
}

// ObserveGenerationDuration records how long a completed generation took.
func ObserveGenerationDuration(d time.Duration) {
	generationDuration.Observe(d.Seconds())
}

// ObserveExportSize records the size of a stored export file.
func ObserveExportSize(format string, bytes int64) {
	exportBytes.WithLabelValues(norm(format)).Observe(float64(bytes))
}

// IncTaskRejected counts a submission dropped because the queue was full.
func IncTaskRejected(kind string) {
	tasksRejected.WithLabelValues(norm(kind)).Inc()
}

// IncStaleJob counts a job failed by the stale monitor.
func IncStaleJob(kind string) {
	staleJobs.WithLabelValues(norm(kind)).Inc()
}
