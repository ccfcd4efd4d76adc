package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sweepRuns, sweepDeleted, sweepFailures) }

var (
	sweepRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exercise_cleanup_sweeps_total",
			Help: "Completed cleanup sweeps.",
		},
	)

	sweepDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exercise_cleanup_deleted_total",
			Help: "Objects removed by the cleanup sweeper, by kind (file or record).",
		},
		[]string{"kind"},
	)

	sweepFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exercise_cleanup_failures_total",
			Help: "Expired downloads the sweeper could not remove.",
		},
	)
)

// ObserveSweep records the outcome of one sweep.
func ObserveSweep(files, records, failures int) {
	sweepRuns.Inc()
	sweepDeleted.WithLabelValues("file").Add(float64(files))
	sweepDeleted.WithLabelValues("record").Add(float64(records))
	sweepFailures.Add(float64(failures))
}
