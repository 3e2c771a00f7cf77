package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "econcal_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "econcal_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "econcal_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Schema repair
	RowsRepaired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "econcal_rows_repaired_total",
			Help: "Raw rows turned into canonical events",
		},
		[]string{"source"},
	)

	RowsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "econcal_rows_rejected_total",
			Help: "Raw rows rejected as malformed",
		},
		[]string{"source"},
	)

	// Merge and commit
	PartitionCommits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "econcal_partition_commits_total",
			Help: "Partition transactions by outcome",
		},
		[]string{"status"}, // status: committed|unchanged|failed
	)

	RowsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "econcal_rows_written_total",
			Help: "Canonical rows inserted or updated",
		},
	)

	// Model outputs
	MetricsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "econcal_metrics_appended_total",
			Help: "Metrics records appended per stage",
		},
		[]string{"stage"},
	)

	MetricsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "econcal_metrics_rejected_total",
			Help: "Metrics records rejected by validation per stage",
		},
		[]string{"stage"},
	)

	ForecastsReplaced = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "econcal_live_forecasts",
			Help: "Size of the live forecast set written by the last run",
		},
	)

	// Runs
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "econcal_runs_total",
			Help: "Pipeline runs by outcome",
		},
		[]string{"status"}, // status: success|degraded|error
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "econcal_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			WorkerExecutions,
			WorkerDuration,
			WorkerLastRun,
			RowsRepaired,
			RowsRejected,
			PartitionCommits,
			RowsWritten,
			MetricsAppended,
			MetricsRejected,
			ForecastsReplaced,
			Runs,
			RunDuration,
		)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordRepair records the outcome of repairing one batch
func RecordRepair(source string, repaired, rejected int) {
	RowsRepaired.WithLabelValues(source).Add(float64(repaired))
	RowsRejected.WithLabelValues(source).Add(float64(rejected))
}

// RecordPartition records one partition outcome
func RecordPartition(written int64, changed int, err error) {
	switch {
	case err != nil:
		PartitionCommits.WithLabelValues("failed").Inc()
	case changed == 0:
		PartitionCommits.WithLabelValues("unchanged").Inc()
	default:
		PartitionCommits.WithLabelValues("committed").Inc()
		RowsWritten.Add(float64(written))
	}
}

// RecordMetricsAppend records an append to one stage
func RecordMetricsAppend(stage string, inserted, rejected int) {
	MetricsAppended.WithLabelValues(stage).Add(float64(inserted))
	MetricsRejected.WithLabelValues(stage).Add(float64(rejected))
}

// RecordRun records a finished pipeline run
func RecordRun(duration time.Duration, degraded bool, err error) {
	status := "success"
	switch {
	case err != nil:
		status = "error"
	case degraded:
		status = "degraded"
	}

	Runs.WithLabelValues(status).Inc()
	RunDuration.Observe(duration.Seconds())
}
