package pipeline

import (
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"econcal/internal/domain/metrics"
)

// BatchReport summarises the repair of one input batch
type BatchReport struct {
	Source   string `json:"source"`
	Seq      uint64 `json:"seq"`
	Total    int    `json:"total"`
	Repaired int    `json:"repaired"`
	Rejected int    `json:"rejected"`
	Error    string `json:"error,omitempty"` // set when the whole batch was refused
}

// RunReport is the outcome of one run
type RunReport struct {
	RunID string `json:"run_id"`

	Batches  []BatchReport `json:"batches"`
	Repaired int           `json:"repaired"`
	Rejected int           `json:"rejected"`

	Partitions       int               `json:"partitions"`
	Committed        int               `json:"committed"`
	Unchanged        int               `json:"unchanged"`
	RowsWritten      int64             `json:"rows_written"`
	FailedPartitions map[string]string `json:"failed_partitions,omitempty"`
	Halted           bool              `json:"halted"` // a consistency violation stopped the run

	Metrics           map[metrics.Stage]metrics.AppendResult `json:"-"`
	MetricsInserted   int                                    `json:"metrics_inserted"`
	MetricsRejected   int                                    `json:"metrics_rejected"`
	ForecastsReplaced int                                    `json:"forecasts_replaced"`
	ForecastsRejected int                                    `json:"forecasts_rejected"`
	ForecastsSkipped  bool                                   `json:"forecasts_skipped"`

	Degraded bool          `json:"degraded"`
	Duration time.Duration `json:"duration"`
}

func newReport(runID string) *RunReport {
	return &RunReport{
		RunID:            runID,
		FailedPartitions: make(map[string]string),
		Metrics:          make(map[metrics.Stage]metrics.AppendResult),
	}
}

// Failed lists failed partitions in stable order
func (r *RunReport) Failed() []string {
	out := make([]string, 0, len(r.FailedPartitions))
	for k := range r.FailedPartitions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Summary renders the counters for log lines
func (r *RunReport) Summary() []interface{} {
	return []interface{}{
		"run_id", r.RunID,
		"repaired", humanize.Comma(int64(r.Repaired)),
		"rejected", humanize.Comma(int64(r.Rejected)),
		"partitions", r.Partitions,
		"committed", r.Committed,
		"unchanged", r.Unchanged,
		"rows_written", humanize.Comma(r.RowsWritten),
		"failed", len(r.FailedPartitions),
		"metrics_inserted", humanize.Comma(int64(r.MetricsInserted)),
		"metrics_rejected", r.MetricsRejected,
		"forecasts", r.ForecastsReplaced,
		"degraded", r.Degraded,
		"duration", r.Duration.String(),
	}
}
