package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"econcal/internal/domain/metrics"
	"econcal/pkg/errors"
)

// Compile-time check
var _ metrics.Archive = (*MetricsArchive)(nil)

const metricsArchiveDDL = `
	CREATE TABLE IF NOT EXISTS metrics_archive (
		stage       LowCardinality(String),
		currency    LowCardinality(String),
		event       String,
		r2          Float64,
		mse         Float64,
		samples     Int32,
		run_id      String,
		archived_at DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMM(archived_at)
	ORDER BY (stage, currency, event, archived_at)`

// MetricsArchive mirrors appended metrics into ClickHouse for long-range analysis
type MetricsArchive struct {
	conn  driver.Conn
	runID func(ctx context.Context) string
}

// NewMetricsArchive creates a metrics archive on conn
func NewMetricsArchive(conn driver.Conn) *MetricsArchive {
	return &MetricsArchive{
		conn:  conn,
		runID: runIDFromContext,
	}
}

// EnsureSchema creates the archive table if it does not exist
func (a *MetricsArchive) EnsureSchema(ctx context.Context) error {
	if err := a.conn.Exec(ctx, metricsArchiveDDL); err != nil {
		return errors.Wrap(err, "create metrics_archive")
	}
	return nil
}

// Archive inserts records as one batch
func (a *MetricsArchive) Archive(ctx context.Context, stage metrics.Stage, records []metrics.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `INSERT INTO metrics_archive`)
	if err != nil {
		return errors.Wrap(err, "prepare metrics archive batch")
	}

	runID := a.runID(ctx)
	now := time.Now().UTC()
	for _, rec := range records {
		if err := batch.Append(
			stage.String(),
			rec.Currency,
			rec.Event,
			rec.R2,
			rec.MSE,
			int32(rec.Samples),
			runID,
			now,
		); err != nil {
			_ = batch.Abort()
			return errors.Wrapf(err, "append %s %s to archive batch", rec.Currency, rec.Event)
		}
	}

	if err := batch.Send(); err != nil {
		return errors.Wrapf(err, "send %d archived %s records", len(records), stage)
	}
	return nil
}

// Count returns archived rows of one stage
func (a *MetricsArchive) Count(ctx context.Context, stage metrics.Stage) (uint64, error) {
	var n uint64
	if err := a.conn.QueryRow(ctx, `SELECT count() FROM metrics_archive WHERE stage = ?`, stage.String()).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "count archived %s metrics", stage)
	}
	return n, nil
}

func runIDFromContext(ctx context.Context) string {
	id, _ := errors.RunIDFrom(ctx)
	return id
}
