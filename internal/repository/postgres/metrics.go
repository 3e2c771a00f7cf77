package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"econcal/internal/domain/metrics"
	"econcal/pkg/errors"
)

// Compile-time check
var _ metrics.Repository = (*MetricsRepository)(nil)

// MetricsRepository implements metrics.Repository on the per-stage tables
type MetricsRepository struct {
	db *sqlx.DB
}

// NewMetricsRepository creates a new metrics repository
func NewMetricsRepository(db *sqlx.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

func stageTable(stage metrics.Stage) (string, error) {
	table := stage.Table()
	if table == "" {
		return "", errors.Wrapf(errors.ErrInvalidInput, "unknown stage %q", stage)
	}
	return table, nil
}

// Append validates records and inserts the valid ones in one transaction.
// Invalid records are returned as rejections and never reach the table.
func (r *MetricsRepository) Append(ctx context.Context, stage metrics.Stage, records []metrics.Record) (metrics.AppendResult, error) {
	result := metrics.AppendResult{Stage: stage}

	table, err := stageTable(stage)
	if err != nil {
		return result, err
	}

	valid, rejected := metrics.Split(stage, records)
	result.Rejected = rejected
	if len(valid) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (currency, event, r2, mse, samples) VALUES ($1, $2, $3, $4, $5)`, table)

	err = withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return errors.Wrap(err, "prepare insert")
		}
		defer stmt.Close()

		for i, rec := range valid {
			if _, err := stmt.ExecContext(ctx, rec.Currency, rec.Event, rec.R2, rec.MSE, rec.Samples); err != nil {
				return errors.Wrapf(err, "insert %s record %d (%s %s)", stage, i, rec.Currency, rec.Event)
			}
		}
		return nil
	})
	if err != nil {
		return result, errors.Wrapf(err, "append %s metrics", stage)
	}

	result.Inserted = len(valid)
	return result, nil
}

// Count returns the number of rows stored for a stage
func (r *MetricsRepository) Count(ctx context.Context, stage metrics.Stage) (int64, error) {
	table, err := stageTable(stage)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := r.db.GetContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)); err != nil {
		return 0, errors.Wrapf(err, "count %s metrics", stage)
	}
	return n, nil
}

// History returns the latest records of one (currency, event), newest first
func (r *MetricsRepository) History(ctx context.Context, stage metrics.Stage, currency, event string, limit int) ([]metrics.Record, error) {
	table, err := stageTable(stage)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT id, currency, event, r2, mse, samples, created_at
		FROM %s
		WHERE currency = $1 AND event = $2
		ORDER BY id DESC
		LIMIT $3`, table)

	var out []metrics.Record
	if err := r.db.SelectContext(ctx, &out, query, currency, event, limit); err != nil {
		return nil, errors.Wrapf(err, "history of %s %s", currency, event)
	}
	for i := range out {
		out[i].Stage = stage
	}
	return out, nil
}
