package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"econcal/internal/domain/calendar"
	"econcal/pkg/errors"
)

// Compile-time check
var _ calendar.Repository = (*EventRepository)(nil)

// EventRepository implements calendar.Repository using sqlx
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new canonical event repository
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// eventRow is the scan target for events. Date and time are read as text so
// they come back exactly in the layouts used by calendar.Key.
type eventRow struct {
	ID       int64          `db:"id"`
	Date     string         `db:"date"`
	Time     string         `db:"time"`
	Currency string         `db:"currency"`
	Event    string         `db:"event"`
	Impact   sql.NullString `db:"impact"`
	Actual   sql.NullString `db:"actual"`
	Forecast sql.NullString `db:"forecast"`
	Previous sql.NullString `db:"previous"`
	BatchID  sql.NullString `db:"batch_id"`
}

const selectEventColumns = `
	e.id,
	to_char(e.date, 'YYYY-MM-DD') AS date,
	to_char(e.time, 'HH24:MI') AS time,
	e.currency, e.event, e.impact, e.actual, e.forecast, e.previous, e.batch_id`

func (r eventRow) toDomain() (calendar.EconomicEvent, error) {
	d, err := time.Parse(calendar.DateLayout, r.Date)
	if err != nil {
		return calendar.EconomicEvent{}, errors.Wrapf(err, "event %d has invalid date %q", r.ID, r.Date)
	}

	impact := calendar.Impact(r.Impact.String)
	if !impact.Valid() {
		impact = calendar.ImpactUnknown
	}

	// Stored rows are the oldest provenance; every incoming batch outranks them.
	return calendar.EconomicEvent{
		ID:       r.ID,
		Date:     d,
		Time:     r.Time,
		Currency: r.Currency,
		Event:    r.Event,
		Impact:   impact,
		Actual:   calendar.ValueFromNullString(r.Actual),
		Forecast: calendar.ValueFromNullString(r.Forecast),
		Previous: calendar.ValueFromNullString(r.Previous),
		Batch:    calendar.BatchRef{Seq: 0, ID: r.BatchID.String},
	}, nil
}

func partitionWhere(key calendar.PartitionKey) (string, []interface{}) {
	where := "e.currency = $1"
	args := []interface{}{key.Currency}
	if from, to, ok := key.Bounds(); ok {
		where += " AND e.date >= $2 AND e.date < $3"
		args = append(args, from.Format(calendar.DateLayout), to.Format(calendar.DateLayout))
	}
	return where, args
}

// ListPartition returns every stored row of a partition
func (r *EventRepository) ListPartition(ctx context.Context, key calendar.PartitionKey) ([]calendar.EconomicEvent, error) {
	where, args := partitionWhere(key)
	query := fmt.Sprintf(`SELECT %s FROM events e WHERE %s ORDER BY e.date, e.time, e.event`, selectEventColumns, where)

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "list partition %s", key)
	}
	return toEvents(rows)
}

const upsertEventQuery = `
	INSERT INTO events (date, time, currency, event, impact, actual, forecast, previous, batch_id, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	ON CONFLICT (date, time, currency, event) DO UPDATE SET
		impact = EXCLUDED.impact,
		actual = EXCLUDED.actual,
		forecast = EXCLUDED.forecast,
		previous = EXCLUDED.previous,
		batch_id = EXCLUDED.batch_id,
		updated_at = NOW()`

// ApplyPartition upserts rows of one partition in a single transaction.
// Either every row is written or none is; failures are reported as ErrPartitionCommit.
func (r *EventRepository) ApplyPartition(ctx context.Context, key calendar.PartitionKey, rows []calendar.EconomicEvent) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var written int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, upsertEventQuery)
		if err != nil {
			return errors.Wrap(err, "prepare upsert")
		}
		defer stmt.Close()

		for i, e := range rows {
			if !key.Contains(e) {
				return errors.Wrapf(errors.ErrConsistencyViolation, "row %s does not belong to partition", e.Key())
			}
			impact := sql.NullString{String: e.Impact.String(), Valid: e.Impact != ""}
			batchID := sql.NullString{String: e.Batch.ID, Valid: e.Batch.ID != ""}

			res, err := stmt.ExecContext(ctx,
				e.Date.Format(calendar.DateLayout),
				e.Time,
				e.Currency,
				e.Event,
				impact,
				e.Actual.NullString(),
				e.Forecast.NullString(),
				e.Previous.NullString(),
				batchID,
			)
			if err != nil {
				return errors.Wrapf(err, "upsert row %d (%s)", i, e.Key())
			}
			n, err := res.RowsAffected()
			if err != nil {
				return errors.Wrapf(err, "rows affected at index %d", i)
			}
			written += n
		}
		return nil
	})
	if err != nil {
		return 0, errors.Classify(err, errors.ErrPartitionCommit, "partition %s", key)
	}

	return written, nil
}

// CountDuplicateKeys returns how many identity keys of a partition occur more than once
func (r *EventRepository) CountDuplicateKeys(ctx context.Context, key calendar.PartitionKey) (int, error) {
	where, args := partitionWhere(key)
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM (
			SELECT 1 FROM events e
			WHERE %s
			GROUP BY e.date, e.time, e.currency, e.event
			HAVING COUNT(*) > 1
		) dup`, where)

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, errors.Wrapf(err, "count duplicates in %s", key)
	}
	return n, nil
}

// List returns canonical rows in chronological order
func (r *EventRepository) List(ctx context.Context, filter calendar.Filter) ([]calendar.EconomicEvent, error) {
	where, args := filterWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM events e %s ORDER BY e.date, e.time, e.currency, e.event%s`,
		selectEventColumns, where, limitClause(filter.Limit))

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	return toEvents(rows)
}

// ListFormatted returns rows of the events_formatted view
func (r *EventRepository) ListFormatted(ctx context.Context, filter calendar.Filter) ([]calendar.FormattedEvent, error) {
	where, args := filterWhere(filter)
	query := fmt.Sprintf(`
		SELECT
			f.id, f.date, f.time, f.currency, f.event,
			COALESCE(f.impact, '') AS impact,
			COALESCE(f.actual, '') AS actual,
			COALESCE(f.forecast, '') AS forecast,
			COALESCE(f.previous, '') AS previous
		FROM events_formatted f
		JOIN events e ON e.id = f.id
		%s
		ORDER BY e.date, e.time, e.currency, e.event%s`, where, limitClause(filter.Limit))

	var out []calendar.FormattedEvent
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, errors.Wrap(err, "list formatted events")
	}
	return out, nil
}

func filterWhere(f calendar.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Currency != "" {
		args = append(args, strings.ToUpper(f.Currency))
		conds = append(conds, fmt.Sprintf("e.currency = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From.Format(calendar.DateLayout))
		conds = append(conds, fmt.Sprintf("e.date >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.Format(calendar.DateLayout))
		conds = append(conds, fmt.Sprintf("e.date < $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

func toEvents(rows []eventRow) ([]calendar.EconomicEvent, error) {
	out := make([]calendar.EconomicEvent, 0, len(rows))
	for _, row := range rows {
		e, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
