package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"econcal/internal/domain/forecast"
	"econcal/pkg/errors"
)

// Compile-time check
var _ forecast.Repository = (*LiveForecastRepository)(nil)

// LiveForecastRepository implements forecast.Repository
type LiveForecastRepository struct {
	db *sqlx.DB
}

// NewLiveForecastRepository creates a new live forecast repository
func NewLiveForecastRepository(db *sqlx.DB) *LiveForecastRepository {
	return &LiveForecastRepository{db: db}
}

// Replace swaps the stored set for s inside one transaction. Concurrent readers
// see either the previous set or the new one, never a mix.
func (r *LiveForecastRepository) Replace(ctx context.Context, s *forecast.Set) (int, error) {
	items := s.Items()

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM live_forecasts`); err != nil {
			return errors.Wrap(err, "clear live forecasts")
		}
		if len(items) == 0 {
			return nil
		}

		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO live_forecasts (currency, event, forecast_value, updated_at)
			VALUES ($1, $2, $3, NOW())`)
		if err != nil {
			return errors.Wrap(err, "prepare insert")
		}
		defer stmt.Close()

		for _, f := range items {
			if _, err := stmt.ExecContext(ctx, f.Currency, f.Event, f.ForecastValue); err != nil {
				return errors.Wrapf(err, "insert live forecast %s %s", f.Currency, f.Event)
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "replace live forecasts")
	}

	return len(items), nil
}

// List returns the current live forecast set ordered by key
func (r *LiveForecastRepository) List(ctx context.Context) ([]forecast.LiveForecast, error) {
	var out []forecast.LiveForecast
	query := `
		SELECT id, currency, event, forecast_value, updated_at
		FROM live_forecasts
		ORDER BY currency, event`

	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, errors.Wrap(err, "list live forecasts")
	}
	return out, nil
}

// Get returns the live forecast of one key
func (r *LiveForecastRepository) Get(ctx context.Context, currency, event string) (*forecast.LiveForecast, error) {
	var f forecast.LiveForecast
	query := `
		SELECT id, currency, event, forecast_value, updated_at
		FROM live_forecasts
		WHERE currency = $1 AND event = $2`

	err := r.db.GetContext(ctx, &f, query, currency, event)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "live forecast %s %s", currency, event)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get live forecast")
	}
	return &f, nil
}
