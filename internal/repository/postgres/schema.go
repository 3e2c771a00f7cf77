package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"econcal/pkg/errors"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id         SERIAL PRIMARY KEY,
		date       DATE         NOT NULL,
		time       TIME         NOT NULL,
		currency   VARCHAR(10)  NOT NULL,
		event      VARCHAR(255) NOT NULL,
		impact     VARCHAR(20),
		actual     VARCHAR(50),
		forecast   VARCHAR(50),
		previous   VARCHAR(50),
		batch_id   VARCHAR(64),
		updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		CONSTRAINT events_identity UNIQUE (date, time, currency, event)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_currency_date ON events (currency, date)`,

	`CREATE OR REPLACE VIEW events_formatted AS
	SELECT
		id,
		to_char(date, 'FMDD FMMonth YYYY') AS date,
		to_char(time, 'HH24:MI')           AS time,
		currency,
		event,
		impact,
		actual,
		forecast,
		previous
	FROM events`,

	metricsTableDDL("train_metrics"),
	metricsTableDDL("validate_metrics"),
	metricsTableDDL("test_forecasts"),

	`CREATE TABLE IF NOT EXISTS live_forecasts (
		id             SERIAL PRIMARY KEY,
		currency       VARCHAR(10)      NOT NULL,
		event          VARCHAR(255)     NOT NULL,
		forecast_value DOUBLE PRECISION NOT NULL,
		updated_at     TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		CONSTRAINT live_forecasts_identity UNIQUE (currency, event)
	)`,
}

// Metrics tables are append-only logs: no uniqueness on (currency, event)
func metricsTableDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id         SERIAL PRIMARY KEY,
		currency   VARCHAR(10)      NOT NULL,
		event      VARCHAR(255)     NOT NULL,
		r2         DOUBLE PRECISION NOT NULL,
		mse        DOUBLE PRECISION NOT NULL CHECK (mse >= 0),
		samples    INTEGER          NOT NULL CHECK (samples >= 0),
		created_at TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	)`, table)
}

// pipelineRelations are the relations external readers get access to
var pipelineRelations = []string{
	"events", "events_formatted",
	"train_metrics", "validate_metrics", "test_forecasts",
	"live_forecasts",
}

// Migrate creates the schema in one transaction. It is safe to run repeatedly.
// When readerRole is set the role is granted SELECT, INSERT and UPDATE on every
// pipeline relation and nothing more.
func Migrate(ctx context.Context, db *sqlx.DB, readerRole string) error {
	return withTx(ctx, db, func(tx *sqlx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrap(err, "apply schema")
			}
		}

		if readerRole == "" {
			return nil
		}

		for _, stmt := range grantStatements(readerRole) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrapf(err, "grant privileges to %s", readerRole)
			}
		}
		return nil
	})
}

func grantStatements(role string) []string {
	quoted := pq.QuoteIdentifier(role)
	stmts := make([]string, 0, len(pipelineRelations)+1)
	for _, rel := range pipelineRelations {
		stmts = append(stmts, fmt.Sprintf("GRANT SELECT, INSERT, UPDATE ON %s TO %s", rel, quoted))
	}
	stmts = append(stmts, fmt.Sprintf("GRANT USAGE, SELECT ON ALL SEQUENCES IN SCHEMA public TO %s", quoted))
	return stmts
}
