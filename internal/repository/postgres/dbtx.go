package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"econcal/pkg/errors"
)

// withTx runs fn in a transaction that is committed only when fn succeeds.
// Any error, including a cancelled ctx, leaves the database untouched.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
