package metrics

import (
	"context"
)

// Repository defines append-only storage of per-stage metrics
type Repository interface {
	// Append validates records and inserts the valid ones in one transaction.
	// Rejected records are reported in the result, never written.
	Append(ctx context.Context, stage Stage, records []Record) (AppendResult, error)

	Count(ctx context.Context, stage Stage) (int64, error)

	// History returns the most recent records of one (currency, event), newest first
	History(ctx context.Context, stage Stage, currency, event string, limit int) ([]Record, error)
}

// Archive mirrors appended records to an analytics store. Mirroring is best
// effort: the relational tables stay the source of truth.
type Archive interface {
	Archive(ctx context.Context, stage Stage, records []Record) error
}
