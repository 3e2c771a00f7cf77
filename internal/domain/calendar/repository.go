package calendar

import (
	"context"
	"time"
)

// Filter narrows canonical reads
type Filter struct {
	Currency string
	From     time.Time // inclusive, zero = unbounded
	To       time.Time // exclusive, zero = unbounded
	Limit    int
}

// Repository defines access to the canonical event store
type Repository interface {
	// ListPartition returns every stored row of a partition (the "main" side of a merge)
	ListPartition(ctx context.Context, key PartitionKey) ([]EconomicEvent, error)

	// ApplyPartition upserts rows of one partition in a single transaction and
	// returns the number of rows written
	ApplyPartition(ctx context.Context, key PartitionKey, rows []EconomicEvent) (int64, error)

	// CountDuplicateKeys returns how many identity keys of a partition occur more than once
	CountDuplicateKeys(ctx context.Context, key PartitionKey) (int, error)

	List(ctx context.Context, filter Filter) ([]EconomicEvent, error)
	ListFormatted(ctx context.Context, filter Filter) ([]FormattedEvent, error)
}
