package forecast

import (
	"context"
)

// Repository holds exactly the live forecast set of the latest run
type Repository interface {
	// Replace atomically swaps the stored set for s. Keys absent from s are removed.
	Replace(ctx context.Context, s *Set) (int, error)
	List(ctx context.Context) ([]LiveForecast, error)
	Get(ctx context.Context, currency, event string) (*LiveForecast, error)
}

// Cache keeps a read-side snapshot of the live set written after each replace
type Cache interface {
	Snapshot(ctx context.Context, items []LiveForecast) error
	Load(ctx context.Context) ([]LiveForecast, error)
}
