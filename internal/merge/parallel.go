package merge

import (
	"context"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"

	"econcal/internal/domain/calendar"
	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// Merger merges partitions concurrently on a shared worker pool
type Merger struct {
	pool        pond.Pool
	granularity Granularity
	log         *logger.Logger
}

// NewMerger creates a Merger. The pool is owned by the caller.
func NewMerger(pool pond.Pool, granularity Granularity, log *logger.Logger) *Merger {
	if log == nil {
		log = logger.Get()
	}
	return &Merger{
		pool:        pool,
		granularity: granularity,
		log:         log.With("component", "merge"),
	}
}

// Granularity returns the partitioning the merger applies
func (m *Merger) Granularity() Granularity {
	return m.granularity
}

// MergeParallel merges every partition touched by main or incremental rows.
// Each partition is merged and verified independently: a failing partition is
// recorded in Dataset.Failed and never prevents the others from completing.
// An error is returned only when ctx is cancelled before all partitions finish.
func (m *Merger) MergeParallel(ctx context.Context, main, incremental []calendar.EconomicEvent) (*Dataset, error) {
	mainParts := m.granularity.Split(main)
	incrParts := m.granularity.Split(incremental)
	keys := unionKeys(mainParts, incrParts)

	merged := xsync.NewMap[calendar.PartitionKey, *Partition]()
	failed := xsync.NewMap[calendar.PartitionKey, error]()

	group := m.pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, key := range keys {
		k := key
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				failed.Store(k, errors.Wrapf(err, "partition %s not merged", k))
				return
			}

			p, err := m.mergeOne(k, mainParts[k], incrParts[k])
			if err != nil {
				m.log.Warnw("Partition merge failed", "partition", k.String(), "error", err)
				failed.Store(k, err)
				return
			}
			merged.Store(k, p)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		m.log.Warnw("Merge group encountered error", "error", err)
	}

	ds := newDataset()
	merged.Range(func(k calendar.PartitionKey, p *Partition) bool {
		ds.Partitions[k] = p
		return true
	})
	failed.Range(func(k calendar.PartitionKey, err error) bool {
		ds.Failed[k] = err
		return true
	})

	if err := ctx.Err(); err != nil {
		return ds, errors.Wrap(err, "merge cancelled")
	}
	return ds, nil
}

// mergeOne merges and verifies a single partition, converting a panic into an error
func (m *Merger) mergeOne(key calendar.PartitionKey, main, incremental []calendar.EconomicEvent) (p *Partition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(errors.ErrInternal, "partition %s: panic: %v", key, r)
		}
	}()

	p = MergePartition(key, main, incremental)
	if verr := Verify(p); verr != nil {
		return nil, verr
	}
	return p, nil
}
