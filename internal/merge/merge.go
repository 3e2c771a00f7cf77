package merge

import (
	"sort"

	"econcal/internal/domain/calendar"
	"econcal/pkg/errors"
)

// Granularity controls how the canonical dataset is split into partitions
type Granularity int

const (
	ByCurrency Granularity = iota
	ByCurrencyMonth
)

// KeyOf returns the partition an event belongs to
func (g Granularity) KeyOf(e calendar.EconomicEvent) calendar.PartitionKey {
	if g == ByCurrencyMonth {
		return calendar.PartitionKey{Currency: e.Currency, Month: e.Date.Format("2006-01")}
	}
	return calendar.PartitionKey{Currency: e.Currency}
}

// Split groups events by partition, preserving input order within each group
func (g Granularity) Split(events []calendar.EconomicEvent) map[calendar.PartitionKey][]calendar.EconomicEvent {
	out := make(map[calendar.PartitionKey][]calendar.EconomicEvent)
	for _, e := range events {
		k := g.KeyOf(e)
		out[k] = append(out[k], e)
	}
	return out
}

// Partition is the merged content of one partition
type Partition struct {
	Key calendar.PartitionKey

	// Rows is the full merged partition, one row per identity key, in chronological order
	Rows []calendar.EconomicEvent

	// Changed holds the rows that differ from the main side and must be written
	Changed []calendar.EconomicEvent
}

// Dataset is the outcome of merging main and incremental rows
type Dataset struct {
	Partitions map[calendar.PartitionKey]*Partition
	Failed     map[calendar.PartitionKey]error
}

func newDataset() *Dataset {
	return &Dataset{
		Partitions: make(map[calendar.PartitionKey]*Partition),
		Failed:     make(map[calendar.PartitionKey]error),
	}
}

// Keys returns merged partition keys in a stable order
func (d *Dataset) Keys() []calendar.PartitionKey {
	keys := make([]calendar.PartitionKey, 0, len(d.Partitions))
	for k := range d.Partitions {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// Events flattens every merged partition in chronological order
func (d *Dataset) Events() []calendar.EconomicEvent {
	var out []calendar.EconomicEvent
	for _, p := range d.Partitions {
		out = append(out, p.Rows...)
	}
	sort.SliceStable(out, func(i, j int) bool { return calendar.Less(out[i], out[j]) })
	return out
}

// ChangedCount returns the size of the write set across partitions
func (d *Dataset) ChangedCount() int {
	n := 0
	for _, p := range d.Partitions {
		n += len(p.Changed)
	}
	return n
}

func sortKeys(keys []calendar.PartitionKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Currency != keys[j].Currency {
			return keys[i].Currency < keys[j].Currency
		}
		return keys[i].Month < keys[j].Month
	})
}

// Merge combines stored and incremental rows partitioned by currency
func Merge(main, incremental []calendar.EconomicEvent) *Dataset {
	return MergeWith(ByCurrency, main, incremental)
}

// MergeWith combines stored and incremental rows using granularity g
func MergeWith(g Granularity, main, incremental []calendar.EconomicEvent) *Dataset {
	mainParts := g.Split(main)
	incrParts := g.Split(incremental)

	ds := newDataset()
	for _, key := range unionKeys(mainParts, incrParts) {
		ds.Partitions[key] = MergePartition(key, mainParts[key], incrParts[key])
	}
	return ds
}

func unionKeys(a, b map[calendar.PartitionKey][]calendar.EconomicEvent) []calendar.PartitionKey {
	seen := make(map[calendar.PartitionKey]struct{}, len(a)+len(b))
	keys := make([]calendar.PartitionKey, 0, len(a)+len(b))
	for _, m := range []map[calendar.PartitionKey][]calendar.EconomicEvent{a, b} {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys
}

// MergePartition merges the rows of a single partition.
//
// Rows sharing an identity key collapse to the row with the highest batch
// sequence. Within one sequence the row that comes later wins, main rows being
// considered before incremental rows. A winner that carries the same content
// as the stored row is not part of the write set.
func MergePartition(key calendar.PartitionKey, main, incremental []calendar.EconomicEvent) *Partition {
	stored := make(map[calendar.Key]calendar.EconomicEvent, len(main))
	winners := make(map[calendar.Key]calendar.EconomicEvent, len(main)+len(incremental))

	pick := func(e calendar.EconomicEvent) {
		k := e.Key()
		if cur, ok := winners[k]; ok && cur.Batch.Newer(e.Batch) {
			return
		}
		winners[k] = e
	}

	for _, e := range main {
		k := e.Key()
		if cur, ok := stored[k]; !ok || !cur.Batch.Newer(e.Batch) {
			stored[k] = e
		}
		pick(e)
	}
	for _, e := range incremental {
		pick(e)
	}

	p := &Partition{Key: key, Rows: make([]calendar.EconomicEvent, 0, len(winners))}
	for k, w := range winners {
		if prev, ok := stored[k]; ok {
			if w.ID == 0 {
				w.ID = prev.ID
			}
			if prev.SameContent(w) {
				p.Rows = append(p.Rows, prev)
				continue
			}
		}
		p.Rows = append(p.Rows, w)
		p.Changed = append(p.Changed, w)
	}

	sort.Slice(p.Rows, func(i, j int) bool { return calendar.Less(p.Rows[i], p.Rows[j]) })
	sort.Slice(p.Changed, func(i, j int) bool { return calendar.Less(p.Changed[i], p.Changed[j]) })
	return p
}

// Verify checks that a merged partition holds each identity key once and only
// rows that belong to it.
func Verify(p *Partition) error {
	seen := make(map[calendar.Key]int, len(p.Rows))
	for _, e := range p.Rows {
		if !p.Key.Contains(e) {
			return errors.Wrapf(errors.ErrConsistencyViolation,
				"partition %s holds foreign row %s", p.Key, e.Key())
		}
		seen[e.Key()]++
	}

	dupes := 0
	for _, n := range seen {
		if n > 1 {
			dupes++
		}
	}
	if dupes > 0 {
		return errors.Wrapf(errors.ErrConsistencyViolation,
			"partition %s has %d duplicated identity keys", p.Key, dupes)
	}

	for _, e := range p.Changed {
		if _, ok := seen[e.Key()]; !ok {
			return errors.Wrapf(errors.ErrConsistencyViolation,
				"partition %s writes row %s missing from the merged set", p.Key, e.Key())
		}
	}
	return nil
}
