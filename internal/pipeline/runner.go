package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"econcal/internal/adapters/errors/noop"
	"econcal/internal/domain/calendar"
	"econcal/internal/domain/forecast"
	"econcal/internal/domain/metrics"
	"econcal/internal/events"
	"econcal/internal/merge"
	appmetrics "econcal/internal/metrics"
	"econcal/internal/repair"
	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// RunNotifier announces finished runs
type RunNotifier interface {
	PublishRun(ctx context.Context, event events.RunEvent) error
}

// Sinks are optional best-effort consumers of a run. Nil fields are skipped.
type Sinks struct {
	Archive  metrics.Archive
	Cache    forecast.Cache
	Notifier RunNotifier
}

// Deps wires a Runner
type Deps struct {
	Events    calendar.Repository
	Metrics   metrics.Repository
	Forecasts forecast.Repository

	// Pool runs partition work. It is owned by the caller.
	Pool        pond.Pool
	Granularity merge.Granularity

	Sinks   Sinks
	Tracker errors.Tracker
	Log     *logger.Logger
}

// Runner executes one ingestion run: repair, merge, commit per partition,
// then persist model outputs.
type Runner struct {
	events    calendar.Repository
	metrics   metrics.Repository
	forecasts forecast.Repository

	repairer *repair.Repairer
	merger   *merge.Merger
	pool     pond.Pool

	sinks   Sinks
	tracker errors.Tracker
	log     *logger.Logger
}

// NewRunner creates a Runner
func NewRunner(d Deps) *Runner {
	log := d.Log
	if log == nil {
		log = logger.Get()
	}
	tracker := d.Tracker
	if tracker == nil {
		tracker = noop.New()
	}

	return &Runner{
		events:    d.Events,
		metrics:   d.Metrics,
		forecasts: d.Forecasts,
		repairer:  repair.New(log),
		merger:    merge.NewMerger(d.Pool, d.Granularity, log),
		pool:      d.Pool,
		sinks:     d.Sinks,
		tracker:   tracker,
		log:       log.With("component", "pipeline"),
	}
}

// Run executes one run. The report is returned even when the run fails.
//
// Partition failures do not stop other partitions; they fail the run once
// everything else is done and keep the live forecast set untouched. A
// consistency violation halts the run before anything is written.
func (r *Runner) Run(ctx context.Context, in Input) (*RunReport, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = errors.WithRunID(ctx, runID)

	report := newReport(runID)
	log := r.log.With("run_id", runID)
	log.Infow("Run started", "batches", len(in.Batches), "has_results", in.Results != nil)

	err := r.run(ctx, log, in, report)
	report.Duration = time.Since(start)
	appmetrics.RecordRun(report.Duration, report.Degraded, err)

	if err != nil {
		// Logged without the logger's tracker hook; the capture below carries the tags.
		log.SugaredLogger.Errorw("Run failed", append(report.Summary(), "error", err)...)
		_ = r.tracker.CaptureError(ctx, err, map[string]string{
			"component": "pipeline",
			"run_id":    runID,
		})
	} else {
		log.Infow("Run finished", report.Summary()...)
	}

	r.notify(ctx, log, report, err)
	return report, err
}

func (r *Runner) run(ctx context.Context, log *logger.Logger, in Input, report *RunReport) error {
	incremental := r.repairAll(ctx, log, in.Batches, report)

	partitionErr := r.mergeAndCommit(ctx, log, incremental, report)
	if report.Halted {
		return partitionErr
	}
	if err := ctx.Err(); err != nil {
		if partitionErr != nil {
			return partitionErr
		}
		return errors.Wrap(err, "run cancelled")
	}

	if err := r.persistMetrics(ctx, log, in.Results, report); err != nil {
		return err
	}

	if partitionErr != nil {
		if in.Results != nil && in.Results.LiveForecasts != nil {
			report.ForecastsSkipped = true
			log.Warnw("Live forecasts not replaced, partitions failed", "failed", report.Failed())
		}
		return partitionErr
	}

	return r.replaceForecasts(ctx, log, in.Results, report)
}

// repairAll stamps provenance on every batch and repairs it. Stored rows rank
// as sequence 0, batch i as i+1. A batch refused as a whole degrades the run.
func (r *Runner) repairAll(ctx context.Context, log *logger.Logger, batches []repair.RawBatch, report *RunReport) []calendar.EconomicEvent {
	var incremental []calendar.EconomicEvent

	for i := range batches {
		b := batches[i]
		b.Ref.Seq = uint64(i + 1)
		if b.Ref.ID == "" {
			b.Ref.ID = uuid.NewString()
		}

		br := BatchReport{Source: b.Source, Seq: b.Ref.Seq, Total: b.Len()}

		res, err := r.repairer.Repair(b)
		if err != nil {
			br.Error = err.Error()
			br.Rejected = b.Len()
			report.Rejected += b.Len()
			report.Degraded = true
			report.Batches = append(report.Batches, br)
			log.Warnw("Batch refused", "source", b.Source, "error", err)
			continue
		}

		br.Repaired = res.Repaired()
		br.Rejected = res.Rejected()
		report.Repaired += br.Repaired
		report.Rejected += br.Rejected
		report.Batches = append(report.Batches, br)
		appmetrics.RecordRepair(b.Source, br.Repaired, br.Rejected)

		for _, rej := range res.Rejections {
			log.Debugw("Row rejected", "source", b.Source, "row", rej.Row, "reason", rej.Reason)
		}

		incremental = append(incremental, res.Events...)
	}

	r.tracker.AddBreadcrumb(ctx, "repair finished", "pipeline", errors.LevelInfo, map[string]interface{}{
		"repaired": report.Repaired,
		"rejected": report.Rejected,
	})
	return incremental
}

type commitOutcome struct {
	written int64
	changed int
	err     error
}

// mergeAndCommit loads the stored side of every touched partition, merges it
// with the incremental rows and commits each partition in its own transaction.
func (r *Runner) mergeAndCommit(ctx context.Context, log *logger.Logger, incremental []calendar.EconomicEvent, report *RunReport) error {
	if len(incremental) == 0 {
		return nil
	}

	parts := r.merger.Granularity().Split(incremental)
	keys := make([]calendar.PartitionKey, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sortPartitionKeys(keys)
	report.Partitions = len(keys)

	var failures errors.MultiError
	fail := func(k calendar.PartitionKey, err error) {
		report.FailedPartitions[k.String()] = err.Error()
		failures.Add(err)
	}

	// Stored rows of each touched partition
	stored := xsync.NewMap[calendar.PartitionKey, []calendar.EconomicEvent]()
	loadErrs := xsync.NewMap[calendar.PartitionKey, error]()
	if err := r.forEach(ctx, keys, func(ctx context.Context, k calendar.PartitionKey) {
		rows, err := r.events.ListPartition(ctx, k)
		if err != nil {
			loadErrs.Store(k, errors.Classify(err, errors.ErrPartitionCommit, "load partition %s", k))
			return
		}
		stored.Store(k, rows)
	}); err != nil {
		return errors.Wrap(err, "load partitions")
	}

	var main, incr []calendar.EconomicEvent
	for _, k := range keys {
		if err, ok := loadErrs.Load(k); ok {
			fail(k, err)
			continue
		}
		rows, _ := stored.Load(k)
		main = append(main, rows...)
		incr = append(incr, parts[k]...)
	}

	ds, err := r.merger.MergeParallel(ctx, main, incr)
	if err != nil {
		return err
	}

	for _, k := range sortedFailedKeys(ds.Failed) {
		err := ds.Failed[k]
		if errors.Is(err, errors.ErrConsistencyViolation) {
			report.Halted = true
		}
		fail(k, err)
	}
	if report.Halted {
		report.Degraded = true
		log.Warnw("Consistency violation, run halted before commit", "failed", report.Failed())
		return errors.Wrap(failures.ToError(), "merge")
	}

	r.tracker.AddBreadcrumb(ctx, "merge finished", "pipeline", errors.LevelInfo, map[string]interface{}{
		"partitions": len(ds.Partitions),
		"changed":    ds.ChangedCount(),
	})

	outcomes := xsync.NewMap[calendar.PartitionKey, commitOutcome]()
	if err := r.forEach(ctx, ds.Keys(), func(ctx context.Context, k calendar.PartitionKey) {
		outcomes.Store(k, r.commit(ctx, ds.Partitions[k]))
	}); err != nil {
		return errors.Wrap(err, "commit partitions")
	}

	for _, k := range ds.Keys() {
		out, ok := outcomes.Load(k)
		if !ok {
			continue
		}
		appmetrics.RecordPartition(out.written, out.changed, out.err)

		switch {
		case out.err != nil:
			if errors.Is(out.err, errors.ErrConsistencyViolation) {
				report.Halted = true
			}
			log.Warnw("Partition failed", "partition", k.String(), "error", out.err)
			fail(k, out.err)
		case out.changed == 0:
			report.Unchanged++
		default:
			report.Committed++
			report.RowsWritten += out.written
		}
	}

	if failures.HasErrors() {
		report.Degraded = true
		return errors.Wrapf(failures.ToError(), "%d of %d partitions failed", len(report.FailedPartitions), report.Partitions)
	}
	return nil
}

// commit writes the changed rows of one partition and probes it for duplicate keys
func (r *Runner) commit(ctx context.Context, p *merge.Partition) commitOutcome {
	out := commitOutcome{changed: len(p.Changed)}
	if out.changed == 0 {
		return out
	}

	written, err := r.events.ApplyPartition(ctx, p.Key, p.Changed)
	if err != nil {
		if !errors.Is(err, errors.ErrPartitionCommit) {
			err = errors.Classify(err, errors.ErrPartitionCommit, "partition %s", p.Key)
		}
		out.err = err
		return out
	}
	out.written = written

	dupes, err := r.events.CountDuplicateKeys(ctx, p.Key)
	if err != nil {
		out.err = errors.Classify(err, errors.ErrPartitionCommit, "probe partition %s", p.Key)
		return out
	}
	if dupes > 0 {
		out.err = errors.Wrapf(errors.ErrConsistencyViolation, "partition %s holds %d duplicated keys after commit", p.Key, dupes)
	}
	return out
}

// forEach runs fn for every key on the pool and waits for all of them.
// It returns ctx's error when the run was cancelled.
func (r *Runner) forEach(ctx context.Context, keys []calendar.PartitionKey, fn func(ctx context.Context, k calendar.PartitionKey)) error {
	group := r.pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	for _, key := range keys {
		k := key
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			fn(groupCtx, k)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		r.log.Warnw("Partition group encountered error", "error", err)
	}
	return ctx.Err()
}

// persistMetrics appends every stage of the run output. Invalid records
// degrade the run; a failed append fails it.
func (r *Runner) persistMetrics(ctx context.Context, log *logger.Logger, out *RunOutput, report *RunReport) error {
	if out == nil {
		return nil
	}

	for _, stage := range metrics.Stages {
		records, ok := out.StageMetrics[stage]
		if !ok {
			continue
		}

		res, err := r.metrics.Append(ctx, stage, records)
		if err != nil {
			return errors.Wrapf(err, "persist %s metrics", stage)
		}

		report.Metrics[stage] = res
		report.MetricsInserted += res.Inserted
		report.MetricsRejected += len(res.Rejected)
		appmetrics.RecordMetricsAppend(stage.String(), res.Inserted, len(res.Rejected))

		if res.Degraded() {
			report.Degraded = true
			for _, rej := range res.Rejected {
				log.Warnw("Metrics record rejected", "stage", stage, "index", rej.Index, "error", rej.Err)
			}
		}

		r.archive(ctx, log, stage, records)
	}
	return nil
}

func (r *Runner) archive(ctx context.Context, log *logger.Logger, stage metrics.Stage, records []metrics.Record) {
	if r.sinks.Archive == nil {
		return
	}
	valid, _ := metrics.Split(stage, records)
	if err := r.sinks.Archive.Archive(ctx, stage, valid); err != nil {
		log.Warnw("Metrics archive failed", "stage", stage, "error", err)
	}
}

// replaceForecasts swaps the live set when the run output carries one
func (r *Runner) replaceForecasts(ctx context.Context, log *logger.Logger, out *RunOutput, report *RunReport) error {
	if out == nil || out.LiveForecasts == nil {
		return nil
	}

	set := forecast.NewSet(out.LiveForecasts)
	for _, rej := range set.Rejected() {
		log.Warnw("Live forecast rejected", "index", rej.Index, "error", rej.Err)
	}
	if len(set.Rejected()) > 0 {
		report.Degraded = true
		report.ForecastsRejected = len(set.Rejected())
	}

	n, err := r.forecasts.Replace(ctx, set)
	if err != nil {
		return errors.Wrap(err, "replace live forecasts")
	}
	report.ForecastsReplaced = n
	appmetrics.ForecastsReplaced.Set(float64(n))

	if r.sinks.Cache != nil {
		if err := r.sinks.Cache.Snapshot(ctx, set.Items()); err != nil {
			log.Warnw("Live forecast cache not refreshed", "error", err)
		}
	}
	return nil
}

func (r *Runner) notify(ctx context.Context, log *logger.Logger, report *RunReport, runErr error) {
	if r.sinks.Notifier == nil {
		return
	}

	ev := events.RunEvent{
		Type:              events.RunCompleted,
		RunID:             report.RunID,
		Repaired:          report.Repaired,
		Rejected:          report.Rejected,
		Committed:         report.Committed,
		FailedPartitions:  report.Failed(),
		MetricsInserted:   report.MetricsInserted,
		ForecastsReplaced: report.ForecastsReplaced,
		DurationMs:        report.Duration.Milliseconds(),
	}
	switch {
	case runErr != nil:
		ev.Type = events.RunFailed
		ev.Error = runErr.Error()
	case report.Degraded:
		ev.Type = events.RunDegraded
	}

	// The run context may already be cancelled; the notification still goes out.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := r.sinks.Notifier.PublishRun(nctx, ev); err != nil {
		log.Warnw("Run notification failed", "error", err)
	}
}

func sortPartitionKeys(keys []calendar.PartitionKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Currency != keys[j].Currency {
			return keys[i].Currency < keys[j].Currency
		}
		return keys[i].Month < keys[j].Month
	})
}

func sortedFailedKeys(m map[calendar.PartitionKey]error) []calendar.PartitionKey {
	keys := make([]calendar.PartitionKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortPartitionKeys(keys)
	return keys
}
