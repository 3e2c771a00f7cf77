package ingest

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"econcal/internal/pipeline"
	"econcal/internal/workers"
	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.RunReport, error)
}

// Worker picks up calendar files and the run output document from an inbox
// directory and feeds them to one pipeline run per tick. Files of a
// successful run move to <inbox>/processed/<run id>; a failed run leaves them
// in place for the next tick. Files that cannot be read at all move to
// <inbox>/rejected so they do not block later ticks.
type Worker struct {
	*workers.BaseWorker
	runner Runner
	inbox  string
}

// NewWorker creates the ingest worker
func NewWorker(runner Runner, inbox string, interval time.Duration, enabled bool, log *logger.Logger) *Worker {
	return &Worker{
		BaseWorker: workers.NewBaseWorker("pipeline_ingest", interval, enabled, log),
		runner:     runner,
		inbox:      inbox,
	}
}

// Run implements workers.Worker
func (w *Worker) Run(ctx context.Context) error {
	calendars, results, err := pipeline.ScanDir(w.inbox)
	if err != nil {
		return err
	}
	if len(calendars) == 0 && results == "" {
		w.Log().Debugw("Inbox empty", "inbox", w.inbox)
		return nil
	}

	in := pipeline.Input{}
	loaded := make([]string, 0, len(calendars)+1)
	for _, path := range calendars {
		b, err := pipeline.LoadFile(path)
		if err != nil {
			if err := w.reject(path, err); err != nil {
				return err
			}
			continue
		}
		in.Batches = append(in.Batches, b)
		loaded = append(loaded, path)
	}
	if results != "" {
		out, err := pipeline.ReadRunOutput(results)
		if err != nil {
			if err := w.reject(results, err); err != nil {
				return err
			}
		} else {
			in.Results = out
			loaded = append(loaded, results)
		}
	}
	if len(loaded) == 0 {
		return nil
	}

	report, err := w.runner.Run(ctx, in)
	if report != nil {
		w.RecordRunID(report.RunID)
	}
	if err != nil {
		return errors.Wrap(err, "pipeline run")
	}

	return w.archive(report.RunID, loaded)
}

func (w *Worker) reject(path string, cause error) error {
	dest := filepath.Join(w.inbox, "rejected")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dest)
	}
	if err := os.Rename(path, filepath.Join(dest, filepath.Base(path))); err != nil {
		return errors.Wrapf(err, "move %s", path)
	}

	w.Log().Warnw("Unreadable inbox file rejected", "file", filepath.Base(path), "error", cause, "moved_to", dest)
	return nil
}

func (w *Worker) archive(runID string, files []string) error {
	dest := filepath.Join(w.inbox, "processed", runID)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dest)
	}

	for _, f := range files {
		if err := os.Rename(f, filepath.Join(dest, filepath.Base(f))); err != nil {
			return errors.Wrapf(err, "move %s", f)
		}
	}

	w.Log().Infow("Inbox processed", "run_id", runID, "files", len(files), "archive", dest)
	return nil
}
