package workers

import (
	"context"
	"sync"
	"time"

	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// Worker defines the interface for background workers
type Worker interface {
	// Name returns the unique identifier for this worker
	Name() string

	// Run completes one iteration of work and returns.
	// The scheduler calls it again every Interval().
	Run(ctx context.Context) error

	// Interval returns how often this worker should run
	Interval() time.Duration

	// Enabled returns whether this worker is active
	Enabled() bool
}

// WorkerWithHealth extends Worker with health monitoring capabilities
type WorkerWithHealth interface {
	Worker
	Health() WorkerHealth
	RecordRun(duration time.Duration)
	RecordError(err error, duration time.Duration)
}

// WorkerHealth contains health information for a worker
type WorkerHealth struct {
	LastRun     time.Time
	LastRunID   string
	LastError   error
	RunCount    int64
	ErrorCount  int64
	AvgDuration time.Duration
	Enabled     bool

	// ConsecutiveFailures resets on the first successful iteration
	ConsecutiveFailures int64
}

// BaseWorker provides common functionality for workers
type BaseWorker struct {
	name     string
	interval time.Duration
	enabled  bool
	log      *logger.Logger

	healthMu      sync.RWMutex
	lastRun       time.Time
	lastRunID     string
	lastError     error
	runCount      int64
	errorCount    int64
	failStreak    int64
	totalDuration time.Duration
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(name string, interval time.Duration, enabled bool, log *logger.Logger) *BaseWorker {
	if log == nil {
		log = logger.Get()
	}
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		log:      log.With("worker", name),
	}
}

// Name returns the worker name
func (w *BaseWorker) Name() string {
	return w.name
}

// Interval returns the run interval
func (w *BaseWorker) Interval() time.Duration {
	return w.interval
}

// Enabled returns whether the worker is enabled
func (w *BaseWorker) Enabled() bool {
	w.healthMu.RLock()
	defer w.healthMu.RUnlock()
	return w.enabled
}

// SetEnabled updates the enabled status
func (w *BaseWorker) SetEnabled(enabled bool) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()
	w.enabled = enabled
}

// Log returns the logger
func (w *BaseWorker) Log() *logger.Logger {
	return w.log
}

// Health returns health information for the worker
func (w *BaseWorker) Health() WorkerHealth {
	w.healthMu.RLock()
	defer w.healthMu.RUnlock()

	avgDuration := time.Duration(0)
	if w.runCount > 0 {
		avgDuration = time.Duration(int64(w.totalDuration) / w.runCount)
	}

	return WorkerHealth{
		LastRun:             w.lastRun,
		LastRunID:           w.lastRunID,
		LastError:           w.lastError,
		RunCount:            w.runCount,
		ErrorCount:          w.errorCount,
		AvgDuration:         avgDuration,
		Enabled:             w.enabled,
		ConsecutiveFailures: w.failStreak,
	}
}

// RecordRunID remembers the pipeline run an iteration produced
func (w *BaseWorker) RecordRunID(runID string) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()
	w.lastRunID = runID
}

// RecordRun records a successful run
func (w *BaseWorker) RecordRun(duration time.Duration) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.totalDuration += duration
	w.lastError = nil
	w.failStreak = 0
}

// RecordError records a failed run
func (w *BaseWorker) RecordError(err error, duration time.Duration) {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()

	w.lastRun = time.Now()
	w.runCount++
	w.errorCount++
	w.failStreak++
	w.totalDuration += duration
	w.lastError = err
}

// HealthCheck reports a worker as unhealthy once it failed maxFailures
// iterations in a row. The signature matches health.Check.
func HealthCheck(w WorkerWithHealth, maxFailures int64) func(ctx context.Context) error {
	return func(_ context.Context) error {
		h := w.Health()
		if h.ConsecutiveFailures < maxFailures {
			return nil
		}
		return errors.Wrapf(errors.ErrUnavailable, "%s failed %d runs in a row, last error: %v",
			w.Name(), h.ConsecutiveFailures, h.LastError)
	}
}
