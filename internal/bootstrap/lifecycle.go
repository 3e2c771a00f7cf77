package bootstrap

import (
	"context"
	"time"

	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// Lifecycle manages graceful startup and shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 150 * time.Second,
	}
}

// Shutdown performs coordinated cleanup of all components in the correct order.
// A run in flight must finish its partition commits before the stores close:
// 1. No new requests accepted
// 2. Scheduler stops and waits for the running ingest
// 3. Worker pool drains
// 4. Producer flushes run notifications
// 5. Errors and logs flushed
// 6. Database connections last
// Components that were never built are skipped.
func (l *Lifecycle) Shutdown(c *Container) {
	log := c.Log
	if log == nil {
		log = logger.Nop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	if c.HTTPServer != nil {
		log.Info("[1/6] Stopping HTTP server...")
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		if err := c.HTTPServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		} else {
			log.Info("✓ HTTP server stopped")
		}
		httpCancel()
	}

	if c.Scheduler != nil && c.Scheduler.IsRunning() {
		log.Info("[2/6] Stopping background workers...")
		if err := c.Scheduler.Stop(); err != nil {
			log.Errorw("Workers shutdown failed", "error", err)
		} else {
			log.Info("✓ Workers stopped")
		}
	}

	if c.Pool != nil {
		log.Info("[3/6] Draining worker pool...")
		c.Pool.StopAndWait()
		log.Info("✓ Worker pool drained")
	}

	if c.KafkaProducer != nil {
		log.Info("[4/6] Closing Kafka producer...")
		if err := c.KafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	log.Info("[5/6] Flushing error tracker...")
	l.flushErrorTracker(shutdownCtx, c, log)

	log.Info("[6/6] Closing database connections...")
	l.closeDatabases(c, log)

	_ = logger.Sync()
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, c *Container, log *logger.Logger) {
	if c.ErrorTracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := c.ErrorTracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}

// closeDatabases closes all database connections
func (l *Lifecycle) closeDatabases(c *Container, log *logger.Logger) {
	var dbErrors errors.MultiError

	if c.PG != nil {
		dbErrors.Add(errors.Wrap(c.PG.Close(), "postgres"))
	}
	if c.CH != nil {
		dbErrors.Add(errors.Wrap(c.CH.Close(), "clickhouse"))
	}
	if c.Redis != nil {
		dbErrors.Add(errors.Wrap(c.Redis.Close(), "redis"))
	}

	if err := dbErrors.ToError(); err != nil {
		log.Errorw("Database close errors", "error", err)
	} else {
		log.Info("✓ Database connections closed")
	}
}
