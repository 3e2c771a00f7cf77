package bootstrap

import (
	"context"

	"github.com/alitto/pond/v2"

	chclient "econcal/internal/adapters/clickhouse"
	"econcal/internal/adapters/config"
	errnoop "econcal/internal/adapters/errors/noop"
	"econcal/internal/adapters/errors/sentry"
	"econcal/internal/adapters/kafka"
	pgclient "econcal/internal/adapters/postgres"
	redisclient "econcal/internal/adapters/redis"
	"econcal/internal/api"
	"econcal/internal/api/health"
	"econcal/internal/events"
	"econcal/internal/merge"
	"econcal/internal/metrics"
	"econcal/internal/pipeline"
	chrepo "econcal/internal/repository/clickhouse"
	pgrepo "econcal/internal/repository/postgres"
	redisrepo "econcal/internal/repository/redis"
	"econcal/internal/workers"
	"econcal/internal/workers/ingest"
	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// InitConfig loads configuration, the global logger and the error tracker
func (c *Container) InitConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return errors.Wrap(err, "failed to init logger")
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
	return nil
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// InitInfrastructure connects to Postgres and to the optional stores.
// Postgres is required; ClickHouse and Redis only feed best-effort sinks, so a
// failed connection is logged and the sink stays off.
func (c *Container) InitInfrastructure() error {
	var err error

	c.Log.Info("Connecting to PostgreSQL...")
	c.PG, err = pgclient.NewClient(c.Config.Postgres)
	if err != nil {
		return errors.Wrap(err, "failed to connect postgres")
	}
	c.Log.Info("✓ PostgreSQL connected")

	if c.Config.ClickHouse.Enabled() {
		c.Log.Info("Connecting to ClickHouse...")
		if c.CH, err = chclient.NewClient(c.Context, c.Config.ClickHouse); err != nil {
			c.Log.Warnw("ClickHouse unavailable, metrics archive disabled", "error", err)
			c.CH = nil
		} else {
			c.Log.Info("✓ ClickHouse connected")
		}
	}

	if c.Config.Redis.Enabled() {
		c.Log.Info("Connecting to Redis...")
		if c.Redis, err = redisclient.NewClient(c.Context, c.Config.Redis); err != nil {
			c.Log.Warnw("Redis unavailable, forecast cache disabled", "error", err)
			c.Redis = nil
		} else {
			c.Log.Info("✓ Redis connected")
		}
	}

	return nil
}

// ========================================
// Phase 3: Domain Layer - Repositories
// ========================================

// InitRepositories initializes the Postgres repositories
func (c *Container) InitRepositories() {
	db := c.PG.DB()
	c.Repos = &Repositories{
		Events:    pgrepo.NewEventRepository(db),
		Metrics:   pgrepo.NewMetricsRepository(db),
		Forecasts: pgrepo.NewLiveForecastRepository(db),
	}
	c.Log.Info("✓ Repositories initialized")
}

// ========================================
// Phase 4: Pipeline
// ========================================

// InitSinks wires the optional run consumers
func (c *Container) InitSinks() {
	if c.CH != nil {
		archive := chrepo.NewMetricsArchive(c.CH.Conn())
		if err := archive.EnsureSchema(c.Context); err != nil {
			c.Log.Warnw("Failed to prepare metrics archive, archive disabled", "error", err)
		} else {
			c.Sinks.Archive = archive
			c.Log.Info("✓ Metrics archive enabled (ClickHouse)")
		}
	}

	if c.Redis != nil {
		c.Sinks.Cache = redisrepo.NewForecastCache(c.Redis.Client(), c.Config.Redis.ForecastTTL)
		c.Log.Info("✓ Forecast cache enabled (Redis)")
	}

	if c.Config.Kafka.Enabled() {
		c.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
		c.Sinks.Notifier = events.NewRunPublisher(c.KafkaProducer, c.Config.Kafka.RunTopic, c.Log)
		c.Log.Infow("✓ Run notifications enabled (Kafka)", "topic", c.Config.Kafka.RunTopic)
	}
}

// InitRunner builds the worker pool and the pipeline runner
func (c *Container) InitRunner() {
	c.Pool = pond.NewPool(c.Config.Pipeline.Workers)

	granularity := merge.ByCurrency
	if c.Config.Pipeline.PartitionByMonth {
		granularity = merge.ByCurrencyMonth
	}

	c.Runner = pipeline.NewRunner(pipeline.Deps{
		Events:      c.Repos.Events,
		Metrics:     c.Repos.Metrics,
		Forecasts:   c.Repos.Forecasts,
		Pool:        c.Pool,
		Granularity: granularity,
		Sinks:       c.Sinks,
		Tracker:     c.ErrorTracker,
		Log:         c.Log,
	})
	c.Log.Infow("✓ Pipeline runner initialized",
		"workers", c.Config.Pipeline.Workers,
		"partition_by_month", c.Config.Pipeline.PartitionByMonth,
	)
}

// ========================================
// Phase 5: Application Layer
// ========================================

// maxIngestFailures marks the service degraded after this many failed inbox runs in a row
const maxIngestFailures = 3

// InitApplication builds health checks, the HTTP server and the scheduler
func (c *Container) InitApplication() {
	metrics.Init()
	metrics.RegisterStoreCollector(metrics.NewStoreCollector(c.Log, c.PG.DB()))

	ingestWorker := ingest.NewWorker(
		c.Runner,
		c.Config.Pipeline.InputDir,
		c.Config.Pipeline.Interval,
		true,
		c.Log,
	)
	c.Scheduler = workers.NewScheduler(c.Log)
	c.Scheduler.RegisterWorker(ingestWorker)

	c.Health = provideHealth(c).
		Optional(ingestWorker.Name(), workers.HealthCheck(ingestWorker, maxIngestFailures))
	c.HTTPServer = api.NewServer(api.ServerConfig{
		Addr:        c.Config.Metrics.Addr,
		ServiceName: c.Config.App.Name,
		Version:     c.Config.App.Version,
	}, c.Health, api.Readers{
		Events:    c.Repos.Events,
		Forecasts: c.Repos.Forecasts,
	}, c.Log)
	c.Log.Info("✓ Application layer initialized")
}

// ========================================
// Helper Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	log.Info("Initializing Kafka producer...")
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
	}, log)
	log.Info("✓ Kafka producer initialized")
	return producer
}

func provideHealth(c *Container) *health.Handler {
	h := health.New(c.Log, c.Config.App.Name, c.Config.App.Version).
		Require("postgres", c.PG.Health)

	// Configured sinks that failed to connect still show up as degraded.
	if c.Config.ClickHouse.Enabled() {
		h.Optional("clickhouse", optionalCheck(c.CH != nil, "clickhouse", func() health.Check { return c.CH.Health }))
	}
	if c.Config.Redis.Enabled() {
		h.Optional("redis", optionalCheck(c.Redis != nil, "redis", func() health.Check { return c.Redis.Health }))
	}
	return h
}

func optionalCheck(connected bool, name string, check func() health.Check) health.Check {
	if connected {
		return check()
	}
	return func(_ context.Context) error {
		return errors.Wrapf(errors.ErrUnavailable, "%s not connected", name)
	}
}
