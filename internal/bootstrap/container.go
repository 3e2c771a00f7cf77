package bootstrap

import (
	"context"

	"github.com/alitto/pond/v2"

	chclient "econcal/internal/adapters/clickhouse"
	"econcal/internal/adapters/config"
	"econcal/internal/adapters/kafka"
	pgclient "econcal/internal/adapters/postgres"
	redisclient "econcal/internal/adapters/redis"
	"econcal/internal/api"
	"econcal/internal/api/health"
	"econcal/internal/pipeline"
	pgrepo "econcal/internal/repository/postgres"
	"econcal/internal/workers"
	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Data stores). CH and Redis are nil when disabled
	// or unreachable at startup.
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	// Domain Layer - Repositories
	Repos *Repositories

	// Pipeline
	Pool          pond.Pool
	KafkaProducer *kafka.Producer
	Sinks         pipeline.Sinks
	Runner        *pipeline.Runner

	// Application Layer, built only by the long-running service
	Health     *health.Handler
	HTTPServer *api.Server
	Scheduler  *workers.Scheduler

	// Lifecycle management
	Lifecycle *Lifecycle
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups the Postgres repositories
type Repositories struct {
	Events    *pgrepo.EventRepository
	Metrics   *pgrepo.MetricsRepository
	Forecasts *pgrepo.LiveForecastRepository
}

// NewContainer creates an empty container bound to ctx
func NewContainer(ctx context.Context) *Container {
	ctx, cancel := context.WithCancel(ctx)
	return &Container{
		Lifecycle: NewLifecycle(),
		Context:   ctx,
		Cancel:    cancel,
	}
}

// InitPipeline runs every phase a one-shot command needs
func (c *Container) InitPipeline() error {
	if err := c.InitConfig(); err != nil {
		return err
	}
	if err := c.InitInfrastructure(); err != nil {
		return err
	}
	c.InitRepositories()
	c.InitSinks()
	c.InitRunner()
	return nil
}

// Close releases everything the container opened
func (c *Container) Close() {
	c.Cancel()
	c.Lifecycle.Shutdown(c)
}
