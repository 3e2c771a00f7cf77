package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"econcal/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
	Pipeline      PipelineConfig
	Metrics       MetricsConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"econcal"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" default:"forex_events"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ClickHouseConfig configures the optional metrics archive. Disabled when Host is empty.
type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"econcal"`
}

func (c ClickHouseConfig) Enabled() bool { return c.Host != "" }

// RedisConfig configures the optional live forecast cache. Disabled when Host is empty.
type RedisConfig struct {
	Host        string        `envconfig:"REDIS_HOST"`
	Port        int           `envconfig:"REDIS_PORT" default:"6379"`
	Password    string        `envconfig:"REDIS_PASSWORD"`
	DB          int           `envconfig:"REDIS_DB" default:"0"`
	ForecastTTL time.Duration `envconfig:"REDIS_FORECAST_TTL" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }

// KafkaConfig configures run notifications. Disabled when no brokers are set.
type KafkaConfig struct {
	Brokers  []string `envconfig:"KAFKA_BROKERS"`
	RunTopic string   `envconfig:"KAFKA_RUN_TOPIC" default:"econcal.runs"`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// PipelineConfig controls one run of repair -> merge -> persist
type PipelineConfig struct {
	Workers          int           `envconfig:"PIPELINE_WORKERS" default:"4"`
	PartitionByMonth bool          `envconfig:"PIPELINE_PARTITION_BY_MONTH" default:"false"`
	Interval         time.Duration `envconfig:"PIPELINE_INTERVAL" default:"24h"`
	ReaderRole       string        `envconfig:"PIPELINE_READER_ROLE"`
	InputDir         string        `envconfig:"PIPELINE_INPUT_DIR" default:"./data/incoming"`
	ResultsFile      string        `envconfig:"PIPELINE_RESULTS_FILE"`
}

type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR" default:":9102"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if cfg.Pipeline.Workers <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "PIPELINE_WORKERS must be positive, got %d", cfg.Pipeline.Workers)
	}

	return &cfg, nil
}
