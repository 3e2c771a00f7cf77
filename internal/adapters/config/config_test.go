package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econcal/pkg/errors"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_USER", "econcal")
	t.Setenv("POSTGRES_PASSWORD", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "econcal", cfg.App.Name)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "forex_events", cfg.Postgres.Database)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 24*time.Hour, cfg.Pipeline.Interval)
	assert.False(t, cfg.ClickHouse.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "econcal.runs", cfg.Kafka.RunTopic)
}

func TestLoad_OptionalSinks(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CLICKHOUSE_HOST", "ch")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.ClickHouse.Enabled())
}

func TestLoad_RejectsNonPositiveWorkers(t *testing.T) {
	setRequired(t)
	t.Setenv("PIPELINE_WORKERS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestPostgresConfig_DSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=require", c.DSN())
}
