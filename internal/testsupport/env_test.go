package testsupport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func setPostgresEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_USER", "user")
	t.Setenv("POSTGRES_PASSWORD", "pass")
	t.Setenv("POSTGRES_DB", "forex_events_test")
}

func TestLoadDatabaseConfigsFromEnv(t *testing.T) {
	setPostgresEnv(t)
	t.Setenv("POSTGRES_PORT", "5543")
	t.Setenv("CLICKHOUSE_HOST", "click")
	t.Setenv("CLICKHOUSE_PORT", "8123")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_DB", "2")

	cfg := LoadDatabaseConfigsFromEnv(t)

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5543, cfg.Postgres.Port)
	assert.Equal(t, "forex_events_test", cfg.Postgres.Database)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)

	assert.True(t, cfg.ClickHouse.Enabled())
	assert.Equal(t, 8123, cfg.ClickHouse.Port)
	assert.Equal(t, "econcal", cfg.ClickHouse.Database)

	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "redis:6379", cfg.Redis.Addr())
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadDatabaseConfigsFromEnv_OptionalStoresOff(t *testing.T) {
	setPostgresEnv(t)
	t.Setenv("CLICKHOUSE_HOST", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("POSTGRES_PORT", "not-a-port")

	cfg := LoadDatabaseConfigsFromEnv(t)

	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.False(t, cfg.ClickHouse.Enabled())
	assert.False(t, cfg.Redis.Enabled())
}
