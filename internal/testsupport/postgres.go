package testsupport

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"econcal/internal/adapters/config"
	"econcal/internal/adapters/postgres"
)

// PostgresTestHelper connects integration tests to Postgres. Repositories under
// test commit their own transactions, so tests isolate themselves by writing
// under a unique key and deleting those rows on cleanup.
type PostgresTestHelper struct {
	t         *testing.T
	client    *postgres.Client
	closeOnce sync.Once
}

// NewPostgresTestHelper opens a connection that is closed when the test ends.
func NewPostgresTestHelper(t *testing.T, cfg config.PostgresConfig) *PostgresTestHelper {
	t.Helper()

	client, err := postgres.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to create postgres client: %v", err)
	}

	helper := &PostgresTestHelper{t: t, client: client}
	t.Cleanup(helper.Close)
	return helper
}

// DB returns the underlying database handle.
func (h *PostgresTestHelper) DB() *sqlx.DB {
	return h.client.DB()
}

// DeleteOnCleanup removes the rows matching column = value from every table
// once the test finishes. Cleanups run before the connection closes.
func (h *PostgresTestHelper) DeleteOnCleanup(column string, value interface{}, tables ...string) {
	h.t.Helper()
	h.t.Cleanup(func() {
		ctx := context.Background()
		for _, table := range tables {
			query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, column)
			if _, err := h.client.DB().ExecContext(ctx, query, value); err != nil {
				h.t.Logf("cleanup %s: %v", table, err)
			}
		}
	})
}

// Close releases the connection. Safe to call more than once.
func (h *PostgresTestHelper) Close() {
	h.closeOnce.Do(func() {
		_ = h.client.Close()
	})
}

// NewTestPostgres creates a helper with config loaded from the environment (.env.test).
func NewTestPostgres(t *testing.T) *PostgresTestHelper {
	t.Helper()

	dbConfigs := LoadDatabaseConfigsFromEnv(t)
	return NewPostgresTestHelper(t, dbConfigs.Postgres)
}
