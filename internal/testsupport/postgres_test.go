package testsupport

import (
	"context"
	"fmt"
	"testing"
)

func TestPostgresDeleteOnCleanup(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	configs := LoadDatabaseConfigsFromEnv(t)
	outer := NewPostgresTestHelper(t, configs.Postgres)
	ctx := context.Background()

	table := fmt.Sprintf("integration_cleanup_%d", NextSequence())
	if _, err := outer.DB().ExecContext(ctx, "CREATE TABLE "+table+" (currency TEXT NOT NULL)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	t.Cleanup(func() { _, _ = outer.DB().ExecContext(context.Background(), "DROP TABLE IF EXISTS "+table) })

	mine, other := UniqueCurrency(), UniqueCurrency()

	t.Run("scoped", func(t *testing.T) {
		helper := NewPostgresTestHelper(t, configs.Postgres)
		helper.DeleteOnCleanup("currency", mine, table)

		for _, c := range []string{mine, mine, other} {
			if _, err := helper.DB().ExecContext(ctx, "INSERT INTO "+table+" (currency) VALUES ($1)", c); err != nil {
				t.Fatalf("failed to insert row: %v", err)
			}
		}
	})

	var remaining []string
	if err := outer.DB().SelectContext(ctx, &remaining, "SELECT currency FROM "+table); err != nil {
		t.Fatalf("failed to list rows: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != other {
		t.Fatalf("expected only %s to remain, got %v", other, remaining)
	}
}
