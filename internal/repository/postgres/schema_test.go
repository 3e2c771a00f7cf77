package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econcal/internal/testsupport"
)

func TestGrantStatements(t *testing.T) {
	stmts := grantStatements("dash reader")

	require.Len(t, stmts, len(pipelineRelations)+1)
	assert.Equal(t, `GRANT SELECT, INSERT, UPDATE ON events TO "dash reader"`, stmts[0])
	for _, s := range stmts {
		assert.NotContains(t, s, "DELETE")
		assert.NotContains(t, s, "ALL PRIVILEGES")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)

	ctx := context.Background()
	role := ""
	if cfg != nil {
		role = cfg.Pipeline.ReaderRole
	}

	require.NoError(t, Migrate(ctx, testDB.DB(), role))
	require.NoError(t, Migrate(ctx, testDB.DB(), role))

	for _, rel := range pipelineRelations {
		var exists bool
		err := testDB.DB().GetContext(ctx, &exists, `SELECT to_regclass($1) IS NOT NULL`, "public."+rel)
		require.NoError(t, err)
		assert.True(t, exists, rel)
	}
}
