package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econcal/internal/domain/metrics"
	"econcal/internal/testsupport"
	"econcal/pkg/errors"
)

func TestMetricsRepository_AppendOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)

	fixtures := NewTestFixtures(t, testDB)
	currency := fixtures.Currency()

	repo := NewMetricsRepository(testDB.DB())
	ctx := context.Background()

	before, err := repo.Count(ctx, metrics.StageTrain)
	require.NoError(t, err)

	result, err := repo.Append(ctx, metrics.StageTrain, []metrics.Record{
		{Currency: currency, Event: "CPI", R2: 0.71, MSE: 0.03, Samples: 240},
		{Currency: currency, Event: "CPI", R2: 0.2, MSE: -1, Samples: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Rejected, 1)
	assert.True(t, errors.Is(result.Rejected[0].Err, errors.ErrValidationFailure))
	assert.True(t, result.Degraded())

	// A second run appends rather than replaces
	_, err = repo.Append(ctx, metrics.StageTrain, []metrics.Record{
		{Currency: currency, Event: "CPI", R2: 0.75, MSE: 0.02, Samples: 250},
	})
	require.NoError(t, err)

	after, err := repo.Count(ctx, metrics.StageTrain)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after, before+2)

	history, err := repo.History(ctx, metrics.StageTrain, currency, "CPI", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 0.75, history[0].R2, "newest first")
	for _, rec := range history {
		assert.GreaterOrEqual(t, rec.MSE, 0.0)
		assert.Equal(t, metrics.StageTrain, rec.Stage)
	}
}

func TestMetricsRepository_StageTables(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)

	fixtures := NewTestFixtures(t, testDB)
	currency := fixtures.Currency()

	repo := NewMetricsRepository(testDB.DB())
	ctx := context.Background()

	_, err := repo.Append(ctx, metrics.StageTest, []metrics.Record{
		{Currency: currency, Event: "GDP", R2: -0.4, MSE: 1.2, Samples: 30},
	})
	require.NoError(t, err)

	testRows, err := repo.History(ctx, metrics.StageTest, currency, "GDP", 5)
	require.NoError(t, err)
	assert.Len(t, testRows, 1)

	validateRows, err := repo.History(ctx, metrics.StageValidate, currency, "GDP", 5)
	require.NoError(t, err)
	assert.Empty(t, validateRows)

	_, err = repo.Append(ctx, metrics.Stage("holdout"), nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
