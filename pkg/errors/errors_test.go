package errors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_MatchesSentinel(t *testing.T) {
	err := Wrap(NewValidationError("mse", "must be >= 0", -1.0), "append train metrics")

	assert.True(t, Is(err, ErrValidationFailure))
	assert.False(t, Is(err, ErrMalformedInput))

	var vErr *ValidationError
	require.True(t, As(err, &vErr))
	assert.Equal(t, "mse", vErr.Field)
	assert.Contains(t, err.Error(), "field 'mse'")
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.NoError(t, m.ToError())

	m.Add(nil)
	assert.False(t, m.HasErrors())

	m.Add(Wrapf(ErrPartitionCommit, "partition %s", "USD"))
	m.Add(Wrapf(ErrConsistencyViolation, "partition %s", "EUR"))

	err := m.ToError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple errors (2)")
	assert.True(t, Is(err, ErrPartitionCommit))
	assert.True(t, Is(err, ErrConsistencyViolation))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
	assert.NoError(t, Wrapf(nil, "context %d", 1))
}

func TestRunIDContext(t *testing.T) {
	_, ok := RunIDFrom(context.Background())
	assert.False(t, ok)

	ctx := WithRunID(context.Background(), "run-1")
	id, ok := RunIDFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "run-1", id)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil, ErrPartitionCommit, "partition %s", "USD"))

	err := Classify(context.Canceled, ErrPartitionCommit, "partition %s", "USD")
	assert.True(t, Is(err, ErrPartitionCommit))
	assert.True(t, Is(err, context.Canceled))
	assert.Equal(t, "partition USD: partition commit failed: context canceled", err.Error())
}
