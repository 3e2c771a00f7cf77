package metrics

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econcal/pkg/errors"
)

func TestParseStage(t *testing.T) {
	stage, err := ParseStage(" Validate ")
	require.NoError(t, err)
	assert.Equal(t, StageValidate, stage)

	_, err = ParseStage("holdout")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestStage_Table(t *testing.T) {
	assert.Equal(t, "train_metrics", StageTrain.Table())
	assert.Equal(t, "validate_metrics", StageValidate.Table())
	assert.Equal(t, "test_forecasts", StageTest.Table())
	assert.Empty(t, Stage("other").Table())
}

func TestRecord_Validate(t *testing.T) {
	base := Record{Currency: "USD", Event: "CPI", R2: 0.8, MSE: 0.02, Samples: 120, Stage: StageTrain}

	tests := []struct {
		name   string
		mutate func(r *Record)
		field  string
	}{
		{"valid", func(r *Record) {}, ""},
		{"negative r2 is allowed", func(r *Record) { r.R2 = -3.5 }, ""},
		{"zero samples allowed", func(r *Record) { r.Samples = 0 }, ""},
		{"negative mse", func(r *Record) { r.MSE = -1 }, "mse"},
		{"nan mse", func(r *Record) { r.MSE = math.NaN() }, "mse"},
		{"infinite r2", func(r *Record) { r.R2 = math.Inf(1) }, "r2"},
		{"negative samples", func(r *Record) { r.Samples = -1 }, "samples"},
		{"samples beyond int32", func(r *Record) { r.Samples = math.MaxInt32 + 1 }, "samples"},
		{"samples at int32 max", func(r *Record) { r.Samples = math.MaxInt32 }, ""},
		{"currency too long", func(r *Record) { r.Currency = "USDOLLARXYZ" }, "currency"},
		{"event too long", func(r *Record) { r.Event = strings.Repeat("e", 256) }, "event"},
		{"empty currency", func(r *Record) { r.Currency = " " }, "currency"},
		{"empty event", func(r *Record) { r.Event = "" }, "event"},
		{"unknown stage", func(r *Record) { r.Stage = "holdout" }, "stage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base
			tt.mutate(&rec)
			err := rec.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidationFailure))

			var vErr *errors.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestSplit(t *testing.T) {
	records := []Record{
		{Currency: "usd", Event: "CPI", R2: 0.8, MSE: 0.02, Samples: 120},
		{Currency: "EUR", Event: "GDP", R2: 0.5, MSE: -1, Samples: 10},
		{Currency: "GBP", Event: " PMI ", R2: 0.1, MSE: 0.3, Samples: 40},
	}

	valid, rejected := Split(StageValidate, records)

	require.Len(t, valid, 2)
	assert.Equal(t, "USD", valid[0].Currency)
	assert.Equal(t, StageValidate, valid[0].Stage)
	assert.Equal(t, "PMI", valid[1].Event)

	require.Len(t, rejected, 1)
	assert.Equal(t, 1, rejected[0].Index)
	assert.True(t, errors.Is(rejected[0].Err, errors.ErrValidationFailure))

	result := AppendResult{Stage: StageValidate, Inserted: len(valid), Rejected: rejected}
	assert.True(t, result.Degraded())
	assert.False(t, AppendResult{Inserted: 2}.Degraded())
}

func TestSplit_RejectsValuesBeyondColumnLimits(t *testing.T) {
	valid, rejected := Split(StageTrain, []Record{
		{Currency: "USDOLLARXYZ", Event: "CPI", R2: 0.8, MSE: 0.02, Samples: 120},
		{Currency: "USD", Event: "NFP", R2: 0.4, MSE: 0.1, Samples: 3_000_000_000},
		{Currency: "EUR", Event: "GDP", R2: 0.5, MSE: 0.1, Samples: 10},
	})

	require.Len(t, valid, 1)
	assert.Equal(t, "EUR", valid[0].Currency)
	require.Len(t, rejected, 2)
	assert.Equal(t, 0, rejected[0].Index)
	assert.Equal(t, 1, rejected[1].Index)
	for _, r := range rejected {
		assert.True(t, errors.Is(r.Err, errors.ErrValidationFailure))
	}

	result := AppendResult{Stage: StageTrain, Inserted: len(valid), Rejected: rejected}
	assert.True(t, result.Degraded())
	assert.False(t, AppendResult{Inserted: 2}.Degraded())
}
