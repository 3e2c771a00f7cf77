package forecast

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econcal/pkg/errors"
)

func TestNewSet_LastWriteWins(t *testing.T) {
	s := NewSet([]LiveForecast{
		{Currency: "usd", Event: "CPI", ForecastValue: 3.1},
		{Currency: "EUR", Event: "GDP", ForecastValue: 0.2},
		{Currency: "USD", Event: "CPI", ForecastValue: 3.4},
	})

	require.Equal(t, 2, s.Len())
	items := s.Items()
	assert.Equal(t, "EUR", items[0].Currency)
	assert.Equal(t, Key{Currency: "USD", Event: "CPI"}, items[1].Key())
	assert.Equal(t, 3.4, items[1].ForecastValue)
	assert.Empty(t, s.Rejected())
}

func TestNewSet_RejectsInvalid(t *testing.T) {
	s := NewSet([]LiveForecast{
		{Currency: "USD", Event: "CPI", ForecastValue: math.NaN()},
		{Currency: "", Event: "GDP", ForecastValue: 1},
		{Currency: "JPY", Event: "BoJ Rate", ForecastValue: -0.1},
		{Currency: "USDOLLARXYZ", Event: "CPI", ForecastValue: 1},
		{Currency: "EUR", Event: strings.Repeat("x", 256), ForecastValue: 1},
	})

	assert.Equal(t, 1, s.Len())
	require.Len(t, s.Rejected(), 4)
	assert.Equal(t, 0, s.Rejected()[0].Index)
	assert.True(t, errors.Is(s.Rejected()[0].Err, errors.ErrValidationFailure))

	var vErr *errors.ValidationError
	require.True(t, errors.As(s.Rejected()[2].Err, &vErr))
	assert.Equal(t, "currency", vErr.Field)
	require.True(t, errors.As(s.Rejected()[3].Err, &vErr))
	assert.Equal(t, "event", vErr.Field)
}

func TestSet_Nil(t *testing.T) {
	var s *Set
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Items())
	assert.Nil(t, s.Rejected())
}
