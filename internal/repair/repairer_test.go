package repair

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econcal/internal/domain/calendar"
	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

func newRepairer() *Repairer {
	return New(logger.Nop())
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRepair_KeyedRowMissingDateAndTime(t *testing.T) {
	batch := RawBatch{Records: []map[string]string{
		{"Currency": " usd ", "Event": "CPI", "Impact": "", "Actual": "2.1%"},
	}}

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)

	assert.Empty(t, result.Events)
	assert.Equal(t, 1, result.Rejected())
	assert.Equal(t, 1, result.Total)
	assert.Contains(t, result.Rejections[0].Reason, "date")
	assert.Contains(t, result.Rejections[0].Reason, "time")
	assert.True(t, errors.Is(result.Rejections[0].Err(), errors.ErrMalformedInput))
}

func TestRepair_KeyedSynonyms(t *testing.T) {
	batch := RawBatch{
		Ref: calendar.BatchRef{Seq: 3, ID: "b3"},
		Records: []map[string]string{{
			"day":        "Friday, 5 January 2024",
			"hour":       "8:30am",
			"CCY":        "usd",
			"title":      "  Non-Farm   Employment Change ",
			"Volatility": "High Impact Expected",
			"act":        "216K",
			"consensus":  "170K",
			"prior":      "173K",
		}},
	}

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)

	ev := result.Events[0]
	assert.Equal(t, day(2024, time.January, 5), ev.Date)
	assert.Equal(t, "08:30", ev.Time)
	assert.Equal(t, "USD", ev.Currency)
	assert.Equal(t, "Non-Farm Employment Change", ev.Event)
	assert.Equal(t, calendar.ImpactHigh, ev.Impact)
	assert.Equal(t, "216K", ev.Actual.String())
	assert.Equal(t, "170K", ev.Forecast.String())
	assert.Equal(t, "173K", ev.Previous.String())
	assert.Equal(t, calendar.BatchRef{Seq: 3, ID: "b3"}, ev.Batch)
}

func TestRepair_CanonicalNameBeatsSynonym(t *testing.T) {
	batch := RawBatch{Records: []map[string]string{{
		"Date": "2024-01-05", "Time": "08:30", "Currency": "USD",
		"Event": "CPI m/m", "name": "ignored",
	}}}

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "CPI m/m", result.Events[0].Event)
}

func TestRepair_TabularHeaderAnyOrder(t *testing.T) {
	batch := RawBatch{
		Header: []string{"Event", "Currency", "Impact", "Date", "Time", "Unused", "Actual"},
		Rows: [][]string{
			{"GDP q/q", "eur", "medium", "2024-02-14", "10:00", "x", "0.1%"},
			{"CPI y/y", "gbp", "LOW", "14 February 2024", "All Day", "y", "N/A"},
		},
	}

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)
	require.Len(t, result.Events, 2)

	assert.Equal(t, "EUR", result.Events[0].Currency)
	assert.Equal(t, calendar.ImpactMedium, result.Events[0].Impact)
	assert.Equal(t, "0.1%", result.Events[0].Actual.String())
	assert.True(t, result.Events[0].Forecast.Null)

	assert.Equal(t, "00:00", result.Events[1].Time)
	assert.Equal(t, calendar.ImpactLow, result.Events[1].Impact)
	assert.True(t, result.Events[1].Actual.Null)
}

func TestRepair_TabularMissingRequiredColumnFailsBatch(t *testing.T) {
	batch := RawBatch{
		Source: "bad.csv",
		Header: []string{"Date", "Time", "Event"},
		Rows:   [][]string{{"2024-01-05", "08:30", "CPI"}},
	}

	_, err := newRepairer().Repair(batch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))
	assert.Contains(t, err.Error(), "currency")
}

func TestRepair_HeaderlessPositional(t *testing.T) {
	batch := RawBatch{Rows: [][]string{
		{"2024-01-05", "08:30", "USD", "CPI", "High", "3.4%", "3.2%", "3.1%", "False", "31 Dec, 2023 - 06 Jan, 2024"},
		{"2024-01-05", "09:00"},
	}}

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "3.4%", result.Events[0].Actual.String())

	require.Len(t, result.Rejections, 1)
	assert.Equal(t, 1, result.Rejections[0].Row)
	assert.Equal(t, "missing currency", result.Rejections[0].Reason)
}

func TestRepair_RowValidation(t *testing.T) {
	long := make([]byte, calendar.MaxEventLen+1)
	for i := range long {
		long[i] = 'x'
	}

	batch := RawBatch{
		Header: []string{"Date", "Time", "Currency", "Event"},
		Rows: [][]string{
			{"not a date", "08:30", "USD", "CPI"},
			{"2024-01-05", "25:00", "USD", "CPI"},
			{"2024-01-05", "08:30", "TOOLONGCURRENCY", "CPI"},
			{"2024-01-05", "08:30", "USD", string(long)},
			{"2024-01-05", "08:30", "USD", "   "},
			{"2024-01-05", "08:30", "USD", "CPI"},
		},
	}

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Repaired())
	assert.Equal(t, 5, result.Rejected())
	assert.Equal(t, 6, result.Total)

	rows := make([]int, 0, len(result.Rejections))
	for _, rej := range result.Rejections {
		rows = append(rows, rej.Row)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, rows)
}

func TestRepair_BrokenDateYearFromNeighbours(t *testing.T) {
	batch := RawBatch{
		Header: []string{"Date", "Time", "Currency", "Event"},
		Rows: [][]string{
			{"3 March 2023", "08:30", "USD", "A"},
			{"Friday, 4 March", "08:30", "USD", "B"},
			{"5 March 2023", "08:30", "USD", "C"},
		},
	}

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)
	require.Len(t, result.Events, 3)
	assert.Equal(t, day(2023, time.March, 4), result.Events[1].Date)
}

func TestRepair_BrokenDateWithoutNeighboursRejected(t *testing.T) {
	batch := RawBatch{
		Header: []string{"Date", "Time", "Currency", "Event"},
		Rows:   [][]string{{"4 March", "08:30", "USD", "B"}},
	}

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)
	assert.Empty(t, result.Events)
	require.Len(t, result.Rejections, 1)
	assert.Contains(t, result.Rejections[0].Reason, "no year")
}

func TestRepair_DecemberWeekOverlap(t *testing.T) {
	batch := RawBatch{
		Header: []string{"Date", "Time", "Currency", "Event", "WeekRange"},
		Rows: [][]string{
			{"30 December 2025", "08:30", "USD", "Claims", "29 Dec, 2024 - 04 Jan, 2025"},
			{"2 January 2025", "08:30", "USD", "PMI", "29 Dec, 2024 - 04 Jan, 2025"},
		},
	}

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	assert.Equal(t, day(2024, time.December, 30), result.Events[0].Date)
	assert.Equal(t, day(2025, time.January, 2), result.Events[1].Date)
}

func TestRepair_Deterministic(t *testing.T) {
	batch := RawBatch{Records: []map[string]string{
		{"date": "5 Jan", "time": "8:30", "currency": "usd", "event": "CPI", "actual": "2.1%"},
		{"date": "2024-01-06", "time": "10:00", "currency": "eur", "event": "GDP", "title": "dup"},
		{"date": "2024-01-04", "time": "12:00pm", "currency": "jpy", "event": "BoJ"},
	}}

	r := newRepairer()
	first, err := r.Repair(batch)
	require.NoError(t, err)
	second, err := r.Repair(batch)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first.Events, 3)
	assert.Equal(t, day(2024, time.January, 5), first.Events[0].Date)
	assert.Equal(t, "12:00", first.Events[2].Time)
}
