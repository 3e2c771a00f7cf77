package repair

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"econcal/pkg/errors"
)

func TestLoadCSV_WithHeader(t *testing.T) {
	input := strings.Join([]string{
		"Date,Time,Currency,Event,Impact,Actual,Forecast,Previous,IsHoliday,WeekRange",
		"2024-01-05,08:30,USD,CPI,High,3.4%,3.2%,3.1%,False,31 Dec - 6 Jan, 2024",
		"2024-01-05,09:00,USD,Claims",
		"",
	}, "\n")

	batch, err := LoadCSV(strings.NewReader(input), "main.csv")
	require.NoError(t, err)

	assert.Equal(t, "main.csv", batch.Source)
	require.Len(t, batch.Header, 10)
	require.Len(t, batch.Rows, 2)

	assert.Equal(t, "31 Dec - 6 Jan, 2024", batch.Rows[0][9], "surplus cells fold into the last column")
	assert.Len(t, batch.Rows[1], 10, "short rows are padded")
	assert.Equal(t, "", batch.Rows[1][9])
}

func TestLoadCSV_Headerless(t *testing.T) {
	batch, err := LoadCSV(strings.NewReader("2024-01-05,08:30,USD,CPI,High\n"), "raw.csv")
	require.NoError(t, err)

	assert.Nil(t, batch.Header)
	require.Len(t, batch.Rows, 1)
	assert.Len(t, batch.Rows[0], len(canonicalOrder))

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Repaired())
}

func TestLoadCSV_IncompleteHeaderFailsBatch(t *testing.T) {
	input := "Date,Time,Currency,Impact,Actual\n2024-01-05,08:30,USD,High,2.1%\n"

	batch, err := LoadCSV(strings.NewReader(input), "partial.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Time", "Currency", "Impact", "Actual"}, batch.Header)
	require.Len(t, batch.Rows, 1)

	_, err = newRepairer().Repair(batch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))
	assert.Contains(t, err.Error(), "partial.csv")
}

func TestLoadCSV_HeaderlessRowNamingAColumn(t *testing.T) {
	batch, err := LoadCSV(strings.NewReader("2024-12-25,All Day,GBP,Holiday,Low\n"), "raw.csv")
	require.NoError(t, err)

	assert.Nil(t, batch.Header, "a row carrying a date is data")
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "Holiday", batch.Rows[0][3])
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"notes"}))
	_, err := f.NewSheet("Events")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Events", "A1", &[]interface{}{"Date", "Time", "Currency", "Event", "Actual"}))
	require.NoError(t, f.SetSheetRow("Events", "A2", &[]interface{}{"2024-01-05", "08:30", "usd", "CPI", "3.4%"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	batch, err := LoadXLSX(path)
	require.NoError(t, err)
	assert.Equal(t, "calendar.xlsx:Events", batch.Source)
	require.Len(t, batch.Rows, 1)

	result, err := newRepairer().Repair(batch)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "USD", result.Events[0].Currency)
	assert.Equal(t, "3.4%", result.Events[0].Actual.String())
}

func TestLoadXLSX_MissingFile(t *testing.T) {
	_, err := LoadXLSX(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))
}

func TestRepair_IdempotentThroughCSV(t *testing.T) {
	batch := RawBatch{Records: []map[string]string{
		{"date": "Friday, 5 January 2024", "time": "8:30am", "ccy": " usd ", "title": "CPI m/m", "impact": "High Impact Expected", "actual": "0.30%", "forecast": "0.2%"},
		{"date": "6 Jan", "time": "All Day", "currency": "eur", "event": "Bank Holiday", "impact": "holiday"},
		{"date": "2024-01-08", "time": "14:00 tentative", "currency": "gbp", "event": "BoE Speech", "actual": "Hawkish", "previous": "1,250.5K"},
	}}

	r := newRepairer()
	first, err := r.Repair(batch)
	require.NoError(t, err)
	require.Len(t, first.Events, 3)

	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, first.Events))

	reparsed, err := LoadCSV(strings.NewReader(buf.String()), "roundtrip.csv")
	require.NoError(t, err)

	second, err := r.Repair(reparsed)
	require.NoError(t, err)
	require.Len(t, second.Events, len(first.Events))

	for i := range first.Events {
		assert.True(t, first.Events[i].SameContent(second.Events[i]), first.Events[i].Key().String())
	}
}
