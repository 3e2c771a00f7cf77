package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econcal/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "date,time,currency,event\n")
	writeFile(t, dir, "a.CSV", "date,time,currency,event\n")
	writeFile(t, dir, ResultsFileName, `{}`)
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, ".hidden.csv", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	calendars, results, err := ScanDir(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "a.CSV"), filepath.Join(dir, "b.csv")}, calendars)
	assert.Equal(t, filepath.Join(dir, ResultsFileName), results)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2024-01.csv", "date,time,currency,event,actual\n2024-01-05,08:30,USD,CPI,2.1%\n")
	writeFile(t, dir, ResultsFileName, `{"live_forecasts": [{"currency": "EUR", "event": "GDP", "forecast_value": 1.8}]}`)

	in, err := LoadDir(dir)
	require.NoError(t, err)

	require.Len(t, in.Batches, 1)
	assert.Equal(t, "2024-01.csv", in.Batches[0].Source)
	assert.Equal(t, 1, in.Batches[0].Len())
	require.NotNil(t, in.Results)
	assert.Len(t, in.Results.LiveForecasts, 1)
}

func TestLoadFiles_Unsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "calendar.json", "[]")
	_, err := LoadFiles([]string{path})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
