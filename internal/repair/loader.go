package repair

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"econcal/internal/domain/calendar"
	"econcal/pkg/errors"
)

// LoadCSV reads a calendar CSV export into a tabular batch.
//
// The first record is taken as the header when any of its cells names a column
// and none of them is a date; otherwise every record is data in canonical column
// order. A header missing a required column still counts, so Repair fails the
// batch instead of reading shifted fields. Ragged rows are
// squared up: short rows are padded and surplus cells are folded into the last
// column, the way commas inside unquoted event titles break exports.
func LoadCSV(r io.Reader, source string) (RawBatch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return RawBatch{}, errors.Wrapf(errors.ErrMalformedInput, "read csv %s: %v", source, err)
	}

	return tabular(source, records), nil
}

// LoadXLSX reads the first worksheet of path whose header names the required
// columns, then the first one with any header at all. Workbooks without a
// header row are read positionally from the first sheet.
func LoadXLSX(path string) (RawBatch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return RawBatch{}, errors.Wrapf(errors.ErrMalformedInput, "open workbook %s: %v", path, err)
	}
	defer f.Close()

	source := filepath.Base(path)
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return RawBatch{}, errors.Wrapf(errors.ErrMalformedInput, "workbook %s has no sheets", path)
	}

	var fallback, partialRows [][]string
	partial := -1
	for i, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			return RawBatch{}, errors.Wrapf(errors.ErrMalformedInput, "read sheet %q of %s: %v", name, path, err)
		}
		if i == 0 {
			fallback = rows
		}
		if len(rows) == 0 {
			continue
		}
		if completeHeader(rows[0]) {
			return tabular(source+":"+name, rows), nil
		}
		if partial < 0 && isHeader(rows[0]) {
			partial, partialRows = i, rows
		}
	}

	if partial >= 0 {
		return tabular(source+":"+sheets[partial], partialRows), nil
	}
	return tabular(source+":"+sheets[0], fallback), nil
}

// CSVHeader is the header WriteCSV emits
var CSVHeader = []string{"Date", "Time", "Currency", "Event", "Impact", "Actual", "Forecast", "Previous"}

// WriteCSV writes canonical events in the layout LoadCSV reads back
func WriteCSV(w io.Writer, events []calendar.EconomicEvent) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	for _, e := range events {
		record := []string{
			e.Date.Format(calendar.DateLayout),
			e.Time,
			e.Currency,
			e.Event,
			e.Impact.String(),
			e.Actual.String(),
			e.Forecast.String(),
			e.Previous.String(),
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "write csv row %s", e.Key())
		}
	}

	writer.Flush()
	return errors.Wrap(writer.Error(), "flush csv")
}

// isHeader reports whether row labels columns rather than carrying an event.
// Data rows always hold a date, while an event title alone may match a column name.
func isHeader(row []string) bool {
	named := false
	for _, cell := range row {
		if _, ok := parseDate(cell); ok {
			return false
		}
		if _, _, ok := monthDayOnly(cell); ok {
			return false
		}
		if _, _, ok := resolveName(cell); ok {
			named = true
		}
	}
	return named
}

func completeHeader(row []string) bool {
	_, err := resolveHeader(row)
	return err == nil
}

// tabular builds a batch from raw records, detecting the header and squaring rows
func tabular(source string, records [][]string) RawBatch {
	batch := RawBatch{Source: source}
	if len(records) == 0 {
		batch.Rows = [][]string{}
		return batch
	}

	width := len(canonicalOrder)
	data := records
	if isHeader(records[0]) {
		batch.Header = records[0]
		width = len(records[0])
		data = records[1:]
	}

	batch.Rows = make([][]string, 0, len(data))
	for _, rec := range data {
		if blank(rec) {
			continue
		}
		batch.Rows = append(batch.Rows, square(rec, width))
	}
	return batch
}

func square(rec []string, width int) []string {
	switch {
	case len(rec) == width:
		return rec
	case len(rec) < width:
		padded := make([]string, width)
		copy(padded, rec)
		return padded
	default:
		fixed := make([]string, width)
		copy(fixed, rec[:width-1])
		fixed[width-1] = strings.Join(rec[width-1:], ",")
		return fixed
	}
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
