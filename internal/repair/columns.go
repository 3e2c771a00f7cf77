package repair

import (
	"sort"
	"strings"
	"unicode"

	"econcal/pkg/errors"
)

// Column is a canonical calendar column
type Column string

const (
	ColDate      Column = "date"
	ColTime      Column = "time"
	ColCurrency  Column = "currency"
	ColEvent     Column = "event"
	ColImpact    Column = "impact"
	ColActual    Column = "actual"
	ColForecast  Column = "forecast"
	ColPrevious  Column = "previous"
	ColIsHoliday Column = "isholiday"
	ColWeekRange Column = "weekrange"
)

// canonicalOrder is the positional layout of headerless input
var canonicalOrder = []Column{
	ColDate, ColTime, ColCurrency, ColEvent, ColImpact,
	ColActual, ColForecast, ColPrevious, ColIsHoliday, ColWeekRange,
}

var requiredColumns = []Column{ColDate, ColTime, ColCurrency, ColEvent}

// synonyms maps normalized alternate names to canonical columns
var synonyms = map[string]Column{
	"curr":       ColCurrency,
	"ccy":        ColCurrency,
	"title":      ColEvent,
	"name":       ColEvent,
	"eventname":  ColEvent,
	"importance": ColImpact,
	"volatility": ColImpact,
	"act":        ColActual,
	"fcst":       ColForecast,
	"consensus":  ColForecast,
	"prev":       ColPrevious,
	"prior":      ColPrevious,
	"day":        ColDate,
	"hour":       ColTime,
	"week":       ColWeekRange,
	"holiday":    ColIsHoliday,
}

// normalizeName folds case and drops whitespace and underscores
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsSpace(r) || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// resolveName maps a source column name to a canonical column.
// exact is true when the name matched a canonical name rather than a synonym.
func resolveName(name string) (col Column, exact bool, ok bool) {
	n := normalizeName(name)
	for _, c := range canonicalOrder {
		if string(c) == n {
			return c, true, true
		}
	}
	if c, found := synonyms[n]; found {
		return c, false, true
	}
	return "", false, false
}

// resolveHeader returns the source index of every canonical column found in header.
// Canonical names win over synonyms, then the leftmost occurrence wins.
func resolveHeader(header []string) (map[Column]int, error) {
	positions := make(map[Column]int, len(canonicalOrder))
	exactHit := make(map[Column]bool, len(canonicalOrder))

	for i, name := range header {
		col, exact, ok := resolveName(name)
		if !ok {
			continue
		}
		if _, seen := positions[col]; seen && (exactHit[col] || !exact) {
			continue
		}
		positions[col] = i
		exactHit[col] = exact
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := positions[col]; !ok {
			missing = append(missing, string(col))
		}
	}
	if len(missing) > 0 {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "unresolved required columns: %s", strings.Join(missing, ", "))
	}

	return positions, nil
}

// positionalHeader maps canonical columns onto their fixed positions
func positionalHeader() map[Column]int {
	positions := make(map[Column]int, len(canonicalOrder))
	for i, col := range canonicalOrder {
		positions[col] = i
	}
	return positions
}

// fieldsFromRow extracts canonical fields from a tabular row. Missing cells read as empty.
func fieldsFromRow(positions map[Column]int, row []string) map[Column]string {
	fields := make(map[Column]string, len(positions))
	for col, idx := range positions {
		if idx < len(row) {
			fields[col] = row[idx]
		}
	}
	return fields
}

// fieldsFromRecord resolves the keys of one keyed record. Canonical names win
// over synonyms; among equals the lexically smallest key wins.
func fieldsFromRecord(record map[string]string) (map[Column]string, []Column) {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(map[Column]string, len(canonicalOrder))
	exactHit := make(map[Column]bool, len(canonicalOrder))

	for _, k := range keys {
		col, exact, ok := resolveName(k)
		if !ok {
			continue
		}
		if _, seen := fields[col]; seen && (exactHit[col] || !exact) {
			continue
		}
		fields[col] = record[k]
		exactHit[col] = exact
	}

	var missing []Column
	for _, col := range requiredColumns {
		if _, ok := fields[col]; !ok {
			missing = append(missing, col)
		}
	}
	return fields, missing
}
