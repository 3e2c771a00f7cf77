package repair

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"econcal/internal/domain/calendar"
	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// Repairer turns raw calendar batches into canonical events.
// It holds no state between calls and never reads the clock, so repairing the
// same batch twice yields identical output.
type Repairer struct {
	log *logger.Logger
}

// New creates a Repairer
func New(log *logger.Logger) *Repairer {
	if log == nil {
		log = logger.Get()
	}
	return &Repairer{log: log.With("component", "repair")}
}

// pendingRow is a row between the date pass and the field pass
type pendingRow struct {
	index  int
	fields map[Column]string
	date   time.Time
	month  time.Month // set when the date lacks its year
	day    int
	reason string
}

// Repair maps every row of batch onto the canonical schema. Rows that cannot
// be repaired are skipped and reported in Result.Rejections. An error is only
// returned when the batch as a whole cannot be interpreted.
func (r *Repairer) Repair(batch RawBatch) (*Result, error) {
	rows, err := r.collect(batch)
	if err != nil {
		r.log.Warnw("Batch rejected", "source", batch.Source, "error", err)
		return nil, err
	}

	r.resolveDates(rows)

	result := &Result{
		Source: batch.Source,
		Events: make([]calendar.EconomicEvent, 0, len(rows)),
		Total:  batch.Len(),
	}

	for _, row := range rows {
		if row.reason != "" {
			result.Rejections = append(result.Rejections, Rejection{Row: row.index, Reason: row.reason})
			continue
		}

		ev, reason := buildEvent(row)
		if reason != "" {
			result.Rejections = append(result.Rejections, Rejection{Row: row.index, Reason: reason})
			continue
		}
		ev.Batch = batch.Ref
		result.Events = append(result.Events, ev)
	}

	r.log.Debugw("Batch repaired",
		"source", batch.Source,
		"total", result.Total,
		"repaired", result.Repaired(),
		"rejected", result.Rejected(),
	)

	return result, nil
}

// collect resolves the batch's columns and extracts canonical fields per row
func (r *Repairer) collect(batch RawBatch) ([]*pendingRow, error) {
	rows := make([]*pendingRow, 0, batch.Len())

	if batch.Keyed() {
		for i, rec := range batch.Records {
			fields, missing := fieldsFromRecord(rec)
			row := &pendingRow{index: i, fields: fields}
			if len(missing) > 0 {
				names := make([]string, len(missing))
				for j, col := range missing {
					names[j] = string(col)
				}
				row.reason = "missing required fields: " + strings.Join(names, ", ")
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	positions := positionalHeader()
	if len(batch.Header) > 0 {
		var err error
		positions, err = resolveHeader(batch.Header)
		if err != nil {
			return nil, errors.Wrapf(err, "batch %s", batch.Source)
		}
	}

	for i, cells := range batch.Rows {
		rows = append(rows, &pendingRow{index: i, fields: fieldsFromRow(positions, cells)})
	}
	return rows, nil
}

// resolveDates parses every date, then repairs dates that lost their year using
// neighbouring rows, then applies the December week-overlap correction.
func (r *Repairer) resolveDates(rows []*pendingRow) {
	years := make([]int, len(rows))
	var broken []int

	for i, row := range rows {
		if row.reason != "" {
			continue
		}
		raw := row.fields[ColDate]
		if strings.TrimSpace(raw) == "" {
			row.reason = "missing date"
			continue
		}
		if d, ok := parseDate(raw); ok {
			row.date = d
			years[i] = d.Year()
			continue
		}
		if month, day, ok := monthDayOnly(raw); ok {
			row.month, row.day = month, day
			broken = append(broken, i)
			continue
		}
		row.reason = fmt.Sprintf("unparseable date %q", raw)
	}

	for _, i := range broken {
		row := rows[i]
		year, ok := imputeYear(years, i)
		if !ok {
			row.reason = fmt.Sprintf("date %q has no year and no dated neighbours", row.fields[ColDate])
			continue
		}
		d, ok := civilDate(year, row.month, row.day)
		if !ok {
			row.reason = fmt.Sprintf("date %q is not valid in %d", row.fields[ColDate], year)
			continue
		}
		row.date = d
	}

	for _, row := range rows {
		if row.reason != "" {
			continue
		}
		if wr, ok := row.fields[ColWeekRange]; ok {
			row.date = fixDecemberOverlap(row.date, wr)
		}
	}
}

// buildEvent repairs the remaining fields of a dated row
func buildEvent(row *pendingRow) (calendar.EconomicEvent, string) {
	f := row.fields

	hhmm, ok := parseTime(f[ColTime])
	if !ok {
		if strings.TrimSpace(f[ColTime]) == "" {
			return calendar.EconomicEvent{}, "missing time"
		}
		return calendar.EconomicEvent{}, fmt.Sprintf("unparseable time %q", f[ColTime])
	}

	currency := strings.ToUpper(strings.TrimSpace(f[ColCurrency]))
	switch {
	case currency == "":
		return calendar.EconomicEvent{}, "missing currency"
	case utf8.RuneCountInString(currency) > calendar.MaxCurrencyLen:
		return calendar.EconomicEvent{}, fmt.Sprintf("currency %q exceeds %d characters", currency, calendar.MaxCurrencyLen)
	}

	title := strings.Join(strings.Fields(f[ColEvent]), " ")
	switch {
	case title == "":
		return calendar.EconomicEvent{}, "missing event"
	case utf8.RuneCountInString(title) > calendar.MaxEventLen:
		return calendar.EconomicEvent{}, fmt.Sprintf("event exceeds %d characters", calendar.MaxEventLen)
	}

	impact := normalizeImpact(f[ColImpact])
	if truthy(f[ColIsHoliday]) {
		impact = calendar.ImpactUnknown
	}

	ev := calendar.EconomicEvent{
		Date:     row.date,
		Time:     hhmm,
		Currency: currency,
		Event:    title,
		Impact:   impact,
		Actual:   calendar.ParseValue(f[ColActual]),
		Forecast: calendar.ParseValue(f[ColForecast]),
		Previous: calendar.ParseValue(f[ColPrevious]),
	}

	values := []struct {
		name string
		v    calendar.Value
	}{{"actual", ev.Actual}, {"forecast", ev.Forecast}, {"previous", ev.Previous}}
	for _, c := range values {
		if utf8.RuneCountInString(c.v.String()) > calendar.MaxValueLen {
			return calendar.EconomicEvent{}, fmt.Sprintf("%s exceeds %d characters", c.name, calendar.MaxValueLen)
		}
	}

	return ev, ""
}
