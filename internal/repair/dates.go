package repair

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// yearWindow is how many rows on each side are consulted when a date lacks its year
const yearWindow = 20

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/1/2",
	"2 January 2006",
	"2 January, 2006",
	"2 Jan 2006",
	"2 Jan, 2006",
	"January 2 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var (
	weekdayPrefix = regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?,?\s+`)
	spaceRun      = regexp.MustCompile(`\s+`)
	dayMonth      = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+)\.?,?$`)
	monthDay      = regexp.MustCompile(`^([A-Za-z]+)\.?\s+(\d{1,2}),?$`)
	weekRangeYear = regexp.MustCompile(`,\s*(\d{4})\s*$`)
)

// cleanDate trims, collapses whitespace and strips a leading weekday name
func cleanDate(raw string) string {
	s := spaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")
	return weekdayPrefix.ReplaceAllString(s, "")
}

// parseDate parses a complete calendar date
func parseDate(raw string) (time.Time, bool) {
	s := cleanDate(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// monthDayOnly recognizes a date that lost its year ("5 January", "Friday, Jan 5")
func monthDayOnly(raw string) (time.Month, int, bool) {
	s := cleanDate(raw)

	var dayText, monthText string
	if m := dayMonth.FindStringSubmatch(s); m != nil {
		dayText, monthText = m[1], m[2]
	} else if m := monthDay.FindStringSubmatch(s); m != nil {
		monthText, dayText = m[1], m[2]
	} else {
		return 0, 0, false
	}

	month, ok := parseMonth(monthText)
	if !ok {
		return 0, 0, false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil || day < 1 || day > 31 {
		return 0, 0, false
	}
	return month, day, true
}

func parseMonth(s string) (time.Month, bool) {
	for _, layout := range []string{"January", "Jan"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Month(), true
		}
	}
	return 0, false
}

// civilDate builds a date and rejects overflow such as 31 February
func civilDate(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// imputeYear picks the most common year among well-formed dates within
// yearWindow rows of idx. Ties go to the year seen closest to idx, looking
// backwards first.
func imputeYear(years []int, idx int) (int, bool) {
	counts := make(map[int]int)
	var order []int

	note := func(i int) {
		if i < 0 || i >= len(years) || years[i] == 0 {
			return
		}
		y := years[i]
		if counts[y] == 0 {
			order = append(order, y)
		}
		counts[y]++
	}

	for d := 1; d <= yearWindow; d++ {
		note(idx - d)
		note(idx + d)
	}
	if len(order) == 0 {
		return 0, false
	}

	best := order[0]
	for _, y := range order[1:] {
		if counts[y] > counts[best] {
			best = y
		}
	}
	return best, true
}

// weekRangeYears extracts the start and end years of a range such as
// "29 Dec, 2024 - 04 Jan, 2025"
func weekRangeYears(weekRange string) (start, end int, ok bool) {
	parts := strings.Split(strings.TrimSpace(weekRange), " - ")
	if len(parts) != 2 {
		return 0, 0, false
	}
	s := weekRangeYear.FindStringSubmatch(strings.TrimSpace(parts[0]))
	e := weekRangeYear.FindStringSubmatch(strings.TrimSpace(parts[1]))
	if s == nil || e == nil {
		return 0, 0, false
	}
	start, _ = strconv.Atoi(s[1])
	end, _ = strconv.Atoi(e[1])
	return start, end, true
}

// fixDecemberOverlap moves a December date that carries the following year
// back into the year the week started in.
func fixDecemberOverlap(d time.Time, weekRange string) time.Time {
	start, end, ok := weekRangeYears(weekRange)
	if !ok || end <= start {
		return d
	}
	if d.Month() == time.December && d.Year() == end {
		if fixed, ok := civilDate(start, d.Month(), d.Day()); ok {
			return fixed
		}
	}
	return d
}
