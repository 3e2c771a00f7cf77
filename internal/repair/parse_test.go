package repair

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"econcal/internal/domain/calendar"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		"2024-01-05",
		"2024/1/5",
		"5 January 2024",
		"05 January 2024",
		"5 Jan 2024",
		"5 JANUARY, 2024",
		"January 5, 2024",
		"Jan 5 2024",
		"1/5/2024",
		"Friday, 5 January 2024",
		"Fri  Jan 5, 2024",
		"2024-01-05 00:00:00",
	} {
		got, ok := parseDate(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "5 January", "2024-13-01", "someday"} {
		_, ok := parseDate(raw)
		assert.False(t, ok, raw)
	}
}

func TestMonthDayOnly(t *testing.T) {
	m, d, ok := monthDayOnly("Friday, 5 January")
	assert.True(t, ok)
	assert.Equal(t, time.January, m)
	assert.Equal(t, 5, d)

	m, d, ok = monthDayOnly("Mar 14")
	assert.True(t, ok)
	assert.Equal(t, time.March, m)
	assert.Equal(t, 14, d)

	_, _, ok = monthDayOnly("5 Smarch")
	assert.False(t, ok)
	_, _, ok = monthDayOnly("40 May")
	assert.False(t, ok)
}

func TestImputeYear(t *testing.T) {
	years := []int{2023, 2024, 0, 2024, 2023}
	y, ok := imputeYear(years, 2)
	assert.True(t, ok)
	assert.Equal(t, 2024, y, "tie goes to the nearest year, looking backwards first")

	years = []int{2022, 2022, 2022, 0, 2023}
	y, ok = imputeYear(years, 3)
	assert.True(t, ok)
	assert.Equal(t, 2022, y)

	far := make([]int, yearWindow+2)
	far[0] = 2020
	_, ok = imputeYear(far, yearWindow+1)
	assert.False(t, ok, "rows beyond the window are not consulted")
}

func TestParseTime(t *testing.T) {
	tests := map[string]string{
		"08:30":           "08:30",
		"8:30":            "08:30",
		" 8:30am ":        "08:30",
		"8:30 PM":         "20:30",
		"12:00am":         "00:00",
		"12:15pm":         "12:15",
		"All Day":         "00:00",
		"tentative":       "00:00",
		"Day 2":           "00:00",
		"14:00 (revised)": "14:00",
		"09:15:00":        "09:15",
	}
	for raw, want := range tests {
		got, ok := parseTime(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "24:00", "8:61", "13:00pm", "noon"} {
		_, ok := parseTime(raw)
		assert.False(t, ok, raw)
	}
}

func TestNormalizeImpact(t *testing.T) {
	tests := map[string]calendar.Impact{
		"High":                 calendar.ImpactHigh,
		"HIGH IMPACT EXPECTED": calendar.ImpactHigh,
		"medium":               calendar.ImpactMedium,
		"Low Volatility":       calendar.ImpactLow,
		"3":                    calendar.ImpactHigh,
		"":                     calendar.ImpactUnknown,
		"holiday":              calendar.ImpactUnknown,
		"special":              calendar.ImpactUnknown,
		"nan":                  calendar.ImpactUnknown,
		"none":                 calendar.ImpactUnknown,
	}
	for raw, want := range tests {
		assert.Equal(t, want, normalizeImpact(raw), raw)
	}
}

func TestResolveName(t *testing.T) {
	col, exact, ok := resolveName(" Week_Range ")
	assert.True(t, ok)
	assert.True(t, exact)
	assert.Equal(t, ColWeekRange, col)

	col, exact, ok = resolveName("Event Name")
	assert.True(t, ok)
	assert.False(t, exact)
	assert.Equal(t, ColEvent, col)

	_, _, ok = resolveName("country")
	assert.False(t, ok)
}
