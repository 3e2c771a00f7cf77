package forecast

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"econcal/internal/domain/calendar"
	"econcal/pkg/errors"
)

// LiveForecast is the current model prediction for one (currency, event)
type LiveForecast struct {
	ID            int64     `db:"id" json:"-"`
	Currency      string    `db:"currency" json:"currency"`
	Event         string    `db:"event" json:"event"`
	ForecastValue float64   `db:"forecast_value" json:"forecast_value"`
	UpdatedAt     time.Time `db:"updated_at" json:"-"`
}

// Key identifies a live forecast
type Key struct {
	Currency string
	Event    string
}

// Key returns the identity key of the forecast
func (f LiveForecast) Key() Key {
	return Key{Currency: f.Currency, Event: f.Event}
}

// Validate checks a single forecast
func (f LiveForecast) Validate() error {
	switch {
	case strings.TrimSpace(f.Currency) == "":
		return errors.NewValidationError("currency", "must not be empty", f.Currency)
	case utf8.RuneCountInString(f.Currency) > calendar.MaxCurrencyLen:
		return errors.NewValidationError("currency", "too long", f.Currency)
	case strings.TrimSpace(f.Event) == "":
		return errors.NewValidationError("event", "must not be empty", f.Event)
	case utf8.RuneCountInString(f.Event) > calendar.MaxEventLen:
		return errors.NewValidationError("event", "too long", f.Event)
	case math.IsNaN(f.ForecastValue) || math.IsInf(f.ForecastValue, 0):
		return errors.NewValidationError("forecast_value", "must be finite", f.ForecastValue)
	}
	return nil
}

// Rejection describes a forecast dropped while building a Set
type Rejection struct {
	Index    int
	Forecast LiveForecast
	Err      error
}

// Set is the complete live forecast set produced by one run.
// Keys are unique and items are sorted by currency, then event.
type Set struct {
	items    []LiveForecast
	rejected []Rejection
}

// NewSet normalizes and deduplicates forecasts. When a key repeats, the last
// occurrence wins. Invalid items are dropped and reported by Rejected.
func NewSet(items []LiveForecast) *Set {
	byKey := make(map[Key]LiveForecast, len(items))
	s := &Set{}

	for i, f := range items {
		f.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))
		f.Event = strings.TrimSpace(f.Event)
		if err := f.Validate(); err != nil {
			s.rejected = append(s.rejected, Rejection{Index: i, Forecast: f, Err: err})
			continue
		}
		byKey[f.Key()] = f
	}

	s.items = make([]LiveForecast, 0, len(byKey))
	for _, f := range byKey {
		s.items = append(s.items, f)
	}
	sort.Slice(s.items, func(i, j int) bool {
		if s.items[i].Currency != s.items[j].Currency {
			return s.items[i].Currency < s.items[j].Currency
		}
		return s.items[i].Event < s.items[j].Event
	})

	return s
}

// Items returns the deduplicated forecasts
func (s *Set) Items() []LiveForecast {
	if s == nil {
		return nil
	}
	return s.items
}

// Rejected returns the items NewSet dropped
func (s *Set) Rejected() []Rejection {
	if s == nil {
		return nil
	}
	return s.rejected
}

// Len returns the number of unique keys in the set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}
