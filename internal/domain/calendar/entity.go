package calendar

import (
	"time"
)

// DateLayout is the storage and identity-key layout of EconomicEvent.Date
const DateLayout = "2006-01-02"

// TimeLayout is the storage and identity-key layout of EconomicEvent.Time
const TimeLayout = "15:04"

// Column limits of the events table
const (
	MaxCurrencyLen = 10
	MaxEventLen    = 255
	MaxImpactLen   = 20
	MaxValueLen    = 50
)

// EconomicEvent represents one scheduled economic release
type EconomicEvent struct {
	ID int64 // store id, zero until persisted

	Date     time.Time // UTC midnight of the release day
	Time     string    // HH:MM, 00:00 for all-day entries
	Currency string
	Event    string
	Impact   Impact

	Actual   Value
	Forecast Value
	Previous Value

	// Batch records which ingestion batch produced the row; merge conflicts are
	// resolved by comparing Batch.Seq.
	Batch BatchRef
}

// Key identifies one economic event occurrence
type Key struct {
	Date     string
	Time     string
	Currency string
	Event    string
}

// Key returns the identity key of the event
func (e EconomicEvent) Key() Key {
	return Key{
		Date:     e.Date.Format(DateLayout),
		Time:     e.Time,
		Currency: e.Currency,
		Event:    e.Event,
	}
}

// String renders the key for logs and error messages
func (k Key) String() string {
	return k.Date + " " + k.Time + " " + k.Currency + " " + k.Event
}

// DateTime combines Date and Time into a single UTC timestamp
func (e EconomicEvent) DateTime() time.Time {
	t, err := time.Parse(TimeLayout, e.Time)
	if err != nil {
		return e.Date
	}
	return e.Date.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

// SameContent reports whether two rows carry identical canonical data,
// ignoring store id and provenance.
func (e EconomicEvent) SameContent(o EconomicEvent) bool {
	return e.Key() == o.Key() &&
		e.Impact == o.Impact &&
		e.Actual.Equal(o.Actual) &&
		e.Forecast.Equal(o.Forecast) &&
		e.Previous.Equal(o.Previous)
}

// Less orders events chronologically, then by currency and title
func Less(a, b EconomicEvent) bool {
	ka, kb := a.Key(), b.Key()
	if ka.Date != kb.Date {
		return ka.Date < kb.Date
	}
	if ka.Time != kb.Time {
		return ka.Time < kb.Time
	}
	if ka.Currency != kb.Currency {
		return ka.Currency < kb.Currency
	}
	return ka.Event < kb.Event
}

// BatchRef is the provenance of a row. Higher Seq means a later batch.
type BatchRef struct {
	Seq uint64
	ID  string
}

// Newer reports whether b was ingested after o
func (b BatchRef) Newer(o BatchRef) bool {
	return b.Seq > o.Seq
}

// Impact is the market impact level of an event
type Impact string

const (
	ImpactLow     Impact = "Low"
	ImpactMedium  Impact = "Medium"
	ImpactHigh    Impact = "High"
	ImpactUnknown Impact = "unknown"
)

// Valid checks if impact level is one of the closed set
func (i Impact) Valid() bool {
	switch i {
	case ImpactLow, ImpactMedium, ImpactHigh, ImpactUnknown:
		return true
	}
	return false
}

// String returns string representation
func (i Impact) String() string {
	return string(i)
}

// PartitionKey addresses an independently processed slice of the canonical
// dataset. Month is empty when partitioning by currency only, otherwise "2006-01".
type PartitionKey struct {
	Currency string
	Month    string
}

// String renders the partition for logs and metric labels
func (p PartitionKey) String() string {
	if p.Month == "" {
		return p.Currency
	}
	return p.Currency + "/" + p.Month
}

// Bounds returns the half-open date range [from, to) covered by a monthly
// partition. ok is false for currency-only partitions.
func (p PartitionKey) Bounds() (from, to time.Time, ok bool) {
	if p.Month == "" {
		return time.Time{}, time.Time{}, false
	}
	from, err := time.Parse("2006-01", p.Month)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return from, from.AddDate(0, 1, 0), true
}

// Contains reports whether the event belongs to the partition
func (p PartitionKey) Contains(e EconomicEvent) bool {
	if e.Currency != p.Currency {
		return false
	}
	return p.Month == "" || e.Date.Format("2006-01") == p.Month
}

// FormattedEvent is a row of the events_formatted view
type FormattedEvent struct {
	ID       int64  `db:"id"`
	Date     string `db:"date"` // "<day> <Month> <year>"
	Time     string `db:"time"`
	Currency string `db:"currency"`
	Event    string `db:"event"`
	Impact   string `db:"impact"`
	Actual   string `db:"actual"`
	Forecast string `db:"forecast"`
	Previous string `db:"previous"`
}

// FormatDate renders a date the way the events_formatted view does
func FormatDate(d time.Time) string {
	return d.Format("2 January 2006")
}
