package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"econcal/internal/domain/calendar"
	"econcal/internal/testsupport"
)

// TestFixtures provides factory methods for creating test data
type TestFixtures struct {
	db *testsupport.PostgresTestHelper
	t  *testing.T
}

// NewTestFixtures migrates the schema and returns a fixtures factory
func NewTestFixtures(t *testing.T, db *testsupport.PostgresTestHelper) *TestFixtures {
	t.Helper()
	require.NoError(t, Migrate(context.Background(), db.DB(), ""), "migrate schema")
	return &TestFixtures{
		db: db,
		t:  t,
	}
}

// Currency returns a currency code private to the test. Every row stored under
// it is removed when the test finishes.
func (f *TestFixtures) Currency() string {
	f.t.Helper()

	currency := testsupport.UniqueCurrency()
	f.db.DeleteOnCleanup("currency", currency,
		"events", "train_metrics", "validate_metrics", "test_forecasts", "live_forecasts")
	return currency
}

// Event builds a canonical event for currency
func (f *TestFixtures) Event(currency, date, hhmm, title, actual string) calendar.EconomicEvent {
	f.t.Helper()

	d, err := time.Parse(calendar.DateLayout, date)
	require.NoError(f.t, err)

	return calendar.EconomicEvent{
		Date:     d,
		Time:     hhmm,
		Currency: currency,
		Event:    title,
		Impact:   calendar.ImpactMedium,
		Actual:   calendar.ParseValue(actual),
		Forecast: calendar.NullValue(),
		Previous: calendar.ParseValue("1.0%"),
		Batch:    calendar.BatchRef{Seq: 1, ID: "fixture"},
	}
}
