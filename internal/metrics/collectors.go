package metrics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"econcal/pkg/logger"
)

// StoreCollector reports table sizes of the canonical store at scrape time
type StoreCollector struct {
	log *logger.Logger
	db  *sqlx.DB

	events        *prometheus.Desc
	stageRows     *prometheus.Desc
	liveForecasts *prometheus.Desc
}

// NewStoreCollector creates a collector reading from db
func NewStoreCollector(log *logger.Logger, db *sqlx.DB) *StoreCollector {
	return &StoreCollector{
		log: log.With("component", "store_collector"),
		db:  db,

		events: prometheus.NewDesc(
			"econcal_events_stored",
			"Canonical events stored per currency",
			[]string{"currency"}, nil,
		),
		stageRows: prometheus.NewDesc(
			"econcal_stage_metrics_stored",
			"Metrics rows stored per stage table",
			[]string{"table"}, nil,
		),
		liveForecasts: prometheus.NewDesc(
			"econcal_live_forecasts_stored",
			"Rows currently in live_forecasts",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.events
	ch <- c.stageRows
	ch <- c.liveForecasts
}

// Collect implements prometheus.Collector
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectEvents(ctx, ch)
	c.collectStageRows(ctx, ch)
	c.collectLiveForecasts(ctx, ch)
}

func (c *StoreCollector) collectEvents(ctx context.Context, ch chan<- prometheus.Metric) {
	type currencyCount struct {
		Currency string `db:"currency"`
		Count    int64  `db:"count"`
	}

	var counts []currencyCount
	err := c.db.SelectContext(ctx, &counts, `
		SELECT currency, COUNT(*) AS count
		FROM events
		GROUP BY currency
	`)
	if err != nil {
		c.log.Warnw("Failed to collect event counts", "error", err)
		return
	}

	for _, cc := range counts {
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.GaugeValue, float64(cc.Count), cc.Currency)
	}
}

func (c *StoreCollector) collectStageRows(ctx context.Context, ch chan<- prometheus.Metric) {
	for _, table := range []string{"train_metrics", "validate_metrics", "test_forecasts"} {
		var n int64
		if err := c.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
			c.log.Warnw("Failed to collect stage row count", "table", table, "error", err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.stageRows, prometheus.GaugeValue, float64(n), table)
	}
}

func (c *StoreCollector) collectLiveForecasts(ctx context.Context, ch chan<- prometheus.Metric) {
	var n int64
	if err := c.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM live_forecasts"); err != nil {
		c.log.Warnw("Failed to collect live forecast count", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.liveForecasts, prometheus.GaugeValue, float64(n))
}

// RegisterStoreCollector registers the store collector
func RegisterStoreCollector(collector *StoreCollector) {
	prometheus.MustRegister(collector)
}
