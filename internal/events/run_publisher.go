package events

import (
	"context"
	"time"

	"econcal/internal/adapters/kafka"
	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// Run outcome types carried in RunEvent.Type
const (
	RunCompleted = "run.completed"
	RunDegraded  = "run.degraded"
	RunFailed    = "run.failed"
)

// RunEvent is the notification emitted once per pipeline run
type RunEvent struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`

	Repaired          int      `json:"repaired"`
	Rejected          int      `json:"rejected"`
	Committed         int      `json:"committed_partitions"`
	FailedPartitions  []string `json:"failed_partitions,omitempty"`
	MetricsInserted   int      `json:"metrics_inserted"`
	ForecastsReplaced int      `json:"forecasts_replaced"`
	Error             string   `json:"error,omitempty"`
	DurationMs        int64    `json:"duration_ms"`
}

// Publisher is the subset of the Kafka producer the run publisher needs
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Compile-time check
var _ Publisher = (*kafka.Producer)(nil)

// RunPublisher publishes run outcomes to Kafka
type RunPublisher struct {
	producer Publisher
	topic    string
	log      *logger.Logger
}

// NewRunPublisher creates a run publisher writing to topic
func NewRunPublisher(producer Publisher, topic string, log *logger.Logger) *RunPublisher {
	return &RunPublisher{
		producer: producer,
		topic:    topic,
		log:      log.With("component", "run_publisher"),
	}
}

// PublishRun sends one run notification keyed by run id
func (p *RunPublisher) PublishRun(ctx context.Context, event RunEvent) error {
	if event.RunID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "run event without run id")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := p.producer.Publish(ctx, p.topic, event.RunID, event); err != nil {
		return errors.Wrapf(err, "publish %s for run %s", event.Type, event.RunID)
	}

	p.log.Debugw("Run notification published", "run_id", event.RunID, "type", event.Type)
	return nil
}
