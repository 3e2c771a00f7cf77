package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"

	"econcal/internal/adapters/config"
	"econcal/internal/adapters/kafka"
	"econcal/internal/events"
	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

func newWatchRunsCmd() *cobra.Command {
	var groupID string

	cmd := &cobra.Command{
		Use:   "watch-runs",
		Short: "Follow run notifications on the Kafka run topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.Kafka.Enabled() {
				return errors.Wrap(errors.ErrInvalidInput, "KAFKA_BROKERS is not set")
			}
			if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
				return err
			}
			log := logger.Get()
			defer func() { _ = logger.Sync() }()

			consumer := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers: cfg.Kafka.Brokers,
				GroupID: groupID,
				Topic:   cfg.Kafka.RunTopic,
			}, log)
			defer consumer.Close()

			err = consumer.Consume(cmd.Context(), func(_ context.Context, msg kafkago.Message) error {
				var ev events.RunEvent
				if err := json.Unmarshal(msg.Value, &ev); err != nil {
					return errors.Wrapf(errors.ErrMalformedInput, "run event at offset %d: %v", msg.Offset, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatRunEvent(ev))
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "econcal-watch", "consumer group id")
	return cmd
}

func formatRunEvent(ev events.RunEvent) string {
	line := fmt.Sprintf("%s %-13s run=%s repaired=%d rejected=%d committed=%d metrics=%d forecasts=%d took=%dms",
		ev.Timestamp.Format("2006-01-02 15:04:05"), ev.Type, ev.RunID,
		ev.Repaired, ev.Rejected, ev.Committed, ev.MetricsInserted, ev.ForecastsReplaced, ev.DurationMs)
	if len(ev.FailedPartitions) > 0 {
		line += fmt.Sprintf(" failed=%v", ev.FailedPartitions)
	}
	if ev.Error != "" {
		line += " error=" + ev.Error
	}
	return line
}
