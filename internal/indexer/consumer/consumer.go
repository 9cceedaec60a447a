// Package consumer reads catalog change notifications from Kafka and hands
// them to the consistency coordinator.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/coordinator"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/metrics"
)

// Notifier accepts committed changes.
type Notifier interface {
	Notify(ctx context.Context, change catalog.Change) (coordinator.JobAck, error)
}

// ChangeConsumer wraps a Kafka consumer to drive mutation reindexes.
type ChangeConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates a ChangeConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *ChangeConsumer {
	return &ChangeConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "change-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (cc *ChangeConsumer) Start(ctx context.Context) error {
	cc.logger.Info("change consumer starting")
	return cc.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that forwards each change
// event to n. Undecodable or invalid events are logged and committed so they
// cannot wedge the partition; a stopped coordinator leaves the message
// uncommitted for redelivery.
func HandleMessage(n Notifier, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "change-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		change, err := kafka.DecodeJSON[catalog.Change](value)
		if err != nil {
			logger.Error("failed to decode change event",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		ack, err := n.Notify(ctx, change)
		switch {
		case errors.Is(err, apperrors.ErrInvalidInput):
			logger.Warn("dropping invalid change event",
				"key", string(key),
				"error", err,
			)
			return nil
		case err != nil:
			return fmt.Errorf("notifying change %s: %w", change.Ref(), err)
		}
		m.ObserveChange("kafka", string(change.Operation))

		logger.Debug("change queued",
			"ref", change.Ref().String(),
			"operation", change.Operation,
			"job_id", ack.JobID,
			"seq", ack.Seq,
		)
		return nil
	}
}
