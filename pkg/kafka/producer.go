package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/config"
)

// Event is one JSON message. Key picks the partition, so events sharing a
// key stay ordered. Type, when set, travels in the "event-type" header.
type Event struct {
	Key   string
	Type  string
	Value any
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	source string
	logger *slog.Logger
}

// NewProducer writes to topic with acknowledgement from every in-sync
// replica. source is stamped on each message's "source" header.
func NewProducer(cfg config.KafkaConfig, topic, source string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return newProducer(w, topic, source)
}

func newProducer(w messageWriter, topic, source string) *Producer {
	return &Producer{
		writer: w,
		source: source,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes event synchronously.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event.Type, err)
	}
	msg := kafka.Message{
		Key:     []byte(event.Key),
		Value:   value,
		Time:    time.Now().UTC(),
		Headers: p.headers(event),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish failed", "key", event.Key, "type", event.Type, "error", err)
		return fmt.Errorf("publishing %s event: %w", event.Type, err)
	}
	p.logger.Debug("event published", "key", event.Key, "type", event.Type, "bytes", len(value))
	return nil
}

func (p *Producer) headers(event Event) []kafka.Header {
	h := []kafka.Header{{Key: "content-type", Value: []byte("application/json")}}
	if event.Type != "" {
		h = append(h, kafka.Header{Key: "event-type", Value: []byte(event.Type)})
	}
	if p.source != "" {
		h = append(h, kafka.Header{Key: "source", Value: []byte(p.source)})
	}
	return slices.Clip(h)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Header returns the value of the named header, or "".
func Header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
