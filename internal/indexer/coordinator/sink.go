package coordinator

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/builder"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/kafka"
)

// Event announces a newly published generation.
type Event struct {
	Generation  uint64         `json:"generation"`
	Seq         uint64         `json:"seq"`
	Scope       builder.Scope  `json:"scope"`
	JobIDs      []string       `json:"jobIds"`
	Documents   int            `json:"documents"`
	Terms       int            `json:"terms"`
	PerKind     map[string]int `json:"perCollectionCounts"`
	PublishedAt time.Time      `json:"publishedAt"`
}

// EventSink receives an Event after every publish. Delivery is best effort
// and runs on its own goroutine: a slow or failing sink never holds back
// the index.
type EventSink interface {
	Published(ctx context.Context, ev Event) error
}

const sinkTimeout = 5 * time.Second

// emit queues the event for snap without blocking. Callers hold publishMu,
// so events are queued in generation order. A full queue drops the event.
func (c *Coordinator) emit(snap *index.Snapshot, scope builder.Scope, jobIDs []string) {
	if c.sink == nil {
		return
	}
	perKind := make(map[string]int)
	for k, n := range snap.CountsByKind() {
		perKind[k.String()] = n
	}
	ev := Event{
		Generation:  snap.Generation,
		Seq:         snap.Seq,
		Scope:       scope,
		JobIDs:      jobIDs,
		Documents:   snap.DocumentCount(),
		Terms:       snap.TermCount(),
		PerKind:     perKind,
		PublishedAt: time.Now().UTC(),
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event queue full, dropping published event", "generation", ev.Generation)
	}
}

func (c *Coordinator) runSink() {
	defer close(c.sinkDone)
	for ev := range c.events {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := c.sink.Published(ctx, ev); err != nil {
			c.logger.Warn("failed to announce published generation",
				"generation", ev.Generation,
				"error", err,
			)
		}
		cancel()
	}
}

// KafkaSink writes events to the index-published topic. All events share
// one key so consumers see them in generation order.
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(p *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: p}
}

func (s *KafkaSink) Published(ctx context.Context, ev Event) error {
	return s.producer.Publish(ctx, kafka.Event{Key: "index-generation", Type: "index.published", Value: ev})
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
