package queue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/NewsPortal/internal/infra/metrics"
	"github.com/NewsPortal/internal/store"
	"github.com/segmentio/kafka-go"
)

// Invalidator applies invalidations received from other replicas.
type Invalidator interface {
	Invalidate(targets ...store.Key) int
}

// KafkaConsumer reads every invalidation event of the topic. Each replica
// uses its own consumer group so that all replicas see all events.
type KafkaConsumer struct {
	reader *kafka.Reader
	origin string
}

func NewKafkaConsumer(brokers []string, topic, groupPrefix, origin string) *KafkaConsumer {
	groupID := groupPrefix + "-" + origin
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1e6, // 1MB
	})
	slog.Info("Kafka Consumer initialized", "brokers", brokers, "topic", topic, "group", groupID)
	return &KafkaConsumer{reader: r, origin: origin}
}

// Start blocks until ctx is done or the reader fails.
func (c *KafkaConsumer) Start(ctx context.Context, inv Invalidator) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Error("Error reading kafka message", "error", err)
			}
			return
		}
		c.handle(m, inv)
	}
}

func (c *KafkaConsumer) handle(m kafka.Message, inv Invalidator) int {
	ev, err := decodeEvent(m.Value)
	if err != nil {
		metrics.InvalidationEventsConsumed.WithLabelValues("invalid").Inc()
		slog.Error("Error decoding invalidation event", "partition", m.Partition, "offset", m.Offset, "error", err)
		return 0
	}
	if ev.Origin == c.origin {
		metrics.InvalidationEventsConsumed.WithLabelValues("own").Inc()
		return 0
	}

	marked := inv.Invalidate(Targets(ev)...)
	metrics.InvalidationEventsConsumed.WithLabelValues("applied").Inc()
	slog.Debug("Applied remote invalidation", "origin", ev.Origin, "keys", ev.Keys, "entries", marked)
	return marked
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
