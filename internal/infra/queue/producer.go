package queue

import (
	"context"
	"log/slog"

	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/infra/metrics"
	"github.com/NewsPortal/internal/store"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes the invalidations of this replica.
type KafkaProducer struct {
	writer messageWriter
	origin string
}

var (
	_ domain.InvalidationPublisher = (*KafkaProducer)(nil)
	_ store.Broadcaster            = (*KafkaProducer)(nil)
)

func NewKafkaProducer(brokers []string, topic, origin string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	slog.Info("Kafka Producer initialized", "brokers", brokers, "topic", topic, "origin", origin)
	return &KafkaProducer{writer: w, origin: origin}
}

// Broadcast publishes keys as an event of this replica.
func (p *KafkaProducer) Broadcast(ctx context.Context, keys []store.Key) error {
	return p.Publish(ctx, NewEvent(p.origin, keys))
}

func (p *KafkaProducer) Publish(ctx context.Context, ev *domain.InvalidationEvent) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		metrics.InvalidationEventsPublished.WithLabelValues("invalid").Inc()
		return err
	}

	msg := kafka.Message{
		Key:   partitionKey(ev),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.InvalidationEventsPublished.WithLabelValues("error").Inc()
		slog.Error("Failed to write to kafka", "error", err)
		return err
	}

	metrics.InvalidationEventsPublished.WithLabelValues("success").Inc()
	slog.Debug("Published invalidation event", "keys", ev.Keys)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
