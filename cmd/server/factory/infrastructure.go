// Package factory provides dependency injection constructors for infrastructure components.
package factory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/NewsPortal/internal/domain"
	"github.com/NewsPortal/internal/infra/queue"
	"github.com/NewsPortal/internal/infra/repository"
	"github.com/NewsPortal/pkg/config"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

// NewInstanceID identifies this replica in invalidation events.
func NewInstanceID(cfg *config.Config) string {
	if cfg.InstanceID != "" {
		return cfg.InstanceID
	}
	id := uuid.NewString()
	slog.Info("Generated instance id", "instance_id", id)
	return id
}

// NewMongoClient creates a MongoDB client with lifecycle management.
func NewMongoClient(lc fx.Lifecycle, cfg *config.Config) (*mongo.Client, error) {
	if cfg.MongoURI == "" {
		return nil, errors.New("mongo URI not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return client, nil
}

// NewSessionRepository creates the MongoDB session store.
func NewSessionRepository(client *mongo.Client, cfg *config.Config) (domain.SessionRepository, error) {
	if cfg.MongoDBName == "" {
		return nil, errors.New("mongo database name not configured")
	}
	if cfg.MongoSessionCollection == "" {
		return nil, errors.New("mongo session collection not configured")
	}
	return repository.NewMongoSessionRepository(client, cfg.MongoDBName, cfg.MongoSessionCollection)
}

// NewInvalidationProducer creates the Kafka producer for invalidation
// events. It returns nil when no brokers are configured.
func NewInvalidationProducer(cfg *config.Config, instanceID string, lc fx.Lifecycle) (*queue.KafkaProducer, error) {
	if !cfg.InvalidationEnabled() {
		slog.Info("Kafka brokers not configured, invalidations stay local")
		return nil, nil
	}
	if cfg.KafkaInvalidationTopic == "" {
		return nil, errors.New("kafka invalidation topic not configured")
	}

	producer := queue.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaInvalidationTopic, instanceID)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})
	return producer, nil
}

// NewInvalidationConsumer creates the Kafka consumer applying invalidations
// of other replicas. It returns nil when no brokers are configured.
func NewInvalidationConsumer(cfg *config.Config, instanceID string, lc fx.Lifecycle) (*queue.KafkaConsumer, error) {
	if !cfg.InvalidationEnabled() {
		return nil, nil
	}
	if cfg.KafkaInvalidationTopic == "" {
		return nil, errors.New("kafka invalidation topic not configured")
	}

	consumer := queue.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaInvalidationTopic, cfg.KafkaGroupPrefix, instanceID)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return consumer.Close()
		},
	})
	return consumer, nil
}
