package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NewsPortal/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSessionRepository stores login sessions. Expired documents are
// removed by a TTL index on expires_at.
type MongoSessionRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

var _ domain.SessionRepository = (*MongoSessionRepository)(nil)

func NewMongoSessionRepository(client *mongo.Client, dbName, collectionName string) (*MongoSessionRepository, error) {
	repo := &MongoSessionRepository{
		collection: client.Database(dbName).Collection(collectionName),
		now:        time.Now,
	}

	if err := repo.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return repo, nil
}

func (r *MongoSessionRepository) createIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("expires_at_ttl_idx").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id_idx"),
		},
	}

	opts := options.CreateIndexes().SetMaxTime(10 * time.Second)
	_, err := r.collection.Indexes().CreateMany(ctx, models, opts)
	return err
}

func (r *MongoSessionRepository) Save(ctx context.Context, s *domain.Session) error {
	filter := bson.M{"_id": s.ID}
	update := bson.M{"$set": s}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get returns session id. The TTL monitor runs periodically, so expiry is
// also checked in the query.
func (r *MongoSessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	filter := bson.M{"_id": id, "expires_at": bson.M{"$gt": r.now()}}

	var s domain.Session
	err := r.collection.FindOne(ctx, filter).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &s, nil
}

func (r *MongoSessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUser ends every session of userID and returns how many were removed.
func (r *MongoSessionRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions of user: %w", err)
	}
	return res.DeletedCount, nil
}
