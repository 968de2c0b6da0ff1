package store

import (
	"context"
	"fmt"
	"time"

	"github.com/clearcoat/paintdesk/message"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists thread transcripts in MongoDB.
type MongoStore struct {
	collection *mongo.Collection
}

// MongoConfig holds MongoDB collection configuration for threads.
type MongoConfig struct {
	Database   string
	Collection string
}

// DefaultMongoConfig returns default thread collection configuration.
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		Database:   "paintdesk",
		Collection: "threads",
	}
}

type mongoThread struct {
	ID        string             `bson:"_id"`
	Messages  []*message.Message `bson:"messages"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// NewMongoStore creates a Mongo-backed thread store on an existing client.
func NewMongoStore(client *mongo.Client, config *MongoConfig) (*MongoStore, error) {
	if client == nil {
		return nil, fmt.Errorf("mongo client cannot be nil")
	}
	if config == nil {
		config = DefaultMongoConfig()
	}

	collection := client.Database(config.Database).Collection(config.Collection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("failed to create thread index: %w", err)
	}

	return &MongoStore{collection: collection}, nil
}

// Create stores a new transcript and returns its ID.
func (s *MongoStore) Create(ctx context.Context, seed []*message.Message) (string, error) {
	now := time.Now()
	doc := mongoThread{
		ID:        primitive.NewObjectID().Hex(),
		Messages:  seed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return doc.ID, nil
}

// Append adds messages to an existing transcript.
func (s *MongoStore) Append(ctx context.Context, id string, msgs ...*message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	update := bson.M{
		"$push": bson.M{"messages": bson.M{"$each": msgs}},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to append to thread: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("thread %s not found", id)
	}
	return nil
}

// Load returns the transcript messages in order.
func (s *MongoStore) Load(ctx context.Context, id string) ([]*message.Message, error) {
	var doc mongoThread
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("thread %s not found", id)
		}
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	return doc.Messages, nil
}

// Delete removes the transcript. Unknown IDs are ignored.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// Count returns the number of stored transcripts.
func (s *MongoStore) Count(ctx context.Context) (int, error) {
	count, err := s.collection.EstimatedDocumentCount(ctx, options.EstimatedDocumentCount())
	if err != nil {
		return 0, fmt.Errorf("failed to count threads: %w", err)
	}
	return int(count), nil
}
