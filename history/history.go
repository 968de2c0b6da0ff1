// Package history persists the customer-visible chat log per conversation.
// It is an outer handler concern: saved best-effort around each turn and
// never consulted by the routing core.
package history

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entry is one logged chat message.
type Entry struct {
	ID             string    `bson:"_id" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	Role           string    `bson:"role" json:"role"`
	Content        string    `bson:"content" json:"content"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// Config holds MongoDB configuration for the chat log.
type Config struct {
	Database   string
	Collection string
}

// DefaultConfig returns default chat log configuration.
func DefaultConfig() *Config {
	return &Config{
		Database:   "paintdesk",
		Collection: "chat_history",
	}
}

// Store is a Mongo-backed conversation log.
type Store struct {
	collection *mongo.Collection
}

// NewStore creates a chat log store on an existing Mongo client.
func NewStore(client *mongo.Client, config *Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("mongo client cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}

	collection := client.Database(config.Database).Collection(config.Collection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat history index: %w", err)
	}

	return &Store{collection: collection}, nil
}

// Save appends one message to a conversation's log.
func (s *Store) Save(ctx context.Context, conversationID, role, content string) error {
	if conversationID == "" {
		return fmt.Errorf("conversation ID cannot be empty")
	}

	entry := Entry{
		ID:             primitive.NewObjectID().Hex(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if _, err := s.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// List returns a conversation's log in chronological order, up to limit
// entries (0 means all).
func (s *Store) List(ctx context.Context, conversationID string, limit int) ([]Entry, error) {
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}
	return entries, nil
}

// Clear removes a conversation's log.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"conversation_id": conversationID}); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}
