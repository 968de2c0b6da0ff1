package history

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TestStore exercises the Mongo-backed chat log.
// Set MONGODB_URI to run against a real database.
func TestStore(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("MONGODB_URI not set, skipping chat history tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Skipf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	store, err := NewStore(client, &Config{
		Database:   "paintdesk_test",
		Collection: "chat_history_test",
	})
	if err != nil {
		t.Skipf("Failed to initialise chat history store: %v", err)
	}

	t.Run("save list clear", func(t *testing.T) {
		ctx := context.Background()
		conv := "conv-history-test"
		defer store.Clear(ctx, conv)

		if err := store.Save(ctx, conv, "user", "Do you sell primer?"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := store.Save(ctx, conv, "assistant", "Yes, two kinds."); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		entries, err := store.List(ctx, conv, 0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(entries))
		}
		if entries[0].Role != "user" || entries[1].Role != "assistant" {
			t.Errorf("Entries out of order: %s, %s", entries[0].Role, entries[1].Role)
		}

		if err := store.Clear(ctx, conv); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		entries, _ = store.List(ctx, conv, 0)
		if len(entries) != 0 {
			t.Errorf("Expected empty history after clear, got %d", len(entries))
		}
	})

	t.Run("save requires conversation", func(t *testing.T) {
		if err := store.Save(context.Background(), "", "user", "hi"); err == nil {
			t.Error("Expected error for empty conversation ID")
		}
	})
}
