package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clearcoat/paintdesk/message"
	"github.com/clearcoat/paintdesk/thread"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists thread transcripts as Redis lists. Keys carry a TTL so
// abandoned transcripts age out even if the release hook never fires.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis configuration for threads.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisStore creates a new Redis-based thread store.
func NewRedisStore(config *RedisConfig) *RedisStore {
	if config == nil {
		config = &RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "paintdesk:thread:",
			TTL:    24 * time.Hour,
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisStore{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

// Create stores a new transcript and returns its ID.
func (s *RedisStore) Create(ctx context.Context, seed []*message.Message) (string, error) {
	id := thread.NewID()
	if err := s.push(ctx, id, seed); err != nil {
		return "", err
	}
	return id, nil
}

// Append adds messages to an existing transcript.
func (s *RedisStore) Append(ctx context.Context, id string, msgs ...*message.Message) error {
	exists, err := s.client.Exists(ctx, s.threadKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check thread: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("thread %s not found", id)
	}
	return s.push(ctx, id, msgs)
}

// Load returns the transcript messages in order.
func (s *RedisStore) Load(ctx context.Context, id string) ([]*message.Message, error) {
	raw, err := s.client.LRange(ctx, s.threadKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("thread %s not found", id)
	}

	msgs := make([]*message.Message, 0, len(raw))
	for _, item := range raw {
		var msg message.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode thread message: %w", err)
		}
		msgs = append(msgs, &msg)
	}
	return msgs, nil
}

// Delete removes the transcript. Unknown IDs are ignored.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.threadKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) push(ctx context.Context, id string, msgs []*message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	key := s.threadKey(id)
	values := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		raw, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal thread message: %w", err)
		}
		values = append(values, raw)
	}

	if err := s.client.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("failed to store thread messages: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set thread TTL: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) threadKey(id string) string {
	return s.prefix + id
}
