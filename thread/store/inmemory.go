package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/clearcoat/paintdesk/message"
	"github.com/clearcoat/paintdesk/thread"
)

// InMemoryStore keeps transcripts in process memory. Intended for tests and
// single-node development setups.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]*message.Message
}

// NewInMemoryStore creates an empty in-memory thread store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		threads: make(map[string][]*message.Message),
	}
}

// Create stores a new transcript and returns its ID.
func (s *InMemoryStore) Create(ctx context.Context, seed []*message.Message) (string, error) {
	id := thread.NewID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[id] = message.CloneMessages(seed)
	return id, nil
}

// Append adds messages to an existing transcript.
func (s *InMemoryStore) Append(ctx context.Context, id string, msgs ...*message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.threads[id]
	if !ok {
		return fmt.Errorf("thread %s not found", id)
	}
	s.threads[id] = append(existing, message.CloneMessages(msgs)...)
	return nil
}

// Load returns the transcript messages in order.
func (s *InMemoryStore) Load(ctx context.Context, id string) ([]*message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.threads[id]
	if !ok {
		return nil, fmt.Errorf("thread %s not found", id)
	}
	return message.CloneMessages(msgs), nil
}

// Delete removes the transcript. Unknown IDs are ignored.
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, id)
	return nil
}

// Len returns the number of stored transcripts.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}
