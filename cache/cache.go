// Package cache provides a bounded, time-expiring store for conversation
// thread handles. Entries expire a fixed TTL after insertion and the least
// recently used entry is evicted when capacity is exceeded. A release hook
// is invoked for every evicted or expired handle so the owning resource can
// be cleaned up.
package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"github.com/clearcoat/paintdesk/pkg/logging"
)

const (
	// DefaultCapacity bounds the number of cached threads.
	DefaultCapacity = 1000
	// DefaultTTL is how long a cached thread stays valid after insertion.
	DefaultTTL = time.Hour
)

// Key identifies one cached thread slot. Distinct agents for the same
// conversation get independent threads.
type Key struct {
	ConversationID string
	Agent          string
}

// ReleaseFunc is invoked with the handle of every evicted or expired entry.
// Errors are logged and swallowed; a failing hook never fails the cache
// operation that triggered it.
type ReleaseFunc func(handle string) error

type entry struct {
	key        Key
	handle     string
	insertedAt time.Time
}

// ThreadCache is a TTL+LRU cache mapping conversation/agent pairs to thread
// handles. All methods are safe for concurrent use. The release hook runs
// after the internal lock is dropped, so a slow hook does not stall other
// conversations.
type ThreadCache struct {
	mu       sync.Mutex
	entries  map[Key]*list.Element
	order    *list.List // front = most recently used
	capacity int
	ttl      time.Duration
	release  ReleaseFunc
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a ThreadCache.
type Option func(*ThreadCache)

// WithCapacity overrides the maximum number of entries.
func WithCapacity(n int) Option {
	return func(c *ThreadCache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithTTL overrides the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *ThreadCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source; mainly useful for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ThreadCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger overrides the cache logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *ThreadCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a ThreadCache with the given release hook. A nil release hook
// is allowed; eviction then only drops the entry.
func New(release ReleaseFunc, opts ...Option) *ThreadCache {
	c := &ThreadCache{
		entries:  make(map[Key]*list.Element),
		order:    list.New(),
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		release:  release,
		now:      time.Now,
		logger:   logging.WithComponent("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached handle for key and marks it as most recently used.
// Expired entries are purged first, before key is considered.
func (c *ThreadCache) Get(key Key) (string, bool) {
	c.mu.Lock()
	expired := c.purgeExpiredLocked()

	elem, ok := c.entries[key]
	var handle string
	if ok {
		c.order.MoveToFront(elem)
		handle = elem.Value.(*entry).handle
	}
	c.mu.Unlock()

	c.releaseAll(expired)
	return handle, ok
}

// Put inserts or overwrites the handle for key. Expired entries are purged
// first; if inserting would then exceed capacity, the least recently used
// entry is evicted.
func (c *ThreadCache) Put(key Key, handle string) {
	c.mu.Lock()
	released := c.purgeExpiredLocked()

	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry)
		ent.handle = handle
		ent.insertedAt = c.now()
		c.order.MoveToFront(elem)
	} else {
		ent := &entry{key: key, handle: handle, insertedAt: c.now()}
		c.entries[key] = c.order.PushFront(ent)

		for c.order.Len() > c.capacity {
			oldest := c.order.Back()
			if oldest == nil {
				break
			}
			evicted := c.removeLocked(oldest)
			c.logger.Info("thread evicted from cache (LRU)", "thread", evicted.handle)
			released = append(released, evicted.handle)
		}
	}
	c.mu.Unlock()

	c.releaseAll(released)
}

// Len returns the current number of cached entries.
func (c *ThreadCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Close releases every remaining entry. The cache stays usable afterwards
// but is empty.
func (c *ThreadCache) Close() {
	c.mu.Lock()
	var handles []string
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		handles = append(handles, elem.Value.(*entry).handle)
	}
	c.entries = make(map[Key]*list.Element)
	c.order.Init()
	c.mu.Unlock()

	c.releaseAll(handles)
}

// purgeExpiredLocked removes all entries older than the TTL and returns
// their handles. Caller must hold c.mu.
func (c *ThreadCache) purgeExpiredLocked() []string {
	var handles []string
	now := c.now()
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		ent := elem.Value.(*entry)
		if now.Sub(ent.insertedAt) >= c.ttl {
			c.removeLocked(elem)
			c.logger.Info("thread expired from cache", "thread", ent.handle)
			handles = append(handles, ent.handle)
		}
		elem = prev
	}
	return handles
}

func (c *ThreadCache) removeLocked(elem *list.Element) *entry {
	ent := c.order.Remove(elem).(*entry)
	delete(c.entries, ent.key)
	return ent
}

// releaseAll invokes the release hook for each handle outside the cache
// lock. Hook errors and panics are logged, never propagated.
func (c *ThreadCache) releaseAll(handles []string) {
	if c.release == nil {
		return
	}
	for _, handle := range handles {
		c.releaseOne(handle)
	}
}

func (c *ThreadCache) releaseOne(handle string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("thread release hook panicked", "thread", handle, "panic", r)
		}
	}()
	if err := c.release(handle); err != nil {
		c.logger.Error("thread release hook failed", "thread", handle, "error", err)
	}
}
