package noaa

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// FeedCache stores fetched feeds for a bounded time.
type FeedCache interface {
	Get(ctx context.Context, key string) (domain.RawFeed, bool, error)
	Set(ctx context.Context, key string, feed domain.RawFeed) error
	Clear(ctx context.Context) error
}

// MemoryCache is a thread-safe in-process LRU cache whose entries expire
// after a fixed TTL.
type MemoryCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key     string
	value   domain.RawFeed
	expires time.Time
	prev    *entry
	next    *entry
}

// NewMemoryCache creates a cache holding at most maxEntries feeds for ttl each.
// A nil clock uses real time.
func NewMemoryCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *MemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryCache{
		maxEntries: max(maxEntries, 1),
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (domain.RawFeed, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.RawFeed{}, false, nil
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return domain.RawFeed{}, false, nil
	}
	c.moveToFront(e)
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, feed domain.RawFeed) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = feed
		e.expires = expires
		c.moveToFront(e)
		return nil
	}

	e := &entry{key: key, value: feed, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	return nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.head, c.tail = nil, nil
	return nil
}

// Len reports the number of entries, including expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *MemoryCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *MemoryCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *MemoryCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
