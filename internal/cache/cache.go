// Package cache provides a bounded in-memory cache with LRU eviction and
// per-entry TTL expiry. It is generic over the cached value and keyed by
// event id.
//
// The TTL is measured from the time an entry was stored, not from its last
// access. Reads refresh recency for eviction ordering but never extend an
// entry's lifetime, so a cached value is served at most ttl after it was
// written no matter how often it is read.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key      int64
	value    V
	storedAt time.Time
}

// Cache is a fixed-capacity LRU cache with TTL expiry. The zero value is not
// usable; construct with New or NewWithClock. All methods are safe for
// concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[int64]*list.Element
	order *list.List // front = most recently used
}

// New creates a cache holding at most capacity entries, each expiring ttl
// after it was stored. A ttl of zero or less disables expiry.
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	return NewWithClock[V](capacity, ttl, time.Now)
}

// NewWithClock is New with an explicit time source, for deterministic expiry
// in tests and for callers that already carry a clock.
func NewWithClock[V any](capacity int, ttl time.Duration, now func() time.Time) *Cache[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      now,
		items:    make(map[int64]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached value for key. Expired entries are removed and
// reported as a miss. A hit marks the entry most recently used.
func (c *Cache[V]) Get(key int64) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return zero, false
	}

	ent := el.Value.(*entry[V])
	if c.expired(ent) {
		c.order.Remove(el)
		delete(c.items, key)
		return zero, false
	}

	c.order.MoveToFront(el)
	return ent.value, true
}

// Put stores value under key, resetting its TTL. When the cache is full the
// least recently used entry is evicted first.
func (c *Cache[V]) Put(key int64, value V) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[V])
		ent.value = value
		ent.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	el := c.order.PushFront(&entry[V]{key: key, value: value, storedAt: c.now()})
	c.items[key] = el
}

// Delete removes key from the cache if present.
func (c *Cache[V]) Delete(key int64) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[int64]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the number of stored entries, counting entries that have
// expired but not yet been swept by a Get.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[V]) expired(ent *entry[V]) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(ent.storedAt) >= c.ttl
}

func (c *Cache[V]) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	ent := el.Value.(*entry[V])
	c.order.Remove(el)
	delete(c.items, ent.key)
}
