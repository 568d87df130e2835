package service

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// lru is a small in-memory LRU with per-entry TTL. Safe for concurrent use.
type lru[V any] struct {
	mu     sync.Mutex
	cap    int
	ll     *list.List               // front = most-recently used
	items  map[string]*list.Element // key -> element
	now    func() time.Time
	hits   atomic.Uint64
	misses atomic.Uint64
	evicts atomic.Uint64
}

type lruEntry[V any] struct {
	key    string
	value  V
	expiry time.Time // zero means no expiry
}

func newLRU[V any](capacity int, now func() time.Time) *lru[V] {
	if capacity <= 0 {
		capacity = 1024
	}
	if now == nil {
		now = time.Now
	}
	return &lru[V]{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element, capacity),
		now:   now,
	}
}

// Get returns the value for key if present and not expired.
func (c *lru[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, found := c.items[key]
	if !found {
		c.misses.Add(1)
		return zero, false
	}
	ent := el.Value.(*lruEntry[V])
	if c.isExpired(ent) {
		c.removeElement(el)
		c.misses.Add(1)
		return zero, false
	}
	c.ll.MoveToFront(el)
	c.hits.Add(1)
	return ent.value, true
}

// Set inserts or updates a value. ttl <= 0 means no expiration.
func (c *lru[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}

	if el, found := c.items[key]; found {
		ent := el.Value.(*lruEntry[V])
		ent.value = value
		ent.expiry = exp
		c.ll.MoveToFront(el)
		return
	}

	c.items[key] = c.ll.PushFront(&lruEntry[V]{key: key, value: value, expiry: exp})
	for c.ll.Len() > c.cap {
		c.removeElement(c.ll.Back())
		c.evicts.Add(1)
	}
}

// Delete removes key and reports whether it was present.
func (c *lru[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
		return true
	}
	return false
}

// Len returns the number of entries, expired ones included until touched.
func (c *lru[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// CacheStats are counters for observability.
type CacheStats struct {
	Hits, Misses, Evictions uint64
	Size, Capacity          int
}

func (c *lru[V]) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evicts.Load(),
		Size:      c.Len(),
		Capacity:  c.cap,
	}
}

// caller must hold c.mu.
func (c *lru[V]) isExpired(e *lruEntry[V]) bool {
	return !e.expiry.IsZero() && c.now().After(e.expiry)
}

// caller must hold c.mu.
func (c *lru[V]) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*lruEntry[V]).key)
}
