package cache

import "errors"

// ErrInvalidCapacity is returned by New when the requested capacity is not a
// positive integer. A store cannot be constructed without a bound.
var ErrInvalidCapacity = errors.New("capacity must be positive")

// Cache is a fixed-capacity in-memory key–value cache with LRU eviction.
//
// The core design is intentionally explicit and "mechanical":
// a map gives O(1) key lookup, and a doubly-linked list maintains recency
// ordering. The map stores a pointer straight into the list, so repositioning
// an entry is a constant-time splice, never a search.
//
// Ownership model:
// Cache is single-owner and performs no locking. Callers that share a store
// between goroutines must serialize access at the boundary, either one mutex
// or one owning goroutine around the whole store. Loader in this package is
// the canonical example of that pattern.
type Cache[K comparable, V any] struct {
	capacity int
	index    map[K]*lruNode[K, V]
	order    *lruList[K, V] // head = most recently used, tail = least recently used

	// onEvict, when set, observes entries removed by capacity eviction.
	// Explicit Remove and Clear do not report.
	onEvict func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

// New constructs an empty cache holding at most capacity entries.
//
// It returns ErrInvalidCapacity if capacity <= 0; in that case the returned
// cache is nil and must not be used.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	return NewWithEvict[K, V](capacity, nil)
}

// NewWithEvict is like New but registers a callback invoked with each entry
// the cache evicts to make room. The callback runs synchronously inside Put,
// after the entry has been removed from the store; it must not call back into
// the cache.
func NewWithEvict[K comparable, V any](capacity int, onEvict func(key K, value V)) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Cache[K, V]{
		capacity: capacity,
		index:    make(map[K]*lruNode[K, V], capacity),
		order:    newLRUList[K, V](),
		onEvict:  onEvict,
	}, nil
}

// Put writes/overwrites a key.
//
// An existing key has its value replaced in place and counts as used (moved
// to MRU); the entry count does not change. A new key is inserted at MRU,
// evicting the current LRU entry first if the cache is full.
//
// Complexity:
//   - O(1) to locate/insert
//   - O(1) for the single eviction a full insert can cause
func (c *Cache[K, V]) Put(key K, value V) {
	if node, ok := c.index[key]; ok {
		node.value = value
		c.order.MoveToFront(node)
		return
	}

	if len(c.index) >= c.capacity {
		c.evictOldest()
	}

	c.index[key] = c.order.PushFront(key, value)
}

// Get reads a key. Returns (value, true) on a hit, (zero, false) on a miss.
//
// A hit counts as use and promotes the entry to MRU. A miss is a normal
// outcome, not an error; it leaves the store untouched.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	node, ok := c.index[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	c.order.MoveToFront(node)
	c.hits++
	return node.value, true
}

// Peek reads a key without promoting it. Recency order and hit/miss counters
// are unaffected, so Peek is safe for diagnostics and tests.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	node, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return node.value, true
}

// Contains reports whether a key is present, without promoting it.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.index[key]
	return ok
}

// Remove deletes a key if present and reports whether it was.
// Removal is not an eviction: the onEvict callback is not invoked.
func (c *Cache[K, V]) Remove(key K) bool {
	node, ok := c.index[key]
	if !ok {
		return false
	}
	delete(c.index, key)
	c.order.Remove(node)
	return true
}

// Len returns the number of currently stored entries.
func (c *Cache[K, V]) Len() int {
	return len(c.index)
}

// Cap returns the configured capacity.
func (c *Cache[K, V]) Cap() int {
	return c.capacity
}

// Oldest returns the least recently used entry without removing or promoting
// it. Returns zero values and false on an empty cache.
func (c *Cache[K, V]) Oldest() (K, V, bool) {
	node := c.order.Oldest()
	if node == nil {
		var zeroK K
		var zeroV V
		return zeroK, zeroV, false
	}
	return node.key, node.value, true
}

// Keys returns keys in MRU -> LRU order.
//
// This is a debug/teaching helper used by the demo and tests.
func (c *Cache[K, V]) Keys() []K {
	out := make([]K, 0, c.order.Len())
	for node := c.order.head; node != nil; node = node.next {
		out = append(out, node.key)
	}
	return out
}

// Clear removes all entries. Counters are kept; cleared entries are not
// reported as evictions.
func (c *Cache[K, V]) Clear() {
	clear(c.index)
	c.order.Clear()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Len:       len(c.index),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		HitRate:   hitRate,
		Evictions: c.evictions,
	}
}

// evictOldest removes the current LRU entry and reports it to onEvict.
// Callers guarantee the cache is non-empty.
func (c *Cache[K, V]) evictOldest() {
	node := c.order.RemoveOldest()
	if node == nil {
		return
	}
	delete(c.index, node.key)
	c.evictions++
	if c.onEvict != nil {
		c.onEvict(node.key, node.value)
	}
}

// Stats contains cache counters.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the configured bound.
	Capacity int
	// Hits is the number of Get calls that found their key.
	Hits uint64
	// Misses is the number of Get calls that did not.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0.0–1.0.
	HitRate float64
	// Evictions is the number of entries removed to make room.
	Evictions uint64
}
