package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for a key on a cache miss.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Loader is a read-through memoization layer: a Cache fronting a slow fetch
// function (database lookup, computation, remote call made by the caller).
//
// Loader owns its Cache exclusively and guards it with one mutex at the
// boundary, which is the concurrency contract the store itself requires.
// Concurrent misses for the same key are collapsed with singleflight, so the
// fetch function runs once per key however many callers are waiting.
//
// Loader is safe for concurrent use.
type Loader[K comparable, V any] struct {
	mu    sync.Mutex
	cache *Cache[K, V]
	group singleflight.Group
	fetch FetchFunc[K, V]

	// flights maps each key with a fetch in progress to its flight ID.
	// singleflight groups on strings, and formatting K could make distinct
	// keys collide; a per-flight sequence number cannot. Guarded by mu.
	flights   map[K]string
	flightSeq uint64
}

// NewLoader constructs a loader over a fresh cache of the given capacity.
// It returns ErrInvalidCapacity if capacity <= 0, and an error if fetch is
// nil.
func NewLoader[K comparable, V any](capacity int, fetch FetchFunc[K, V]) (*Loader[K, V], error) {
	if fetch == nil {
		return nil, fmt.Errorf("loader: fetch function must not be nil")
	}
	c, err := New[K, V](capacity)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	return &Loader[K, V]{
		cache:   c,
		fetch:   fetch,
		flights: make(map[K]string),
	}, nil
}

// Get returns the cached value for key, fetching and caching it on a miss.
//
// Misses for the same key that overlap in time share one fetch call and all
// receive its result. A failed fetch caches nothing; the error is returned to
// every waiting caller.
func (l *Loader[K, V]) Get(ctx context.Context, key K) (V, error) {
	l.mu.Lock()
	if v, ok := l.cache.Get(key); ok {
		l.mu.Unlock()
		return v, nil
	}
	// Miss: join the flight already open for this exact key, or open one.
	id, ok := l.flights[key]
	if !ok {
		l.flightSeq++
		id = strconv.FormatUint(l.flightSeq, 10)
		l.flights[key] = id
	}
	l.mu.Unlock()

	// singleflight collapses concurrent cache misses into one fetch.
	v, err, shared := l.group.Do(id, func() (interface{}, error) {
		defer func() {
			l.mu.Lock()
			if l.flights[key] == id {
				delete(l.flights, key)
			}
			l.mu.Unlock()
		}()

		// Re-check: a previous flight may have filled the cache between our
		// miss and this closure running. Peek, not Get: the caller's lookup
		// was already counted as a miss.
		l.mu.Lock()
		if v, ok := l.cache.Peek(key); ok {
			l.mu.Unlock()
			return v, nil
		}
		l.mu.Unlock()

		fresh, err := l.fetch(ctx, key)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.cache.Put(key, fresh)
		l.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		Logger().Warn("loader fetch failed", slog.Any("key", key), slog.Any("error", err))
		var zero V
		return zero, err
	}
	if shared {
		Logger().Debug("loader fetch shared", slog.Any("key", key))
	}
	return v.(V), nil
}

// Stats returns a snapshot of the underlying cache counters.
func (l *Loader[K, V]) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Stats()
}

// Invalidate drops a key from the cache so the next Get re-fetches it.
// Reports whether the key was present.
func (l *Loader[K, V]) Invalidate(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Remove(key)
}
