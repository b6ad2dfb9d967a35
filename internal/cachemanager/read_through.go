package cachemanager

import (
	"context"
	"sync"
	"time"
)

// LoadFunc produces the value for a key on a cache miss.
type LoadFunc[K ~string, V any] func(ctx context.Context, key K) (V, error)

// ReadThroughCache fills a CacheManager from a LoadFunc. Concurrent misses
// on the same key share one load.
type ReadThroughCache[K ~string, V any] struct {
	cache CacheManager[K, V]
	load  LoadFunc[K, V]
	ttl   time.Duration

	mu       sync.Mutex
	inflight map[K]*call[V]
}

type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// NewReadThroughCache wraps cache. Loaded values are stored for ttl.
func NewReadThroughCache[K ~string, V any](cache CacheManager[K, V], load LoadFunc[K, V], ttl time.Duration) *ReadThroughCache[K, V] {
	return &ReadThroughCache[K, V]{
		cache:    cache,
		load:     load,
		ttl:      ttl,
		inflight: make(map[K]*call[V]),
	}
}

// Get returns the cached value or loads it. Errors are not cached.
func (r *ReadThroughCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}
	return r.fill(ctx, key)
}

// GetWithRefresh is Get that also extends a cached entry's expiry.
func (r *ReadThroughCache[K, V]) GetWithRefresh(ctx context.Context, key K) (V, error) {
	if value, ok := r.cache.GetWithRefresh(ctx, key, r.ttl); ok {
		return value, nil
	}
	return r.fill(ctx, key)
}

// Invalidate drops key so the next Get loads it again.
func (r *ReadThroughCache[K, V]) Invalidate(ctx context.Context, key K) {
	r.cache.Delete(ctx, key)
}

func (r *ReadThroughCache[K, V]) fill(ctx context.Context, key K) (V, error) {
	r.mu.Lock()
	if c, ok := r.inflight[key]; ok {
		r.mu.Unlock()
		select {
		case <-c.done:
			return c.value, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
	c := &call[V]{done: make(chan struct{})}
	r.inflight[key] = c
	r.mu.Unlock()

	c.value, c.err = r.load(ctx, key)
	if c.err == nil {
		r.cache.Set(ctx, key, c.value, r.ttl)
	}

	r.mu.Lock()
	delete(r.inflight, key)
	r.mu.Unlock()
	close(c.done)
	return c.value, c.err
}
