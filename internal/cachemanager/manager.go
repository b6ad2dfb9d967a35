// Package cachemanager provides the TTL caches shared by the pattern
// engine, the grammar registry and theme lookups.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a keyed TTL cache.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	// GetWithRefresh is Get that also pushes the entry's expiry out to ttl.
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K)
	Flush(ctx context.Context)
	Stats() Stats
}

// Stats counts lookups since creation.
type Stats struct {
	UseCase string
	Hits    uint64
	Misses  uint64
	Items   int
}

// HitRate is Hits over all lookups, or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
