package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type exampleStruct struct {
	ID   int
	Name string
}

func TestInMemoryCacheManager_GetExistingValue(t *testing.T) {
	cache := NewInMemoryCacheManager[string, exampleStruct]("examples", DefaultExpiration, DefaultCleanupInterval)
	example := exampleStruct{ID: 1, Name: "apple"}
	cache.Set(context.Background(), "ex:1", example, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "ex:1")
	require.True(t, ok)
	require.Equal(t, example, got)
}

func TestInMemoryCacheManager_Miss(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("examples", DefaultExpiration, DefaultCleanupInterval)

	got, ok := cache.Get(context.Background(), "food")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_WrongType(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("examples", DefaultExpiration, DefaultCleanupInterval)
	cache.cache.Set("food", 123, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "food")
	require.False(t, ok)
	require.Empty(t, got)
	require.Equal(t, uint64(1), cache.Stats().Misses)
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("examples", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "short", "x", 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "short")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string, string]("examples", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(ctx, "k", "v", 50*time.Millisecond)

	got, ok := cache.GetWithRefresh(ctx, "k", NoExpiration)
	require.True(t, ok)
	require.Equal(t, "v", got)

	time.Sleep(80 * time.Millisecond)
	_, ok = cache.Get(ctx, "k")
	require.True(t, ok, "refresh should have removed the expiry")

	_, ok = cache.GetWithRefresh(ctx, "absent", time.Minute)
	require.False(t, ok)
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string, int]("examples", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(ctx, "a", 1, DefaultExpiration)
	cache.Set(ctx, "b", 2, DefaultExpiration)
	cache.Set(ctx, "c", 3, DefaultExpiration)

	cache.Delete(ctx)
	cache.Delete(ctx, "a", "missing")
	_, ok := cache.Get(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 2, cache.Stats().Items)

	cache.Flush(ctx)
	require.Zero(t, cache.Stats().Items)
}

func TestInMemoryCacheManager_Stats(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string, int]("counted", DefaultExpiration, DefaultCleanupInterval)
	require.Zero(t, cache.Stats().HitRate())

	cache.Set(ctx, "a", 1, DefaultExpiration)
	cache.Get(ctx, "a")
	cache.Get(ctx, "a")
	cache.Get(ctx, "a")
	cache.Get(ctx, "b")

	stats := cache.Stats()
	require.Equal(t, Stats{UseCase: "counted", Hits: 3, Misses: 1, Items: 1}, stats)
	require.InDelta(t, 0.75, stats.HitRate(), 1e-9)
}
