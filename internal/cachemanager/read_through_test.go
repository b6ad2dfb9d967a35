package cachemanager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls atomic.Int32
	err   error
	gate  chan struct{}
}

func (l *countingLoader) load(_ context.Context, key string) (string, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	if l.err != nil {
		return "", l.err
	}
	return "value:" + key, nil
}

func newReadThrough(l *countingLoader) (*ReadThroughCache[string, string], *InMemoryCacheManager[string, string]) {
	cache := NewInMemoryCacheManager[string, string]("read-through", DefaultExpiration, DefaultCleanupInterval)
	return NewReadThroughCache[string, string](cache, l.load, time.Minute), cache
}

func TestReadThroughCache_LoadsOnce(t *testing.T) {
	l := &countingLoader{}
	rt, _ := newReadThrough(l)

	for range 3 {
		got, err := rt.Get(context.Background(), "a")
		require.NoError(t, err)
		require.Equal(t, "value:a", got)
	}
	require.Equal(t, int32(1), l.calls.Load())
}

func TestReadThroughCache_UsesCachedValue(t *testing.T) {
	l := &countingLoader{}
	rt, cache := newReadThrough(l)
	cache.Set(context.Background(), "a", "preset", time.Minute)

	got, err := rt.GetWithRefresh(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "preset", got)
	require.Zero(t, l.calls.Load())
}

func TestReadThroughCache_ErrorsNotCached(t *testing.T) {
	boom := errors.New("boom")
	l := &countingLoader{err: boom}
	rt, cache := newReadThrough(l)

	_, err := rt.Get(context.Background(), "a")
	require.ErrorIs(t, err, boom)
	_, err = rt.GetWithRefresh(context.Background(), "a")
	require.ErrorIs(t, err, boom)
	require.Equal(t, int32(2), l.calls.Load())
	require.Zero(t, cache.Stats().Items)
}

func TestReadThroughCache_Invalidate(t *testing.T) {
	l := &countingLoader{}
	rt, _ := newReadThrough(l)
	ctx := context.Background()

	_, err := rt.Get(ctx, "a")
	require.NoError(t, err)
	rt.Invalidate(ctx, "a")
	_, err = rt.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int32(2), l.calls.Load())
}

func TestReadThroughCache_ConcurrentMissesShareLoad(t *testing.T) {
	l := &countingLoader{gate: make(chan struct{})}
	rt, _ := newReadThrough(l)

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := rt.Get(context.Background(), "shared")
			require.NoError(t, err)
			results[i] = v
		}()
	}

	require.Eventually(t, func() bool { return l.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(l.gate)
	wg.Wait()

	require.Equal(t, int32(1), l.calls.Load())
	for _, v := range results {
		require.Equal(t, "value:shared", v)
	}
}

func TestReadThroughCache_WaiterHonoursContext(t *testing.T) {
	l := &countingLoader{gate: make(chan struct{})}
	rt, _ := newReadThrough(l)
	defer close(l.gate)

	go func() { _, _ = rt.Get(context.Background(), "slow") }()
	require.Eventually(t, func() bool { return l.calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := rt.Get(ctx, "slow")
	require.ErrorIs(t, err, context.Canceled)
}
