package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/cache"
	"github.com/yeisme/casevault/pkg/internal/storage/kv"
)

type entry struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

func newCache(t *testing.T) (*cache.Cache, *kv.MemoryKV) {
	t.Helper()

	store := kv.NewMemoryKV()

	return cache.NewCache(store), store
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	_, err := cache.Get[[]entry](ctx, c, "ledger.cases.1")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)

	ledger := []entry{
		{Filename: "1700000000_01HZX_report.pdf", Size: 2000, MimeType: "application/pdf"},
		{Filename: "1700000001_01HZY_photo.jpg", Size: 51200, MimeType: "image/jpeg"},
	}
	require.NoError(t, cache.Set(ctx, c, "ledger.cases.1", ledger, time.Minute))

	got, err := cache.Get[[]entry](ctx, c, "ledger.cases.1")
	require.NoError(t, err)
	assert.Equal(t, ledger, got)

	ok, err := c.Exists(ctx, "ledger.cases.1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "ledger.cases.1"))

	ok, err = c.Exists(ctx, "ledger.cases.1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetRejectsCorruptValue(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t)

	require.NoError(t, store.Set(ctx, "ledger.cases.9", []byte("{not json"), 0))

	_, err := cache.Get[[]entry](ctx, c, "ledger.cases.9")
	assert.ErrorIs(t, err, cache.ErrCorrupt)

	// GetOrSet 把坏值当作未命中并覆盖.
	got, err := cache.GetOrSet(ctx, c, "ledger.cases.9", func(context.Context) ([]entry, error) {
		return []entry{}, nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = cache.Get[[]entry](ctx, c, "ledger.cases.9")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetOrSetDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t)
	boom := errors.New("db unavailable")

	_, err := cache.GetOrSet(ctx, c, "ledger.incidents.3", func(context.Context) ([]entry, error) {
		return nil, boom
	}, time.Minute)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, store.Len())

	calls := 0
	load := func(context.Context) ([]entry, error) {
		calls++
		return []entry{{Filename: "a.txt", Size: 1}}, nil
	}

	for range 3 {
		got, err := cache.GetOrSet(ctx, c, "ledger.incidents.3", load, time.Minute)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}

	assert.Equal(t, 1, calls)
}

func TestGetOrSetCoalescesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	const callers = 16

	var (
		calls   atomic.Int32
		started sync.WaitGroup
		done    sync.WaitGroup
	)

	release := make(chan struct{})
	load := func(context.Context) ([]entry, error) {
		calls.Add(1)
		<-release

		return []entry{{Filename: "b.txt"}}, nil
	}

	started.Add(callers)
	done.Add(callers)

	for range callers {
		go func() {
			defer done.Done()

			started.Done()

			got, err := cache.GetOrSet(ctx, c, "ledger.cases.5", load, time.Minute)
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}

	started.Wait()
	time.Sleep(100 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c, store := newCache(t)

	for _, k := range []string{"ledger.cases.1", "ledger.cases.2", "ledger.incidents.1", "health.probe"} {
		require.NoError(t, cache.Set(ctx, c, k, []entry{}, 0))
	}

	n, err := c.Clear(ctx, "ledger.cases.*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err := store.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"health.probe", "ledger.incidents.1"}, keys)

	n, err = c.Clear(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, store.Len())

	_, err = c.Clear(ctx, "[")
	assert.Error(t, err)
}

func TestDeleteDuringLoadDiscardsFill(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	const key = "ledger.cases.7"

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan []entry, 1)

	go func() {
		got, err := cache.GetOrSet(ctx, c, key, func(context.Context) ([]entry, error) {
			close(started)
			<-release

			return []entry{}, nil
		}, time.Minute)
		assert.NoError(t, err)

		done <- got
	}()

	<-started
	require.NoError(t, c.Delete(ctx, key))

	// 失效之后开始的读取不复用失效前的回源.
	fresh := []entry{{Filename: "1700000000_01HZX_report.pdf", Size: 2000}}
	got, err := cache.GetOrSet(ctx, c, key, func(context.Context) ([]entry, error) {
		return fresh, nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	close(release)
	assert.Empty(t, <-done)

	// 旧回源晚于失效写回的值不可见.
	_, err = cache.Get[[]entry](ctx, c, key)
	require.ErrorIs(t, err, cache.ErrStale)

	got, err = cache.GetOrSet(ctx, c, key, func(context.Context) ([]entry, error) {
		return fresh, nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	got, err = cache.Get[[]entry](ctx, c, key)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestValuesFromAnotherInstanceAreStale(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryKV()

	require.NoError(t, cache.Set(ctx, cache.NewCache(store), "ledger.cases.1", []entry{{Filename: "a.txt"}}, 0))

	_, err := cache.Get[[]entry](ctx, cache.NewCache(store), "ledger.cases.1")
	assert.ErrorIs(t, err, cache.ErrStale)
}

func TestClearInvalidatesInFlightLoads(t *testing.T) {
	ctx := context.Background()
	c, _ := newCache(t)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		_, err := cache.GetOrSet(ctx, c, "ledger.incidents.4", func(context.Context) ([]entry, error) {
			close(started)
			<-release

			return []entry{{Filename: "old.txt"}}, nil
		}, time.Minute)
		assert.NoError(t, err)
	}()

	<-started

	_, err := c.Clear(ctx, "ledger.*")
	require.NoError(t, err)

	close(release)
	<-done

	_, err = cache.Get[[]entry](ctx, c, "ledger.incidents.4")
	assert.ErrorIs(t, err, cache.ErrStale)
}
