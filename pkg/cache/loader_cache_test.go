package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderCache_Get(t *testing.T) {
	t.Run("loads on miss and caches", func(t *testing.T) {
		c, err := NewLoaderCache[string, int](10, func(k string) string { return k })
		require.NoError(t, err)

		var loads int
		load := func(context.Context, string) (int, error) {
			loads++
			return 42, nil
		}

		v, err := c.Get(context.Background(), "a", load)
		require.NoError(t, err)
		assert.Equal(t, 42, v)

		v, err = c.Get(context.Background(), "a", load)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 1, loads)
	})

	t.Run("load errors are not cached", func(t *testing.T) {
		c, err := NewLoaderCache[string, int](10, func(k string) string { return k })
		require.NoError(t, err)

		boom := errors.New("boom")
		calls := 0
		load := func(context.Context, string) (int, error) {
			calls++
			if calls == 1 {
				return 0, boom
			}
			return 7, nil
		}

		_, err = c.Get(context.Background(), "a", load)
		assert.ErrorIs(t, err, boom)

		v, err := c.Get(context.Background(), "a", load)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("concurrent misses coalesce into one load", func(t *testing.T) {
		c, err := NewLoaderCache[string, int](10, func(k string) string { return k })
		require.NoError(t, err)

		var loads atomic.Int32
		release := make(chan struct{})
		load := func(context.Context, string) (int, error) {
			loads.Add(1)
			<-release
			return 1, nil
		}

		const goroutines = 8
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				v, gerr := c.Get(context.Background(), "k", load)
				assert.NoError(t, gerr)
				assert.Equal(t, 1, v)
			}()
		}

		close(start)
		close(release)
		wg.Wait()

		assert.LessOrEqual(t, loads.Load(), int32(goroutines))
		assert.GreaterOrEqual(t, loads.Load(), int32(1))
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		c, err := NewLoaderCache[string, int](10, func(k string) string { return k })
		require.NoError(t, err)

		loads := 0
		load := func(context.Context, string) (int, error) {
			loads++
			return loads, nil
		}

		_, _ = c.Get(context.Background(), "a", load)
		c.Invalidate("a")

		v, err := c.Get(context.Background(), "a", load)
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})

	t.Run("GetWithStats reports hits", func(t *testing.T) {
		c, err := NewLoaderCache[string, int](10, func(k string) string { return k })
		require.NoError(t, err)

		load := func(context.Context, string) (int, error) { return 9, nil }

		_, hit, err := c.GetWithStats(context.Background(), "a", load)
		require.NoError(t, err)
		assert.False(t, hit)

		_, hit, err = c.GetWithStats(context.Background(), "a", load)
		require.NoError(t, err)
		assert.True(t, hit)
	})
}
