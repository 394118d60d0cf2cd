/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	t.Run("invalid options", func(t *testing.T) {
		_, err := NewLRU[string, int](LRUOpts{MaxEntries: -1})
		require.Error(t, err)
		_, err = NewLRU[string, int](LRUOpts{DefaultTTL: -time.Second})
		require.Error(t, err)
	})

	t.Run("least recently used entry is evicted", func(t *testing.T) {
		metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{Name: "test"})
		lru, err := NewLRU[string, int](LRUOpts{MaxEntries: 2, MetricsCollector: metrics})
		require.NoError(t, err)

		lru.Add("a", 1)
		lru.Add("b", 2)
		_, ok := lru.Get("a")
		require.True(t, ok)
		lru.Add("c", 3)

		_, ok = lru.Get("b")
		require.False(t, ok)
		v, ok := lru.Get("a")
		require.True(t, ok)
		require.Equal(t, 1, v)
		require.Equal(t, 2, lru.Len())

		require.Equal(t, 2.0, testutil.ToFloat64(metrics.EntriesAmount))
		require.Equal(t, 2.0, testutil.ToFloat64(metrics.HitsTotal))
		require.Equal(t, 1.0, testutil.ToFloat64(metrics.MissesTotal))
		require.Equal(t, 1.0, testutil.ToFloat64(metrics.EvictionsTotal))
	})

	t.Run("unbounded", func(t *testing.T) {
		lru, err := NewLRU[int, int](LRUOpts{})
		require.NoError(t, err)
		for i := 0; i < 1000; i++ {
			lru.Add(i, i)
		}
		require.Equal(t, 1000, lru.Len())
	})

	t.Run("expired entry is removed lazily", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		lru, err := NewLRU[string, string](LRUOpts{DefaultTTL: time.Minute, Clock: clock})
		require.NoError(t, err)

		lru.Add("k", "v")
		clock.Advance(time.Minute)
		v, storedAt, ok := lru.GetWithStoredAt("k")
		require.True(t, ok)
		require.Equal(t, "v", v)
		require.Equal(t, clock.Now().Add(-time.Minute), storedAt)

		clock.Advance(time.Millisecond)
		require.Equal(t, 1, lru.Len())
		_, ok = lru.Get("k")
		require.False(t, ok)
		require.Equal(t, 0, lru.Len())
	})

	t.Run("get or add", func(t *testing.T) {
		lru, err := NewLRU[string, int](LRUOpts{})
		require.NoError(t, err)
		v, exists := lru.GetOrAdd("k", func() int { return 7 })
		require.False(t, exists)
		require.Equal(t, 7, v)
		v, exists = lru.GetOrAdd("k", func() int { return 8 })
		require.True(t, exists)
		require.Equal(t, 7, v)
	})
}
