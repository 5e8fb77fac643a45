package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rs, err := NewRedisStore(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	return mr, rs
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Requires_Address", func(t *testing.T) {
		_, err := NewRedisStore(RedisConfig{})
		assert.Error(t, err)
	})

	t.Run("Unreachable_Address", func(t *testing.T) {
		_, err := NewRedisStore(RedisConfig{
			Addr:        "127.0.0.1:1",
			DialTimeout: 500 * time.Millisecond,
		})
		assert.Error(t, err)
	})

	t.Run("Get_Absent_Is_Nil", func(t *testing.T) {
		_, rs := newTestRedisStore(t)

		val, err := rs.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("Set_Get_Round_Trip", func(t *testing.T) {
		_, rs := newTestRedisStore(t)

		require.NoError(t, rs.Set(ctx, "k", []byte("v"), time.Minute))

		val, err := rs.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), val)
	})

	t.Run("TTL_Expiration", func(t *testing.T) {
		mr, rs := newTestRedisStore(t)

		require.NoError(t, rs.Set(ctx, "k", []byte("v"), time.Second))

		val, err := rs.Get(ctx, "k")
		require.NoError(t, err)
		require.NotNil(t, val)

		mr.FastForward(2 * time.Second)

		val, err = rs.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("TTL_Sentinels", func(t *testing.T) {
		_, rs := newTestRedisStore(t)

		d, err := rs.TTL(ctx, "missing")
		require.NoError(t, err)
		assert.Equal(t, TTLMissing, d)

		require.NoError(t, rs.Set(ctx, "forever", []byte("v"), 0))
		d, err = rs.TTL(ctx, "forever")
		require.NoError(t, err)
		assert.Equal(t, TTLNone, d)

		require.NoError(t, rs.Set(ctx, "bounded", []byte("v"), time.Hour))
		d, err = rs.TTL(ctx, "bounded")
		require.NoError(t, err)
		assert.Greater(t, d, 59*time.Minute)
	})

	t.Run("Delete_Counts_Existing", func(t *testing.T) {
		_, rs := newTestRedisStore(t)

		require.NoError(t, rs.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, rs.Set(ctx, "b", []byte("2"), 0))

		n, err := rs.Delete(ctx, "a", "b", "missing")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = rs.Delete(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Exists", func(t *testing.T) {
		_, rs := newTestRedisStore(t)

		ok, err := rs.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, rs.Set(ctx, "k", []byte("v"), 0))
		ok, err = rs.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Scan_Glob", func(t *testing.T) {
		_, rs := newTestRedisStore(t)

		require.NoError(t, rs.Set(ctx, "app:resp:a", []byte("1"), 0))
		require.NoError(t, rs.Set(ctx, "app:resp:b", []byte("2"), 0))
		require.NoError(t, rs.Set(ctx, "app:stats:hits", []byte("3"), 0))

		keys, err := rs.ScanKeys(ctx, "app:resp:*")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"app:resp:a", "app:resp:b"}, keys)

		keys, err = rs.ScanKeys(ctx, "app:resp:?")
		require.NoError(t, err)
		assert.Len(t, keys, 2)

		keys, err = rs.ScanKeys(ctx, "nothing:*")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("Counters", func(t *testing.T) {
		_, rs := newTestRedisStore(t)

		n, err := rs.IncrBy(ctx, "hits", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = rs.IncrBy(ctx, "hits", 4)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		f, err := rs.IncrByFloat(ctx, "cost", 0.25)
		require.NoError(t, err)
		assert.InDelta(t, 0.25, f, 1e-9)

		f, err = rs.IncrByFloat(ctx, "cost", 0.50)
		require.NoError(t, err)
		assert.InDelta(t, 0.75, f, 1e-9)
	})

	t.Run("Concurrent_Increments", func(t *testing.T) {
		_, rs := newTestRedisStore(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					_, err := rs.IncrBy(ctx, "total", 1)
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		n, err := rs.IncrBy(ctx, "total", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(200), n)
	})

	t.Run("FlushAll", func(t *testing.T) {
		_, rs := newTestRedisStore(t)

		require.NoError(t, rs.Set(ctx, "k", []byte("v"), 0))
		require.NoError(t, rs.FlushAll(ctx))

		val, err := rs.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("Reader_Writer_Split", func(t *testing.T) {
		writer, err := miniredis.Run()
		require.NoError(t, err)
		defer writer.Close()

		reader, err := miniredis.Run()
		require.NoError(t, err)
		defer reader.Close()

		rs, err := NewRedisStore(RedisConfig{Addr: writer.Addr(), ReadAddr: reader.Addr()})
		require.NoError(t, err)
		defer rs.Close()

		// Mutations land on the writer only.
		require.NoError(t, rs.Set(ctx, "k", []byte("v"), 0))
		assert.True(t, writer.Exists("k"))
		assert.False(t, reader.Exists("k"))

		// Reads come from the reader.
		require.NoError(t, reader.Set("replicated", "yes"))
		val, err := rs.Get(ctx, "replicated")
		require.NoError(t, err)
		assert.Equal(t, []byte("yes"), val)
	})
}
