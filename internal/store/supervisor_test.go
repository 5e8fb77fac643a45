package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSupervisor(t *testing.T) (*miniredis.Miniredis, *Supervisor) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	sup, err := NewSupervisor(context.Background(), SupervisorConfig{
		Redis: RedisConfig{
			Addr:        mr.Addr(),
			DialTimeout: 500 * time.Millisecond,
		},
		ConnectRetries:       1,
		RetryInitialInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, ModeRemote, sup.Mode())
	t.Cleanup(func() { _ = sup.Close() })

	return mr, sup
}

func TestSupervisor(t *testing.T) {
	ctx := context.Background()

	t.Run("Remote_Round_Trip", func(t *testing.T) {
		mr, sup := newTestSupervisor(t)

		require.NoError(t, sup.Set(ctx, "k", []byte("v"), time.Minute))
		assert.True(t, mr.Exists("k"))

		val, err := sup.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), val)
	})

	t.Run("No_Remote_Configured", func(t *testing.T) {
		sup, err := NewSupervisor(ctx, SupervisorConfig{})
		require.NoError(t, err)
		defer sup.Close()

		assert.Equal(t, ModeFallback, sup.Mode())

		require.NoError(t, sup.Set(ctx, "k", []byte("v"), 0))
		val, err := sup.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), val)

		assert.ErrorIs(t, sup.Reconnect(ctx), ErrNoRemote)
	})

	t.Run("Unreachable_Start_Falls_Back", func(t *testing.T) {
		sup, err := NewSupervisor(ctx, SupervisorConfig{
			Redis: RedisConfig{
				Addr:        "127.0.0.1:1",
				DialTimeout: 200 * time.Millisecond,
			},
			ConnectRetries:       1,
			RetryInitialInterval: 10 * time.Millisecond,
		})
		require.NoError(t, err)
		defer sup.Close()

		assert.Equal(t, ModeFallback, sup.Mode())
		assert.Error(t, sup.Reconnect(ctx))
		assert.Equal(t, ModeFallback, sup.Mode())
	})

	t.Run("Connection_Loss_Engages_Fallback", func(t *testing.T) {
		mr, sup := newTestSupervisor(t)

		require.NoError(t, sup.Set(ctx, "before", []byte("v"), 0))

		mr.Close()

		// The failing operation degrades to a miss, not an error.
		val, err := sup.Get(ctx, "before")
		require.NoError(t, err)
		assert.Nil(t, val)
		assert.Equal(t, ModeFallback, sup.Mode())

		// Subsequent operations are served by the in-process store.
		require.NoError(t, sup.Set(ctx, "after", []byte("v2"), 0))
		val, err = sup.Get(ctx, "after")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), val)
	})

	t.Run("Switch_Is_One_Way", func(t *testing.T) {
		mr, sup := newTestSupervisor(t)

		mr.Close()
		_, err := sup.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, ModeFallback, sup.Mode())

		// The server coming back is not enough: without an explicit
		// reconnect the fallback keeps serving.
		require.NoError(t, mr.Restart())

		require.NoError(t, sup.Set(ctx, "k", []byte("v"), 0))
		assert.Equal(t, ModeFallback, sup.Mode())
		assert.False(t, mr.Exists("k"))
	})

	t.Run("Reconnect_Restores_Remote", func(t *testing.T) {
		mr, sup := newTestSupervisor(t)

		mr.Close()
		_, err := sup.Get(ctx, "k")
		require.NoError(t, err)

		require.NoError(t, sup.Set(ctx, "fallback-only", []byte("v"), 0))

		require.NoError(t, mr.Restart())
		require.NoError(t, sup.Reconnect(ctx))
		assert.Equal(t, ModeRemote, sup.Mode())

		// Entries written while degraded stay in the fallback.
		val, err := sup.Get(ctx, "fallback-only")
		require.NoError(t, err)
		assert.Nil(t, val)

		require.NoError(t, sup.Set(ctx, "k", []byte("v"), 0))
		assert.True(t, mr.Exists("k"))

		// Reconnect while already remote is a no-op.
		assert.NoError(t, sup.Reconnect(ctx))
	})

	// Each operation runs against a freshly killed remote so that it is the
	// one observing the failure, not a later call served by the fallback.
	t.Run("Failing_Operations_Answer_Closed", func(t *testing.T) {
		ops := []struct {
			name string
			call func(t *testing.T, sup *Supervisor)
		}{
			{"Set", func(t *testing.T, sup *Supervisor) {
				assert.NoError(t, sup.Set(ctx, "new", []byte("v"), 0))
			}},
			{"Delete", func(t *testing.T, sup *Supervisor) {
				n, err := sup.Delete(ctx, "k")
				require.NoError(t, err)
				assert.Zero(t, n)
			}},
			{"Exists", func(t *testing.T, sup *Supervisor) {
				ok, err := sup.Exists(ctx, "k")
				require.NoError(t, err)
				assert.False(t, ok)
			}},
			{"ScanKeys", func(t *testing.T, sup *Supervisor) {
				keys, err := sup.ScanKeys(ctx, "*")
				require.NoError(t, err)
				assert.Empty(t, keys)
			}},
			{"TTL", func(t *testing.T, sup *Supervisor) {
				d, err := sup.TTL(ctx, "k")
				require.NoError(t, err)
				assert.Equal(t, TTLMissing, d)
			}},
			{"IncrBy", func(t *testing.T, sup *Supervisor) {
				n, err := sup.IncrBy(ctx, "c", 1)
				require.NoError(t, err)
				assert.Zero(t, n)
			}},
			{"IncrByFloat", func(t *testing.T, sup *Supervisor) {
				f, err := sup.IncrByFloat(ctx, "c", 1.5)
				require.NoError(t, err)
				assert.Zero(t, f)
			}},
			{"FlushAll", func(t *testing.T, sup *Supervisor) {
				assert.NoError(t, sup.FlushAll(ctx))
			}},
		}

		for _, op := range ops {
			t.Run(op.name, func(t *testing.T) {
				mr, sup := newTestSupervisor(t)

				require.NoError(t, sup.Set(ctx, "k", []byte("v"), time.Hour))
				mr.Close()

				op.call(t, sup)
				assert.Equal(t, ModeFallback, sup.Mode())
			})
		}
	})

	t.Run("Canceled_Context_Stays_Remote", func(t *testing.T) {
		_, sup := newTestSupervisor(t)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := sup.Get(canceled, "k")
		assert.Error(t, err)
		assert.Equal(t, ModeRemote, sup.Mode())
	})

	t.Run("Counters_Work_In_Fallback", func(t *testing.T) {
		sup, err := NewSupervisor(ctx, SupervisorConfig{})
		require.NoError(t, err)
		defer sup.Close()

		n, err := sup.IncrBy(ctx, "hits", 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		f, err := sup.IncrByFloat(ctx, "cost", 1.5)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, f, 1e-9)
	})
}
