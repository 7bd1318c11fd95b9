package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLocker(client, 2*time.Second), mr
}

func TestWithLockRunsFunction(t *testing.T) {
	locker, _ := newTestLocker(t)

	ran := false
	err := locker.WithLock(context.Background(), "lock:slot:abc", func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestWithLockMutualExclusion(t *testing.T) {
	locker, _ := newTestLocker(t)

	err := locker.WithLock(context.Background(), "lock:slot:abc", func(ctx context.Context) error {
		// Second acquisition of the same key must fail while we hold it.
		inner := locker.WithLock(ctx, "lock:slot:abc", func(ctx context.Context) error {
			t.Fatal("inner critical section should not run")
			return nil
		})
		require.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)
}

func TestWithLockIndependentKeys(t *testing.T) {
	locker, _ := newTestLocker(t)

	err := locker.WithLock(context.Background(), "lock:slot:a", func(ctx context.Context) error {
		return locker.WithLock(ctx, "lock:slot:b", func(ctx context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}

func TestWithLockReleasesKey(t *testing.T) {
	locker, mr := newTestLocker(t)

	err := locker.WithLock(context.Background(), "lock:slot:abc", func(ctx context.Context) error {
		require.True(t, mr.Exists("lock:slot:abc"))
		return nil
	})
	require.NoError(t, err)
	require.False(t, mr.Exists("lock:slot:abc"))

	// Key is free again, so a fresh acquisition succeeds.
	err = locker.WithLock(context.Background(), "lock:slot:abc", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestWithLockReleasesOnError(t *testing.T) {
	locker, mr := newTestLocker(t)

	boom := errors.New("boom")
	err := locker.WithLock(context.Background(), "lock:slot:abc", func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("lock:slot:abc"))
}

func TestWithLockDoesNotReleaseForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)

	err := locker.WithLock(context.Background(), "lock:slot:abc", func(ctx context.Context) error {
		// Simulate TTL expiry plus takeover by another process.
		mr.Del("lock:slot:abc")
		require.NoError(t, mr.Set("lock:slot:abc", "someone-else"))
		return nil
	})
	require.NoError(t, err)

	// The compare-and-delete unlock must leave the other holder's key alone.
	val, getErr := mr.Get("lock:slot:abc")
	require.NoError(t, getErr)
	require.Equal(t, "someone-else", val)
}
