package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, time.Second)
}

func TestLockerSerialisesHolders(t *testing.T) {
	locker := newTestLocker(t)
	key := FilingLockKey(1, "03-2024")
	require.Equal(t, "billease:gstr1:1:03-2024:lock", key)

	err := locker.WithLock(context.Background(), key, func(ctx context.Context) error {
		inner := locker.WithLock(ctx, key, func(context.Context) error {
			t.Fatal("nested holder must not run")
			return nil
		})
		require.True(t, errors.Is(inner, ErrConcurrencyConflict))
		return nil
	})
	require.NoError(t, err)

	ran := false
	require.NoError(t, locker.WithLock(context.Background(), key, func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}

func TestLockerPropagatesError(t *testing.T) {
	locker := newTestLocker(t)
	boom := errors.New("boom")
	err := locker.WithLock(context.Background(), "k", func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestNilLockerRunsInline(t *testing.T) {
	var locker *Locker
	ran := false
	require.NoError(t, locker.WithLock(context.Background(), "k", func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}
