package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// FilingLockKey builds redis keys serialising GSTR1 filing per company period.
func FilingLockKey(companyID int64, period string) string {
	return fmt.Sprintf("billease:gstr1:%d:%s:lock", companyID, period)
}

// Locker guards critical sections shared across API replicas.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker constructs a Locker backed by redis.
func NewLocker(rdb redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{client: redislock.New(rdb), ttl: ttl}
}

// WithLock runs fn while holding key. A held lock surfaces as ConcurrencyConflict.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return E(KindConcurrencyConflict, "shared.WithLock", "lock").Withf("%s is held by another session", key)
	}
	if err != nil {
		return fmt.Errorf("shared: obtain lock %s: %w", key, err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
