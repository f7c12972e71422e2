package escalation

import (
	"context"
	"time"

	"github.com/campusdesk-io/campusdesk/internal/cache"
)

// Locker guards the sweep against overlapping invocations across processes.
// The in-process guard is separate; this covers multiple schedulers sharing
// one database.
type Locker interface {
	Acquire(ctx context.Context, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, token string) error
}

// RedisLocker implements Locker over the shared Redis lease.
type RedisLocker struct {
	cache *cache.RedisCache
	name  string
}

// NewRedisLocker creates a locker for the named lease.
func NewRedisLocker(c *cache.RedisCache, name string) *RedisLocker {
	if name == "" {
		name = "escalation-sweep"
	}
	return &RedisLocker{cache: c, name: name}
}

func (l *RedisLocker) Acquire(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return l.cache.AcquireLease(ctx, l.name, token, ttl)
}

func (l *RedisLocker) Release(ctx context.Context, token string) error {
	return l.cache.ReleaseLease(ctx, l.name, token)
}

// NopLocker always grants the lease. Single-instance deployments rely on the
// in-process guard alone.
type NopLocker struct{}

func (NopLocker) Acquire(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (NopLocker) Release(ctx context.Context, token string) error { return nil }
