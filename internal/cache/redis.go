package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned when releasing a lease this process does not hold.
var ErrNotHeld = errors.New("cache: lease not held")

// RedisConfig defines the Redis cache connection settings.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	KeyPrefix  string
	DefaultTTL time.Duration
}

// RedisCache is the distributed cache and lease provider. It backs
// cross-process invalidation and the sweep's single-flight lock.
type RedisCache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
	metrics    *redisMetrics
}

type redisMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors prometheus.Counter
	sets   prometheus.Counter
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &RedisCache{
		client:     client,
		keyPrefix:  cfg.KeyPrefix,
		defaultTTL: ttl,
		metrics: &redisMetrics{
			hits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "campusdesk_cache_hits_total",
				Help: "Total number of Redis cache hits",
			}),
			misses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "campusdesk_cache_misses_total",
				Help: "Total number of Redis cache misses",
			}),
			errors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "campusdesk_cache_errors_total",
				Help: "Total number of Redis cache errors",
			}),
			sets: promauto.NewCounter(prometheus.CounterOpts{
				Name: "campusdesk_cache_sets_total",
				Help: "Total number of Redis cache sets",
			}),
		},
	}, nil
}

func (c *RedisCache) key(k string) string {
	if c.keyPrefix == "" {
		return k
	}
	return c.keyPrefix + ":" + k
}

// Get unmarshals the cached JSON value into dest. Returns false on miss.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.misses.Inc()
		return false, nil
	}
	if err != nil {
		c.metrics.errors.Inc()
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.metrics.errors.Inc()
		return false, err
	}
	c.metrics.hits.Inc()
	return true, nil
}

// Set stores a JSON-marshalled value. ttl <= 0 uses the cache default.
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		c.metrics.errors.Inc()
		return err
	}
	c.metrics.sets.Inc()
	return nil
}

// Delete removes a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// AcquireLease takes a named lease via SETNX. It returns false when another
// holder already owns the lease. The token identifies this holder so a
// different process cannot release it.
func (c *RedisCache) AcquireLease(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key("lease:"+name), token, ttl).Result()
	if err != nil {
		c.metrics.errors.Inc()
		return false, err
	}
	return ok, nil
}

// releaseScript deletes the lease only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ReleaseLease gives up a lease acquired with the same token.
func (c *RedisCache) ReleaseLease(ctx context.Context, name, token string) error {
	n, err := releaseScript.Run(ctx, c.client, []string{c.key("lease:" + name)}, token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
