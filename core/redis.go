package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jatrackr/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache provides a Redis-backed store for shared, short-lived state
type RedisCache struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(addr, password string, db, poolSize int, logger *zap.SugaredLogger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// Ping tests the Redis connection
func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Set stores a JSON-encoded value with expiration
func (rc *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "marshal").Inc()
		return fmt.Errorf("failed to marshal cache value for key %s: %w", key, err)
	}

	if err := rc.client.Set(ctx, key, data, expiration).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "set").Inc()
		return err
	}
	return nil
}

// Get decodes the value stored at key into dest. The boolean is false when
// the key does not exist.
func (rc *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheMisses.WithLabelValues("redis").Inc()
			return false, nil
		}
		rc.logger.Errorw("Failed to get cache value", "key", key, "error", err)
		metrics.CacheErrors.WithLabelValues("redis", "get").Inc()
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "unmarshal").Inc()
		return false, fmt.Errorf("failed to unmarshal cache value for key %s: %w", key, err)
	}

	metrics.CacheHits.WithLabelValues("redis").Inc()
	return true, nil
}

// Delete removes a key from the cache
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

// incrWindowScript increments a counter and starts its expiry on the first
// increment, atomically.
var incrWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// Incr increments the counter at key and returns the new value. The first
// increment of a fresh key starts its expiry window.
func (rc *RedisCache) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	ms := window.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	count, err := incrWindowScript.Run(ctx, rc.client, []string{key}, ms).Int64()
	if err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "incr").Inc()
		return 0, err
	}
	return count, nil
}

// Cache key prefixes
const (
	CacheKeyRateLimitPrefix = "ratelimit:"
	CacheKeyUserPrefix      = "user:"
)

// GetRateLimitCacheKey generates the counter key for a client in a window
func GetRateLimitCacheKey(client string, window int64) string {
	return fmt.Sprintf("%s%s:%d", CacheKeyRateLimitPrefix, client, window)
}

// GetUserCacheKey generates the shared cache key for a user id
func GetUserCacheKey(id string) string {
	return CacheKeyUserPrefix + id
}
