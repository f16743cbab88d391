package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jatrackr/config"
	"jatrackr/core"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fixedClock is a settable time source for rate limiter tests
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time { return c.t }

func newTestRateLimiter(t *testing.T, cfg RateLimiterConfig, redis *core.RedisCache) (*RateLimiter, *fixedClock) {
	t.Helper()
	rl := NewRateLimiter(cfg, redis, zap.NewNop().Sugar())
	t.Cleanup(rl.Close)
	clock := &fixedClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_MemoryTokenBucket(t *testing.T) {
	rl, clock := newTestRateLimiter(t, RateLimiterConfig{RequestsPerSecond: 2, Burst: 2}, nil)
	ctx := context.Background()

	assert.Equal(t, "memory", rl.Backend())
	assert.True(t, rl.Allow(ctx, "10.0.0.1"))
	assert.True(t, rl.Allow(ctx, "10.0.0.1"))
	assert.False(t, rl.Allow(ctx, "10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow(ctx, "10.0.0.2"), "keys are independent")

	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.True(t, rl.Allow(ctx, "10.0.0.1"), "one token refilled")
	assert.False(t, rl.Allow(ctx, "10.0.0.1"))
}

func TestRateLimiter_BurstDefaultsToRate(t *testing.T) {
	rl, _ := newTestRateLimiter(t, RateLimiterConfig{RequestsPerSecond: 3}, nil)
	assert.Equal(t, 3, rl.config.Burst)
	assert.Equal(t, time.Second, rl.config.Window)
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl, clock := newTestRateLimiter(t, RateLimiterConfig{RequestsPerSecond: 1}, nil)
	ctx := context.Background()

	rl.Allow(ctx, "quiet")
	clock.t = clock.t.Add(5 * time.Minute)
	rl.Allow(ctx, "busy")
	clock.t = clock.t.Add(6 * time.Minute)

	rl.evictIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.limiters, "quiet")
	assert.Contains(t, rl.limiters, "busy")
}

func TestRateLimiter_CloseIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1}, nil, zap.NewNop().Sugar())
	assert.NotPanics(t, func() {
		rl.Close()
		rl.Close()
	})
}

func TestRateLimiter_RedisFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := core.NewRedisCache(mr.Addr(), "", 0, 5, zap.NewNop().Sugar())
	t.Cleanup(func() { _ = cache.Close() })

	rl, clock := newTestRateLimiter(t, RateLimiterConfig{RequestsPerSecond: 3, Window: time.Second}, cache)
	ctx := context.Background()

	assert.Equal(t, "redis", rl.Backend())
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(ctx, "10.0.0.1"), "request %d", i)
	}
	assert.False(t, rl.Allow(ctx, "10.0.0.1"))

	window := clock.t.UnixNano() / int64(time.Second)
	count, err := mr.Get(core.GetRateLimitCacheKey("10.0.0.1", window))
	require.NoError(t, err)
	assert.Equal(t, "4", count)
	assert.True(t, mr.TTL(core.GetRateLimitCacheKey("10.0.0.1", window)) > 0)

	clock.t = clock.t.Add(time.Second)
	assert.True(t, rl.Allow(ctx, "10.0.0.1"), "new window")
}

func TestRateLimiter_RedisWindowLimit(t *testing.T) {
	rl, _ := newTestRateLimiter(t, RateLimiterConfig{RequestsPerSecond: 5, Window: time.Minute}, nil)
	assert.Equal(t, int64(300), rl.windowLimit())

	rl, _ = newTestRateLimiter(t, RateLimiterConfig{RequestsPerSecond: 1, Window: 100 * time.Millisecond}, nil)
	assert.Equal(t, int64(1), rl.windowLimit())
}

func TestRateLimiter_RedisFailureFallsBackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := core.NewRedisCache(mr.Addr(), "", 0, 5, zap.NewNop().Sugar())
	t.Cleanup(func() { _ = cache.Close() })
	mr.Close()

	rl, _ := newTestRateLimiter(t, RateLimiterConfig{RequestsPerSecond: 1, Burst: 1}, cache)
	ctx := context.Background()

	assert.True(t, rl.Allow(ctx, "10.0.0.1"))
	assert.False(t, rl.Allow(ctx, "10.0.0.1"), "memory bucket still limits")
}

func TestRateLimiter_RedisFailuresOpenBreaker(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := core.NewRedisCache(mr.Addr(), "", 0, 5, zap.NewNop().Sugar())
	t.Cleanup(func() { _ = cache.Close() })
	mr.Close()

	rl, _ := newTestRateLimiter(t, RateLimiterConfig{RequestsPerSecond: 100}, cache)
	ctx := context.Background()

	maxFailures := int(core.DefaultCircuitBreakerConfig().MaxFailures)
	for i := 0; i < maxFailures; i++ {
		rl.Allow(ctx, "10.0.0.1")
	}
	assert.Equal(t, core.CircuitBreakerStateOpen, rl.breaker.State())
	assert.Equal(t, uint32(maxFailures), rl.breaker.Failures())

	assert.True(t, rl.Allow(ctx, "10.0.0.1"))
	assert.Equal(t, uint32(maxFailures), rl.breaker.Failures(), "open breaker skips Redis")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestRateLimiter(t, RateLimiterConfig{RequestsPerSecond: 1, Burst: 1}, nil)
	api, _, _ := setupTestAPI(t, config.EnvironmentProduction, testAPIOptions{
		rateLimiter: rl,
		configure:   func(c *config.Config) { c.API.RateLimit.RequestsPerSecond = 1 },
	})
	require.Contains(t, api.Stages(), StageRateLimit)

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		api.Handler().ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.10:4000").Code)

	rec := send("192.0.2.10:4001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, send("192.0.2.11:4000").Code)
}

func TestRateLimitMiddleware_IgnoresForwardedForWithoutTrustedProxy(t *testing.T) {
	rl, _ := newTestRateLimiter(t, RateLimiterConfig{RequestsPerSecond: 1, Burst: 1}, nil)
	api, _, _ := setupTestAPI(t, config.EnvironmentProduction, testAPIOptions{
		rateLimiter: rl,
		configure:   func(c *config.Config) { c.API.RateLimit.RequestsPerSecond = 1 },
	})

	for i, spoofed := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "192.0.2.20:5000"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		api.Handler().ServeHTTP(rec, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}
