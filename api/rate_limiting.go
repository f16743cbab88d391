package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"jatrackr/core"
	"jatrackr/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rateLimiterIdleTimeout     = 10 * time.Minute
	rateLimiterCleanupInterval = time.Minute
)

// RateLimiterConfig holds the per-client request budget
type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	Window            time.Duration // fixed window length for the Redis backend
}

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client key. With Redis it counts requests
// in fixed windows shared by every instance; otherwise, or when Redis fails,
// it uses an in-memory token bucket per key.
type RateLimiter struct {
	config    RateLimiterConfig
	limiters  map[string]*rateLimiterEntry
	mu        sync.Mutex
	redis     *core.RedisCache
	breaker   *core.CircuitBreaker
	logger    *zap.SugaredLogger
	now       func() time.Time
	stopCh    chan struct{}
	closeOnce sync.Once
	cleanupWg sync.WaitGroup
}

// NewRateLimiter creates a rate limiter; redis may be nil
func NewRateLimiter(config RateLimiterConfig, redis *core.RedisCache, logger *zap.SugaredLogger) *RateLimiter {
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerSecond
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}

	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*rateLimiterEntry),
		redis:    redis,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	if redis != nil {
		rl.breaker = core.MustNewCircuitBreaker(core.DefaultCircuitBreakerConfig())
	}

	// Start cleanup goroutine
	rl.cleanupWg.Add(1)
	go rl.cleanup()

	return rl
}

// Backend names the active counting backend
func (rl *RateLimiter) Backend() string {
	if rl.redis != nil {
		return "redis"
	}
	return "memory"
}

// Allow checks if a request from the given key is allowed
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl.redis != nil {
		return rl.allowRedis(ctx, key)
	}
	return rl.allowMemory(key)
}

// allowMemory checks rate limit using in-memory storage
func (rl *RateLimiter) allowMemory(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &rateLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
		}
		rl.limiters[key] = entry
	}
	entry.lastSeen = rl.now()

	return entry.limiter.AllowN(entry.lastSeen, 1)
}

// windowLimit is the number of requests allowed per fixed window
func (rl *RateLimiter) windowLimit() int64 {
	limit := int64(math.Ceil(float64(rl.config.RequestsPerSecond) * rl.config.Window.Seconds()))
	if limit < 1 {
		limit = 1
	}
	return limit
}

// allowRedis checks rate limit using Redis for distributed state. While the
// breaker is open Redis is skipped and the in-memory buckets decide.
func (rl *RateLimiter) allowRedis(ctx context.Context, key string) bool {
	if rl.breaker.Allow() != nil {
		return rl.allowMemory(key)
	}

	window := rl.now().UnixNano() / rl.config.Window.Nanoseconds()
	count, err := rl.redis.Incr(ctx, core.GetRateLimitCacheKey(key, window), rl.config.Window)
	if err != nil {
		if oldState, newState := rl.breaker.RecordFailure(); oldState != newState {
			rl.logger.Warnw("Redis rate limiting suspended", "error", err, "state", newState)
		} else {
			rl.logger.Warnw("Redis rate limit check failed, falling back to memory", "error", err)
		}
		return rl.allowMemory(key)
	}
	if oldState, newState := rl.breaker.RecordSuccess(); oldState != newState {
		rl.logger.Infow("Redis rate limiting resumed", "state", newState)
	}
	return count <= rl.windowLimit()
}

// cleanup periodically removes limiters for clients that went quiet
func (rl *RateLimiter) cleanup() {
	defer rl.cleanupWg.Done()
	ticker := time.NewTicker(rateLimiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rateLimiterIdleTimeout)
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

// Close stops the rate limiter cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.stopCh)
		rl.cleanupWg.Wait()
	})
}

// rateLimitMiddleware rejects clients that exceed their budget with 429
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	if a.rateLimiter == nil {
		return next
	}
	retryAfter := strconv.Itoa(int(math.Ceil(a.rateLimiter.config.Window.Seconds())))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getRealIP(r, a.config.API.TrustProxy)
		if !a.rateLimiter.Allow(r.Context(), ip) {
			metrics.RateLimitRejections.WithLabelValues(a.rateLimiter.Backend()).Inc()
			a.logger.Warnw("Rate limit exceeded",
				"client_ip", ip,
				"path", sanitizeLogMessage(r.URL.Path))
			w.Header().Set("Retry-After", retryAfter)
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
