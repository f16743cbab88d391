package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"jatrackr/api"
	"jatrackr/config"
	"jatrackr/core"
	"jatrackr/service"
	"jatrackr/storage"

	"go.uber.org/zap"
)

// redisRetryDelays are the waits between Redis connection attempts
var redisRetryDelays = []time.Duration{500 * time.Millisecond, time.Second}

// Services holds every capability the application uses. Each one is built
// exactly once by BuildServices and handed to its consumers explicitly.
type Services struct {
	Mongo        *Singleton[*storage.MongoDB]
	UserStore    *Singleton[*storage.UserStorage]
	JobDataStore *Singleton[*storage.JobDataStorage]

	Users   *service.UserService
	JobData *service.JobDataService

	// Redis is nil unless a component uses it and it is reachable
	Redis *core.RedisCache
	// RateLimiter is nil when rate limiting is disabled
	RateLimiter *api.RateLimiter
}

// BuildServices assembles the services for cfg. MongoDB is connected on first
// use unless mongodb.validate_on_startup is set, in which case the settings
// are checked and the server pinged before BuildServices returns.
func BuildServices(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*Services, error) {
	s := &Services{}

	s.Mongo = NewSingleton(func() (*storage.MongoDB, error) {
		connectCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoDB.ConnectTimeout)
		defer cancel()
		mongoDB, err := storage.NewMongoDB(connectCtx, cfg.Database, storage.MongoOptions{
			ConnectTimeout: cfg.MongoDB.ConnectTimeout,
			MaxPoolSize:    cfg.MongoDB.MaxPoolSize,
			Ping:           cfg.MongoDB.ValidateOnStartup,
		}, sugar)
		if err != nil {
			sugar.Errorw("MongoDB unavailable",
				"missing", cfg.Database.Missing(),
				"error", err)
			return nil, err
		}
		return mongoDB, nil
	})

	s.UserStore = NewSingleton(func() (*storage.UserStorage, error) {
		mongoDB, err := s.Mongo.Get()
		if err != nil {
			return nil, err
		}
		users := storage.NewUserStorage(mongoDB, cfg.Database.UsersCollectionName, cfg.MongoDB.OperationTimeout)
		ensureIndexes(sugar, "users", users.EnsureIndexes)
		return users, nil
	})

	s.JobDataStore = NewSingleton(func() (*storage.JobDataStorage, error) {
		mongoDB, err := s.Mongo.Get()
		if err != nil {
			return nil, err
		}
		jobs := storage.NewJobDataStorage(mongoDB, cfg.Database.JobDataCollectionName, cfg.MongoDB.OperationTimeout)
		ensureIndexes(sugar, "jobdata", jobs.EnsureIndexes)
		return jobs, nil
	})

	if cfg.RedisEnabled() {
		s.Redis = InitRedis(ctx, cfg, sugar)
	}

	s.Users = service.NewUserService(s.userStore, s.jobsRemover, cfg.Cache.UserCacheSize, sugar)
	if cfg.Cache.SharedUsers && s.Redis != nil {
		s.Users.UseSharedCache(s.Redis)
		sugar.Infow("Shared user cache enabled", "addr", cfg.API.RateLimit.Redis.Addr)
	}
	s.JobData = service.NewJobDataService(s.jobDataStore, s.Users, sugar)

	if cfg.RateLimitEnabled() {
		rl := cfg.API.RateLimit
		s.RateLimiter = api.NewRateLimiter(api.RateLimiterConfig{
			RequestsPerSecond: rl.RequestsPerSecond,
			Burst:             rl.Burst,
			Window:            rl.Window,
		}, s.Redis, sugar)
		sugar.Infow("Rate limiting enabled",
			"requests_per_second", rl.RequestsPerSecond,
			"burst", rl.Burst,
			"backend", s.RateLimiter.Backend())
	}

	if cfg.MongoDB.ValidateOnStartup {
		if _, err := s.Mongo.Get(); err != nil {
			fmt.Fprintf(os.Stderr, "\n========================================\n")
			fmt.Fprintf(os.Stderr, "FATAL: MongoDB Validation Failed\n")
			fmt.Fprintf(os.Stderr, "========================================\n")
			if missing := cfg.Database.Missing(); len(missing) > 0 {
				fmt.Fprintf(os.Stderr, "Missing environment variables: %s\n", strings.Join(missing, ", "))
			} else {
				fmt.Fprintf(os.Stderr, "%s\n", ClassifyConnectionError(err, "MongoDB", cfg.Database.Redacted()))
			}
			fmt.Fprintf(os.Stderr, "========================================\n\n")
			s.Close(context.Background(), sugar)
			return nil, fmt.Errorf("database validation failed: %w", err)
		}
	}

	return s, nil
}

func (s *Services) userStore() (service.UserStore, error) {
	users, err := s.UserStore.Get()
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Services) jobsRemover() (service.UserJobsRemover, error) {
	jobs, err := s.JobDataStore.Get()
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *Services) jobDataStore() (service.JobDataStore, error) {
	jobs, err := s.JobDataStore.Get()
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// ensureIndexes creates collection indexes, logging rather than failing
func ensureIndexes(sugar *zap.SugaredLogger, collection string, ensure func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ensure(ctx); err != nil {
		sugar.Warnw("Failed to create indexes", "collection", collection, "error", err)
		return
	}
	sugar.Infow("Indexes created or verified", "collection", collection)
}

// InitRedis connects to Redis with retry logic. It returns nil when Redis
// stays unreachable so the rate limiter falls back to memory and users are
// cached per instance only.
func InitRedis(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) *core.RedisCache {
	redisCfg := cfg.API.RateLimit.Redis
	cache := core.NewRedisCache(redisCfg.Addr, redisCfg.Password, redisCfg.DB, redisCfg.PoolSize, sugar)

	var lastErr error
attempts:
	for attempt := 0; attempt <= len(redisRetryDelays); attempt++ {
		if attempt > 0 {
			delay := redisRetryDelays[attempt-1]
			sugar.Infow("Retrying Redis connection",
				"attempt", attempt,
				"max_retries", len(redisRetryDelays),
				"delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				break attempts
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = cache.Ping(pingCtx)
		cancel()
		if lastErr == nil {
			sugar.Infow("Connected to Redis successfully", "addr", redisCfg.Addr)
			return cache
		}

		sugar.Warnw("Redis connection attempt failed",
			"attempt", attempt+1,
			"error", lastErr)
	}

	fmt.Fprintf(os.Stderr, "\n========================================\n")
	fmt.Fprintf(os.Stderr, "WARNING: Redis Connection Failed\n")
	fmt.Fprintf(os.Stderr, "========================================\n")
	fmt.Fprintf(os.Stderr, "%s\n", ClassifyConnectionError(lastErr, "Redis", redisCfg.Addr))
	fmt.Fprintf(os.Stderr, "Rate limiting and user caching continue in memory.\n")
	fmt.Fprintf(os.Stderr, "========================================\n\n")

	if err := cache.Close(); err != nil {
		sugar.Warnw("Failed to close Redis client", "error", err)
	}
	return nil
}

// HealthCheck pings MongoDB when a connection has been established. Before
// first use it reports the settings problem, if any, without connecting.
func (s *Services) HealthCheck(settings config.DatabaseSettings) api.HealthChecker {
	return func(ctx context.Context) error {
		if !s.Mongo.Resolved() {
			if err := settings.Validate(); err != nil {
				return fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
			}
			return nil
		}
		mongoDB, err := s.Mongo.Get()
		if err != nil {
			return err
		}
		return mongoDB.HealthCheck(ctx)
	}
}

// Close releases the rate limiter, Redis and, if it was ever connected, MongoDB
func (s *Services) Close(ctx context.Context, sugar *zap.SugaredLogger) {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			sugar.Errorw("Failed to close Redis connection", "error", err)
		}
	}
	if s.Mongo != nil && s.Mongo.Resolved() {
		if mongoDB, err := s.Mongo.Get(); err == nil && mongoDB != nil {
			if err := mongoDB.Close(ctx); err != nil {
				sugar.Errorw("Failed to close MongoDB connection", "error", err)
			}
		}
	}
}
