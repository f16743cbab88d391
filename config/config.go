package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variables overriding config keys,
// e.g. JATRACKR_API_PORT overrides api.port.
const EnvPrefix = "JATRACKR"

// BaseConfigFile is the settings file shared by every environment.
const BaseConfigFile = "appsettings.json"

// Config holds all configuration for the JobAppTrackr API
type Config struct {
	// Environment is the deployment-environment flag the config was loaded for.
	Environment Environment `mapstructure:"-"`

	// Database is resolved from the MONGODB_* variables, not from files.
	Database DatabaseSettings `mapstructure:"-"`

	// Sources lists the settings files that were found and merged, in order.
	Sources []string `mapstructure:"-"`

	API struct {
		Port            int           `mapstructure:"port"`
		HTTPSPort       int           `mapstructure:"https_port"` // redirect target; 0 disables redirection
		TLS             bool          `mapstructure:"tls"`
		CertFile        string        `mapstructure:"cert_file"`
		KeyFile         string        `mapstructure:"key_file"`
		WebRoot         string        `mapstructure:"web_root"`
		TrustProxy      bool          `mapstructure:"trust_proxy"`
		MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		HSTS            struct {
			MaxAge            time.Duration `mapstructure:"max_age"`
			IncludeSubDomains bool          `mapstructure:"include_subdomains"`
			Preload           bool          `mapstructure:"preload"`
			ExcludedHosts     []string      `mapstructure:"excluded_hosts"`
		} `mapstructure:"hsts"`
		RateLimit struct {
			RequestsPerSecond int           `mapstructure:"requests_per_second"` // 0 disables the stage
			Burst             int           `mapstructure:"burst"`
			Window            time.Duration `mapstructure:"window"` // fixed window used with Redis
			Redis             struct {
				Enabled  bool   `mapstructure:"enabled"`
				Addr     string `mapstructure:"addr"`
				Password string `mapstructure:"password"`
				DB       int    `mapstructure:"db"`
				PoolSize int    `mapstructure:"pool_size"`
			} `mapstructure:"redis"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	MongoDB struct {
		ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
		OperationTimeout  time.Duration `mapstructure:"operation_timeout"`
		MaxPoolSize       uint64        `mapstructure:"max_pool_size"`
		ValidateOnStartup bool          `mapstructure:"validate_on_startup"`
	} `mapstructure:"mongodb"`

	Cache struct {
		UserCacheSize int `mapstructure:"user_cache_size"` // 0 picks the service default
		// SharedUsers shares cached users between instances through the Redis
		// connection configured under api.rate_limit.redis
		SharedUsers bool `mapstructure:"shared_users"`
	} `mapstructure:"cache"`

	Logging struct {
		Level string `mapstructure:"level"` // empty picks debug in development, info elsewhere
	} `mapstructure:"logging"`
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.https_port", 0)
	v.SetDefault("api.tls", false)
	v.SetDefault("api.cert_file", "")
	v.SetDefault("api.key_file", "")
	v.SetDefault("api.web_root", "wwwroot")
	v.SetDefault("api.trust_proxy", false)
	v.SetDefault("api.max_body_bytes", 1048576) // 1MB
	v.SetDefault("api.shutdown_timeout", 5*time.Second)
	v.SetDefault("api.hsts.max_age", 30*24*time.Hour)
	v.SetDefault("api.hsts.include_subdomains", false)
	v.SetDefault("api.hsts.preload", false)
	v.SetDefault("api.hsts.excluded_hosts", []string{"localhost", "127.0.0.1", "[::1]"})
	v.SetDefault("api.rate_limit.requests_per_second", 0)
	v.SetDefault("api.rate_limit.burst", 0)
	v.SetDefault("api.rate_limit.window", time.Second)
	v.SetDefault("api.rate_limit.redis.enabled", false)
	v.SetDefault("api.rate_limit.redis.addr", "localhost:6379")
	v.SetDefault("api.rate_limit.redis.password", "")
	v.SetDefault("api.rate_limit.redis.db", 0)
	v.SetDefault("api.rate_limit.redis.pool_size", 10)
	v.SetDefault("mongodb.connect_timeout", 10*time.Second)
	v.SetDefault("mongodb.operation_timeout", 5*time.Second)
	v.SetDefault("mongodb.max_pool_size", 100)
	v.SetDefault("mongodb.validate_on_startup", false)
	v.SetDefault("cache.user_cache_size", 1000)
	v.SetDefault("cache.shared_users", false)
	v.SetDefault("logging.level", "")
}

// loadFromEnv sets up environment variable loading
func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ConfigFiles returns the settings files consulted for env, lowest precedence first.
func ConfigFiles(env Environment) []string {
	return []string{BaseConfigFile, fmt.Sprintf("appsettings.%s.json", env)}
}

// LoadConfig loads configuration for env from the optional settings files in dir
// and from JATRACKR_* environment variables. Environment variables take
// precedence over appsettings.{env}.json, which takes precedence over
// appsettings.json. Missing files are skipped; unreadable or malformed ones fail.
func LoadConfig(env Environment, dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	setDefaults(v)
	loadFromEnv(v)

	var sources []string
	for _, name := range ConfigFiles(env) {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		sources = append(sources, path)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Environment = env
	config.Sources = sources

	if config.API.RateLimit.RequestsPerSecond > 0 && config.API.RateLimit.Burst <= 0 {
		config.API.RateLimit.Burst = config.API.RateLimit.RequestsPerSecond
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// LogLevel returns the configured log level, falling back to the environment default.
func (c *Config) LogLevel() string {
	if c.Logging.Level != "" {
		return strings.ToLower(c.Logging.Level)
	}
	if c.Environment.IsDevelopment() {
		return "debug"
	}
	return "info"
}

// RateLimitEnabled reports whether the rate-limit stage should be assembled.
func (c *Config) RateLimitEnabled() bool {
	return c.API.RateLimit.RequestsPerSecond > 0
}

// RedisEnabled reports whether a component needs the Redis connection.
func (c *Config) RedisEnabled() bool {
	return c.API.RateLimit.Redis.Enabled && (c.RateLimitEnabled() || c.Cache.SharedUsers)
}

// validateConfig checks the decoded config for values the server cannot run with.
func validateConfig(config *Config) error {
	var errs []error

	if config.API.Port < 1 || config.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port must be between 1 and 65535, got %d", config.API.Port))
	}
	if config.API.HTTPSPort < 0 || config.API.HTTPSPort > 65535 {
		errs = append(errs, fmt.Errorf("api.https_port must be between 0 and 65535, got %d", config.API.HTTPSPort))
	}
	if config.API.TLS && (config.API.CertFile == "" || config.API.KeyFile == "") {
		errs = append(errs, errors.New("api.cert_file and api.key_file are required when api.tls is enabled"))
	}
	if config.API.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("api.max_body_bytes must be positive, got %d", config.API.MaxBodyBytes))
	}
	if config.API.HSTS.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("api.hsts.max_age must not be negative, got %s", config.API.HSTS.MaxAge))
	}

	rl := config.API.RateLimit
	if rl.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("api.rate_limit.requests_per_second must not be negative, got %d", rl.RequestsPerSecond))
	}
	if rl.Redis.Enabled {
		if rl.Redis.Addr == "" {
			errs = append(errs, errors.New("api.rate_limit.redis.addr is required when redis is enabled"))
		}
		if rl.Window <= 0 {
			errs = append(errs, fmt.Errorf("api.rate_limit.window must be positive, got %s", rl.Window))
		}
	}

	if config.MongoDB.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("mongodb.connect_timeout must be positive, got %s", config.MongoDB.ConnectTimeout))
	}
	if config.MongoDB.OperationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("mongodb.operation_timeout must be positive, got %s", config.MongoDB.OperationTimeout))
	}
	if config.Cache.SharedUsers && !rl.Redis.Enabled {
		errs = append(errs, errors.New("cache.shared_users requires api.rate_limit.redis.enabled"))
	}
	if config.Cache.UserCacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache.user_cache_size must not be negative, got %d", config.Cache.UserCacheSize))
	}

	switch strings.ToLower(config.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", config.Logging.Level))
	}

	return errors.Join(errs...)
}
