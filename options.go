package flagsnap

import (
	"fmt"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/fetcher"
	"github.com/OrlandoBitencourt/flagsnap/internal/storage"
	"github.com/OrlandoBitencourt/flagsnap/internal/telemetry"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a flagsnap client.
type Option func(*clientConfig) error

// clientConfig holds internal configuration.
type clientConfig struct {
	Config

	logger    log.FieldLogger
	telemetry telemetry.Provider
	store     storage.Storage
	onChange  func(Snapshot)

	// test seams
	fetcher fetcher.Fetcher
	now     func() time.Time

	// Server options
	adminEnabled  bool
	adminPort     int
	webhookSecret string
}

func newClientConfig() *clientConfig {
	return &clientConfig{Config: DefaultConfig()}
}

// AdminConfig configures the admin server.
type AdminConfig struct {
	// Port the admin server listens on.
	Port int

	// WebhookSecret enables HMAC-SHA256 verification of POST /webhook.
	// Empty disables verification.
	WebhookSecret string
}

// WithAutoPoll selects auto-poll mode.
//
// Example: flagsnap.WithAutoPoll(30*time.Second, 5*time.Second)
func WithAutoPoll(pollInterval, maxInitWait time.Duration) Option {
	return func(c *clientConfig) error {
		c.Mode = ModeAuto
		c.PollInterval = pollInterval
		c.MaxInitWait = maxInitWait
		return nil
	}
}

// WithManualPoll selects manual-poll mode. The document is only downloaded
// by ForceRefresh.
func WithManualPoll() Option {
	return func(c *clientConfig) error {
		c.Mode = ModeManual
		return nil
	}
}

// WithLazyLoad selects lazy-load mode with the given time-to-live.
func WithLazyLoad(cacheTTL time.Duration) Option {
	return func(c *clientConfig) error {
		c.Mode = ModeLazy
		c.CacheTTL = cacheTTL
		return nil
	}
}

// WithBaseURL overrides the CDN base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) error {
		c.BaseURL = baseURL
		return nil
	}
}

// WithRequestTimeout sets the timeout of a single download.
// Default: 30 seconds
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) error {
		c.RequestTimeout = timeout
		return nil
	}
}

// WithProxy routes downloads through a proxy.
func WithProxy(proxyURL string) Option {
	return func(c *clientConfig) error {
		c.Proxy = proxyURL
		return nil
	}
}

// WithCache stores downloaded documents in a user-supplied cache, e.g. one
// shared between processes.
func WithCache(cache Cache) Option {
	return func(c *clientConfig) error {
		if cache == nil {
			return fmt.Errorf("cache cannot be nil")
		}
		c.store = newCacheAdapter(cache)
		return nil
	}
}

// WithRedisCache stores downloaded documents in Redis so that several
// processes share one copy. The client is closed by Client.Close.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	client, err := flagsnap.New(sdkKey, flagsnap.WithRedisCache(rdb, "myapp:"))
func WithRedisCache(rdb redis.UniversalClient, keyPrefix string) Option {
	return func(c *clientConfig) error {
		if rdb == nil {
			return fmt.Errorf("redis client cannot be nil")
		}

		var opts []storage.RedisOption
		if keyPrefix != "" {
			opts = append(opts, storage.WithKeyPrefix(keyPrefix))
		}
		c.store = storage.NewRedisStorage(rdb, opts...)
		return nil
	}
}

// WithDiskCache stores downloaded documents as JSON files in dir so that a
// restarted process can serve the last document before its first download.
func WithDiskCache(dir string) Option {
	return func(c *clientConfig) error {
		disk, err := storage.NewDiskStorage(dir)
		if err != nil {
			return fmt.Errorf("disk cache: %w", err)
		}
		c.store = disk
		return nil
	}
}

// WithLogger sets the logger. Default: a logrus logger at warn level.
func WithLogger(logger log.FieldLogger) Option {
	return func(c *clientConfig) error {
		c.logger = logger
		return nil
	}
}

// WithOpenTelemetry records spans and metrics. Nil providers fall back to
// the global ones.
func WithOpenTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *clientConfig) error {
		var (
			provider *telemetry.OTelProvider
			err      error
		)
		if tp == nil || mp == nil {
			provider, err = telemetry.NewOTel()
		} else {
			provider, err = telemetry.NewOTelWith(tp, mp)
		}
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}

		c.telemetry = provider
		return nil
	}
}

// WithOnConfigChanged registers a callback invoked after a download whose
// document differs from the previous one.
func WithOnConfigChanged(fn func(Snapshot)) Option {
	return func(c *clientConfig) error {
		c.onChange = fn
		return nil
	}
}

// WithConfig applies a full Config struct.
// This is an alternative to using individual options. An empty SDKKey keeps
// the key passed to New.
func WithConfig(cfg Config) Option {
	return func(c *clientConfig) error {
		sdkKey := c.SDKKey
		c.Config = cfg
		if c.SDKKey == "" {
			c.SDKKey = sdkKey
		}
		return nil
	}
}

// WithAdminServer enables the admin HTTP server.
//
// Endpoints:
//   - GET /health - Health check
//   - GET /admin/snapshot - Current cached document
//   - POST /admin/refresh - Force a download
//   - GET /admin/flags - Setting keys
//   - GET /admin/flags/{key} - Evaluate a setting for the user in the query
//   - POST /webhook - Force a download on a signed notification
//
// Example:
//
//	client, err := flagsnap.New(sdkKey,
//	    flagsnap.WithAdminServer(flagsnap.AdminConfig{
//	        Port: 19000,
//	    }),
//	)
func WithAdminServer(config AdminConfig) Option {
	return func(c *clientConfig) error {
		if config.Port <= 0 {
			return fmt.Errorf("admin port must be positive")
		}
		if config.Port > 65535 {
			return fmt.Errorf("admin port must be <= 65535")
		}

		c.adminEnabled = true
		c.adminPort = config.Port
		c.webhookSecret = config.WebhookSecret
		return nil
	}
}

func withFetcher(f fetcher.Fetcher) Option {
	return func(c *clientConfig) error {
		c.fetcher = f
		return nil
	}
}

func withClock(now func() time.Time) Option {
	return func(c *clientConfig) error {
		c.now = now
		return nil
	}
}
