// Package flagsnap is a feature-flag client that keeps a locally cached copy
// of a remote configuration document fresh and evaluates settings against it
// without a network round-trip.
package flagsnap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/OrlandoBitencourt/flagsnap/internal/evaluator"
	"github.com/OrlandoBitencourt/flagsnap/internal/fetcher"
	"github.com/OrlandoBitencourt/flagsnap/internal/poll"
	"github.com/OrlandoBitencourt/flagsnap/internal/refresh"
	"github.com/OrlandoBitencourt/flagsnap/internal/server"
	"github.com/OrlandoBitencourt/flagsnap/internal/storage"
	"github.com/OrlandoBitencourt/flagsnap/internal/telemetry"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Client is the main entry point for flagsnap.
// It is safe for concurrent use.
type Client struct {
	config Config
	id     string
	logger log.FieldLogger

	store        storage.Storage
	orchestrator *refresh.Orchestrator
	service      poll.Service
	evaluator    *evaluator.Evaluator
	telemetry    telemetry.Provider

	admin *server.AdminServer

	closeOnce sync.Once
	closeErr  error
}

// New creates a client for sdkKey. In auto-poll mode the first download
// starts immediately in the background.
//
// Example:
//
//	client, err := flagsnap.New("YOUR-SDK-KEY",
//	    flagsnap.WithAutoPoll(30*time.Second, 5*time.Second),
//	)
//	defer client.Close()
func New(sdkKey string, opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	cfg.SDKKey = sdkKey

	// Apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:    cfg.Config,
		id:        uuid.NewString(),
		telemetry: cfg.telemetry,
		store:     cfg.store,
	}

	logger := cfg.logger
	if logger == nil {
		l := log.New()
		l.SetLevel(log.WarnLevel)
		logger = l
	}
	c.logger = logger.WithFields(log.Fields{
		"client_id": c.id,
		"mode":      cfg.Mode,
	})

	if c.telemetry == nil {
		c.telemetry = telemetry.NewNoOp()
	}

	if c.store == nil {
		mem, err := storage.NewMemoryStorage(storage.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		c.store = mem
	}

	f := cfg.fetcher
	if f == nil {
		httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Config{
			BaseURL:       cfg.BaseURL,
			SDKKey:        cfg.SDKKey,
			Timeout:       cfg.RequestTimeout,
			Proxy:         cfg.Proxy,
			ClientVersion: cfg.clientVersion(),
		})
		if err != nil {
			return nil, &ConfigError{Field: "Proxy", Message: err.Error()}
		}
		f = httpFetcher
	}

	c.orchestrator = refresh.New(refresh.Config{
		Fetcher:   f,
		Storage:   c.store,
		CacheKey:  storage.CacheKey(cfg.SDKKey),
		Logger:    c.logger,
		Telemetry: c.telemetry,
		OnChange:  cfg.onChange,
	})
	c.evaluator = evaluator.New(c.telemetry)

	switch cfg.Mode {
	case ModeManual:
		c.service = poll.NewManualPoll(c.orchestrator)
	case ModeLazy:
		c.service = poll.NewLazyLoad(c.orchestrator, poll.LazyLoadConfig{
			CacheTTL:  cfg.CacheTTL,
			Telemetry: c.telemetry,
			Now:       cfg.now,
		})
	default:
		auto := poll.NewAutoPoll(c.orchestrator, poll.AutoPollConfig{
			PollInterval: cfg.PollInterval,
			MaxInitWait:  cfg.MaxInitWait,
			Logger:       c.logger,
		})
		auto.Start()
		c.service = auto
	}

	if cfg.adminEnabled {
		c.startAdminServer(cfg.adminPort, cfg.webhookSecret)
	}

	c.logger.WithField("cache_key", storage.CacheKey(cfg.SDKKey)).Debug("client created")
	return c, nil
}

// GetValue returns the value of key for user, or defaultValue if it cannot
// be evaluated. user may be nil.
//
// Example:
//
//	v := client.GetValue(ctx, "discount", 0.0, flagsnap.NewUser("user-123"))
func (c *Client) GetValue(ctx context.Context, key string, defaultValue interface{}, user *User) interface{} {
	return c.evaluate(ctx, key, defaultValue, user).Value
}

// GetValueDetails evaluates key and reports how the value was chosen.
func (c *Client) GetValueDetails(ctx context.Context, key string, defaultValue interface{}, user *User) EvaluationDetails {
	return toDetails(c.evaluate(ctx, key, defaultValue, user))
}

// GetBool evaluates a boolean setting.
// Returns defaultValue if the setting is missing or not a boolean.
//
// Example:
//
//	if client.GetBool(ctx, "new-checkout", false, user) {
//	    // ...
//	}
func (c *Client) GetBool(ctx context.Context, key string, defaultValue bool, user *User) bool {
	v := c.GetValue(ctx, key, defaultValue, user)
	b, ok := v.(bool)
	if !ok {
		c.typeMismatch(key, "bool", v)
		return defaultValue
	}
	return b
}

// GetString evaluates a text setting.
func (c *Client) GetString(ctx context.Context, key string, defaultValue string, user *User) string {
	v := c.GetValue(ctx, key, defaultValue, user)
	s, ok := v.(string)
	if !ok {
		c.typeMismatch(key, "string", v)
		return defaultValue
	}
	return s
}

// GetInt evaluates a whole number setting.
func (c *Client) GetInt(ctx context.Context, key string, defaultValue int, user *User) int {
	v := c.GetValue(ctx, key, defaultValue, user)
	n, ok := v.(int)
	if !ok {
		c.typeMismatch(key, "int", v)
		return defaultValue
	}
	return n
}

// GetFloat evaluates a decimal number setting.
func (c *Client) GetFloat(ctx context.Context, key string, defaultValue float64, user *User) float64 {
	v := c.GetValue(ctx, key, defaultValue, user)
	f, ok := v.(float64)
	if !ok {
		c.typeMismatch(key, "float64", v)
		return defaultValue
	}
	return f
}

func (c *Client) typeMismatch(key, want string, got interface{}) {
	c.logger.WithFields(log.Fields{
		"key":  key,
		"want": want,
		"got":  fmt.Sprintf("%T", got),
	}).Warn("setting value has a different type, returning default")
}

func (c *Client) evaluate(ctx context.Context, key string, defaultValue interface{}, user *User) *domain.EvaluationResult {
	ctx, span := c.telemetry.StartSpan(ctx, "flagsnap.evaluate",
		telemetry.WithAttributes(telemetry.String("setting.key", key)))
	defer span.End()

	snapshot := c.service.GetConfig(ctx)
	res := c.evaluator.Evaluate(ctx, key, snapshot, user, defaultValue)

	logger := c.logger.WithField("key", key)
	if res.Err != nil {
		span.RecordError(res.Err)
		logger.WithError(res.Err).Error("failed to evaluate setting, returning default")
	}
	if res.Warning != nil {
		logger.Warn(res.Warning.Error())
	}

	span.SetAttributes(
		telemetry.Bool("default", res.IsDefaultValue),
		telemetry.String("variation.id", res.VariationID),
	)
	return res
}

// GetAllKeys returns the setting keys of the current document, sorted.
func (c *Client) GetAllKeys(ctx context.Context) ([]string, error) {
	keys, err := c.evaluator.Keys(c.service.GetConfig(ctx))
	if err != nil {
		c.logger.WithError(err).Error("failed to list setting keys")
		return nil, err
	}
	return keys, nil
}

// ForceRefresh downloads the document now, in any mode. It joins a download
// already in progress. On failure the previous document stays in effect and
// a *FetchFailedError is returned.
func (c *Client) ForceRefresh(ctx context.Context) error {
	_, err := c.service.Refresh(ctx)
	return err
}

// Snapshot returns the cached document without downloading.
func (c *Client) Snapshot(ctx context.Context) Snapshot {
	return c.orchestrator.Cached(ctx)
}

// Mode returns the refresh strategy.
func (c *Client) Mode() Mode {
	return c.config.Mode
}

// ID returns the random instance id attached to every log entry.
func (c *Client) ID() string {
	return c.id
}

// Metrics returns current cache metrics.
func (c *Client) Metrics() Metrics {
	m := c.store.Metrics()
	return Metrics{
		CacheHits:      m.Hits,
		CacheMisses:    m.Misses,
		CacheSets:      m.Sets,
		CacheSetErrors: m.SetErrors,
		LastFetch:      c.orchestrator.Latest().FetchedAt(),
	}
}

// HTTPMiddleware reads the user from request headers and query parameters
// and stores it in the request context, where UserFromContext finds it.
//
// Headers: X-User-ID, X-User-Email, X-User-Country and X-User-Attr-<name>.
// Query parameters identifier, email, country and any other name override
// them.
//
// Example:
//
//	handler := client.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	    user, _ := flagsnap.UserFromContext(r.Context())
//	    if client.GetBool(r.Context(), "new-feature", false, user) {
//	        w.Write([]byte("New feature is enabled!"))
//	    }
//	}))
func (c *Client) HTTPMiddleware(next http.Handler) http.Handler {
	return server.UserContext(next)
}

// UserFromContext returns the user stored by HTTPMiddleware.
func UserFromContext(ctx context.Context) (*User, bool) {
	return server.UserFromContext(ctx)
}

// Close stops background polling and the admin server and releases the
// cache. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		var errs []error

		if c.admin != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			errs = append(errs, c.admin.Shutdown(ctx))
			cancel()
		}

		c.service.Close()
		c.orchestrator.Close()
		errs = append(errs, c.telemetry.Shutdown(context.Background()))
		errs = append(errs, c.store.Close())

		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
