package flagsnap

import (
	"net/url"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/fetcher"
	"github.com/OrlandoBitencourt/flagsnap/internal/poll"
)

// Version is the client version reported to the config CDN.
const Version = "1.0.0"

// Mode selects how the configuration document is kept fresh.
type Mode = poll.Mode

const (
	// ModeAuto downloads the document on a fixed interval in the background.
	ModeAuto = poll.ModeAuto

	// ModeManual downloads only when ForceRefresh is called.
	ModeManual = poll.ModeManual

	// ModeLazy downloads on read once the cached document is older than CacheTTL.
	ModeLazy = poll.ModeLazy
)

// Config holds all configuration for a flagsnap client.
type Config struct {
	// SDKKey identifies the configuration document. Required.
	SDKKey string

	// Mode is the refresh strategy. Default: ModeAuto
	Mode Mode

	// PollInterval is the auto-poll period. Minimum 1s, default 60s.
	PollInterval time.Duration

	// MaxInitWait bounds how long the first read waits for the initial
	// auto-poll download. Zero disables the wait. Default 5s.
	MaxInitWait time.Duration

	// CacheTTL is the lazy-load time-to-live. Default 60s.
	CacheTTL time.Duration

	// RequestTimeout bounds a single download. Zero disables it. Default 30s.
	RequestTimeout time.Duration

	// BaseURL is the CDN base URL.
	// Example: "https://cdn-global.configcat.com"
	BaseURL string

	// Proxy is an optional proxy URL for downloads.
	Proxy string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Mode:           ModeAuto,
		PollInterval:   poll.DefaultPollInterval,
		MaxInitWait:    poll.DefaultMaxInitWait,
		CacheTTL:       poll.DefaultCacheTTL,
		RequestTimeout: 30 * time.Second,
		BaseURL:        fetcher.DefaultBaseURL,
	}
}

// Validate checks the configuration and returns a *ConfigError naming the
// first invalid field.
func (c Config) Validate() error {
	if c.SDKKey == "" {
		return &ConfigError{Field: "SDKKey", Message: "cannot be empty"}
	}

	if !c.Mode.Valid() {
		return &ConfigError{Field: "Mode", Message: "must be one of auto, manual, lazy; got " + string(c.Mode)}
	}

	if c.Mode == ModeAuto && c.PollInterval < poll.MinPollInterval {
		return &ConfigError{Field: "PollInterval", Message: "must be at least 1s"}
	}

	if c.MaxInitWait < 0 {
		return &ConfigError{Field: "MaxInitWait", Message: "cannot be negative"}
	}

	if c.Mode == ModeLazy && c.CacheTTL <= 0 {
		return &ConfigError{Field: "CacheTTL", Message: "must be positive"}
	}

	if c.RequestTimeout < 0 {
		return &ConfigError{Field: "RequestTimeout", Message: "cannot be negative"}
	}

	if err := validateURL(c.BaseURL); err != nil {
		return &ConfigError{Field: "BaseURL", Message: err.Error()}
	}

	if c.Proxy != "" {
		if err := validateURL(c.Proxy); err != nil {
			return &ConfigError{Field: "Proxy", Message: err.Error()}
		}
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return &url.Error{Op: "parse", URL: raw, Err: errMissingSchemeOrHost}
	}
	return nil
}

// clientVersion is sent as the user agent, e.g. "a-1.0.0".
func (c Config) clientVersion() string {
	return c.Mode.Identifier() + "-" + Version
}
