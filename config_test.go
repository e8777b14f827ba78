package flagsnap

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ModeAuto, cfg.Mode)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.MaxInitWait)
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "https://cdn-global.configcat.com", cfg.BaseURL)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.SDKKey = testSDKKey
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty sdk key", func(c *Config) { c.SDKKey = "" }, "SDKKey"},
		{"unknown mode", func(c *Config) { c.Mode = "push" }, "Mode"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "PollInterval"},
		{"negative poll interval", func(c *Config) { c.PollInterval = -time.Second }, "PollInterval"},
		{"sub-second poll interval", func(c *Config) { c.PollInterval = 500 * time.Millisecond }, "PollInterval"},
		{"poll interval ignored outside auto", func(c *Config) { c.Mode = ModeManual; c.PollInterval = 0 }, ""},
		{"negative max init wait", func(c *Config) { c.MaxInitWait = -time.Millisecond }, "MaxInitWait"},
		{"zero max init wait", func(c *Config) { c.MaxInitWait = 0 }, ""},
		{"zero cache ttl", func(c *Config) { c.Mode = ModeLazy; c.CacheTTL = 0 }, "CacheTTL"},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, "RequestTimeout"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, ""},
		{"relative base url", func(c *Config) { c.BaseURL = "cdn.example.com" }, "BaseURL"},
		{"invalid proxy", func(c *Config) { c.Proxy = "://bad" }, "Proxy"},
		{"valid proxy", func(c *Config) { c.Proxy = "http://proxy.local:8080" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfig_ClientVersion(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "a-"+Version, cfg.clientVersion())

	cfg.Mode = ModeManual
	assert.Equal(t, "m-"+Version, cfg.clientVersion())

	cfg.Mode = ModeLazy
	assert.Equal(t, "l-"+Version, cfg.clientVersion())
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "SDKKey", Message: "cannot be empty"}
	assert.Equal(t, "configuration error [SDKKey]: cannot be empty", err.Error())
}
