package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/OrlandoBitencourt/flagsnap"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "FLAGSNAP"

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	logger := log.New()

	rootCmd := &cobra.Command{
		Use:           "flagsnap",
		Short:         "Evaluate feature flags from a remote configuration document",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			if file := v.GetString("config"); file != "" {
				v.SetConfigFile(file)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("read config file: %w", err)
				}
			}

			level, err := log.ParseLevel(v.GetString("log-level"))
			if err != nil {
				return err
			}
			logger.SetLevel(level)
			logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (yaml, json or toml)")
	flags.String("sdk-key", "", "SDK key of the configuration document")
	flags.String("mode", string(flagsnap.ModeManual), "Refresh mode: auto, manual or lazy")
	flags.String("base-url", "", "CDN base URL")
	flags.Duration("poll-interval", 60*time.Second, "Auto-poll interval")
	flags.Duration("max-init-wait", 5*time.Second, "How long the first read waits for the initial auto-poll download")
	flags.Duration("cache-ttl", 60*time.Second, "Lazy-load cache time-to-live")
	flags.Duration("timeout", 30*time.Second, "Download timeout")
	flags.String("redis-addr", "", "Share the cached document through this Redis server")
	flags.String("log-level", "warn", "Log level")

	rootCmd.AddCommand(newGetCmd(v, logger), newKeysCmd(v, logger), newServeCmd(v, logger))

	return rootCmd
}

// newClient builds a client from flags, FLAGSNAP_* variables and the config
// file, in that order of precedence.
func newClient(v *viper.Viper, logger log.FieldLogger) (*flagsnap.Client, error) {
	cfg := flagsnap.DefaultConfig()
	cfg.SDKKey = v.GetString("sdk-key")
	cfg.Mode = flagsnap.Mode(v.GetString("mode"))
	cfg.PollInterval = v.GetDuration("poll-interval")
	cfg.MaxInitWait = v.GetDuration("max-init-wait")
	cfg.CacheTTL = v.GetDuration("cache-ttl")
	cfg.RequestTimeout = v.GetDuration("timeout")
	if base := v.GetString("base-url"); base != "" {
		cfg.BaseURL = base
	}

	opts := []flagsnap.Option{
		flagsnap.WithConfig(cfg),
		flagsnap.WithLogger(logger),
	}
	if addr := v.GetString("redis-addr"); addr != "" {
		opts = append(opts, flagsnap.WithRedisCache(redis.NewClient(&redis.Options{Addr: addr}), ""))
	}

	return flagsnap.New(cfg.SDKKey, opts...)
}
