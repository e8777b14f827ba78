package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd(v *viper.Viper, logger log.FieldLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a client and serve its admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := newClient(v, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := refreshIfManual(ctx, client); err != nil {
				logger.WithError(err).Warn("initial download failed")
			}

			srv := &http.Server{
				Addr:              v.GetString("addr"),
				Handler:           client.AdminHandler(v.GetString("webhook-secret")),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				logger.WithField("addr", srv.Addr).Info("serving admin API")
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().String("webhook-secret", "", "Verify POST /webhook with this HMAC-SHA256 secret")

	return cmd
}
