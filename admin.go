package flagsnap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/OrlandoBitencourt/flagsnap/internal/server"
)

// startAdminServer starts the admin server in background
func (c *Client) startAdminServer(port int, webhookSecret string) {
	c.admin = server.NewAdminServer(&clientAdapter{client: c}, server.Config{
		Addr:          fmt.Sprintf(":%d", port),
		WebhookSecret: webhookSecret,
		Logger:        c.logger,
	})

	go func() {
		if err := c.admin.ListenAndServe(); err != nil {
			// Log error but don't crash the application
			c.logger.WithError(err).Error("admin server stopped")
		}
	}()
}

// clientAdapter adapts Client to server.ClientInterface
type clientAdapter struct {
	client *Client
}

func (a *clientAdapter) Snapshot(ctx context.Context) domain.Snapshot {
	return a.client.Snapshot(ctx)
}

func (a *clientAdapter) ForceRefresh(ctx context.Context) error {
	return a.client.ForceRefresh(ctx)
}

func (a *clientAdapter) Keys(ctx context.Context) ([]string, error) {
	return a.client.GetAllKeys(ctx)
}

func (a *clientAdapter) Evaluate(ctx context.Context, key string, user *domain.User) *domain.EvaluationResult {
	return a.client.evaluate(ctx, key, nil, user)
}

func (a *clientAdapter) Mode() string {
	return string(a.client.Mode())
}

// AdminHandler returns the admin routes without starting a listener, for
// mounting on an existing server.
func (c *Client) AdminHandler(webhookSecret string) http.Handler {
	return server.NewAdminServer(&clientAdapter{client: c}, server.Config{
		WebhookSecret: webhookSecret,
		Logger:        c.logger,
	}).Handler()
}
