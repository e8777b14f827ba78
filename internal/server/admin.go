package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// ClientInterface defines what the admin server needs from a client
type ClientInterface interface {
	Snapshot(ctx context.Context) domain.Snapshot
	ForceRefresh(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	Evaluate(ctx context.Context, key string, user *domain.User) *domain.EvaluationResult
	Mode() string
}

// Config holds admin server configuration
type Config struct {
	Addr string

	// WebhookSecret enables signature checks on POST /webhook when set.
	WebhookSecret string

	Logger log.FieldLogger
}

// AdminServer provides admin HTTP endpoints
type AdminServer struct {
	client ClientInterface
	config Config
	logger log.FieldLogger
	server *http.Server
}

// NewAdminServer creates a new admin server
func NewAdminServer(client ClientInterface, config Config) *AdminServer {
	logger := config.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	a := &AdminServer{
		client: client,
		config: config,
		logger: logger,
	}
	a.server = &http.Server{
		Addr:              config.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a
}

// Handler returns the admin routes.
//
//	GET  /health
//	GET  /admin/snapshot
//	POST /admin/refresh
//	GET  /admin/flags
//	GET  /admin/flags/{key}
//	POST /webhook
func (a *AdminServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(UserContext)

	r.Get("/health", a.handleHealth)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/snapshot", a.handleSnapshot)
		r.Post("/refresh", a.handleRefresh)
		r.Get("/flags", a.handleFlags)
		r.Get("/flags/{key}", a.handleFlag)
	})

	r.Post("/webhook", a.handleWebhook)

	return r
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (a *AdminServer) ListenAndServe() error {
	a.logger.WithField("addr", a.config.Addr).Info("admin server listening")
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (a *AdminServer) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := a.client.Snapshot(r.Context())

	status := "healthy"
	code := http.StatusOK
	if snapshot.IsEmpty() {
		status = "initializing"
		code = http.StatusServiceUnavailable
	}

	resp := map[string]interface{}{
		"status":    status,
		"mode":      a.client.Mode(),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if !snapshot.IsEmpty() {
		resp["fetched_at"] = snapshot.FetchedAt().Format(time.RFC3339)
	}

	writeJSON(w, code, resp)
}

func (a *AdminServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := a.client.Snapshot(r.Context())
	if snapshot.IsEmpty() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": domain.ErrConfigNotAvailable.Error()})
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (a *AdminServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := a.client.ForceRefresh(r.Context()); err != nil {
		a.logger.WithError(err).Warn("admin refresh failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"status": "error", "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"etag":   a.client.Snapshot(r.Context()).VersionTag(),
	})
}

func (a *AdminServer) handleFlags(w http.ResponseWriter, r *http.Request) {
	keys, err := a.client.Keys(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": keys})
}

type flagResponse struct {
	Key            string      `json:"key"`
	Value          interface{} `json:"value"`
	VariationID    string      `json:"variation_id,omitempty"`
	IsDefaultValue bool        `json:"is_default_value"`
	MatchedRule    string      `json:"matched_rule,omitempty"`
	Error          string      `json:"error,omitempty"`
	Warning        string      `json:"warning,omitempty"`
}

func (a *AdminServer) handleFlag(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	user, _ := UserFromContext(r.Context())

	res := a.client.Evaluate(r.Context(), key, user)

	resp := flagResponse{
		Key:            key,
		Value:          res.Value,
		VariationID:    res.VariationID,
		IsDefaultValue: res.IsDefaultValue,
	}
	switch {
	case res.MatchedTargetingRule != nil:
		resp.MatchedRule = "targeting"
	case res.MatchedPercentageRule != nil:
		resp.MatchedRule = "percentage"
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	if res.Warning != nil {
		resp.Warning = res.Warning.Error()
	}

	code := http.StatusOK
	if domain.IsSettingNotFound(res.Err) {
		code = http.StatusNotFound
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
