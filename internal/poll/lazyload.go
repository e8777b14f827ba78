package poll

import (
	"context"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/OrlandoBitencourt/flagsnap/internal/telemetry"
)

// DefaultCacheTTL is the lazy-load time-to-live when none is configured.
const DefaultCacheTTL = 60 * time.Second

// LazyLoadConfig holds lazy-load configuration
type LazyLoadConfig struct {
	CacheTTL  time.Duration
	Telemetry telemetry.Provider

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// LazyLoad fetches on read once the cached snapshot is older than the TTL.
type LazyLoad struct {
	refresher Refresher
	ttl       time.Duration
	telemetry telemetry.Provider
	now       func() time.Time
}

// NewLazyLoad creates a lazy-load strategy
func NewLazyLoad(refresher Refresher, config LazyLoadConfig) *LazyLoad {
	l := &LazyLoad{
		refresher: refresher,
		ttl:       config.CacheTTL,
		telemetry: config.Telemetry,
		now:       config.Now,
	}
	if l.ttl <= 0 {
		l.ttl = DefaultCacheTTL
	}
	if l.telemetry == nil {
		l.telemetry = telemetry.NewNoOp()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// GetConfig returns the cached snapshot while it is fresh and refreshes
// otherwise. A snapshot exactly at its TTL is stale.
func (l *LazyLoad) GetConfig(ctx context.Context) domain.Snapshot {
	cached := l.refresher.Cached(ctx)
	if l.fresh(cached) {
		l.telemetry.RecordCacheHit(ctx, string(ModeLazy))
		return cached
	}

	l.telemetry.RecordCacheMiss(ctx, string(ModeLazy))
	s, _ := l.refresher.Refresh(ctx, cached)
	return s
}

func (l *LazyLoad) fresh(s domain.Snapshot) bool {
	if s.IsEmpty() {
		return false
	}
	return l.now().Before(s.FetchedAt().Add(l.ttl))
}

// Refresh bypasses the TTL check.
func (l *LazyLoad) Refresh(ctx context.Context) (domain.Snapshot, error) {
	return l.refresher.Refresh(ctx, l.refresher.Cached(ctx))
}

func (l *LazyLoad) Close() {}
