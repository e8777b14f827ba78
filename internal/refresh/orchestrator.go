package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/OrlandoBitencourt/flagsnap/internal/fetcher"
	"github.com/OrlandoBitencourt/flagsnap/internal/storage"
	"github.com/OrlandoBitencourt/flagsnap/internal/telemetry"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const flightKey = "refresh"

// Config holds orchestrator dependencies
type Config struct {
	Fetcher   fetcher.Fetcher
	Storage   storage.Storage
	CacheKey  string
	Logger    log.FieldLogger
	Telemetry telemetry.Provider

	// OnChange is invoked after a write-through whenever the downloaded
	// document differs from the one passed to Refresh.
	OnChange func(domain.Snapshot)
}

// Orchestrator serializes refreshes. At most one fetch is in flight at a
// time; concurrent callers join it and observe the same outcome.
type Orchestrator struct {
	fetcher   fetcher.Fetcher
	storage   storage.Storage
	cacheKey  string
	logger    log.FieldLogger
	telemetry telemetry.Provider
	onChange  func(domain.Snapshot)

	group  singleflight.Group
	latest atomic.Value // domain.Snapshot

	// mu is held for reading during write-through so Close can wait for an
	// in-progress store write.
	mu     sync.RWMutex
	closed atomic.Bool
}

type outcome struct {
	snapshot domain.Snapshot
	err      error
}

// New creates an orchestrator
func New(config Config) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	tel := config.Telemetry
	if tel == nil {
		tel = telemetry.NewNoOp()
	}

	o := &Orchestrator{
		fetcher:   config.Fetcher,
		storage:   config.Storage,
		cacheKey:  config.CacheKey,
		logger:    logger,
		telemetry: tel,
		onChange:  config.OnChange,
	}
	o.latest.Store(domain.EmptySnapshot)

	return o
}

// Refresh fetches the document unless a fetch is already running, in which
// case it waits for that one. The fetch is detached from ctx cancellation;
// ctx only bounds how long this caller waits.
//
// On Failed the returned snapshot is current and the error is a
// *domain.FetchFailedError.
func (o *Orchestrator) Refresh(ctx context.Context, current domain.Snapshot) (domain.Snapshot, error) {
	fetchCtx := context.WithoutCancel(ctx)

	ch := o.group.DoChan(flightKey, func() (interface{}, error) {
		return o.doRefresh(fetchCtx, current), nil
	})

	select {
	case res := <-ch:
		out := res.Val.(outcome)
		return out.snapshot, out.err
	case <-ctx.Done():
		return current, ctx.Err()
	}
}

func (o *Orchestrator) doRefresh(ctx context.Context, current domain.Snapshot) outcome {
	start := time.Now()

	ctx, span := o.telemetry.StartSpan(ctx, "flagsnap.refresh",
		telemetry.WithAttributes(telemetry.String("previous.etag", current.VersionTag())))
	defer span.End()

	res := o.fetcher.Fetch(ctx, current)
	o.telemetry.RecordRefresh(ctx, res.Status.String(), time.Since(start))
	span.SetAttributes(telemetry.String("status", res.Status.String()))

	switch res.Status {
	case fetcher.Fetched:
		fresh := res.Snapshot
		if !o.writeThrough(ctx, fresh) {
			o.logger.Debug("orchestrator closed, discarding downloaded config")
			return outcome{snapshot: current}
		}

		if !fresh.SameContent(current) && !o.closed.Load() {
			o.logger.WithField("etag", fresh.VersionTag()).Debug("config changed")
			if o.onChange != nil {
				o.onChange(fresh)
			}
		}
		return outcome{snapshot: fresh}

	case fetcher.NotModified:
		o.logger.Debug("config not modified")
		return outcome{snapshot: current}

	default:
		err := res.Err
		if err == nil {
			err = domain.NewFetchFailedError("fetch failed", nil)
		} else if !domain.IsFetchFailed(err) {
			err = domain.NewFetchFailedError("fetch failed", err)
		}

		span.RecordError(err)
		o.logger.WithError(err).Error("failed to fetch config")
		return outcome{snapshot: current, err: err}
	}
}

func (o *Orchestrator) writeThrough(ctx context.Context, fresh domain.Snapshot) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed.Load() {
		return false
	}

	o.latest.Store(fresh)
	if err := o.storage.Set(ctx, o.cacheKey, fresh); err != nil {
		o.logger.WithError(err).WithField("cache_key", o.cacheKey).
			Warn("failed to write config to cache")
	}
	return true
}

// Close makes fetches that complete afterwards discard their result: no
// write-through and no change notification. It waits for a write-through
// already in progress.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed.Store(true)
}

// Cached reads the cache store. On a miss or a store error it falls back to
// the last snapshot this orchestrator downloaded, or EmptySnapshot.
func (o *Orchestrator) Cached(ctx context.Context) domain.Snapshot {
	latest := o.Latest()

	s, err := o.storage.Get(ctx, o.cacheKey)
	if err == nil && !s.IsEmpty() {
		// a failed write-through leaves an older document in the store
		if latest.FetchedAt().After(s.FetchedAt()) {
			return latest
		}
		return s
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		o.logger.WithError(err).WithField("cache_key", o.cacheKey).
			Warn("failed to read config from cache")
	}

	return latest
}

// Latest returns the last snapshot downloaded by this orchestrator.
func (o *Orchestrator) Latest() domain.Snapshot {
	return o.latest.Load().(domain.Snapshot)
}
