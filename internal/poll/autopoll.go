package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultPollInterval is the auto-poll period when none is configured.
	DefaultPollInterval = 60 * time.Second

	// MinPollInterval is the shortest accepted auto-poll period.
	MinPollInterval = time.Second

	// DefaultMaxInitWait bounds how long the first GetConfig waits for the
	// initial download.
	DefaultMaxInitWait = 5 * time.Second
)

// AutoPollConfig holds auto-poll configuration
type AutoPollConfig struct {
	PollInterval time.Duration

	// MaxInitWait of zero means GetConfig never waits.
	MaxInitWait time.Duration

	Logger log.FieldLogger
}

// AutoPoll refreshes on a fixed interval in the background.
//
// Until the first poll completes (or MaxInitWait elapses) the strategy is
// initializing and GetConfig blocks when the cache is empty. Afterwards it
// is ready and always answers from the cache.
type AutoPoll struct {
	refresher   Refresher
	interval    time.Duration
	maxInitWait time.Duration
	logger      log.FieldLogger

	initialized chan struct{}
	initOnce    sync.Once
	ready       atomic.Bool

	// State management
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// NewAutoPoll creates an auto-poll strategy. The loop does not run until
// Start is called.
func NewAutoPoll(refresher Refresher, config AutoPollConfig) *AutoPoll {
	interval := config.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if interval < MinPollInterval {
		interval = MinPollInterval
	}

	logger := config.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &AutoPoll{
		refresher:   refresher,
		interval:    interval,
		maxInitWait: config.MaxInitWait,
		logger:      logger,
		initialized: make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the poll loop: one immediate poll, then one per interval.
func (a *AutoPoll) Start() {
	a.startOnce.Do(func() {
		a.wg.Add(1)
		go a.pollLoop()
	})
}

func (a *AutoPoll) pollLoop() {
	defer a.wg.Done()

	a.Poll(a.ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return

		case <-ticker.C:
			a.Poll(a.ctx)
		}
	}
}

// Poll performs one tick. Any outcome, including failure, ends the
// initializing phase.
func (a *AutoPoll) Poll(ctx context.Context) {
	select {
	case <-a.ctx.Done():
		return
	default:
	}

	if _, err := a.refresher.Refresh(ctx, a.refresher.Cached(ctx)); err != nil {
		a.logger.WithError(err).WithField("mode", ModeAuto).Debug("poll did not refresh config")
	}

	a.initOnce.Do(func() { close(a.initialized) })
}

// GetConfig answers from the cache. While initializing with an empty cache it
// first waits for the initial poll, MaxInitWait or ctx, whichever is first.
func (a *AutoPoll) GetConfig(ctx context.Context) domain.Snapshot {
	if a.ready.Load() {
		return a.refresher.Cached(ctx)
	}

	if cached := a.refresher.Cached(ctx); !cached.IsEmpty() {
		a.ready.Store(true)
		return cached
	}

	if a.maxInitWait > 0 {
		timer := time.NewTimer(a.maxInitWait)
		defer timer.Stop()

		select {
		case <-a.initialized:
		case <-timer.C:
			a.logger.WithField("max_init_wait", a.maxInitWait).
				Warn("initial config download did not finish in time, serving cached config")
		case <-ctx.Done():
			return a.refresher.Cached(ctx)
		}
	}

	a.ready.Store(true)
	return a.refresher.Cached(ctx)
}

// Ready reports whether the initializing phase has ended.
func (a *AutoPoll) Ready() bool {
	return a.ready.Load()
}

// Refresh polls immediately, sharing any in-flight fetch.
func (a *AutoPoll) Refresh(ctx context.Context) (domain.Snapshot, error) {
	return a.refresher.Refresh(ctx, a.refresher.Cached(ctx))
}

// Close stops the poll loop and waits for it to exit. No refresh starts
// after Close returns.
func (a *AutoPoll) Close() {
	a.closeOnce.Do(func() {
		a.cancel()
		a.wg.Wait()
	})
}
