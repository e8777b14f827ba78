package poll

import (
	"context"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

// ManualPoll never fetches on its own. Refresh is the only trigger.
type ManualPoll struct {
	refresher Refresher
}

// NewManualPoll creates a manual-poll strategy
func NewManualPoll(refresher Refresher) *ManualPoll {
	return &ManualPoll{refresher: refresher}
}

// GetConfig answers from the cache, which may hold EmptySnapshot.
func (m *ManualPoll) GetConfig(ctx context.Context) domain.Snapshot {
	return m.refresher.Cached(ctx)
}

func (m *ManualPoll) Refresh(ctx context.Context) (domain.Snapshot, error) {
	return m.refresher.Refresh(ctx, m.refresher.Cached(ctx))
}

func (m *ManualPoll) Close() {}
