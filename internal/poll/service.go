// Package poll implements the refresh strategies that decide when the
// configuration document is downloaded.
package poll

import (
	"context"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

// Mode names a refresh strategy.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
	ModeLazy   Mode = "lazy"
)

// Identifier is the single-letter mode code used in the client version
// string.
func (m Mode) Identifier() string {
	switch m {
	case ModeAuto:
		return "a"
	case ModeManual:
		return "m"
	case ModeLazy:
		return "l"
	default:
		return "?"
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeAuto || m == ModeManual || m == ModeLazy
}

// Service is implemented by every refresh strategy.
type Service interface {
	// GetConfig returns the snapshot to evaluate against, fetching first if
	// the strategy requires it. It never fails; the result may be empty.
	GetConfig(ctx context.Context) domain.Snapshot

	// Refresh downloads the document unconditionally. On failure the
	// previous snapshot is returned with a *domain.FetchFailedError.
	Refresh(ctx context.Context) (domain.Snapshot, error)

	// Close releases background resources. It is safe to call twice.
	Close()
}

// Refresher is the orchestrator as seen by strategies.
type Refresher interface {
	Refresh(ctx context.Context, current domain.Snapshot) (domain.Snapshot, error)
	Cached(ctx context.Context) domain.Snapshot
}
