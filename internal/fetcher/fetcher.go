package fetcher

import (
	"context"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

// Status is the outcome of a single fetch.
type Status int

const (
	// Fetched means a new document was downloaded.
	Fetched Status = iota
	// NotModified means the server confirmed the previous version is current.
	NotModified
	// Failed covers network errors, non-success status codes, malformed
	// documents and timeouts.
	Failed
)

func (s Status) String() string {
	switch s {
	case Fetched:
		return "fetched"
	case NotModified:
		return "not_modified"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what a Fetcher returns. Snapshot is only meaningful when Status
// is Fetched; Err is only set when Status is Failed.
type Result struct {
	Status   Status
	Snapshot domain.Snapshot
	Err      error
}

// Fetcher downloads the configuration document. Implementations must not
// mutate previous; they use its version tag for conditional requests.
type Fetcher interface {
	Fetch(ctx context.Context, previous domain.Snapshot) Result
}
