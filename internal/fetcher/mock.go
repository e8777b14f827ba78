package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

// MockFetcher is a mock implementation of Fetcher for testing
type MockFetcher struct {
	mu sync.Mutex

	// Stored document, returned as Fetched when no FetchFunc is set
	document   string
	versionTag string

	// Mock behaviors
	FetchFunc func(ctx context.Context, previous domain.Snapshot) Result

	// Call tracking
	FetchCalls int
}

// NewMockFetcher creates a new mock fetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{}
}

// SetDocument sets the document served by the default behavior.
func (m *MockFetcher) SetDocument(versionTag, document string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versionTag = versionTag
	m.document = document
}

// Fetch returns the stored document. A request carrying the stored version
// tag yields NotModified.
func (m *MockFetcher) Fetch(ctx context.Context, previous domain.Snapshot) Result {
	m.mu.Lock()
	m.FetchCalls++
	fn := m.FetchFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, previous)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.document == "" {
		return Result{Status: Failed, Err: domain.NewFetchFailedError("no document", nil)}
	}
	if m.versionTag != "" && previous.VersionTag() == m.versionTag {
		return Result{Status: NotModified}
	}

	return Result{
		Status:   Fetched,
		Snapshot: domain.NewSnapshot(m.versionTag, m.document, time.Now()),
	}
}

// Calls returns the number of Fetch calls.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchCalls
}

// Reset clears call counters
func (m *MockFetcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls = 0
}
