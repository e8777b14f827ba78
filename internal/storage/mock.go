package storage

import (
	"context"
	"sync"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Snapshot

	// Mock behaviors
	GetFunc func(ctx context.Context, key string) (domain.Snapshot, error)
	SetFunc func(ctx context.Context, key string, snapshot domain.Snapshot) error

	// Call tracking
	GetCalls    int
	SetCalls    int
	DeleteCalls int
	CloseCalls  int
}

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		snapshots: make(map[string]domain.Snapshot),
	}
}

func (m *MockStorage) Get(ctx context.Context, key string) (domain.Snapshot, error) {
	m.mu.Lock()
	m.GetCalls++
	fn := m.GetFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, key)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[key]
	if !ok {
		return domain.EmptySnapshot, ErrNotFound
	}
	return s, nil
}

func (m *MockStorage) Set(ctx context.Context, key string, snapshot domain.Snapshot) error {
	m.mu.Lock()
	m.SetCalls++
	fn := m.SetFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, key, snapshot)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[key] = snapshot
	return nil
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	delete(m.snapshots, key)
	return nil
}

func (m *MockStorage) Metrics() Metrics { return Metrics{} }

func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}

// Sets returns the number of Set calls.
func (m *MockStorage) Sets() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SetCalls
}
