package storage

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/dgraph-io/ristretto"
)

var errSetRejected = errors.New("snapshot rejected by cache admission policy")

// MemoryStorage keeps snapshots in a ristretto cache. It is the default store
// and is private to the process.
type MemoryStorage struct {
	cache *ristretto.Cache

	hits      atomic.Uint64
	misses    atomic.Uint64
	sets      atomic.Uint64
	setErrors atomic.Uint64
}

// NewMemoryStorage creates a new in-memory store
func NewMemoryStorage(config Config) (*MemoryStorage, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &MemoryStorage{cache: cache}, nil
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (domain.Snapshot, error) {
	value, found := m.cache.Get(key)
	if !found {
		m.misses.Add(1)
		return domain.EmptySnapshot, ErrNotFound
	}

	snapshot, ok := value.(domain.Snapshot)
	if !ok {
		m.misses.Add(1)
		return domain.EmptySnapshot, ErrNotFound
	}

	m.hits.Add(1)
	return snapshot, nil
}

// Set stores the snapshot and waits until it is visible to Get.
func (m *MemoryStorage) Set(ctx context.Context, key string, snapshot domain.Snapshot) error {
	cost := int64(len(snapshot.Document()) + len(snapshot.VersionTag()))
	if cost == 0 {
		cost = 1
	}

	if !m.cache.Set(key, snapshot, cost) {
		m.setErrors.Add(1)
		return errSetRejected
	}
	m.cache.Wait()

	m.sets.Add(1)
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.cache.Del(key)
	return nil
}

func (m *MemoryStorage) Metrics() Metrics {
	return Metrics{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Sets:      m.sets.Load(),
		SetErrors: m.setErrors.Load(),
	}
}

func (m *MemoryStorage) Close() error {
	m.cache.Close()
	return nil
}
