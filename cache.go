package flagsnap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/OrlandoBitencourt/flagsnap/internal/storage"
)

// Cache is a user-supplied store for serialized snapshots. Get returns
// ErrCacheMiss, or an empty string, when key holds nothing.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
}

// cacheAdapter adapts a Cache to storage.Storage
type cacheAdapter struct {
	cache Cache

	hits      atomic.Uint64
	misses    atomic.Uint64
	sets      atomic.Uint64
	setErrors atomic.Uint64
}

func newCacheAdapter(cache Cache) *cacheAdapter {
	return &cacheAdapter{cache: cache}
}

func (a *cacheAdapter) Get(ctx context.Context, key string) (domain.Snapshot, error) {
	value, err := a.cache.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) || (err == nil && value == "") {
		a.misses.Add(1)
		return domain.EmptySnapshot, storage.ErrNotFound
	}
	if err != nil {
		a.misses.Add(1)
		return domain.EmptySnapshot, err
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal([]byte(value), &snapshot); err != nil {
		a.misses.Add(1)
		return domain.EmptySnapshot, fmt.Errorf("decode cached snapshot: %w", err)
	}

	a.hits.Add(1)
	return snapshot, nil
}

func (a *cacheAdapter) Set(ctx context.Context, key string, snapshot domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		a.setErrors.Add(1)
		return err
	}

	if err := a.cache.Set(ctx, key, string(data)); err != nil {
		a.setErrors.Add(1)
		return err
	}

	a.sets.Add(1)
	return nil
}

// Delete overwrites key with an empty value, which Get treats as a miss.
func (a *cacheAdapter) Delete(ctx context.Context, key string) error {
	return a.cache.Set(ctx, key, "")
}

func (a *cacheAdapter) Metrics() storage.Metrics {
	return storage.Metrics{
		Hits:      a.hits.Load(),
		Misses:    a.misses.Load(),
		Sets:      a.sets.Load(),
		SetErrors: a.setErrors.Load(),
	}
}

func (a *cacheAdapter) Close() error { return nil }
