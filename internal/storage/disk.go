package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

// DiskStorage persists snapshots as JSON files so a restarted process can
// serve the last downloaded document before its first fetch.
type DiskStorage struct {
	dir string
	mu  sync.RWMutex

	hits      atomic.Uint64
	misses    atomic.Uint64
	sets      atomic.Uint64
	setErrors atomic.Uint64
}

func NewDiskStorage(dir string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &DiskStorage{dir: dir}, nil
}

func (d *DiskStorage) filePath(key string) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s.json", key))
}

func (d *DiskStorage) Get(ctx context.Context, key string) (domain.Snapshot, error) {
	select {
	case <-ctx.Done():
		return domain.EmptySnapshot, ctx.Err()
	default:
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	data, err := os.ReadFile(d.filePath(key))
	if err != nil {
		d.misses.Add(1)
		if os.IsNotExist(err) {
			return domain.EmptySnapshot, ErrNotFound
		}
		return domain.EmptySnapshot, err
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		d.misses.Add(1)
		return domain.EmptySnapshot, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	d.hits.Add(1)
	return snapshot, nil
}

// Set writes to a temporary file and renames it so readers never observe a
// partial document.
func (d *DiskStorage) Set(ctx context.Context, key string, snapshot domain.Snapshot) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		d.setErrors.Add(1)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	file := d.filePath(key)
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		d.setErrors.Add(1)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, file); err != nil {
		d.setErrors.Add(1)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	d.sets.Add(1)
	return nil
}

func (d *DiskStorage) Delete(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := os.Remove(d.filePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *DiskStorage) Metrics() Metrics {
	return Metrics{
		Hits:      d.hits.Load(),
		Misses:    d.misses.Load(),
		Sets:      d.sets.Load(),
		SetErrors: d.setErrors.Load(),
	}
}

func (d *DiskStorage) Close() error { return nil }
