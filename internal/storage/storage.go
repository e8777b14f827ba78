package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

// ErrNotFound is returned by Get when the store holds no snapshot for a key.
var ErrNotFound = errors.New("snapshot not found")

// Storage defines the interface for snapshot cache stores. A store may be
// shared by several processes; readers must tolerate another writer.
type Storage interface {
	// Get retrieves the snapshot stored under key
	Get(ctx context.Context, key string) (domain.Snapshot, error)

	// Set stores a snapshot under key
	Set(ctx context.Context, key string, snapshot domain.Snapshot) error

	// Delete removes a snapshot
	Delete(ctx context.Context, key string) error

	// Metrics returns storage metrics
	Metrics() Metrics

	// Close closes the storage
	Close() error
}

// Metrics represents storage metrics
type Metrics struct {
	Hits      uint64
	Misses    uint64
	Sets      uint64
	SetErrors uint64
}

// Config holds in-memory storage configuration
type Config struct {
	// Memory limits
	MaxCost     int64 // Maximum cache size in bytes
	NumCounters int64 // Number of counters for admission policy
	BufferItems int64 // Number of keys per buffer
}

// DefaultConfig returns default storage configuration
func DefaultConfig() Config {
	return Config{
		MaxCost:     64 << 20, // 64MB
		NumCounters: 1e4,
		BufferItems: 64,
	}
}

const keyPrefix = "go_config_v5.json_"

// CacheKey derives the store key for an SDK key.
func CacheKey(sdkKey string) string {
	sum := sha1.Sum([]byte(keyPrefix + sdkKey))
	return hex.EncodeToString(sum[:])
}
