package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStorage stores snapshots in Redis so that several processes sharing
// an SDK key can reuse each other's downloads.
type RedisStorage struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration

	hits      atomic.Uint64
	misses    atomic.Uint64
	sets      atomic.Uint64
	setErrors atomic.Uint64
}

// RedisOption configures a RedisStorage.
type RedisOption func(*RedisStorage)

// WithKeyPrefix namespaces every key written by the store.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisStorage) { r.prefix = prefix }
}

// WithExpiration sets a Redis expiration on written snapshots. Zero keeps
// them forever.
func WithExpiration(ttl time.Duration) RedisOption {
	return func(r *RedisStorage) { r.ttl = ttl }
}

// NewRedisStorage wraps an existing Redis client.
func NewRedisStorage(rdb redis.UniversalClient, opts ...RedisOption) *RedisStorage {
	r := &RedisStorage{rdb: rdb, prefix: "flagsnap:"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisStorage) key(key string) string {
	return r.prefix + key
}

func (r *RedisStorage) Get(ctx context.Context, key string) (domain.Snapshot, error) {
	data, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return domain.EmptySnapshot, ErrNotFound
	}
	if err != nil {
		r.misses.Add(1)
		return domain.EmptySnapshot, fmt.Errorf("redis get failed: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		r.misses.Add(1)
		return domain.EmptySnapshot, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	r.hits.Add(1)
	return snapshot, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, snapshot domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		r.setErrors.Add(1)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := r.rdb.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		r.setErrors.Add(1)
		return fmt.Errorf("redis set failed: %w", err)
	}

	r.sets.Add(1)
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

func (r *RedisStorage) Metrics() Metrics {
	return Metrics{
		Hits:      r.hits.Load(),
		Misses:    r.misses.Load(),
		Sets:      r.sets.Load(),
		SetErrors: r.setErrors.Load(),
	}
}

// Close closes the underlying client.
func (r *RedisStorage) Close() error {
	return r.rdb.Close()
}
