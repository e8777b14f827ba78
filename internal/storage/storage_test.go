package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() domain.Snapshot {
	return domain.NewSnapshot("etag-1", `{"debug":{"value":true}}`, time.UnixMilli(1700000000000))
}

// storageContract runs the behaviour every store must share.
func storageContract(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", testSnapshot()))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "etag-1", got.VersionTag())
	assert.Equal(t, testSnapshot().Document(), got.Document())
	assert.True(t, testSnapshot().FetchedAt().Equal(got.FetchedAt()))

	updated := domain.NewSnapshot("etag-2", `{}`, time.Now())
	require.NoError(t, s.Set(ctx, "k", updated))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "etag-2", got.VersionTag())

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	m := s.Metrics()
	assert.Equal(t, uint64(2), m.Sets)
	assert.Equal(t, uint64(2), m.Hits)
	assert.Equal(t, uint64(2), m.Misses)
}

func TestCacheKey(t *testing.T) {
	k := CacheKey("sdk-key")
	assert.Len(t, k, 40)
	assert.Equal(t, k, CacheKey("sdk-key"))
	assert.NotEqual(t, k, CacheKey("other"))
}

func TestMemoryStorage(t *testing.T) {
	s, err := NewMemoryStorage(DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	storageContract(t, s)
}

func TestMemoryStorage_EmptySnapshot(t *testing.T) {
	s, err := NewMemoryStorage(DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", domain.EmptySnapshot))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := NewRedisStorage(rdb, WithKeyPrefix("test:"))
	defer s.Close()

	storageContract(t, s)
}

func TestRedisStorage_SharedBetweenInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	writer := NewRedisStorage(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	reader := NewRedisStorage(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer writer.Close()
	defer reader.Close()

	require.NoError(t, writer.Set(ctx, "shared", testSnapshot()))

	got, err := reader.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "etag-1", got.VersionTag())
	assert.True(t, mr.Exists("flagsnap:shared"))
}

func TestRedisStorage_Expiration(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStorage(redis.NewClient(&redis.Options{Addr: mr.Addr()}), WithExpiration(time.Minute))
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", testSnapshot()))

	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage_CorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStorage(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer s.Close()

	require.NoError(t, mr.Set("flagsnap:k", "not json"))

	_, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStorage(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer s.Close()
	mr.Close()

	err := s.Set(context.Background(), "k", testSnapshot())
	assert.Error(t, err)
	assert.Equal(t, uint64(1), s.Metrics().SetErrors)
}

func TestDiskStorage(t *testing.T) {
	s, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	storageContract(t, s)
}

func TestDiskStorage_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewDiskStorage(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", testSnapshot()))

	second, err := NewDiskStorage(dir)
	require.NoError(t, err)
	got, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "etag-1", got.VersionTag())

	_, err = os.Stat(filepath.Join(dir, "k.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestDiskStorage_CancelledContext(t *testing.T) {
	s, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Set(ctx, "k", testSnapshot()), context.Canceled)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
