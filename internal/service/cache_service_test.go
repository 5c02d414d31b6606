package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCache struct {
	*memoryCache
	err error
}

func (c *failingCache) Get(context.Context, string, interface{}) error { return c.err }

func (c *failingCache) DeleteByPattern(context.Context, string) error { return c.err }

func TestCacheServiceRoundTripRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCache(), metrics, time.Minute, nil, true)
	require.True(t, svc.Enabled())

	var dest map[string]int
	hit, err := svc.Get(context.Background(), "timetable:conflicts:2024:1", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "timetable:conflicts:2024:1", map[string]int{"pairs": 2}, 0))
	hit, err = svc.Get(context.Background(), "timetable:conflicts:2024:1", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, dest["pairs"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.0001)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, 0, nil, false)
	assert.False(t, svc.Enabled())

	require.NoError(t, svc.Set(context.Background(), "k", "v", time.Second))
	assert.Empty(t, repo.data)

	var dest string
	hit, err := svc.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Invalidate(context.Background(), "*"))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceInvalidateByPattern(t *testing.T) {
	repo := newMemoryCache()
	svc := NewCacheService(repo, nil, 0, nil, true)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "timetable:conflicts:2024:1", 1, 0))
	require.NoError(t, svc.Set(ctx, "timetable:conflicts:2024:2", 2, 0))
	require.NoError(t, svc.Set(ctx, "timetable:other", 3, 0))

	require.NoError(t, svc.Invalidate(ctx, "timetable:conflicts:*"))
	assert.Len(t, repo.data, 1)
	assert.Contains(t, repo.data, "timetable:other")

	require.NoError(t, svc.Delete(ctx, "timetable:other"))
	assert.Empty(t, repo.data)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := &failingCache{memoryCache: newMemoryCache(), err: errors.New("connection refused")}
	svc := NewCacheService(repo, nil, 0, nil, true)

	var dest string
	hit, err := svc.Get(context.Background(), "k", &dest)
	assert.False(t, hit)
	assert.EqualError(t, err, "connection refused")
	assert.Error(t, svc.Invalidate(context.Background(), "*"))
}
