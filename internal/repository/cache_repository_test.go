package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "timetable:conflicts:2024:1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "timetable:conflicts:2024:1", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "timetable:conflicts:2024:1"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "timetable:*"))
	n, err := repo.Incr(ctx, "timetable:conflicts:gen:2024:1")
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, repo.Close())
}
