package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *memoryCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if raw, ok := c.data[key]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n++
	raw, err := json.Marshal(n)
	if err != nil {
		return 0, err
	}
	c.data[key] = raw
	return n, nil
}

type countingSweeper struct {
	inner conflictSweeper
	calls int
}

func (s *countingSweeper) DetectAllConflicts(ctx context.Context, year, half int) ([]models.ConflictPair, error) {
	s.calls++
	return s.inner.DetectAllConflicts(ctx, year, half)
}

func newAuditFixture(t *testing.T) (*AuditService, *countingSweeper, *memoryCache) {
	t.Helper()
	repo := newMemoryRepo(
		makeEntry(t, entrySpec{id: "a", teacher: "T", room: "101", slot: slot(models.Monday, "08:00", "08:50")}),
		makeEntry(t, entrySpec{id: "b", teacher: "T", room: "102", slot: slot(models.Monday, "08:30", "09:20")}),
	)
	sweeper := &countingSweeper{inner: newSchedulingFixture(t, repo, nil)}
	store := newMemoryCache()
	metrics := NewMetricsService()
	cacheSvc := NewCacheService(store, metrics, time.Minute, nil, true)
	return NewAuditService(sweeper, cacheSvc, metrics, nil), sweeper, store
}

func TestAuditReportIsCachedUntilInvalidated(t *testing.T) {
	svc, sweeper, store := newAuditFixture(t)
	ctx := context.Background()

	first, err := svc.Report(ctx, 2024, 1)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	require.Len(t, first.Pairs, 1)
	assert.Equal(t, models.DimensionTeacher, first.Pairs[0].Dimension)
	assert.Contains(t, store.data, "timetable:conflicts:2024:1")

	second, err := svc.Report(ctx, 2024, 1)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Pairs, second.Pairs)
	assert.Equal(t, 1, sweeper.calls)

	svc.InvalidateTerm(ctx, models.Term{Year: 2024, Half: 1})
	_, err = svc.Report(ctx, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, sweeper.calls)
}

// gatedSweeper parks inside the sweep until release is closed.
type gatedSweeper struct {
	inner   conflictSweeper
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedSweeper) DetectAllConflicts(ctx context.Context, year, half int) ([]models.ConflictPair, error) {
	pairs, err := s.inner.DetectAllConflicts(ctx, year, half)
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return pairs, err
}

func TestAuditSweepDoesNotRecacheAfterInvalidation(t *testing.T) {
	svc, sweeper, store := newAuditFixture(t)
	gated := &gatedSweeper{inner: sweeper, entered: make(chan struct{}), release: make(chan struct{})}
	svc.sweeper = gated
	ctx := context.Background()
	term := models.Term{Year: 2024, Half: 1}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(ctx, 2024, 1)
		done <- err
	}()

	<-gated.entered
	svc.InvalidateTerm(ctx, term)
	close(gated.release)
	require.NoError(t, <-done)

	store.mu.Lock()
	_, cached := store.data[ReportKey(term)]
	store.mu.Unlock()
	assert.False(t, cached)

	report, err := svc.Report(ctx, 2024, 1)
	require.NoError(t, err)
	assert.False(t, report.Cached)
	assert.Equal(t, 2, sweeper.calls)

	again, err := svc.Report(ctx, 2024, 1)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, 2, sweeper.calls)
}

func TestAuditInvalidateBumpsGeneration(t *testing.T) {
	svc, _, store := newAuditFixture(t)
	ctx := context.Background()
	term := models.Term{Year: 2024, Half: 2}

	svc.InvalidateTerm(ctx, term)
	svc.InvalidateTerm(ctx, term)

	var gen int64
	require.NoError(t, store.Get(ctx, "timetable:conflicts:gen:2024:2", &gen))
	assert.Equal(t, int64(2), gen)
}

func TestAuditReportValidatesTerm(t *testing.T) {
	svc, _, _ := newAuditFixture(t)
	_, err := svc.Report(context.Background(), 2024, 3)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuditExport(t *testing.T) {
	svc, _, _ := newAuditFixture(t)

	csv, err := svc.Export(context.Background(), 2024, 1, export.FormatCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "TEACHER,a,T,101,MONDAY 08:00-08:50,b,T,102,MONDAY 08:30-09:20"))

	pdf, err := svc.Export(context.Background(), 2024, 1, export.FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	xlsx, err := svc.Export(context.Background(), 2024, 1, export.FormatXLSX)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx, []byte("PK")))
}

func TestAuditEnqueueRunsInBackground(t *testing.T) {
	svc, sweeper, store := newAuditFixture(t)

	_, err := svc.Enqueue(context.Background(), 2024, 1)
	assert.Equal(t, appErrors.ErrUnavailable.Code, appErrors.FromError(err).Code)

	queue := jobs.NewQueue("audit-test", svc.HandleJob, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()
	svc.UseQueue(queue)

	job, err := svc.Enqueue(context.Background(), 2024, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, job.JobID)

	require.Eventually(t, func() bool { return queue.Stats().Succeeded == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sweeper.calls)
	store.mu.Lock()
	_, cached := store.data[ReportKey(models.Term{Year: 2024, Half: 1})]
	store.mu.Unlock()
	assert.True(t, cached)
}

func TestAuditHandleJobRejectsUnknownPayload(t *testing.T) {
	svc, _, _ := newAuditFixture(t)
	err := svc.HandleJob(context.Background(), jobs.Job{ID: "1", Type: AuditJobType, Payload: "2024/1"})
	assert.Error(t, err)
}
