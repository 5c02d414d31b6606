package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

type auditStub struct {
	enqueueErr error
	lastFormat export.Format
}

func (s *auditStub) Report(ctx context.Context, year, half int) (*service.AuditReport, error) {
	return &service.AuditReport{Year: year, Half: half, Pairs: []service.AuditPair{{Dimension: "TEACHER"}}, GeneratedAt: time.Now(), Cached: true}, nil
}

func (s *auditStub) Enqueue(ctx context.Context, year, half int) (*service.AuditJob, error) {
	if s.enqueueErr != nil {
		return nil, s.enqueueErr
	}
	return &service.AuditJob{JobID: "job-1", Year: year, Half: half}, nil
}

func (s *auditStub) Export(ctx context.Context, year, half int, format export.Format) ([]byte, error) {
	s.lastFormat = format
	return []byte("dimension,first_id\nTEACHER,a\n"), nil
}

func TestAuditHandlerConflictsJSON(t *testing.T) {
	router := newTestRouter(Handlers{Audit: NewAuditHandler(&auditStub{})})

	w := performRequest(router, http.MethodGet, "/api/v1/terms/2024/1/conflicts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pairs":1`)
	assert.Contains(t, w.Body.String(), `"cached":true`)
}

func TestAuditHandlerConflictsExport(t *testing.T) {
	stub := &auditStub{}
	router := newTestRouter(Handlers{Audit: NewAuditHandler(stub)})

	w := performRequest(router, http.MethodGet, "/api/v1/terms/2024/2/conflicts?format=CSV", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatCSV, stub.lastFormat)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="conflicts-2024-2.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "TEACHER,a")

	w = performRequest(router, http.MethodGet, "/api/v1/terms/2024/2/conflicts?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHandlerRejectsInvalidHalf(t *testing.T) {
	router := newTestRouter(Handlers{Audit: NewAuditHandler(&auditStub{})})

	w := performRequest(router, http.MethodGet, "/api/v1/terms/2024/3/conflicts", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHandlerEnqueue(t *testing.T) {
	stub := &auditStub{}
	router := newTestRouter(Handlers{Audit: NewAuditHandler(stub)})

	w := performRequest(router, http.MethodPost, "/api/v1/terms/2024/1/audit", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"job_id":"job-1"`)

	stub.enqueueErr = appErrors.Clone(appErrors.ErrUnavailable, "audit queue is not running")
	w = performRequest(router, http.MethodPost, "/api/v1/terms/2024/1/audit", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
