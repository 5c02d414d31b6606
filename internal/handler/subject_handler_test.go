package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type subjectCatalogueStub struct {
	lastSearch string
	lastPut    service.UpsertSubjectRequest
}

func (s *subjectCatalogueStub) List(ctx context.Context, search string) ([]models.Subject, error) {
	s.lastSearch = search
	return []models.Subject{{ID: "math", Code: "MAT", Name: "Mathematics", YearlyHours: 80}}, nil
}

func (s *subjectCatalogueStub) Get(ctx context.Context, id string) (*models.Subject, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
}

func (s *subjectCatalogueStub) Put(ctx context.Context, id string, req service.UpsertSubjectRequest) (*models.Subject, error) {
	s.lastPut = req
	return &models.Subject{ID: id, Code: req.Code, Name: req.Name, YearlyHours: req.YearlyHours}, nil
}

func TestSubjectHandlerRoutes(t *testing.T) {
	stub := &subjectCatalogueStub{}
	router := newTestRouter(Handlers{Subjects: NewSubjectHandler(stub)})

	w := performRequest(router, http.MethodGet, "/api/v1/subjects?search=%20mat%20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mat", stub.lastSearch)

	w = performRequest(router, http.MethodGet, "/api/v1/subjects/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(router, http.MethodPut, "/api/v1/subjects/math", `{"code":"MAT","name":"Mathematics","yearly_hours":80}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 80, stub.lastPut.YearlyHours)

	w = performRequest(router, http.MethodPut, "/api/v1/subjects/math", `{"yearly_hours":"many"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
