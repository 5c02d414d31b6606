package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type subjectCatalogue interface {
	List(ctx context.Context, search string) ([]models.Subject, error)
	Get(ctx context.Context, id string) (*models.Subject, error)
	Put(ctx context.Context, id string, req service.UpsertSubjectRequest) (*models.Subject, error)
}

// SubjectHandler handles subject endpoints.
type SubjectHandler struct {
	service subjectCatalogue
}

// NewSubjectHandler constructs a subject handler.
func NewSubjectHandler(svc subjectCatalogue) *SubjectHandler {
	return &SubjectHandler{service: svc}
}

// List godoc
// @Summary List subjects
// @Tags Subjects
// @Produce json
// @Param search query string false "Search keyword"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	subjects, err := h.service.List(c.Request.Context(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Get godoc
// @Summary Get subject by id
// @Tags Subjects
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	subject, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}

// Put godoc
// @Summary Create or replace a subject and its yearly hours
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body service.UpsertSubjectRequest true "Subject payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects/{id} [put]
func (h *SubjectHandler) Put(c *gin.Context) {
	var req service.UpsertSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidRequest(err, "invalid payload"))
		return
	}
	subject, err := h.service.Put(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject, nil)
}
