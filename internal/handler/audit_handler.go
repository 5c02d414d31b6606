package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type auditReports interface {
	Report(ctx context.Context, year, half int) (*service.AuditReport, error)
	Enqueue(ctx context.Context, year, half int) (*service.AuditJob, error)
	Export(ctx context.Context, year, half int, format export.Format) ([]byte, error)
}

// AuditHandler exposes term-wide conflict sweeps.
type AuditHandler struct {
	service auditReports
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(svc auditReports) *AuditHandler {
	return &AuditHandler{service: svc}
}

// Conflicts godoc
// @Summary Report every conflicting pair of a term
// @Tags Audit
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param year path int true "Year"
// @Param half path int true "Half (1 or 2)"
// @Param format query string false "csv, pdf or xlsx; JSON when omitted"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /terms/{year}/{half}/conflicts [get]
func (h *AuditHandler) Conflicts(c *gin.Context) {
	year, half, err := termFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if raw := c.Query("format"); raw != "" && raw != "json" {
		format, err := export.ParseFormat(raw)
		if err != nil {
			response.Error(c, invalidRequest(err, err.Error()))
			return
		}
		content, err := h.service.Export(c.Request.Context(), year, half, format)
		if err != nil {
			response.Error(c, err)
			return
		}
		filename := fmt.Sprintf("conflicts-%d-%d.%s", year, half, format)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, format.ContentType(), content)
		return
	}

	report, err := h.service.Report(c.Request.Context(), year, half)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"pairs": len(report.Pairs), "cached": report.Cached})
}

// Audit godoc
// @Summary Queue a background conflict sweep of a term
// @Tags Audit
// @Produce json
// @Param year path int true "Year"
// @Param half path int true "Half (1 or 2)"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /terms/{year}/{half}/audit [post]
func (h *AuditHandler) Audit(c *gin.Context) {
	year, half, err := termFromPath(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.service.Enqueue(c.Request.Context(), year, half)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}
