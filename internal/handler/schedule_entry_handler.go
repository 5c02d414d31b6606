package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type scheduleEntryCommands interface {
	Check(ctx context.Context, req dto.CreateScheduleEntryRequest) (*dto.ValidationResult, error)
	CheckReschedule(ctx context.Context, id string, req dto.RescheduleRequest) (*dto.ValidationResult, error)
	Create(ctx context.Context, req dto.CreateScheduleEntryRequest) (*models.ScheduleEntry, error)
	Reschedule(ctx context.Context, id string, req dto.RescheduleRequest) (*models.ScheduleEntry, error)
	ChangeTeacher(ctx context.Context, id string, req dto.ChangeTeacherRequest) (*models.ScheduleEntry, error)
	ChangeRoom(ctx context.Context, id string, req dto.ChangeRoomRequest) (*models.ScheduleEntry, error)
	Cancel(ctx context.Context, id string) (*models.ScheduleEntry, error)
	Reactivate(ctx context.Context, id string) (*models.ScheduleEntry, error)
	Get(ctx context.Context, id string) (*models.ScheduleEntry, error)
	History(ctx context.Context, id string) ([]models.ScheduleEvent, error)
	List(ctx context.Context, filter models.ScheduleEntryFilter) ([]models.ScheduleEntry, *models.Pagination, error)
}

// ScheduleEntryHandler exposes timetable entry endpoints.
type ScheduleEntryHandler struct {
	service scheduleEntryCommands
}

// NewScheduleEntryHandler constructs the handler.
func NewScheduleEntryHandler(svc scheduleEntryCommands) *ScheduleEntryHandler {
	return &ScheduleEntryHandler{service: svc}
}

// Validate godoc
// @Summary Dry-run a schedule entry against the timetable rules
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleEntryRequest true "Proposed entry"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/validate [post]
func (h *ScheduleEntryHandler) Validate(c *gin.Context) {
	var req dto.CreateScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidRequest(err, "invalid payload"))
		return
	}
	result, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Create schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateScheduleEntryRequest true "Schedule entry"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleEntryHandler) Create(c *gin.Context) {
	var req dto.CreateScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidRequest(err, "invalid payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// List godoc
// @Summary List schedule entries
// @Tags Schedules
// @Produce json
// @Param year query int false "Year"
// @Param half query int false "Half (1 or 2)"
// @Param class_id query string false "Class ID"
// @Param teacher_id query string false "Teacher ID"
// @Param subject_id query string false "Subject ID"
// @Param room query string false "Room"
// @Param day query string false "Day of week"
// @Param include_cancelled query bool false "Include cancelled entries"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleEntryHandler) List(c *gin.Context) {
	filter := models.ScheduleEntryFilter{
		Year:      queryInt(c, "year", 0),
		Half:      queryInt(c, "half", 0),
		ClassID:   strings.TrimSpace(c.Query("class_id")),
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
		SubjectID: strings.TrimSpace(c.Query("subject_id")),
		Room:      strings.TrimSpace(c.Query("room")),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "limit", 20),
	}
	if raw := c.Query("day"); raw != "" {
		day, err := models.ParseWeekday(raw)
		if err != nil {
			response.Error(c, invalidRequest(err, err.Error()))
			return
		}
		filter.DayOfWeek = day
	}
	if raw := c.Query("include_cancelled"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, invalidRequest(err, "include_cancelled must be a boolean"))
			return
		}
		filter.IncludeCancel = include
	}

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleEntryHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// History godoc
// @Summary List the lifecycle events of a schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id}/history [get]
func (h *ScheduleEntryHandler) History(c *gin.Context) {
	events, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Reschedule godoc
// @Summary Move a schedule entry to another time slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.RescheduleRequest true "New time slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/timeslot [patch]
func (h *ScheduleEntryHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidRequest(err, "invalid payload"))
		return
	}
	entry, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), req)
	h.respondEntry(c, entry, err)
}

// ValidateReschedule godoc
// @Summary Dry-run moving a schedule entry to another time slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.RescheduleRequest true "Proposed time slot"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/timeslot/validate [post]
func (h *ScheduleEntryHandler) ValidateReschedule(c *gin.Context) {
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidRequest(err, "invalid payload"))
		return
	}
	result, err := h.service.CheckReschedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ChangeTeacher godoc
// @Summary Reassign a schedule entry to another teacher
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.ChangeTeacherRequest true "Teacher"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/teacher [patch]
func (h *ScheduleEntryHandler) ChangeTeacher(c *gin.Context) {
	var req dto.ChangeTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidRequest(err, "invalid payload"))
		return
	}
	entry, err := h.service.ChangeTeacher(c.Request.Context(), c.Param("id"), req)
	h.respondEntry(c, entry, err)
}

// ChangeRoom godoc
// @Summary Move a schedule entry to another room
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.ChangeRoomRequest true "Room"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/room [patch]
func (h *ScheduleEntryHandler) ChangeRoom(c *gin.Context) {
	var req dto.ChangeRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidRequest(err, "invalid payload"))
		return
	}
	entry, err := h.service.ChangeRoom(c.Request.Context(), c.Param("id"), req)
	h.respondEntry(c, entry, err)
}

// Cancel godoc
// @Summary Cancel a schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/cancel [post]
func (h *ScheduleEntryHandler) Cancel(c *gin.Context) {
	entry, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	h.respondEntry(c, entry, err)
}

// Reactivate godoc
// @Summary Reactivate a cancelled schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/reactivate [post]
func (h *ScheduleEntryHandler) Reactivate(c *gin.Context) {
	entry, err := h.service.Reactivate(c.Request.Context(), c.Param("id"))
	h.respondEntry(c, entry, err)
}

func (h *ScheduleEntryHandler) respondEntry(c *gin.Context, entry *models.ScheduleEntry, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if entry == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
