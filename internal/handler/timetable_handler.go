package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableQueries interface {
	FreeSlotsForTeacher(ctx context.Context, teacherID string, day models.Weekday, year, half int) ([]models.TimeSlot, error)
	FreeRooms(ctx context.Context, slot models.TimeSlot, year, half int, candidateRooms []string) ([]string, error)
	TeacherTimetable(ctx context.Context, teacherID string, year, half int) ([]models.ScheduleEntry, error)
	RoomTimetable(ctx context.Context, room string, year, half int) ([]models.ScheduleEntry, error)
	ClassTimetable(ctx context.Context, classID string, year, half int) ([]models.ScheduleEntry, error)
	TeacherLoad(ctx context.Context, teacherID string, year, half int) (*service.TeacherLoad, error)
}

type timetableCalendar interface {
	Render(name string, year, half int, entries []models.ScheduleEntry) ([]byte, error)
}

const icsContentType = "text/calendar; charset=utf-8"

// TimetableHandler answers read-only timetable queries.
type TimetableHandler struct {
	service  timetableQueries
	calendar timetableCalendar
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableQueries, calendar timetableCalendar) *TimetableHandler {
	return &TimetableHandler{service: svc, calendar: calendar}
}

// TeacherFreeSlots godoc
// @Summary List the standard periods a teacher has free on a day
// @Tags Timetables
// @Produce json
// @Param id path string true "Teacher ID"
// @Param day query string true "Day of week"
// @Param year query int true "Year"
// @Param half query int true "Half (1 or 2)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{id}/free-slots [get]
func (h *TimetableHandler) TeacherFreeSlots(c *gin.Context) {
	year, half, err := termFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	day, err := models.ParseWeekday(c.Query("day"))
	if err != nil {
		response.Error(c, invalidRequest(err, err.Error()))
		return
	}
	slots, err := h.service.FreeSlotsForTeacher(c.Request.Context(), c.Param("id"), day, year, half)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// TeacherTimetable godoc
// @Summary List a teacher's active entries in a term
// @Tags Timetables
// @Produce json
// @Param id path string true "Teacher ID"
// @Param year query int true "Year"
// @Param half query int true "Half (1 or 2)"
// @Param format query string false "ics for an iCalendar feed; JSON when omitted"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/timetable [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	year, half, err := termFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.TeacherTimetable(c.Request.Context(), c.Param("id"), year, half)
	h.respondTimetable(c, "teacher-"+c.Param("id"), year, half, entries, err)
}

// TeacherLoad godoc
// @Summary Report a teacher's weekly minutes against the ceiling
// @Tags Timetables
// @Produce json
// @Param id path string true "Teacher ID"
// @Param year query int true "Year"
// @Param half query int true "Half (1 or 2)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/load [get]
func (h *TimetableHandler) TeacherLoad(c *gin.Context) {
	year, half, err := termFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	load, err := h.service.TeacherLoad(c.Request.Context(), c.Param("id"), year, half)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, load, nil)
}

// FreeRooms godoc
// @Summary List rooms free during a time slot
// @Tags Timetables
// @Produce json
// @Param day query string true "Day of week"
// @Param start query string true "Start time HH:MM"
// @Param end query string true "End time HH:MM"
// @Param year query int true "Year"
// @Param half query int true "Half (1 or 2)"
// @Param rooms query string false "Comma separated candidate rooms; defaults to the configured rooms"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /rooms/free [get]
func (h *TimetableHandler) FreeRooms(c *gin.Context) {
	year, half, err := termFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	slot, err := slotFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rooms, err := h.service.FreeRooms(c.Request.Context(), slot, year, half, queryList(c, "rooms"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// RoomTimetable godoc
// @Summary List the active bookings of a room in a term
// @Tags Timetables
// @Produce json
// @Param room path string true "Room"
// @Param year query int true "Year"
// @Param half query int true "Half (1 or 2)"
// @Param format query string false "ics for an iCalendar feed; JSON when omitted"
// @Success 200 {object} response.Envelope
// @Router /rooms/{room}/timetable [get]
func (h *TimetableHandler) RoomTimetable(c *gin.Context) {
	year, half, err := termFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.RoomTimetable(c.Request.Context(), c.Param("room"), year, half)
	h.respondTimetable(c, "room-"+c.Param("room"), year, half, entries, err)
}

// ClassTimetable godoc
// @Summary List a class's active entries in a term
// @Tags Timetables
// @Produce json
// @Param id path string true "Class ID"
// @Param year query int true "Year"
// @Param half query int true "Half (1 or 2)"
// @Param format query string false "ics for an iCalendar feed; JSON when omitted"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/timetable [get]
func (h *TimetableHandler) ClassTimetable(c *gin.Context) {
	year, half, err := termFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.ClassTimetable(c.Request.Context(), c.Param("id"), year, half)
	h.respondTimetable(c, "class-"+c.Param("id"), year, half, entries, err)
}

// respondTimetable writes entries as JSON, or as an .ics attachment when format=ics.
func (h *TimetableHandler) respondTimetable(c *gin.Context, name string, year, half int, entries []models.ScheduleEntry, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	switch format := strings.ToLower(strings.TrimSpace(c.Query("format"))); format {
	case "", "json":
		response.JSON(c, http.StatusOK, entries, nil)
	case "ics":
		if h.calendar == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, "calendar export is not configured"))
			return
		}
		content, err := h.calendar.Render(fmt.Sprintf("%s %d/%d", name, year, half), year, half, entries)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%d-%d.ics"`, name, year, half))
		c.Data(http.StatusOK, icsContentType, content)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported timetable format %q", format)))
	}
}
