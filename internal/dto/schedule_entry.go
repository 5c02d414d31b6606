package dto

import (
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimeSlotRequest is a weekly window in wire form, e.g. MONDAY 08:00-08:50.
type TimeSlotRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// TimeSlot parses the request into a validated slot.
func (r TimeSlotRequest) TimeSlot() (models.TimeSlot, error) {
	day, err := models.ParseWeekday(r.DayOfWeek)
	if err != nil {
		return models.TimeSlot{}, err
	}
	start, err := models.ParseClockTime(r.StartTime)
	if err != nil {
		return models.TimeSlot{}, err
	}
	end, err := models.ParseClockTime(r.EndTime)
	if err != nil {
		return models.TimeSlot{}, err
	}
	return models.NewTimeSlot(day, start, end)
}

// CreateScheduleEntryRequest proposes a new timetable assignment.
type CreateScheduleEntryRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
	TimeSlotRequest
	Year int    `json:"year" validate:"required"`
	Half int    `json:"half" validate:"required"`
	Room string `json:"room" validate:"omitempty,max=50"`
}

// RescheduleRequest moves an entry to another slot.
type RescheduleRequest struct {
	TimeSlotRequest
}

// ChangeTeacherRequest reassigns an entry.
type ChangeTeacherRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
}

// ChangeRoomRequest moves an entry to another room; an empty room clears it.
type ChangeRoomRequest struct {
	Room string `json:"room" validate:"omitempty,max=50"`
}

// ValidationResult is the outcome of a dry-run check.
type ValidationResult struct {
	OK         bool                       `json:"ok"`
	Reasons    []string                   `json:"reasons"`
	Violations []models.ScheduleViolation `json:"violations"`
}

// NewValidationResult flattens violations for API clients.
func NewValidationResult(ok bool, violations []models.ScheduleViolation) ValidationResult {
	if violations == nil {
		violations = []models.ScheduleViolation{}
	}
	return ValidationResult{OK: ok, Reasons: models.Reasons(violations), Violations: violations}
}
