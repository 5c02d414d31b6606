package models

import (
	"errors"
	"fmt"
)

// Validation error codes.
const (
	CodeRequired     = "REQUIRED"
	CodeInvalidRange = "INVALID_RANGE"
	CodeInvalidTime  = "INVALID_TIME"
	CodeInvalidDay   = "INVALID_DAY"
	CodeInvalidTerm  = "INVALID_TERM"
	CodeTooLong      = "TOO_LONG"
)

// ValidationError reports malformed input rejected while constructing a value.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StateError reports a lifecycle transition that is not allowed from the current state.
type StateError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *StateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

var (
	ErrAlreadyCancelled = &StateError{Code: "ALREADY_CANCELLED", Message: "schedule entry is already cancelled"}
	ErrAlreadyActive    = &StateError{Code: "ALREADY_ACTIVE", Message: "schedule entry is already active"}

	// ErrPersistenceConflict is returned by storage when its overlap constraint rejects a write.
	ErrPersistenceConflict = errors.New("schedule entry violates a persistence overlap constraint")
)

// ViolationKind classifies a rule broken by a proposed schedule entry.
type ViolationKind string

const (
	ViolationConflict           ViolationKind = "CONFLICT"
	ViolationTeacherLoadCeiling ViolationKind = "TEACHER_LOAD_CEILING"
	ViolationSubjectLoadCeiling ViolationKind = "SUBJECT_LOAD_CEILING"
)

// ConflictDimension names the shared resource behind a conflict.
type ConflictDimension string

const (
	DimensionTeacher ConflictDimension = "TEACHER"
	DimensionRoom    ConflictDimension = "ROOM"
	DimensionClass   ConflictDimension = "CLASS"
)

// ScheduleViolation is one reason a create or modify request cannot proceed.
type ScheduleViolation struct {
	Kind               ViolationKind     `json:"kind"`
	Dimension          ConflictDimension `json:"dimension,omitempty"`
	Message            string            `json:"message"`
	ConflictingEntryID string            `json:"conflicting_entry_id,omitempty"`
	CurrentMinutes     int               `json:"current_minutes,omitempty"`
	AddedMinutes       int               `json:"added_minutes,omitempty"`
	CeilingMinutes     int               `json:"ceiling_minutes,omitempty"`
}

// NewConflictViolation describes a double booking against an existing entry.
func NewConflictViolation(dimension ConflictDimension, existing ScheduleEntry) ScheduleViolation {
	var what string
	switch dimension {
	case DimensionTeacher:
		what = fmt.Sprintf("teacher %s is already scheduled", existing.TeacherID())
	case DimensionRoom:
		what = fmt.Sprintf("room %s is already booked", existing.Room())
	default:
		what = fmt.Sprintf("class %s is already scheduled", existing.ClassID())
	}
	return ScheduleViolation{
		Kind:               ViolationConflict,
		Dimension:          dimension,
		Message:            fmt.Sprintf("%s at %s", what, existing.TimeSlot()),
		ConflictingEntryID: existing.ID(),
	}
}

// NewLoadViolation describes an exceeded load ceiling.
func NewLoadViolation(kind ViolationKind, current, added, ceiling int) ScheduleViolation {
	subject := "teacher weekly load"
	if kind == ViolationSubjectLoadCeiling {
		subject = "subject term hours"
	}
	return ScheduleViolation{
		Kind:           kind,
		Message:        fmt.Sprintf("%s would reach %d of %d minutes (current %d, adding %d)", subject, current+added, ceiling, current, added),
		CurrentMinutes: current,
		AddedMinutes:   added,
		CeilingMinutes: ceiling,
	}
}

// Reasons flattens violations into user-facing messages.
func Reasons(violations []ScheduleViolation) []string {
	reasons := make([]string, 0, len(violations))
	for _, v := range violations {
		reasons = append(reasons, v.Message)
	}
	return reasons
}

// ConflictPair is two active entries of the same term that cannot coexist.
type ConflictPair struct {
	First     ScheduleEntry     `json:"first"`
	Second    ScheduleEntry     `json:"second"`
	Dimension ConflictDimension `json:"dimension"`
}
