package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleEventType enumerates lifecycle changes recorded for a schedule entry.
type ScheduleEventType string

const (
	ScheduleEventCreated         ScheduleEventType = "CREATED"
	ScheduleEventTeacherChanged  ScheduleEventType = "TEACHER_CHANGED"
	ScheduleEventRoomChanged     ScheduleEventType = "ROOM_CHANGED"
	ScheduleEventTimeSlotChanged ScheduleEventType = "TIMESLOT_CHANGED"
	ScheduleEventCancelled       ScheduleEventType = "CANCELLED"
	ScheduleEventReactivated     ScheduleEventType = "REACTIVATED"
)

// ScheduleEvent is an audit record emitted by a ScheduleEntry transition.
type ScheduleEvent struct {
	ID         string            `db:"id" json:"id"`
	EntryID    string            `db:"entry_id" json:"entry_id"`
	Type       ScheduleEventType `db:"type" json:"type"`
	OldValue   string            `db:"old_value" json:"old_value,omitempty"`
	NewValue   string            `db:"new_value" json:"new_value,omitempty"`
	OccurredAt time.Time         `db:"occurred_at" json:"occurred_at"`
}

func newScheduleEvent(entryID string, typ ScheduleEventType, oldValue, newValue string, at time.Time) ScheduleEvent {
	return ScheduleEvent{
		ID:         uuid.NewString(),
		EntryID:    entryID,
		Type:       typ,
		OldValue:   oldValue,
		NewValue:   newValue,
		OccurredAt: at,
	}
}
