package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxRoomLength bounds the room label.
const MaxRoomLength = 50

// NewScheduleEntryInput carries the fields of a schedule entry to be created.
type NewScheduleEntryInput struct {
	ClassID   string
	SubjectID string
	TeacherID string
	TimeSlot  TimeSlot
	Year      int
	Half      int
	Room      string
}

// ScheduleEntry assigns a class, subject and teacher to a weekly time slot (and optionally a room)
// within a term. Values are detached copies: transitions return a new entry and never touch the receiver.
type ScheduleEntry struct {
	id        string
	classID   string
	subjectID string
	teacherID string
	slot      TimeSlot
	term      Term
	room      string
	active    bool
	createdAt time.Time
	updatedAt time.Time
}

// ScheduleEntryRecord is the persisted shape of a ScheduleEntry.
type ScheduleEntryRecord struct {
	ID          string    `db:"id"`
	ClassID     string    `db:"class_id"`
	SubjectID   string    `db:"subject_id"`
	TeacherID   string    `db:"teacher_id"`
	DayOfWeek   int       `db:"day_of_week"`
	StartMinute int       `db:"start_minute"`
	EndMinute   int       `db:"end_minute"`
	Year        int       `db:"year"`
	Half        int       `db:"half"`
	Room        *string   `db:"room"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ScheduleEntryFilter describes list query parameters.
type ScheduleEntryFilter struct {
	Year          int
	Half          int
	ClassID       string
	TeacherID     string
	SubjectID     string
	Room          string
	DayOfWeek     Weekday
	IncludeCancel bool
	Page          int
	PageSize      int
}

// NewScheduleEntry validates input and returns an active entry with a fresh id plus its CREATED event.
func NewScheduleEntry(in NewScheduleEntryInput, now time.Time) (ScheduleEntry, ScheduleEvent, error) {
	classID := strings.TrimSpace(in.ClassID)
	subjectID := strings.TrimSpace(in.SubjectID)
	teacherID := strings.TrimSpace(in.TeacherID)
	switch {
	case classID == "":
		return ScheduleEntry{}, ScheduleEvent{}, NewValidationError("class_id", CodeRequired, "class id is required")
	case subjectID == "":
		return ScheduleEntry{}, ScheduleEvent{}, NewValidationError("subject_id", CodeRequired, "subject id is required")
	case teacherID == "":
		return ScheduleEntry{}, ScheduleEvent{}, NewValidationError("teacher_id", CodeRequired, "teacher id is required")
	case in.TimeSlot.IsZero():
		return ScheduleEntry{}, ScheduleEvent{}, NewValidationError("time_slot", CodeRequired, "time slot is required")
	}
	term, err := NewTerm(in.Year, in.Half, now)
	if err != nil {
		return ScheduleEntry{}, ScheduleEvent{}, err
	}
	room, err := normalizeRoom(in.Room)
	if err != nil {
		return ScheduleEntry{}, ScheduleEvent{}, err
	}

	at := now.UTC()
	entry := ScheduleEntry{
		id:        uuid.NewString(),
		classID:   classID,
		subjectID: subjectID,
		teacherID: teacherID,
		slot:      in.TimeSlot,
		term:      term,
		room:      room,
		active:    true,
		createdAt: at,
		updatedAt: at,
	}
	return entry, newScheduleEvent(entry.id, ScheduleEventCreated, "", entry.slot.String(), at), nil
}

// RestoreScheduleEntry rebuilds an entry from storage. The year window is not re-applied so
// historical terms stay readable; structural invariants still are.
func RestoreScheduleEntry(rec ScheduleEntryRecord) (ScheduleEntry, error) {
	if rec.ID == "" || rec.ClassID == "" || rec.SubjectID == "" || rec.TeacherID == "" {
		return ScheduleEntry{}, fmt.Errorf("restore schedule entry %q: missing identifiers", rec.ID)
	}
	slot, err := NewTimeSlot(Weekday(rec.DayOfWeek), ClockTime(rec.StartMinute), ClockTime(rec.EndMinute))
	if err != nil {
		return ScheduleEntry{}, fmt.Errorf("restore schedule entry %s: %w", rec.ID, err)
	}
	if rec.Half != 1 && rec.Half != 2 {
		return ScheduleEntry{}, fmt.Errorf("restore schedule entry %s: invalid half %d", rec.ID, rec.Half)
	}
	var room string
	if rec.Room != nil {
		room = strings.TrimSpace(*rec.Room)
	}
	return ScheduleEntry{
		id:        rec.ID,
		classID:   rec.ClassID,
		subjectID: rec.SubjectID,
		teacherID: rec.TeacherID,
		slot:      slot,
		term:      Term{Year: rec.Year, Half: rec.Half},
		room:      room,
		active:    rec.Active,
		createdAt: rec.CreatedAt,
		updatedAt: rec.UpdatedAt,
	}, nil
}

func (e ScheduleEntry) ID() string           { return e.id }
func (e ScheduleEntry) ClassID() string      { return e.classID }
func (e ScheduleEntry) SubjectID() string    { return e.subjectID }
func (e ScheduleEntry) TeacherID() string    { return e.teacherID }
func (e ScheduleEntry) TimeSlot() TimeSlot   { return e.slot }
func (e ScheduleEntry) Term() Term           { return e.term }
func (e ScheduleEntry) Room() string         { return e.room }
func (e ScheduleEntry) Active() bool         { return e.active }
func (e ScheduleEntry) CreatedAt() time.Time { return e.createdAt }
func (e ScheduleEntry) UpdatedAt() time.Time { return e.updatedAt }

// DurationMinutes is the weekly load contributed by the entry.
func (e ScheduleEntry) DurationMinutes() int {
	return e.slot.DurationMinutes()
}

// ChangeTeacher reassigns the entry. A nil event means nothing changed.
func (e ScheduleEntry) ChangeTeacher(teacherID string) (ScheduleEntry, *ScheduleEvent, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return e, nil, NewValidationError("teacher_id", CodeRequired, "teacher id is required")
	}
	if teacherID == e.teacherID {
		return e, nil, nil
	}
	next := e
	next.teacherID = teacherID
	next.updatedAt = time.Now().UTC()
	event := newScheduleEvent(e.id, ScheduleEventTeacherChanged, e.teacherID, teacherID, next.updatedAt)
	return next, &event, nil
}

// ChangeRoom moves the entry to another room; an empty room clears it.
func (e ScheduleEntry) ChangeRoom(room string) (ScheduleEntry, *ScheduleEvent, error) {
	room, err := normalizeRoom(room)
	if err != nil {
		return e, nil, err
	}
	if room == e.room {
		return e, nil, nil
	}
	next := e
	next.room = room
	next.updatedAt = time.Now().UTC()
	event := newScheduleEvent(e.id, ScheduleEventRoomChanged, e.room, room, next.updatedAt)
	return next, &event, nil
}

// ChangeTimeSlot moves the entry to another slot.
func (e ScheduleEntry) ChangeTimeSlot(slot TimeSlot) (ScheduleEntry, *ScheduleEvent, error) {
	if slot.IsZero() {
		return e, nil, NewValidationError("time_slot", CodeRequired, "time slot is required")
	}
	if slot == e.slot {
		return e, nil, nil
	}
	next := e
	next.slot = slot
	next.updatedAt = time.Now().UTC()
	event := newScheduleEvent(e.id, ScheduleEventTimeSlotChanged, e.slot.String(), slot.String(), next.updatedAt)
	return next, &event, nil
}

// Cancel soft-deletes the entry.
func (e ScheduleEntry) Cancel() (ScheduleEntry, ScheduleEvent, error) {
	if !e.active {
		return e, ScheduleEvent{}, ErrAlreadyCancelled
	}
	next := e
	next.active = false
	next.updatedAt = time.Now().UTC()
	return next, newScheduleEvent(e.id, ScheduleEventCancelled, "", "", next.updatedAt), nil
}

// Reactivate restores a cancelled entry.
func (e ScheduleEntry) Reactivate() (ScheduleEntry, ScheduleEvent, error) {
	if e.active {
		return e, ScheduleEvent{}, ErrAlreadyActive
	}
	next := e
	next.active = true
	next.updatedAt = time.Now().UTC()
	return next, newScheduleEvent(e.id, ScheduleEventReactivated, "", "", next.updatedAt), nil
}

// ConflictsWith reports a teacher or room double booking between two active entries of the same term.
func (e ScheduleEntry) ConflictsWith(other ScheduleEntry) bool {
	if !e.comparable(other) {
		return false
	}
	return e.teacherID == other.teacherID || e.SharesRoomWith(other)
}

// ClassOverlaps reports whether both entries book the same class at overlapping times.
func (e ScheduleEntry) ClassOverlaps(other ScheduleEntry) bool {
	return e.comparable(other) && e.classID == other.classID
}

// SharesRoomWith compares rooms case-insensitively; an empty room never matches.
func (e ScheduleEntry) SharesRoomWith(other ScheduleEntry) bool {
	return e.room != "" && other.room != "" && strings.EqualFold(e.room, other.room)
}

func (e ScheduleEntry) comparable(other ScheduleEntry) bool {
	if !e.active || !other.active {
		return false
	}
	if e.id != "" && e.id == other.id {
		return false
	}
	return e.term == other.term && e.slot.Overlaps(other.slot)
}

// Record returns the persisted view of the entry.
func (e ScheduleEntry) Record() ScheduleEntryRecord {
	var room *string
	if e.room != "" {
		r := e.room
		room = &r
	}
	return ScheduleEntryRecord{
		ID:          e.id,
		ClassID:     e.classID,
		SubjectID:   e.subjectID,
		TeacherID:   e.teacherID,
		DayOfWeek:   int(e.slot.Day()),
		StartMinute: int(e.slot.Start()),
		EndMinute:   int(e.slot.End()),
		Year:        e.term.Year,
		Half:        e.term.Half,
		Room:        room,
		Active:      e.active,
		CreatedAt:   e.createdAt,
		UpdatedAt:   e.updatedAt,
	}
}

type scheduleEntryJSON struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	SubjectID string    `json:"subject_id"`
	TeacherID string    `json:"teacher_id"`
	TimeSlot  TimeSlot  `json:"time_slot"`
	Term      Term      `json:"term"`
	Room      string    `json:"room,omitempty"`
	Active    bool      `json:"active"`
	Duration  int       `json:"duration_minutes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarshalJSON renders the API view of the entry.
func (e ScheduleEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(scheduleEntryJSON{
		ID:        e.id,
		ClassID:   e.classID,
		SubjectID: e.subjectID,
		TeacherID: e.teacherID,
		TimeSlot:  e.slot,
		Term:      e.term,
		Room:      e.room,
		Active:    e.active,
		Duration:  e.DurationMinutes(),
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
	})
}

func normalizeRoom(room string) (string, error) {
	room = strings.TrimSpace(room)
	if utf8.RuneCountInString(room) > MaxRoomLength {
		return "", NewValidationError("room", CodeTooLong, fmt.Sprintf("room must be at most %d characters", MaxRoomLength))
	}
	return room, nil
}
