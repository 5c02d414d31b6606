package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func validInput() NewScheduleEntryInput {
	return NewScheduleEntryInput{
		ClassID:   "class-10a",
		SubjectID: "math",
		TeacherID: "teacher-t",
		TimeSlot:  mustSlot(Monday, Clock(8, 0), Clock(8, 50)),
		Year:      2024,
		Half:      1,
		Room:      " 101 ",
	}
}

func restore(t *testing.T, id, teacher, room string, slot TimeSlot, active bool) ScheduleEntry {
	t.Helper()
	rec := ScheduleEntryRecord{
		ID: id, ClassID: "class-" + id, SubjectID: "math", TeacherID: teacher,
		DayOfWeek: int(slot.Day()), StartMinute: int(slot.Start()), EndMinute: int(slot.End()),
		Year: 2024, Half: 1, Active: active,
	}
	if room != "" {
		rec.Room = &room
	}
	entry, err := RestoreScheduleEntry(rec)
	require.NoError(t, err)
	return entry
}

func TestNewScheduleEntry(t *testing.T) {
	entry, event, err := NewScheduleEntry(validInput(), refNow)
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID())
	assert.True(t, entry.Active())
	assert.Equal(t, "101", entry.Room())
	assert.Equal(t, Term{Year: 2024, Half: 1}, entry.Term())
	assert.Equal(t, 50, entry.DurationMinutes())
	assert.Equal(t, ScheduleEventCreated, event.Type)
	assert.Equal(t, entry.ID(), event.EntryID)
}

func TestNewScheduleEntryValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*NewScheduleEntryInput)
		field  string
	}{
		"missing class":   {func(in *NewScheduleEntryInput) { in.ClassID = " " }, "class_id"},
		"missing subject": {func(in *NewScheduleEntryInput) { in.SubjectID = "" }, "subject_id"},
		"missing teacher": {func(in *NewScheduleEntryInput) { in.TeacherID = "" }, "teacher_id"},
		"missing slot":    {func(in *NewScheduleEntryInput) { in.TimeSlot = TimeSlot{} }, "time_slot"},
		"year too old":    {func(in *NewScheduleEntryInput) { in.Year = 2022 }, "year"},
		"year too far":    {func(in *NewScheduleEntryInput) { in.Year = 2026 }, "year"},
		"bad half":        {func(in *NewScheduleEntryInput) { in.Half = 3 }, "half"},
		"long room":       {func(in *NewScheduleEntryInput) { in.Room = strings.Repeat("r", 51) }, "room"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, _, err := NewScheduleEntry(in, refNow)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestNewScheduleEntryAcceptsYearWindowEdges(t *testing.T) {
	for _, year := range []int{2023, 2024, 2025} {
		in := validInput()
		in.Year = year
		_, _, err := NewScheduleEntry(in, refNow)
		assert.NoError(t, err, year)
	}
	in := validInput()
	in.Room = strings.Repeat("r", 50)
	_, _, err := NewScheduleEntry(in, refNow)
	assert.NoError(t, err)
}

func TestChangeTeacher(t *testing.T) {
	entry, _, err := NewScheduleEntry(validInput(), refNow)
	require.NoError(t, err)

	same, event, err := entry.ChangeTeacher("teacher-t")
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.Equal(t, entry, same)

	changed, event, err := entry.ChangeTeacher("teacher-u")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, ScheduleEventTeacherChanged, event.Type)
	assert.Equal(t, "teacher-t", event.OldValue)
	assert.Equal(t, "teacher-u", event.NewValue)
	assert.Equal(t, "teacher-u", changed.TeacherID())
	assert.Equal(t, "teacher-t", entry.TeacherID(), "receiver must stay untouched")

	_, _, err = entry.ChangeTeacher("")
	assert.Error(t, err)
}

func TestChangeRoomAndTimeSlot(t *testing.T) {
	entry, _, err := NewScheduleEntry(validInput(), refNow)
	require.NoError(t, err)

	_, event, err := entry.ChangeRoom("101")
	require.NoError(t, err)
	assert.Nil(t, event)

	cleared, event, err := entry.ChangeRoom("")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "", cleared.Room())
	assert.Nil(t, cleared.Record().Room)

	_, _, err = entry.ChangeRoom(strings.Repeat("x", 60))
	assert.Error(t, err)

	_, event, err = entry.ChangeTimeSlot(entry.TimeSlot())
	require.NoError(t, err)
	assert.Nil(t, event)

	moved, event, err := entry.ChangeTimeSlot(mustSlot(Tuesday, Clock(9, 0), Clock(10, 0)))
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, ScheduleEventTimeSlotChanged, event.Type)
	assert.Equal(t, 60, moved.DurationMinutes())
}

func TestCancelAndReactivateAreGuarded(t *testing.T) {
	entry, _, err := NewScheduleEntry(validInput(), refNow)
	require.NoError(t, err)

	cancelled, event, err := entry.Cancel()
	require.NoError(t, err)
	assert.False(t, cancelled.Active())
	assert.Equal(t, ScheduleEventCancelled, event.Type)

	again, _, err := cancelled.Cancel()
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.False(t, again.Active())

	active, event, err := cancelled.Reactivate()
	require.NoError(t, err)
	assert.True(t, active.Active())
	assert.Equal(t, ScheduleEventReactivated, event.Type)

	_, _, err = active.Reactivate()
	assert.ErrorIs(t, err, ErrAlreadyActive)
	var stateErr *StateError
	assert.True(t, errors.As(err, &stateErr))
}

func TestConflictsWith(t *testing.T) {
	mon0800 := mustSlot(Monday, Clock(8, 0), Clock(8, 50))
	mon0830 := mustSlot(Monday, Clock(8, 30), Clock(9, 20))
	mon0850 := mustSlot(Monday, Clock(8, 50), Clock(9, 40))

	base := restore(t, "a", "T", "101", mon0800, true)

	sameTeacher := restore(t, "b", "T", "", mon0830, true)
	sameRoom := restore(t, "c", "U", "ROOM 101", mon0830, true)
	sameRoomCase := restore(t, "d", "U", "101", mon0830, true)
	backToBack := restore(t, "e", "T", "101", mon0850, true)
	cancelled := restore(t, "f", "T", "101", mon0830, false)
	noRooms := restore(t, "g", "U", "", mon0830, true)

	assert.True(t, base.ConflictsWith(sameTeacher))
	assert.False(t, base.ConflictsWith(sameRoom))
	assert.True(t, base.ConflictsWith(sameRoomCase))
	assert.False(t, base.ConflictsWith(backToBack))
	assert.False(t, base.ConflictsWith(cancelled))
	assert.False(t, base.ConflictsWith(noRooms))
	assert.False(t, base.ConflictsWith(base))

	otherTermRec := sameTeacher.Record()
	otherTermRec.ID = "h"
	otherTermRec.Half = 2
	otherTerm, err := RestoreScheduleEntry(otherTermRec)
	require.NoError(t, err)
	assert.False(t, base.ConflictsWith(otherTerm))

	all := []ScheduleEntry{base, sameTeacher, sameRoom, sameRoomCase, backToBack, cancelled, noRooms, otherTerm}
	for _, a := range all {
		for _, b := range all {
			assert.Equal(t, a.ConflictsWith(b), b.ConflictsWith(a), "symmetry %s/%s", a.ID(), b.ID())
		}
	}
}

func TestClassOverlaps(t *testing.T) {
	slot := mustSlot(Friday, Clock(10, 0), Clock(11, 0))
	a := restore(t, "x", "T", "", slot, true)
	rec := a.Record()
	rec.ID = "y"
	rec.TeacherID = "U"
	b, err := RestoreScheduleEntry(rec)
	require.NoError(t, err)

	assert.True(t, a.ClassOverlaps(b))
	assert.False(t, a.ConflictsWith(b))
}

func TestRestoreScheduleEntryRejectsCorruptRows(t *testing.T) {
	_, err := RestoreScheduleEntry(ScheduleEntryRecord{ID: "1", ClassID: "c", SubjectID: "s", TeacherID: "t", DayOfWeek: 1, StartMinute: 600, EndMinute: 540, Half: 1})
	assert.Error(t, err)
	_, err = RestoreScheduleEntry(ScheduleEntryRecord{ID: "1", ClassID: "c", SubjectID: "s", TeacherID: "t", DayOfWeek: 1, StartMinute: 480, EndMinute: 540, Half: 0})
	assert.Error(t, err)
	_, err = RestoreScheduleEntry(ScheduleEntryRecord{ID: "1"})
	assert.Error(t, err)
}

func TestRecordRoundTrip(t *testing.T) {
	entry, _, err := NewScheduleEntry(validInput(), refNow)
	require.NoError(t, err)

	restored, err := RestoreScheduleEntry(entry.Record())
	require.NoError(t, err)
	assert.Equal(t, entry, restored)
}

func TestScheduleEntryJSON(t *testing.T) {
	entry := restore(t, "a", "T", "101", mustSlot(Monday, Clock(8, 0), Clock(8, 50)), true)
	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "a", payload["id"])
	assert.Equal(t, "101", payload["room"])
	assert.Equal(t, float64(50), payload["duration_minutes"])
	assert.Equal(t, "MONDAY", payload["time_slot"].(map[string]interface{})["day_of_week"])
}
