package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TimeSlot is an immutable weekly window: a teaching day plus a half-open [start, end) range.
type TimeSlot struct {
	day   Weekday
	start ClockTime
	end   ClockTime
}

// NewTimeSlot validates and builds a TimeSlot.
func NewTimeSlot(day Weekday, start, end ClockTime) (TimeSlot, error) {
	if !day.Valid() {
		return TimeSlot{}, NewValidationError("day_of_week", CodeInvalidDay, fmt.Sprintf("day %d is not a teaching day", int(day)))
	}
	if !start.Valid() || !end.Valid() {
		return TimeSlot{}, NewValidationError("time_slot", CodeInvalidTime, "time slot bounds must lie within the day")
	}
	if start >= end {
		return TimeSlot{}, NewValidationError("time_slot", CodeInvalidRange, fmt.Sprintf("start %s must be before end %s", start, end))
	}
	return TimeSlot{day: day, start: start, end: end}, nil
}

// ParseTimeSlot builds a slot from a day and an "HH:MM-HH:MM" range.
func ParseTimeSlot(day Weekday, window string) (TimeSlot, error) {
	parts := strings.SplitN(strings.TrimSpace(window), "-", 2)
	if len(parts) != 2 {
		return TimeSlot{}, NewValidationError("time_slot", CodeInvalidTime, fmt.Sprintf("time range %q must be HH:MM-HH:MM", window))
	}
	start, err := ParseClockTime(parts[0])
	if err != nil {
		return TimeSlot{}, err
	}
	end, err := ParseClockTime(parts[1])
	if err != nil {
		return TimeSlot{}, err
	}
	return NewTimeSlot(day, start, end)
}

func (s TimeSlot) Day() Weekday     { return s.day }
func (s TimeSlot) Start() ClockTime { return s.start }
func (s TimeSlot) End() ClockTime   { return s.end }

// IsZero reports whether s was never constructed.
func (s TimeSlot) IsZero() bool {
	return s == TimeSlot{}
}

// DurationMinutes returns end - start.
func (s TimeSlot) DurationMinutes() int {
	return int(s.end - s.start)
}

// Overlaps reports whether both slots fall on the same day and their half-open ranges intersect.
// Back-to-back slots such as 08:00-08:50 and 08:50-09:40 do not overlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.day == other.day && s.start < other.end && other.start < s.end
}

// Equal reports structural equality.
func (s TimeSlot) Equal(other TimeSlot) bool {
	return s == other
}

// Less orders slots by day, then start, then end.
func (s TimeSlot) Less(other TimeSlot) bool {
	if s.day != other.day {
		return s.day < other.day
	}
	if s.start != other.start {
		return s.start < other.start
	}
	return s.end < other.end
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", s.day, s.start, s.end)
}

// SortTimeSlots sorts slots in display order.
func SortTimeSlots(slots []TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })
}

type timeSlotJSON struct {
	DayOfWeek Weekday   `json:"day_of_week"`
	StartTime ClockTime `json:"start_time"`
	EndTime   ClockTime `json:"end_time"`
}

// MarshalJSON exposes the slot fields.
func (s TimeSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeSlotJSON{DayOfWeek: s.day, StartTime: s.start, EndTime: s.end})
}

// UnmarshalJSON validates the decoded slot through NewTimeSlot.
func (s *TimeSlot) UnmarshalJSON(data []byte) error {
	var raw timeSlotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	slot, err := NewTimeSlot(raw.DayOfWeek, raw.StartTime, raw.EndTime)
	if err != nil {
		return err
	}
	*s = slot
	return nil
}
