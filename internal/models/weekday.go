package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Weekday identifies a teaching day. School weeks run Monday to Saturday.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = map[Weekday]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
}

var weekdayIndex = map[string]Weekday{
	"MONDAY":    Monday,
	"TUESDAY":   Tuesday,
	"WEDNESDAY": Wednesday,
	"THURSDAY":  Thursday,
	"FRIDAY":    Friday,
	"SATURDAY":  Saturday,
}

// Weekdays lists every teaching day in order.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}
}

// Valid reports whether d is between Monday and Saturday.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Saturday
}

func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Weekday(%d)", int(d))
}

// ParseWeekday accepts a day name (any case) or its index 1-6.
func ParseWeekday(raw string) (Weekday, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if day, ok := weekdayIndex[raw]; ok {
		return day, nil
	}
	if n, err := strconv.Atoi(raw); err == nil && Weekday(n).Valid() {
		return Weekday(n), nil
	}
	return 0, NewValidationError("day_of_week", CodeInvalidDay, fmt.Sprintf("unknown day of week %q", raw))
}

// MarshalJSON encodes the day by name.
func (d Weekday) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts either the day name or its index.
func (d *Weekday) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var n int
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return err
		}
		raw = strconv.Itoa(n)
	}
	day, err := ParseWeekday(raw)
	if err != nil {
		return err
	}
	*d = day
	return nil
}

// ClockTime is a time of day with minute precision, stored as minutes since midnight.
type ClockTime int

// MinutesPerDay bounds ClockTime; 24:00 is allowed as an end time.
const MinutesPerDay = 24 * 60

// Clock builds a ClockTime from hours and minutes.
func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// Valid reports whether t lies within a day.
func (t ClockTime) Valid() bool {
	return t >= 0 && t <= MinutesPerDay
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseClockTime parses a zero-padded HH:MM value. 24:00 is accepted as the end of the day.
func ParseClockTime(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 5 || raw[2] != ':' || !allDigits(raw[:2]) || !allDigits(raw[3:]) {
		return 0, NewValidationError("time", CodeInvalidTime, fmt.Sprintf("time %q must be HH:MM", raw))
	}
	hour, _ := strconv.Atoi(raw[:2])
	minute, _ := strconv.Atoi(raw[3:])
	if minute > 59 {
		return 0, NewValidationError("time", CodeInvalidTime, fmt.Sprintf("time %q must be HH:MM", raw))
	}
	t := Clock(hour, minute)
	if !t.Valid() {
		return 0, NewValidationError("time", CodeInvalidTime, fmt.Sprintf("time %q is outside the day", raw))
	}
	return t, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the time as "HH:MM".
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes an "HH:MM" value.
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
