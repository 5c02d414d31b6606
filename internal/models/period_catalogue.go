package models

import (
	"fmt"
	"sort"
	"strings"
)

// Period is one bell-schedule window, applied to every teaching day.
type Period struct {
	Start ClockTime `json:"start_time"`
	End   ClockTime `json:"end_time"`
}

// PeriodCatalogue is the institution's standard bell schedule.
type PeriodCatalogue struct {
	Periods []Period `json:"periods"`
}

// ParsePeriodCatalogue parses a comma separated list of HH:MM-HH:MM windows.
// Periods are sorted by start time and may not overlap each other.
func ParsePeriodCatalogue(raw string) (PeriodCatalogue, error) {
	var periods []Period
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		slot, err := ParseTimeSlot(Monday, part)
		if err != nil {
			return PeriodCatalogue{}, fmt.Errorf("parse period %q: %w", part, err)
		}
		periods = append(periods, Period{Start: slot.Start(), End: slot.End()})
	}
	if len(periods) == 0 {
		return PeriodCatalogue{}, NewValidationError("periods", CodeRequired, "period catalogue is empty")
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Start < periods[j].Start })
	for i := 1; i < len(periods); i++ {
		if periods[i].Start < periods[i-1].End {
			return PeriodCatalogue{}, NewValidationError("periods", CodeInvalidRange,
				fmt.Sprintf("period %s-%s overlaps %s-%s", periods[i].Start, periods[i].End, periods[i-1].Start, periods[i-1].End))
		}
	}
	return PeriodCatalogue{Periods: periods}, nil
}

// SlotsFor expands the catalogue into the time slots of a given day, in display order.
// Periods that do not form a valid slot are skipped.
func (c PeriodCatalogue) SlotsFor(day Weekday) []TimeSlot {
	slots := make([]TimeSlot, 0, len(c.Periods))
	for _, p := range c.Periods {
		slot, err := NewTimeSlot(day, p.Start, p.End)
		if err != nil {
			continue
		}
		slots = append(slots, slot)
	}
	SortTimeSlots(slots)
	return slots
}
