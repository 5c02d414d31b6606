package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

const calendarProductID = "-//SMA Timetable API//Timetable Feed//EN"

// CalendarService turns timetable slices into weekly iCalendar feeds.
type CalendarService struct {
	ical *export.ICalExporter
}

// NewCalendarService builds the calendar service.
func NewCalendarService() *CalendarService {
	return &CalendarService{ical: export.NewICalExporter(calendarProductID)}
}

// Render emits one weekly event per active entry, recurring from its first
// occurrence in the term until the term ends.
func (s *CalendarService) Render(name string, year, half int, entries []models.ScheduleEntry) ([]byte, error) {
	term := models.Term{Year: year, Half: half}
	_, termEnd := term.Bounds()
	until := termEnd.Add(-time.Second)

	events := make([]export.CalendarEvent, 0, len(entries))
	for _, entry := range entries {
		if !entry.Active() || entry.Term() != term {
			continue
		}
		slot := entry.TimeSlot()
		day := term.FirstOn(slot.Day())
		events = append(events, export.CalendarEvent{
			UID:         entry.ID() + "@sma-timetable",
			Summary:     fmt.Sprintf("%s %s", entry.SubjectID(), entry.ClassID()),
			Location:    entry.Room(),
			Description: "Teacher: " + entry.TeacherID(),
			Start:       day.Add(time.Duration(slot.Start()) * time.Minute),
			End:         day.Add(time.Duration(slot.End()) * time.Minute),
			Until:       until,
		})
	}

	out, err := s.ical.Render(name, events)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable calendar")
	}
	return out, nil
}
