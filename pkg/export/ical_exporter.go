package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

const icalLocalLayout = "20060102T150405"

// CalendarEvent is a lesson repeating weekly from Start until Until.
// Start, End and Until are wall-clock times; they are written without a zone.
type CalendarEvent struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	Until       time.Time
}

// ICalExporter renders recurring lessons as an iCalendar feed.
type ICalExporter struct {
	productID string
	now       func() time.Time
}

// NewICalExporter builds an iCalendar exporter.
func NewICalExporter(productID string) *ICalExporter {
	return &ICalExporter{productID: productID, now: time.Now}
}

// Render produces a PUBLISH calendar with one weekly VEVENT per lesson.
func (e *ICalExporter) Render(name string, events []CalendarEvent) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := e.now().UTC()
	for i, ev := range events {
		if ev.UID == "" {
			return nil, fmt.Errorf("event %d has no uid", i)
		}
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("event %s ends before it starts", ev.UID)
		}
		vevent := cal.AddEvent(ev.UID)
		vevent.SetDtStampTime(stamp)
		vevent.SetProperty(ics.ComponentPropertyDtStart, ev.Start.Format(icalLocalLayout))
		vevent.SetProperty(ics.ComponentPropertyDtEnd, ev.End.Format(icalLocalLayout))
		vevent.SetSummary(ev.Summary)
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if !ev.Until.IsZero() {
			vevent.AddRrule("FREQ=WEEKLY;UNTIL=" + ev.Until.Format(icalLocalLayout))
		}
	}
	return []byte(cal.Serialize()), nil
}
