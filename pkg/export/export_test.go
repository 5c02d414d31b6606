package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	return Table{
		Title:   "Conflicts 2024/1",
		Headers: []string{"dimension", "first", "second"},
		Rows: [][]string{
			{"TEACHER", "MONDAY 08:00-08:50", "MONDAY 08:30-09:20"},
			{"ROOM", "TUESDAY 10:00-10:45", "TUESDAY 10:15-11:00"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, "dimension,first,second\nTEACHER,MONDAY 08:00-08:50,MONDAY 08:30-09:20\nROOM,TUESDAY 10:00-10:45,TUESDAY 10:15-11:00\n", string(out))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	table := sampleTable()
	table.Rows = append(table.Rows, []string{"CLASS"})
	_, err := NewCSVExporter().Render(table)
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	empty := sampleTable()
	empty.Rows = nil
	out, err = NewPDFExporter().Render(empty)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Contains(t, f.ContentType(), "text/csv")

	f, err = ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Contains(t, f.ContentType(), "spreadsheetml")

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleTable())
	require.NoError(t, err)
	// xlsx is a zip container
	assert.True(t, bytes.HasPrefix(out, []byte("PK")))

	book, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer book.Close()

	title, err := book.GetCellValue(xlsxSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Conflicts 2024/1", title)

	rows, err := book.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"dimension", "first", "second"}, rows[1])
	assert.Equal(t, "ROOM", rows[3][0])
}

func TestXLSXExporterRejectsRaggedRows(t *testing.T) {
	table := sampleTable()
	table.Rows = append(table.Rows, []string{"CLASS", "x"})
	_, err := NewXLSXExporter().Render(table)
	assert.Error(t, err)
}

func TestICalExporterRender(t *testing.T) {
	exporter := NewICalExporter("-//sma-timetable//EN")
	exporter.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	out, err := exporter.Render("Teacher T 2024/1", []CalendarEvent{{
		UID:      "e1@timetable",
		Summary:  "math 10A",
		Location: "101",
		Start:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 1, 8, 50, 0, 0, time.UTC),
		Until:    time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC),
	}})
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, "DTSTART:20240101T080000")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY;UNTIL=20240630T235959")

	cal, err := ics.ParseCalendar(strings.NewReader(body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "e1@timetable", events[0].GetProperty(ics.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "math 10A", events[0].GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "101", events[0].GetProperty(ics.ComponentPropertyLocation).Value)
}

func TestICalExporterRejectsInvertedEvent(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	_, err := NewICalExporter("x").Render("", []CalendarEvent{{UID: "e1", Start: start, End: start}})
	assert.Error(t, err)

	_, err = NewICalExporter("x").Render("", []CalendarEvent{{Start: start, End: start.Add(time.Hour)}})
	assert.Error(t, err)
}
