package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriodCatalogueSortsPeriods(t *testing.T) {
	catalogue, err := ParsePeriodCatalogue("08:50-09:40, 08:00-08:50,")
	require.NoError(t, err)
	require.Len(t, catalogue.Periods, 2)
	assert.Equal(t, Clock(8, 0), catalogue.Periods[0].Start)

	slots := catalogue.SlotsFor(Saturday)
	require.Len(t, slots, 2)
	assert.Equal(t, mustSlot(Saturday, Clock(8, 0), Clock(8, 50)), slots[0])
	assert.Equal(t, mustSlot(Saturday, Clock(8, 50), Clock(9, 40)), slots[1])
}

func TestSlotsForOrdersAndSkipsInvalidPeriods(t *testing.T) {
	catalogue := PeriodCatalogue{Periods: []Period{
		{Start: Clock(10, 0), End: Clock(10, 45)},
		{Start: Clock(9, 0), End: Clock(8, 0)},
		{Start: Clock(7, 0), End: Clock(7, 45)},
	}}
	slots := catalogue.SlotsFor(Tuesday)
	require.Len(t, slots, 2)
	assert.Equal(t, Clock(7, 0), slots[0].Start())
	assert.Equal(t, Clock(10, 0), slots[1].Start())

	assert.Empty(t, catalogue.SlotsFor(Weekday(7)))
}

func TestParsePeriodCatalogueRejectsInvalid(t *testing.T) {
	for _, raw := range []string{"", " , ", "08:00-07:00", "08:00-09:00,08:30-09:30", "bell"} {
		_, err := ParsePeriodCatalogue(raw)
		assert.Error(t, err, raw)
	}
}

func TestSubjectTermCeilingMinutes(t *testing.T) {
	assert.Equal(t, 2400, Subject{YearlyHours: 80}.TermCeilingMinutes())
	assert.Equal(t, 0, Subject{}.TermCeilingMinutes())
}
