package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	day, err := ParseWeekday(" monday ")
	require.NoError(t, err)
	assert.Equal(t, Monday, day)

	day, err = ParseWeekday("6")
	require.NoError(t, err)
	assert.Equal(t, Saturday, day)

	for _, raw := range []string{"SUNDAY", "7", "0", ""} {
		_, err := ParseWeekday(raw)
		assert.Error(t, err, raw)
	}
}

func TestWeekdayJSONAcceptsNameOrIndex(t *testing.T) {
	var d Weekday
	require.NoError(t, json.Unmarshal([]byte(`"tuesday"`), &d))
	assert.Equal(t, Tuesday, d)
	require.NoError(t, json.Unmarshal([]byte(`5`), &d))
	assert.Equal(t, Friday, d)
	assert.Error(t, json.Unmarshal([]byte(`9`), &d))
}

func TestParseClockTime(t *testing.T) {
	tm, err := ParseClockTime("08:50")
	require.NoError(t, err)
	assert.Equal(t, Clock(8, 50), tm)
	assert.Equal(t, "08:50", tm.String())

	end, err := ParseClockTime("24:00")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(MinutesPerDay), end)

	for _, raw := range []string{"8", "08:60", "25:00", "24:01", "aa:bb", "-1:00", "+08:00", "8:5", "08:5", "8:05", "08:+5", "08-00", "008:00"} {
		_, err := ParseClockTime(raw)
		assert.Error(t, err, raw)
	}
}
