package roster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/roster-engine/roster"
)

func TestEaster(t *testing.T) {
	assert.Equal(t, "2024-03-31", roster.Easter(2024).String())
	assert.Equal(t, "2025-04-20", roster.Easter(2025).String())
	assert.Equal(t, "2000-04-23", roster.Easter(2000).String())
}

func TestVariableHolidays(t *testing.T) {
	hs := roster.VariableHolidays(2025)
	require.Len(t, hs, 3)
	assert.Equal(t, "2025-04-21", hs[0].Date.String())
	assert.Equal(t, "2025-05-29", hs[1].Date.String())
	assert.Equal(t, "2025-06-09", hs[2].Date.String())
}

func TestHolidaysForYear_KeepsStoredFlagOnVariableRows(t *testing.T) {
	stored := []roster.Holiday{
		{Date: d("2024-12-25"), Name: "Christmas", CountsAsSundayRest: true},
		{Date: d("2025-01-01"), Name: "New Year", CountsAsSundayRest: true},
		{Date: d("2024-05-09"), Name: roster.HolidayAscension, IsVariable: true, CountsAsSundayRest: false},
	}

	got := roster.HolidaysForYear(stored, 2025)

	var names []string
	for _, h := range got {
		names = append(names, h.Date.String()+" "+h.Name)
		if h.Name == roster.HolidayAscension {
			assert.False(t, h.CountsAsSundayRest)
		}
	}
	assert.Equal(t, []string{
		"2025-01-01 New Year",
		"2025-04-21 Easter Monday",
		"2025-05-29 Ascension Day",
		"2025-06-09 Whit Monday",
	}, names)
}

func TestDayType_HolidayIsSunday(t *testing.T) {
	cal := testCalendar()

	assert.Equal(t, roster.DayWeekday, cal.DayType(d("2024-12-24")))
	assert.Equal(t, roster.DaySunday, cal.DayType(d("2024-12-25")), "Wednesday holiday")
	assert.Equal(t, roster.DaySaturday, cal.DayType(d("2024-12-28")))
	assert.Equal(t, roster.DaySunday, cal.DayType(d("2024-12-29")))

	var none *roster.HolidayCalendar
	assert.Equal(t, roster.DayWeekday, none.DayType(d("2024-12-25")))
}
