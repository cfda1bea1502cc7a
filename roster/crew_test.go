package roster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/roster-engine/roster"
)

func rowsOn(date string, codes ...string) []roster.PlanningRow {
	var rows []roster.PlanningRow
	for i, c := range codes {
		rows = append(rows, roster.PlanningRow{UserID: roster.UserID("u" + string(rune('a'+i))), Date: d(date), Code: c})
	}
	return rows
}

func TestCrewCompleteness_HolidayUsesSundayCriticalSet(t *testing.T) {
	// GIVEN: 2025-01-01 is a Wednesday holiday; Sunday critical codes are S7 and S8
	book := testBook()

	t.Run("green when every expected code appears once", func(t *testing.T) {
		res := roster.CrewCompleteness(d("2025-01-01"), book, rowsOn("2025-01-01", "S7", "S8", "RX"))
		assert.Equal(t, roster.DaySunday, res.DayType)
		assert.Equal(t, []string{"S7", "S8"}, res.Expected)
		assert.Equal(t, roster.CrewGreen, res.Status)
		assert.False(t, res.HasDuplicateCriticalCode())
	})

	t.Run("red when one is missing", func(t *testing.T) {
		res := roster.CrewCompleteness(d("2025-01-01"), book, rowsOn("2025-01-01", "S7", "7", "8"))
		assert.Equal(t, roster.CrewRed, res.Status)
		assert.Equal(t, []string{"S8"}, res.Missing)
	})

	t.Run("yellow when present but duplicated", func(t *testing.T) {
		res := roster.CrewCompleteness(d("2025-01-01"), book, rowsOn("2025-01-01", "S7", "S8", "S8"))
		assert.Equal(t, roster.CrewYellow, res.Status)
		assert.Equal(t, []string{"S8"}, res.Duplicates)
		assert.True(t, res.HasDuplicateCriticalCode())
	})
}

func TestCrewCompleteness_HolidayMatchesRegularSunday(t *testing.T) {
	book := testBook()
	holiday := roster.CrewCompleteness(d("2025-01-01"), book, rowsOn("2025-01-01", "S7"))
	sunday := roster.CrewCompleteness(d("2025-01-05"), book, rowsOn("2025-01-05", "S7"))

	assert.Equal(t, sunday.Expected, holiday.Expected)
	assert.Equal(t, sunday.Status, holiday.Status)
	assert.Equal(t, sunday.Missing, holiday.Missing)
}

func TestCrewCompleteness_WeekdayIgnoresOtherDates(t *testing.T) {
	book := testBook()
	rows := append(rowsOn("2025-01-02", "7", "8"), rowsOn("2025-01-03", "7")...)

	res := roster.CrewCompleteness(d("2025-01-02"), book, rows)
	assert.Equal(t, []string{"7", "8"}, res.Expected)
	assert.Equal(t, roster.CrewGreen, res.Status)
}
