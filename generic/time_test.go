package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/roster-engine/generic"
)

func clock(s string) generic.ClockTime { return generic.MustClock(s) }

func TestParseClock(t *testing.T) {
	c, err := generic.ParseClock("06:30")
	require.NoError(t, err)
	assert.Equal(t, 6, c.Hour())
	assert.Equal(t, 30, c.Minute())
	assert.Equal(t, "06:30", c.String())

	for _, bad := range []string{"", "6", "24:00", "12:60", "ab:cd", "12:5"} {
		_, err := generic.ParseClock(bad)
		assert.ErrorIs(t, err, generic.ErrMalformedClock, bad)
	}
}

func TestShiftDuration_SameDay(t *testing.T) {
	assert.Equal(t, "8", generic.ShiftDuration(clock("06:00"), clock("14:00")).String())
	assert.Equal(t, "7.5", generic.ShiftDuration(clock("09:00"), clock("16:30")).String())
}

func TestShiftDuration_MidnightCrossing(t *testing.T) {
	// For every end <= start: duration = (24 - start) + end
	for start := 0; start < 24*60; start += 37 {
		for end := 0; end <= start; end += 53 {
			s, e := generic.ClockTime(start), generic.ClockTime(end)
			want := generic.NewAmountFromMinutes(24*60 - start + end)
			got := generic.ShiftDuration(s, e)
			assert.True(t, want.Equal(got), "start=%s end=%s want=%s got=%s", s, e, want, got)
		}
	}
}

func TestShiftDuration_EqualClocksIsFullDay(t *testing.T) {
	assert.Equal(t, "24", generic.ShiftDuration(clock("07:00"), clock("07:00")).String())
}

func TestRestBetween_NightThenEarlyAcrossMonth(t *testing.T) {
	// GIVEN: night 22:00-06:00 on Oct 31, early 06:00 on Nov 1
	// THEN: zero rest
	rest := generic.RestBetween(
		generic.MustDate("2024-10-31"), clock("22:00"), clock("06:00"),
		generic.MustDate("2024-11-01"), clock("06:00"),
	)
	assert.True(t, rest.IsZero(), "got %s", rest)
}

func TestRestBetween_LateThenEarly(t *testing.T) {
	rest := generic.RestBetween(
		generic.MustDate("2024-11-04"), clock("14:00"), clock("22:00"),
		generic.MustDate("2024-11-05"), clock("06:00"),
	)
	assert.Equal(t, "8", rest.String())
}

func TestDate_ISOWeekdayAndMonthBounds(t *testing.T) {
	assert.Equal(t, 1, generic.MustDate("2024-11-04").ISOWeekday())
	assert.Equal(t, 7, generic.MustDate("2024-11-10").ISOWeekday())
	assert.Equal(t, "2024-02-29", generic.EndOfMonth(2024, time.February).String())
	assert.Equal(t, 31, generic.MonthPeriod(2024, time.October).Len())
}

func TestDate_Format(t *testing.T) {
	d := generic.MustDate("2024-11-04")
	assert.Equal(t, "2024-11", d.Format("2006-01"))
	assert.Equal(t, "04/11/2024", d.Format("02/01/2006"))
	assert.Equal(t, d.String(), d.Format(generic.DateLayout))
}

func TestShiftInterval(t *testing.T) {
	iv := generic.ShiftInterval(generic.MustDate("2024-10-31"), clock("22:00"), clock("06:00"))
	assert.Equal(t, time.Date(2024, 10, 31, 22, 0, 0, 0, time.UTC), iv.Start)
	assert.Equal(t, time.Date(2024, 11, 1, 6, 0, 0, 0, time.UTC), iv.End)
}
