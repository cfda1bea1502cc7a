package roster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

func TestCodeBook_LookupPrefersUserPosts(t *testing.T) {
	book := testBook()

	// "7" exists on A and B for weekdays
	info, ok := book.Lookup("u1", d("2024-11-04"), "7")
	require.True(t, ok)
	assert.Equal(t, roster.WorkPostID("A"), info.WorkPostID)
	assert.Equal(t, "06:00", info.Start.String())

	info, ok = book.Lookup("u2", d("2024-11-04"), "7")
	require.True(t, ok)
	assert.Equal(t, roster.WorkPostID("B"), info.WorkPostID)

	// unknown user: lowest post ID
	info, ok = book.Lookup("nobody", d("2024-11-04"), "7")
	require.True(t, ok)
	assert.Equal(t, roster.WorkPostID("A"), info.WorkPostID)
}

func TestCodeBook_LookupSpecialAndUnknown(t *testing.T) {
	book := testBook()

	info, ok := book.Lookup("u1", d("2024-11-04"), "RX")
	require.True(t, ok)
	assert.Equal(t, roster.KindSpecial, info.Kind)
	assert.Equal(t, roster.TermSundayRest, info.Term)
	assert.False(t, info.HasTimes)
	assert.True(t, info.Duration().IsZero())

	_, ok = book.Lookup("u1", d("2024-11-04"), "QQ")
	assert.False(t, ok)
	_, ok = book.Lookup("u1", d("2024-11-04"), "")
	assert.False(t, ok)
}

func TestCodeBook_LookupFallsBackToOtherDayType(t *testing.T) {
	// S7 is a Sunday code planned on a Monday
	info, ok := testBook().Lookup("u1", d("2024-11-04"), "S7")
	require.True(t, ok)
	assert.Equal(t, roster.DaySunday, info.DayType)
	assert.Equal(t, "8", info.Duration().String())
}

func TestCodeBook_NightInterval(t *testing.T) {
	info, ok := testBook().Lookup("u1", d("2024-10-31"), "9")
	require.True(t, ok)
	iv := info.Interval(d("2024-10-31"))
	assert.Equal(t, "[2024-10-31T22:00, 2024-11-01T06:00]", iv.String())
}

func TestCheckCodeSpace(t *testing.T) {
	shifts := testShifts()
	specials := testSpecials()
	assert.Empty(t, roster.CheckCodeSpace(shifts, specials))

	shifts = append(shifts, roster.ShiftCode{ID: "dup", Code: "7", WorkPostID: "A", DayType: roster.DayWeekday, ShiftType: roster.ShiftDay})
	shifts = append(shifts, roster.ShiftCode{ID: "clash", Code: "RX", WorkPostID: "B", DayType: roster.DaySunday})
	specials = append(specials, roster.SpecialCode{ID: "sp-rx2", Code: "RR", Term: roster.TermSundayRest})

	got := roster.CheckCodeSpace(shifts, specials)
	require.Len(t, got, 3)
	for _, c := range got {
		assert.ErrorIs(t, c, generic.ErrCodeCollision)
	}
}

func TestCanDeleteSpecialCode(t *testing.T) {
	err := roster.CanDeleteSpecialCode(roster.SpecialCode{Code: "RX", Term: roster.TermSundayRest})
	assert.ErrorIs(t, err, generic.ErrTermLocked)
	assert.NoError(t, roster.CanDeleteSpecialCode(roster.SpecialCode{Code: "T"}))
}

func TestTermResolver(t *testing.T) {
	r := roster.NewTermResolver()

	// Defaults before anything is loaded
	assert.Equal(t, "VV", r.Code(roster.TermHolidayLeave))
	assert.Equal(t, "ADV", r.Code(roster.TermReductionOfHours))

	// Letters renamed, term stays
	r.Refresh([]roster.SpecialCode{
		{ID: "sp-rx", Code: "ZR", Term: roster.TermSundayRest},
		{ID: "sp-t", Code: "T"},
	})
	assert.Equal(t, "ZR", r.Code(roster.TermSundayRest))
	assert.Equal(t, "CX", r.Code(roster.TermSaturdayRest))

	term, ok := r.TermOf("ZR")
	require.True(t, ok)
	assert.Equal(t, roster.TermSundayRest, term)
	_, ok = r.TermOf("T")
	assert.False(t, ok)

	m := r.Mapping()
	assert.Equal(t, "ZR", m[roster.TermSundayRest])
	assert.Len(t, m, 6)
	assert.Equal(t, 1, r.Version())
}
