package validator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
	"github.com/warp/roster-engine/validator"
)

func TestExpand(t *testing.T) {
	ctx := context.Background()
	mem, _ := seeded(t, "s2-long-week")

	// GIVEN: a one-week template active from Monday Nov 4
	cells := []roster.TypeTableCell{
		{VersionID: "tt1", Week: 1, Day: 1, Slot: "V"},
		{VersionID: "tt1", Week: 1, Day: 2, Slot: "L"},
		{VersionID: "tt1", Week: 1, Day: 3, Slot: "N"},
		{VersionID: "tt1", Week: 1, Day: 6, Slot: "RX"},
		{VersionID: "tt1", Week: 1, Day: 7, Slot: "V"},
	}
	require.NoError(t, mem.SaveTypeTable(ctx, roster.TypeTableVersion{ID: "tt1", Name: "week", Weeks: 1, Status: roster.TypeTableDraft}, cells))
	require.NoError(t, mem.ActivateTypeTableVersion(ctx, "tt1", d("2024-11-04")))

	// WHEN
	got, err := validator.New(mem, validator.Config{}).
		Expand(ctx, "u1", generic.Period{Start: d("2024-11-03"), End: d("2024-11-10")})

	// THEN
	require.NoError(t, err)
	assert.Equal(t, map[generic.Date]string{
		d("2024-11-03"): "", // before the version
		d("2024-11-04"): "7",
		d("2024-11-05"): "8",
		d("2024-11-06"): "9",
		d("2024-11-07"): "",
		d("2024-11-08"): "",
		d("2024-11-09"): "RX",
		d("2024-11-10"): "7",
	}, got)
}

func TestExpand_DraftIgnoredAndUnknownUser(t *testing.T) {
	ctx := context.Background()
	mem, _ := seeded(t, "s2-long-week")
	require.NoError(t, mem.SaveTypeTable(ctx, roster.TypeTableVersion{ID: "draft", Weeks: 1, Status: roster.TypeTableDraft},
		[]roster.TypeTableCell{{VersionID: "draft", Week: 1, Day: 1, Slot: "V"}}))
	v := validator.New(mem, validator.Config{})

	got, err := v.Expand(ctx, "u1", generic.Period{Start: d("2024-11-04"), End: d("2024-11-04")})
	require.NoError(t, err)
	assert.Equal(t, "", got[d("2024-11-04")])

	_, err = v.Expand(ctx, "nobody", generic.Period{Start: d("2024-11-04"), End: d("2024-11-04")})
	assert.True(t, generic.IsNotFound(err))
}

func TestCheckLeave(t *testing.T) {
	ctx := context.Background()
	mem, _ := seeded(t, "s2-long-week")
	require.NoError(t, mem.SaveLeaveBalance(ctx, roster.LeaveBalance{
		UserID:         "u1",
		Year:           2025,
		LeaveTotal:     generic.Days(25),
		LeaveCarryover: generic.Days(5),
		LeaveUsed:      generic.Days(20),
	}))
	v := validator.New(mem, validator.Config{})

	// carry-over still counts in March
	res, err := v.CheckLeave(ctx, roster.LeaveRequest{
		UserID: "u1", Start: d("2025-03-03"), End: d("2025-03-07"), Days: generic.Days(5),
	}, roster.TermHolidayLeave)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "10", res.Available.Value.String())

	// and has expired by June
	res, err = v.CheckLeave(ctx, roster.LeaveRequest{
		UserID: "u1", Start: d("2025-06-02"), End: d("2025-06-09"), Days: generic.Days(6),
	}, roster.TermHolidayLeave)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.True(t, res.CarryoverExpired)
	assert.NotEmpty(t, res.Reason)

	_, err = v.CheckLeave(ctx, roster.LeaveRequest{UserID: "u2", Start: d("2025-03-03"), End: d("2025-03-03")}, roster.TermHolidayLeave)
	assert.True(t, generic.IsNotFound(err))
}
