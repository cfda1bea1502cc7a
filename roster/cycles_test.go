package roster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/roster-engine/roster"
)

func TestCycleIndex_StoredCycleWins(t *testing.T) {
	idx := roster.NewCycleIndex([]roster.Cycle{
		{PeriodNumber: 1, Start: d("2024-07-29"), End: d("2024-08-25")},
	}, d("2024-01-01"), 28, nil)

	c := idx.Containing(d("2024-08-10"))
	assert.Equal(t, 1, c.PeriodNumber)
	assert.Equal(t, "2024-07-29", c.Start.String())
}

func TestCycleIndex_SynthesisesFromNearestStored(t *testing.T) {
	// GIVEN: cycles 1 and 3 stored, 2 missing
	idx := roster.NewCycleIndex([]roster.Cycle{
		{PeriodNumber: 1, Start: d("2024-07-29"), End: d("2024-08-25")},
		{PeriodNumber: 3, Start: d("2024-09-23"), End: d("2024-10-20")},
	}, d("2024-01-01"), 28, nil)

	// WHEN
	c := idx.Containing(d("2024-09-01"))

	// THEN
	assert.Equal(t, 2, c.PeriodNumber)
	assert.Equal(t, "2024-08-26", c.Start.String())
	assert.Equal(t, "2024-09-22", c.End.String())

	// Before the first and after the last stored cycle
	before := idx.Containing(d("2024-07-01"))
	assert.Equal(t, 0, before.PeriodNumber)
	assert.Equal(t, "2024-07-01", before.Start.String())

	after := idx.Containing(d("2024-11-20"))
	assert.Equal(t, 5, after.PeriodNumber)
	assert.Equal(t, "2024-11-18", after.Start.String())
}

func TestCycleIndex_FromOriginWhenNothingStored(t *testing.T) {
	idx := roster.NewCycleIndex(nil, d("2024-01-01"), 28, nil)

	c := idx.Containing(d("2024-01-29"))
	assert.Equal(t, 2, c.PeriodNumber)
	assert.Equal(t, "2024-01-29", c.Start.String())
	assert.Equal(t, "2024-02-25", c.End.String())
}

func TestCycleIndex_InRangeTilesWithoutGaps(t *testing.T) {
	idx := roster.NewCycleIndex([]roster.Cycle{
		{PeriodNumber: 1, Start: d("2024-07-29"), End: d("2024-08-25")},
		{PeriodNumber: 3, Start: d("2024-09-23"), End: d("2024-10-20")},
	}, d("2024-01-01"), 28, nil)

	cycles := idx.InRange(d("2024-08-01"), d("2024-10-01"))
	require.Len(t, cycles, 3)
	for i := 1; i < len(cycles); i++ {
		assert.Equal(t, cycles[i-1].End.AddDays(1), cycles[i].Start)
		assert.Greater(t, cycles[i].PeriodNumber, cycles[i-1].PeriodNumber)
	}

	gaps := idx.Gaps()
	require.Len(t, gaps, 1)
	assert.Equal(t, "[2024-08-26, 2024-09-22]", gaps[0].String())
}
