package scenario_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
	"github.com/warp/roster-engine/roster/store"
	"github.com/warp/roster-engine/scenario"
)

func TestList_BuiltinsExtendBase(t *testing.T) {
	all, err := scenario.List()
	require.NoError(t, err)
	require.Len(t, all, 7)

	assert.Equal(t, "s1-rest-across-month", all[0].ID)
	assert.Equal(t, "s7-holiday-crew", all[6].ID)
	for _, s := range all {
		assert.NotEmpty(t, s.ShiftCodes, s.ID)
		assert.Len(t, s.Users, 3, s.ID)
		_, err := s.Period()
		assert.NoError(t, err, s.ID)
	}
}

func TestBuiltin_NotFound(t *testing.T) {
	_, err := scenario.Builtin("nope")
	assert.True(t, generic.IsNotFound(err))
}

func TestApply_RunsAndPlanning(t *testing.T) {
	// GIVEN
	ctx := context.Background()
	s, err := scenario.Builtin("s4-sunday-rest-gap")
	require.NoError(t, err)
	mem := store.NewMemory()

	// WHEN
	require.NoError(t, s.Apply(ctx, mem))

	// THEN: one rest day plus eleven early shifts
	rows, err := mem.PlanningInRange(ctx, generic.MustDate("2024-10-01"), generic.MustDate("2024-11-30"), nil)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.Equal(t, "RX", rows[0].Code)
	assert.Equal(t, "7", rows[11].Code)

	specials, err := mem.SpecialCodesAll(ctx)
	require.NoError(t, err)
	assert.Len(t, specials, 6)

	cycles, err := mem.CyclesInRange(ctx, generic.MustDate("2024-11-01"), generic.MustDate("2024-11-30"))
	require.NoError(t, err)
	assert.Len(t, cycles, 2)
}

func TestParse_CustomFile(t *testing.T) {
	doc := `
id: custom
month: 2024-11
hr_rules:
  - {name: min_rest_hours, value: "11", from: 2024-01-01}
runs:
  - {user: u1, from: 2024-11-04, to: 2024-11-05, codes: ["8", "7"]}
`
	s, err := scenario.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	base, err := scenario.Base()
	require.NoError(t, err)

	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, base.Extend(s).Apply(ctx, mem))

	rules, err := mem.HRRulesActiveAt(ctx, generic.MustDate("2024-11-04"))
	require.NoError(t, err)
	assert.Equal(t, "11", rules[roster.RuleMinRestHours].Value)
}

func TestParse_Errors(t *testing.T) {
	_, err := scenario.Parse(strings.NewReader("id: x\nunknown_field: 1\n"))
	assert.Error(t, err)

	s, err := scenario.Parse(strings.NewReader("id: bad\nplanning:\n  - {user: u1, date: 2024-13-01, code: \"7\"}\n"))
	require.NoError(t, err)
	assert.Error(t, s.Apply(context.Background(), store.NewMemory()))
}
