package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/roster-engine/checker"
	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
	"github.com/warp/roster-engine/scenario"
	"github.com/warp/roster-engine/store/sqlite"
	"github.com/warp/roster-engine/validator"
)

func d(s string) generic.Date { return generic.MustDate(s) }

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seeded(t *testing.T, id string) *sqlite.Store {
	t.Helper()
	st := newStore(t)
	sc, err := scenario.Builtin(id)
	require.NoError(t, err)
	require.NoError(t, sc.Apply(context.Background(), st))
	return st
}

func TestScenarioRoundTrip_ValidatesLikeMemory(t *testing.T) {
	// GIVEN: the cross-month rest scenario seeded into SQLite
	st := seeded(t, "s1-rest-across-month")

	// WHEN
	report, err := validator.New(st, validator.Config{}).
		ValidateMonth(context.Background(), 2024, time.November, validator.Options{})

	// THEN
	require.NoError(t, err)
	require.Len(t, report.ByRule[checker.RuleMinRest], 1)
	v := report.ByRule[checker.RuleMinRest][0]
	assert.Equal(t, roster.UserID("u1"), v.User)
	assert.Equal(t, "2024-11-01", v.Date.String())
}

func TestCodeSpace(t *testing.T) {
	ctx := context.Background()
	st := seeded(t, "s2-long-week")

	shifts, err := st.ShiftCodesActive(ctx)
	require.NoError(t, err)
	assert.Len(t, shifts, 10)
	for _, c := range shifts {
		if c.ID == "a-wd-9" {
			assert.Equal(t, generic.MustClock("22:00"), c.Start)
			assert.Equal(t, generic.MustClock("06:00"), c.End)
			assert.Equal(t, roster.DayType("weekday"), c.DayType)
		}
	}

	specials, err := st.SpecialCodesAll(ctx)
	require.NoError(t, err)
	assert.Len(t, specials, 6)
}

func TestSaveSpecialCode_TermOwnedOnce(t *testing.T) {
	ctx := context.Background()
	st := seeded(t, "s2-long-week")

	// GIVEN: RX owns sunday-rest
	// WHEN: another code claims the same term
	err := st.SaveSpecialCode(ctx, roster.SpecialCode{Code: "RZ", Term: roster.TermSundayRest})

	// THEN
	assert.ErrorIs(t, err, generic.ErrCodeCollision)

	// Moving the term on the owning code is fine
	require.NoError(t, st.SaveSpecialCode(ctx, roster.SpecialCode{ID: "sp-rx", Code: "RR", Term: roster.TermSundayRest}))
}

func TestSaveSpecialCode_RenameFollowsPlanning(t *testing.T) {
	ctx := context.Background()
	st := seeded(t, "s4-sunday-rest-gap")

	// GIVEN: RX is planned on Oct 26 and sits in an active template
	cells := []roster.TypeTableCell{{VersionID: "tt1", Week: 1, Day: 7, Slot: "RX"}}
	require.NoError(t, st.SaveTypeTable(ctx, roster.TypeTableVersion{ID: "tt1", Name: "week", Weeks: 1, Status: roster.TypeTableDraft}, cells))
	require.NoError(t, st.ActivateTypeTableVersion(ctx, "tt1", d("2024-11-04")))
	v := validator.New(st, validator.Config{})
	before, err := v.ValidateAll(ctx, "u1", 2024, time.November, validator.Options{})
	require.NoError(t, err)

	// WHEN: the sunday-rest code changes letters
	require.NoError(t, st.SaveSpecialCode(ctx, roster.SpecialCode{
		ID: "sp-rx", Code: "RR", Name: "Sunday rest", Term: roster.TermSundayRest,
		Behaviour: roster.Behaviour{Resets12hRest: true, BreaksWorkStreak: true},
	}))

	// THEN: stored rows and slots follow, and the report is unchanged
	after, err := v.ValidateAll(ctx, "u1", 2024, time.November, validator.Options{})
	require.NoError(t, err)
	assert.Equal(t, before.All(), after.All())

	var found bool
	for _, viol := range after.All() {
		if viol.Rule == checker.RuleMaxDaysBetweenRest {
			found = true
			assert.Equal(t, d("2024-10-26"), viol.Span.Start)
			assert.Equal(t, "11", viol.Details["days_since_rest"])
		}
	}
	assert.True(t, found)

	rows, err := st.PlanningInRange(ctx, d("2024-10-26"), d("2024-10-26"), []roster.UserID{"u1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "RR", rows[0].Code)

	expanded, err := v.Expand(ctx, "u1", generic.Period{Start: d("2024-11-10"), End: d("2024-11-10")})
	require.NoError(t, err)
	assert.Equal(t, "RR", expanded[d("2024-11-10")])
}

func TestDeleteSpecialCode(t *testing.T) {
	ctx := context.Background()
	st := seeded(t, "s2-long-week")
	require.NoError(t, st.SaveSpecialCode(ctx, roster.SpecialCode{ID: "sp-tr", Code: "TR", Name: "Training"}))

	assert.ErrorIs(t, st.DeleteSpecialCode(ctx, "sp-rx"), generic.ErrTermLocked)
	assert.ErrorIs(t, st.DeleteSpecialCode(ctx, "missing"), generic.ErrNotFound)
	require.NoError(t, st.DeleteSpecialCode(ctx, "sp-tr"))

	specials, err := st.SpecialCodesAll(ctx)
	require.NoError(t, err)
	assert.Len(t, specials, 6)
}

func TestSaveHRRule_ClosesPreviousVersion(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	// GIVEN
	require.NoError(t, st.SaveHRRule(ctx, roster.HRRule{Name: roster.RuleMinRestHours, Value: "12", EffectiveFrom: d("2024-01-01")}))

	// WHEN
	require.NoError(t, st.SaveHRRule(ctx, roster.HRRule{Name: roster.RuleMinRestHours, Value: "11", EffectiveFrom: d("2025-01-01")}))

	// THEN
	rules, err := st.HRRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.NotNil(t, rules[0].EffectiveTo)
	assert.Equal(t, "2025-01-01", rules[0].EffectiveTo.String())
	assert.Nil(t, rules[1].EffectiveTo)

	at, err := st.HRRulesActiveAt(ctx, d("2024-12-31"))
	require.NoError(t, err)
	assert.Equal(t, "12", at[roster.RuleMinRestHours].Value)
	at, err = st.HRRulesActiveAt(ctx, d("2025-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "11", at[roster.RuleMinRestHours].Value)
}

func TestSaveHRRule_RejectsBadValueAndBackdating(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	require.NoError(t, st.SaveHRRule(ctx, roster.HRRule{Name: roster.RuleMinRestHours, Value: "12", EffectiveFrom: d("2024-06-01")}))

	err := st.SaveHRRule(ctx, roster.HRRule{Name: roster.RuleWeekDefinition, Value: "tuesday-ish", EffectiveFrom: d("2024-06-01")})
	assert.True(t, generic.IsConfigError(err))

	err = st.SaveHRRule(ctx, roster.HRRule{Name: roster.RuleMinRestHours, Value: "10", EffectiveFrom: d("2024-01-01")})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	rules, err := st.HRRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1, "failed saves leave nothing behind")
}

func TestTypeTableActivation(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	cells := func(id, slot string) []roster.TypeTableCell {
		var out []roster.TypeTableCell
		for day := 1; day <= 7; day++ {
			out = append(out, roster.TypeTableCell{VersionID: id, Week: 1, Day: day, Slot: slot})
		}
		return out
	}
	require.NoError(t, st.SaveTypeTable(ctx, roster.TypeTableVersion{ID: "v1", Name: "Spring", Weeks: 1}, cells("v1", "Early")))
	require.NoError(t, st.SaveTypeTable(ctx, roster.TypeTableVersion{ID: "v2", Name: "Summer", Weeks: 1}, cells("v2", "Late")))

	require.NoError(t, st.ActivateTypeTableVersion(ctx, "v1", d("2024-03-04")))
	require.NoError(t, st.ActivateTypeTableVersion(ctx, "v2", d("2024-06-03")))

	versions, err := st.TypeTableVersions(ctx)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, roster.TypeTableArchived, versions[0].Status)
	require.NotNil(t, versions[0].EffectiveTo)
	assert.Equal(t, "2024-06-03", versions[0].EffectiveTo.String())
	assert.Equal(t, roster.TypeTableActive, versions[1].Status)
	assert.Equal(t, "2024-06-03", versions[1].EffectiveFrom.String())

	got, err := st.TypeTableCells(ctx, "v2")
	require.NoError(t, err)
	require.Len(t, got, 7)
	assert.Equal(t, "Late", got[0].Slot)

	// out-of-range cells are refused before anything is written
	err = st.SaveTypeTable(ctx, roster.TypeTableVersion{ID: "v3", Weeks: 1},
		[]roster.TypeTableCell{{VersionID: "v3", Week: 2, Day: 1, Slot: "Early"}})
	assert.Error(t, err)
}

func TestHolidaysInYear_IncludesVariable(t *testing.T) {
	ctx := context.Background()
	st := seeded(t, "s7-holiday-crew")

	holidays, err := st.HolidaysInYear(ctx, 2025)
	require.NoError(t, err)

	names := map[string]string{}
	for _, h := range holidays {
		names[h.Name] = h.Date.String()
	}
	assert.Equal(t, "2025-01-01", names["New Year"])
	assert.Equal(t, "2025-04-21", names[roster.HolidayEasterMonday])
	assert.NotContains(t, names, "Christmas", "2024 rows stay in 2024")
}

func TestPlanning_UpsertDeleteAndNotes(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	require.NoError(t, st.UpsertPlanning(ctx, roster.PlanningRow{UserID: "u1", Date: d("2024-11-04"), Code: "7"}))
	require.NoError(t, st.UpsertPlanning(ctx, roster.PlanningRow{UserID: "u2", Date: d("2024-11-04"), Code: "8", Note: "swap"}))
	require.NoError(t, st.UpsertPlanning(ctx, roster.PlanningRow{UserID: "u1", Date: d("2024-11-04"), Code: "RX"}))

	rows, err := st.PlanningInRange(ctx, d("2024-11-01"), d("2024-11-30"), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "RX", rows[0].Code)
	assert.Equal(t, roster.StatusDraft, rows[0].Status)

	only, err := st.PlanningInRange(ctx, d("2024-11-01"), d("2024-11-30"), []roster.UserID{"u2"})
	require.NoError(t, err)
	require.Len(t, only, 1)

	notes, err := st.NotesInRange(ctx, d("2024-11-01"), d("2024-11-30"))
	require.NoError(t, err)
	assert.Equal(t, []generic.Date{d("2024-11-04")}, notes)

	require.NoError(t, st.SetPlanningStatus(ctx, "u1", 2024, 11, roster.StatusPublished))
	require.NoError(t, st.DeletePlanning(ctx, "u2", d("2024-11-04")))

	rows, err = st.PlanningInRange(ctx, d("2024-11-01"), d("2024-11-30"), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, roster.StatusPublished, rows[0].Status)
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	_, err := st.LeaveBalance(ctx, "u1", 2025)
	assert.True(t, generic.IsNotFound(err))

	require.NoError(t, st.SaveLeaveBalance(ctx, roster.LeaveBalance{
		UserID:         "u1",
		Year:           2025,
		LeaveTotal:     generic.Days(25),
		LeaveCarryover: generic.Days(2.5),
		LeaveUsed:      generic.Days(3),
	}))
	b, err := st.LeaveBalance(ctx, "u1", 2025)
	require.NoError(t, err)
	assert.Equal(t, "2.5", b.LeaveCarryover.Value.String())
	assert.Equal(t, "0", b.CompTotal.Value.String())

	require.NoError(t, st.SaveLeaveRequest(ctx, roster.LeaveRequest{
		UserID: "u1", Start: d("2025-03-03"), End: d("2025-03-07"), Days: generic.Days(5),
	}))
	reqs, err := st.LeaveRequests(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.NotEmpty(t, reqs[0].ID)
	assert.Equal(t, roster.LeavePending, reqs[0].Status)

	err = st.SaveLeaveRequest(ctx, roster.LeaveRequest{UserID: "u1", Start: d("2025-03-07"), End: d("2025-03-03")})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestApprovedLeaveInRange(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	// GIVEN: approved, pending and out-of-range requests
	for _, r := range []roster.LeaveRequest{
		{ID: "a", UserID: "u1", Start: d("2024-11-04"), End: d("2024-11-08"), Status: roster.LeaveApproved, GrantedTerm: roster.TermHolidayLeave},
		{ID: "b", UserID: "u2", Start: d("2024-10-28"), End: d("2024-11-01"), Status: roster.LeaveApproved, GrantedTerm: roster.TermSick},
		{ID: "c", UserID: "u1", Start: d("2024-11-11"), End: d("2024-11-11"), Status: roster.LeavePending},
		{ID: "d", UserID: "u1", Start: d("2024-12-02"), End: d("2024-12-03"), Status: roster.LeaveApproved},
	} {
		require.NoError(t, st.SaveLeaveRequest(ctx, r))
	}

	// WHEN
	all, err := st.ApprovedLeaveInRange(ctx, d("2024-11-01"), d("2024-11-30"), nil)
	require.NoError(t, err)
	mine, err := st.ApprovedLeaveInRange(ctx, d("2024-11-01"), d("2024-11-30"), []roster.UserID{"u1"})
	require.NoError(t, err)

	// THEN
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, roster.UserID("u2"), all[0].UserID)
	assert.Equal(t, roster.TermSick, all[0].GrantedTerm)
	require.Len(t, mine, 1)
	assert.Equal(t, "a", mine[0].ID)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	st := seeded(t, "s1-rest-across-month")

	require.NoError(t, st.Reset(ctx))

	users, err := st.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	_, err = st.User(ctx, "u1")
	assert.True(t, generic.IsNotFound(err))
}
