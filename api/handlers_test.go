/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Scenario loading and the current scenario
- Violations, what-if checks and publication
- Grid, crew and cache invalidation on writes
- Special-code letter changes and HR rule versions
- Type-table expansion and leave checks
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/roster-engine/cache"
	"github.com/warp/roster-engine/checker"
	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
	"github.com/warp/roster-engine/roster/store"
	"github.com/warp/roster-engine/validator"
)

type testServer struct {
	h      *Handler
	mem    *store.Memory
	router *chi.Mux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	reg := prometheus.NewRegistry()
	v := validator.New(mem, validator.Config{})
	c := cache.New(v, mem, cache.Options{Metrics: cache.NewMetrics(reg)})

	h := NewHandler(mem, v, c, nil)
	h.Terms = roster.NewTermResolver()
	return &testServer{h: h, mem: mem, router: NewRouter(h, reg)}
}

// loaded returns a server with scenario id loaded through the API.
func loaded(t *testing.T, id string) *testServer {
	t.Helper()
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/scenarios/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func d(s string) generic.Date { return generic.MustDate(s) }

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_ListLoadAndCurrent(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: nothing loaded
	rec := s.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null\n", rec.Body.String())

	list := decode[[]ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios", nil))
	require.Len(t, list, 7)
	assert.Equal(t, "s1-rest-across-month", list[0].ID)
	assert.Equal(t, "2024-11", list[0].Month)

	// WHEN
	rec = s.do(t, http.MethodPost, "/api/scenarios/s7-holiday-crew", nil)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "s7-holiday-crew", current.ID)
	assert.Len(t, s.h.Cache.Month(2025, time.January), 31)
	assert.Equal(t, "RX", s.h.Terms.Code(roster.TermSundayRest))
}

func TestScenarios_UnknownAndReset(t *testing.T) {
	s := loaded(t, "s1-rest-across-month")

	rec := s.do(t, http.MethodPost, "/api/scenarios/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	users := decode[[]roster.User](t, s.do(t, http.MethodGet, "/api/users", nil))
	assert.Empty(t, users)
	assert.Equal(t, 0, s.h.Cache.Stats().Entries)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestGetViolations(t *testing.T) {
	s := loaded(t, "s1-rest-across-month")

	rec := s.do(t, http.MethodGet, "/api/users/u1/violations?year=2024&month=11", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ViolationsResponse](t, rec)
	assert.False(t, resp.ConfigurationError)
	require.Equal(t, 2, resp.Count)
	rules := map[checker.Rule]generic.Date{}
	for _, v := range resp.Violations {
		rules[v.Rule] = v.Date
	}
	assert.Equal(t, d("2024-11-01"), rules[checker.RuleMinRest])
	assert.Equal(t, d("2024-11-01"), rules[checker.RuleNightThenEarly])

	// the previous month sees the same pair
	resp = decode[ViolationsResponse](t, s.do(t, http.MethodGet, "/api/users/u1/violations?year=2024&month=10", nil))
	assert.Equal(t, 2, resp.Count)

	resp = decode[ViolationsResponse](t, s.do(t, http.MethodGet, "/api/users/u2/violations?year=2024&month=11", nil))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Violations)
}

func TestGetViolations_BadMonth(t *testing.T) {
	s := loaded(t, "s1-rest-across-month")

	for _, q := range []string{"", "?year=2024", "?year=2024&month=13", "?year=x&month=1"} {
		rec := s.do(t, http.MethodGet, "/api/users/u1/violations"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestCheckShift(t *testing.T) {
	s := loaded(t, "s1-rest-across-month")

	// WHEN: replacing the early after the night with a rest day
	rec := s.do(t, http.MethodPost, "/api/users/u1/check", CheckShiftRequest{Date: "2024-11-01", Code: "RX"})

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CheckShiftResponse](t, rec)
	assert.True(t, resp.OK)
	assert.Empty(t, resp.Violations)

	rec = s.do(t, http.MethodPost, "/api/users/u1/check", CheckShiftRequest{Date: "2024-11-01", Code: "7"})
	resp = decode[CheckShiftResponse](t, rec)
	assert.False(t, resp.OK)
	assert.Len(t, resp.Violations, 2)

	rec = s.do(t, http.MethodPost, "/api/users/u1/check", CheckShiftRequest{Date: "01/11/2024", Code: "7"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishMonth(t *testing.T) {
	s := loaded(t, "s1-rest-across-month")

	// GIVEN: u1 has a rest violation
	rec := s.do(t, http.MethodPost, "/api/users/u1/publish?year=2024&month=11", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// WHEN: u2 is clean
	rec = s.do(t, http.MethodPost, "/api/users/u2/publish?year=2024&month=11", nil)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, roster.StatusPublished, decode[PublishResponse](t, rec).Status)
}

// =============================================================================
// GRID
// =============================================================================

func TestGetGrid_PreloadsMissingMonth(t *testing.T) {
	s := loaded(t, "s7-holiday-crew")

	rec := s.do(t, http.MethodGet, "/api/grid?year=2025&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grid := decode[GridResponse](t, rec)
	require.Len(t, grid.Entries, 31)
	assert.Equal(t, roster.CrewGreen, grid.Entries[0].Crew)
	assert.True(t, grid.Entries[0].HasNotes)

	// February was never loaded
	grid = decode[GridResponse](t, s.do(t, http.MethodGet, "/api/grid?year=2025&month=2", nil))
	assert.Len(t, grid.Entries, 28)
}

func TestGetCrew(t *testing.T) {
	s := loaded(t, "s7-holiday-crew")

	rec := s.do(t, http.MethodGet, "/api/crew/2025-01-03", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	crew := decode[roster.CrewResult](t, rec)
	assert.Equal(t, roster.CrewYellow, crew.Status)
	assert.NotEmpty(t, crew.Duplicates)

	rec = s.do(t, http.MethodGet, "/api/crew/tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidateGrid(t *testing.T) {
	s := loaded(t, "s7-holiday-crew")

	rec := s.do(t, http.MethodPost, "/api/grid/invalidate", InvalidateRequest{Start: "2025-01-01", End: "2025-01-03"})

	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[cache.Stats](t, rec)
	assert.Equal(t, 3, stats.Dirty)
	assert.Equal(t, 28, stats.Entries)

	rec = s.do(t, http.MethodPost, "/api/grid/invalidate", InvalidateRequest{Start: "2025-01-03", End: "2025-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// WRITES
// =============================================================================

func TestUpsertPlanning_InvalidatesDate(t *testing.T) {
	s := loaded(t, "s7-holiday-crew")

	// WHEN: the missing late is added on Jan 2
	rec := s.do(t, http.MethodPost, "/api/planning", PlanningRequest{UserID: "u2", Date: "2025-01-02", Code: "8"})

	// THEN: only that date is dirty
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []generic.Date{d("2025-01-02")}, s.h.Cache.DirtyDates())

	require.NoError(t, s.h.Cache.RefreshDirty(context.Background()))
	status, ok := s.h.Cache.CrewStatus(d("2025-01-02"))
	require.True(t, ok)
	assert.Equal(t, roster.CrewGreen, status)

	rec = s.do(t, http.MethodPost, "/api/planning", PlanningRequest{UserID: "ghost", Date: "2025-01-02", Code: "8"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePlanning(t *testing.T) {
	s := loaded(t, "s1-rest-across-month")

	rec := s.do(t, http.MethodDelete, "/api/planning/u1/2024-11-01", nil)

	require.Equal(t, http.StatusNoContent, rec.Code)
	resp := decode[ViolationsResponse](t, s.do(t, http.MethodGet, "/api/users/u1/violations?year=2024&month=11", nil))
	assert.Equal(t, 0, resp.Count)
	assert.Contains(t, s.h.Cache.DirtyDates(), d("2024-11-01"))
}

func TestUpdateSpecialCode(t *testing.T) {
	s := loaded(t, "s1-rest-across-month")

	// GIVEN: "7" is a shift code
	rec := s.do(t, http.MethodPut, "/api/special-codes/sp-rx", UpdateSpecialCodeRequest{Code: "7"})
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[CollisionResponse](t, rec)
	require.NotEmpty(t, conflict.Collisions)
	assert.Equal(t, "7", conflict.Collisions[0].Code)

	// WHEN: new letters that are free
	rec = s.do(t, http.MethodPut, "/api/special-codes/sp-rx", UpdateSpecialCodeRequest{Code: "RR"})

	// THEN: the term follows the letters
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "RR", s.h.Terms.Code(roster.TermSundayRest))
	assert.Equal(t, 0, s.h.Cache.Stats().Entries)

	rec = s.do(t, http.MethodPut, "/api/special-codes/sp-nope", UpdateSpecialCodeRequest{Code: "QQ"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateHRRule(t *testing.T) {
	s := loaded(t, "s1-rest-across-month")

	rec := s.do(t, http.MethodPost, "/api/hr-rules", CreateHRRuleRequest{
		Name: roster.RuleMaxHoursPerWeek, Value: "40", Unit: "hours", EffectiveFrom: "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 0, s.h.Cache.Stats().Entries)

	rules := decode[[]roster.HRRule](t, s.do(t, http.MethodGet, "/api/hr-rules", nil))
	var found bool
	for _, r := range rules {
		if r.Name == roster.RuleMaxHoursPerWeek && r.Value == "40" {
			found = true
		}
	}
	assert.True(t, found)

	rec = s.do(t, http.MethodPost, "/api/hr-rules", CreateHRRuleRequest{Name: "x", EffectiveFrom: "soon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// EXPANSION AND LEAVE
// =============================================================================

func TestExpandTypeTable(t *testing.T) {
	s := loaded(t, "s2-long-week")
	ctx := context.Background()
	require.NoError(t, s.mem.SaveTypeTable(ctx, roster.TypeTableVersion{ID: "tt1", Weeks: 1, Status: roster.TypeTableDraft},
		[]roster.TypeTableCell{
			{VersionID: "tt1", Week: 1, Day: 1, Slot: "V"},
			{VersionID: "tt1", Week: 1, Day: 7, Slot: "RX"},
		}))
	require.NoError(t, s.mem.ActivateTypeTableVersion(ctx, "tt1", d("2024-11-04")))

	rec := s.do(t, http.MethodGet, "/api/users/u1/expand?start=2024-11-04&end=2024-11-10", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[ExpandResponse](t, rec)
	require.Len(t, resp.Days, 7)
	assert.Equal(t, ExpandedDayDTO{Date: "2024-11-04", Code: "7"}, resp.Days[0])
	assert.Equal(t, ExpandedDayDTO{Date: "2024-11-05"}, resp.Days[1])
	assert.Equal(t, ExpandedDayDTO{Date: "2024-11-10", Code: "RX"}, resp.Days[6])

	rec = s.do(t, http.MethodGet, "/api/users/u1/expand?start=2024-11-10&end=2024-11-04", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckLeave(t *testing.T) {
	s := loaded(t, "s2-long-week")
	require.NoError(t, s.mem.SaveLeaveBalance(context.Background(), roster.LeaveBalance{
		UserID: "u1", Year: 2025,
		LeaveTotal: generic.Days(25), LeaveCarryover: generic.Days(5), LeaveUsed: generic.Days(20),
	}))

	rec := s.do(t, http.MethodGet, "/api/users/u1/leave/check?start=2025-03-03&end=2025-03-07&days=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[map[string]any](t, rec)
	assert.Equal(t, true, res["ok"])

	rec = s.do(t, http.MethodGet, "/api/users/u2/leave/check?start=2025-03-03&end=2025-03-07", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/u1/leave/check?start=2025-03-03&end=2025-03-07&days=lots", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := loaded(t, "s7-holiday-crew")

	rec := s.do(t, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "roster_cache")
}
