/*
handlers.go - HTTP API handlers for the roster engine

PURPOSE:
  Exposes the planning validator, the validation cache and the type-table
  expander over REST. Handles request parsing and JSON serialisation, and
  delegates everything else.

ENDPOINTS:
  Users:
    GET    /api/users                          List users
    GET    /api/users/{id}/violations          ValidateAll (?year=&month=[&all=1])
    POST   /api/users/{id}/check               ValidateShift ({date, code})
    GET    /api/users/{id}/expand              Type-table expansion (?start=&end=)
    GET    /api/users/{id}/leave/check         Leave check (?start=&end=&term=[&days=])
    POST   /api/users/{id}/publish             Publish a month (?year=&month=)

  Grid:
    GET    /api/grid                           Month grid from the cache (?year=&month=)
    POST   /api/grid/invalidate                Mark dates dirty ({start, end})
    GET    /api/grid/stats                     Cache counters
    GET    /api/crew/{date}                    Crew completeness

  Writes:
    POST   /api/planning                       Upsert a cell, invalidates its date
    DELETE /api/planning/{user}/{date}         Clear a cell, invalidates its date
    PUT    /api/special-codes/{id}             Change letters, refreshes terms, invalidates all
    POST   /api/hr-rules                       New rule version, invalidates all

CACHE COHERENCE:
  Every write that can change a grid entry invalidates it here. The cache
  never watches the store.

ERROR HANDLING:
  - 400: Malformed input, unusable configuration values
  - 404: Unknown user, code or scenario
  - 409: Code-space collisions, locked terms, blocking violations
  - 500: Storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/roster-engine/cache"
	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
	"github.com/warp/roster-engine/validator"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is what the API writes through. Both the SQLite and the in-memory
// stores satisfy it.
type Store interface {
	roster.Store
	DeletePlanning(ctx context.Context, user roster.UserID, date generic.Date) error
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     Store
	Validator *validator.Validator
	Cache     *cache.Cache
	Terms     *roster.TermResolver
	Log       *logrus.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires the handler to the process-wide term resolver.
func NewHandler(store Store, v *validator.Validator, c *cache.Cache, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Handler{
		Store:     store,
		Validator: v,
		Cache:     c,
		Terms:     roster.Terms(),
		Log:       log,
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.Users(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	if users == nil {
		users = []roster.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// GetViolations validates one user's month.
// GET /api/users/{id}/violations?year=2024&month=11[&all=1]
func (h *Handler) GetViolations(w http.ResponseWriter, r *http.Request) {
	user := roster.UserID(chi.URLParam(r, "id"))
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}
	opts := validator.Options{IncludeOutside: r.URL.Query().Get("all") == "1"}

	report, err := h.Validator.ValidateAll(r.Context(), user, year, month, opts)
	if err != nil {
		writeDomainError(w, "Validation failed", err)
		return
	}
	all := report.All()
	writeJSON(w, http.StatusOK, ViolationsResponse{
		User:               string(user),
		Year:               year,
		Month:              int(month),
		ConfigurationError: report.IsConfigurationError(),
		Count:              len(all),
		Violations:         nonNil(all),
	})
}

// CheckShift evaluates a code for one cell without saving it.
// POST /api/users/{id}/check
func (h *Handler) CheckShift(w http.ResponseWriter, r *http.Request) {
	user := roster.UserID(chi.URLParam(r, "id"))
	var req CheckShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	violations, err := h.Validator.ValidateShift(r.Context(), user, date, req.Code)
	if err != nil {
		writeDomainError(w, "Check failed", err)
		return
	}
	writeJSON(w, http.StatusOK, CheckShiftResponse{
		OK:         len(violations) == 0,
		Violations: nonNil(violations),
	})
}

// ExpandTypeTable resolves the user's template over a range.
// GET /api/users/{id}/expand?start=2024-11-04&end=2024-11-10
func (h *Handler) ExpandTypeTable(w http.ResponseWriter, r *http.Request) {
	user := roster.UserID(chi.URLParam(r, "id"))
	period, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	codes, err := h.Validator.Expand(r.Context(), user, period)
	if err != nil {
		writeDomainError(w, "Expansion failed", err)
		return
	}
	resp := ExpandResponse{
		User:  string(user),
		Start: period.Start.String(),
		End:   period.End.String(),
		Days:  make([]ExpandedDayDTO, 0, period.Len()),
	}
	for _, d := range period.Days() {
		resp.Days = append(resp.Days, ExpandedDayDTO{Date: d.String(), Code: codes[d]})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckLeave answers whether a leave request fits the balance.
// GET /api/users/{id}/leave/check?start=&end=&term=holiday-leave[&days=]
func (h *Handler) CheckLeave(w http.ResponseWriter, r *http.Request) {
	user := roster.UserID(chi.URLParam(r, "id"))
	period, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}
	term := roster.Term(r.URL.Query().Get("term"))
	if term == "" {
		term = roster.TermHolidayLeave
	}
	req := roster.LeaveRequest{UserID: user, Start: period.Start, End: period.End}
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := generic.ParseAmount(raw, generic.UnitDays)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid days", err)
			return
		}
		req.Days = days
	}

	res, err := h.Validator.CheckLeave(r.Context(), req, term)
	if err != nil {
		writeDomainError(w, "Leave check failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PublishMonth moves a user's month to published unless blocking
// violations exist.
// POST /api/users/{id}/publish?year=2024&month=11
func (h *Handler) PublishMonth(w http.ResponseWriter, r *http.Request) {
	user := roster.UserID(chi.URLParam(r, "id"))
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}

	blocked, err := h.Validator.HasBlockingViolations(r.Context(), user, year, month)
	if err != nil {
		writeDomainError(w, "Validation failed", err)
		return
	}
	if blocked {
		writeError(w, http.StatusConflict, "Month has blocking violations", nil)
		return
	}
	if err := h.Store.SetPlanningStatus(r.Context(), user, year, int(month), roster.StatusPublished); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to publish", err)
		return
	}
	writeJSON(w, http.StatusOK, PublishResponse{
		User: string(user), Year: year, Month: int(month), Status: roster.StatusPublished,
	})
}

// =============================================================================
// GRID HANDLERS
// =============================================================================

// GetGrid returns the cached month, preloading it when any date is missing.
// GET /api/grid?year=2024&month=11
func (h *Handler) GetGrid(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year/month", err)
		return
	}

	entries := h.Cache.Month(year, month)
	if len(entries) < generic.MonthPeriod(year, month).Len() {
		if err := h.Cache.PreloadMonth(r.Context(), year, month, nil); err != nil {
			writeDomainError(w, "Failed to load grid", err)
			return
		}
		entries = h.Cache.Month(year, month)
	}
	writeJSON(w, http.StatusOK, GridResponse{Year: year, Month: int(month), Entries: entries})
}

// InvalidateGrid marks [start, end] dirty.
// POST /api/grid/invalidate
func (h *Handler) InvalidateGrid(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := generic.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start", err)
		return
	}
	end := start
	if req.End != "" {
		if end, err = generic.ParseDate(req.End); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end", err)
			return
		}
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "Invalid range", generic.ErrInvalidPeriod)
		return
	}

	h.Cache.InvalidateRange(start, end)
	writeJSON(w, http.StatusOK, h.Cache.Stats())
}

// GetCacheStats returns cache counters.
func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Cache.Stats())
}

// GetCrew explains the crew status of one date.
// GET /api/crew/2025-01-01
func (h *Handler) GetCrew(w http.ResponseWriter, r *http.Request) {
	date, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	win, err := h.Validator.Load(r.Context(), generic.Period{Start: date, End: date}, nil)
	if err != nil {
		writeDomainError(w, "Failed to load planning", err)
		return
	}
	writeJSON(w, http.StatusOK, roster.CrewCompleteness(date, win.Book, win.RowsOn(date)))
}

// =============================================================================
// WRITE HANDLERS
// =============================================================================

// UpsertPlanning saves one cell and invalidates its date.
// POST /api/planning
func (h *Handler) UpsertPlanning(w http.ResponseWriter, r *http.Request) {
	var req PlanningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if _, err := h.Store.User(r.Context(), roster.UserID(req.UserID)); err != nil {
		writeDomainError(w, "Unknown user", err)
		return
	}

	row := roster.PlanningRow{
		UserID: roster.UserID(req.UserID),
		Date:   date,
		Code:   req.Code,
		Note:   req.Note,
		Status: roster.StatusDraft,
	}
	if err := h.Store.UpsertPlanning(r.Context(), row); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save planning", err)
		return
	}
	h.Cache.InvalidateDate(date)

	writeJSON(w, http.StatusOK, row)
}

// DeletePlanning clears one cell and invalidates its date.
// DELETE /api/planning/{user}/{date}
func (h *Handler) DeletePlanning(w http.ResponseWriter, r *http.Request) {
	user := roster.UserID(chi.URLParam(r, "user"))
	date, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if err := h.Store.DeletePlanning(r.Context(), user, date); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete planning", err)
		return
	}
	h.Cache.InvalidateDate(date)
	w.WriteHeader(http.StatusNoContent)
}

// ListSpecialCodes returns the special codes with the current term mapping.
func (h *Handler) ListSpecialCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.Store.SpecialCodesAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list special codes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"codes": nonNil(codes),
		"terms": h.Terms.Mapping(),
	})
}

// UpdateSpecialCode changes a special code's letters. The term stays with
// the code and the store moves planned rows and template slots to the new
// letters, so rules keep working under them.
// PUT /api/special-codes/{id}
func (h *Handler) UpdateSpecialCode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateSpecialCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	ctx := r.Context()

	specials, err := h.Store.SpecialCodesAll(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load special codes", err)
		return
	}
	idx := -1
	for i, c := range specials {
		if c.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Special code not found", nil)
		return
	}
	updated := specials[idx]
	if req.Code != "" {
		updated.Code = req.Code
	}
	if req.Name != "" {
		updated.Name = req.Name
	}
	specials[idx] = updated

	shifts, err := h.Store.ShiftCodesActive(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load shift codes", err)
		return
	}
	if collisions := roster.CheckCodeSpace(shifts, specials); len(collisions) > 0 {
		writeJSON(w, http.StatusConflict, CollisionResponse{Error: "Code collision", Collisions: collisions})
		return
	}
	if err := h.Store.SaveSpecialCode(ctx, updated); err != nil {
		writeDomainError(w, "Failed to save special code", err)
		return
	}

	h.Terms.Refresh(specials)
	h.Cache.InvalidateAll()
	h.Log.WithFields(logrus.Fields{
		"id":   id,
		"code": updated.Code,
		"term": updated.Term,
	}).Info("Special code updated")

	writeJSON(w, http.StatusOK, updated)
}

// ListHRRules returns every rule version.
func (h *Handler) ListHRRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.HRRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list hr rules", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(rules))
}

// CreateHRRule appends a rule version. Every cached level may change.
// POST /api/hr-rules
func (h *Handler) CreateHRRule(w http.ResponseWriter, r *http.Request) {
	var req CreateHRRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	from, err := generic.ParseDate(req.EffectiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_from", err)
		return
	}

	rule := roster.HRRule{Name: req.Name, Value: req.Value, Unit: req.Unit, EffectiveFrom: from, Active: true}
	if err := h.Store.SaveHRRule(r.Context(), rule); err != nil {
		writeDomainError(w, "Failed to save hr rule", err)
		return
	}
	h.Cache.InvalidateAll()

	writeJSON(w, http.StatusCreated, rule)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to a status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, generic.ErrCodeCollision), errors.Is(err, generic.ErrTermLocked):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err), generic.IsConfigError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func parseYearMonth(r *http.Request) (int, time.Month, error) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		return 0, 0, fmt.Errorf("year: %w", err)
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		return 0, 0, fmt.Errorf("month: %w", err)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month %d outside 1..12", month)
	}
	return year, time.Month(month), nil
}

func parseRange(r *http.Request) (generic.Period, error) {
	q := r.URL.Query()
	start, err := generic.ParseDate(q.Get("start"))
	if err != nil {
		return generic.Period{}, fmt.Errorf("start: %w", err)
	}
	end, err := generic.ParseDate(q.Get("end"))
	if err != nil {
		return generic.Period{}, fmt.Errorf("end: %w", err)
	}
	return generic.NewPeriod(start, end)
}

// nonNil keeps empty lists as [] in JSON.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
