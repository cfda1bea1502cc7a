/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

Domain types that already carry JSON tags (checker.Violation, cache.Entry,
roster.CrewResult, roster.LeaveCheck) are returned as they are.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.
*/
package api

import (
	"github.com/warp/roster-engine/cache"
	"github.com/warp/roster-engine/checker"
	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// VALIDATION
// =============================================================================

type ViolationsResponse struct {
	User               string              `json:"user"`
	Year               int                 `json:"year"`
	Month              int                 `json:"month"`
	ConfigurationError bool                `json:"configuration_error"`
	Count              int                 `json:"count"`
	Violations         []checker.Violation `json:"violations"`
}

// CheckShiftRequest is a what-if for one cell.
type CheckShiftRequest struct {
	Date string `json:"date"`
	Code string `json:"code"`
}

type CheckShiftResponse struct {
	OK         bool                `json:"ok"`
	Violations []checker.Violation `json:"violations"`
}

type PublishResponse struct {
	User   string                `json:"user"`
	Year   int                   `json:"year"`
	Month  int                   `json:"month"`
	Status roster.PlanningStatus `json:"status"`
}

// =============================================================================
// GRID
// =============================================================================

type GridResponse struct {
	Year    int           `json:"year"`
	Month   int           `json:"month"`
	Entries []cache.Entry `json:"entries"`
}

type InvalidateRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// =============================================================================
// EXPANSION
// =============================================================================

type ExpandedDayDTO struct {
	Date string `json:"date"`
	Code string `json:"code,omitempty"`
}

type ExpandResponse struct {
	User  string           `json:"user"`
	Start string           `json:"start"`
	End   string           `json:"end"`
	Days  []ExpandedDayDTO `json:"days"`
}

// =============================================================================
// WRITES
// =============================================================================

type PlanningRequest struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Code   string `json:"code"`
	Note   string `json:"note"`
}

// UpdateSpecialCodeRequest changes letters and/or name. The term and the
// behaviour flags are not editable here.
type UpdateSpecialCodeRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type CreateHRRuleRequest struct {
	Name          string `json:"name"`
	Value         string `json:"value"`
	Unit          string `json:"unit"`
	EffectiveFrom string `json:"effective_from"`
}

type CollisionResponse struct {
	Error      string             `json:"error"`
	Collisions []roster.Collision `json:"collisions"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Month       string `json:"month"`
}

// ErrorResponse is returned for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
