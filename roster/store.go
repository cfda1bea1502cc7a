/*
store.go - Repository contract between the engine and persistence

PURPOSE:
  The validator and the cache read everything through Repository. The
  engine never writes: Writer exists for the planner UI, scenario seeding
  and the CLI, and the engine's correctness does not depend on it.

READ CONTRACT:
  - PlanningInRange: rows for [start, end], optionally for a user subset
  - ShiftCodesActive / SpecialCodesAll: the full code space
  - HolidaysInYear: stored rows plus generated variable holidays
  - CyclesInRange: stored cycles intersecting [start, end]
  - HRRules / HRRulesActiveAt: every version / the versions in effect
  - UserWorkPosts: a user's known posts ordered by priority
  - NotesInRange: dates that carry at least one note
  - ApprovedLeaveInRange: granted leave, whose term exempts R7 pairs

  Every call takes a context. Failures are transient from the engine's
  point of view and propagate to the caller.

IMPLEMENTATIONS:
  - store/sqlite: SQLite, the production store
  - roster/store: in-memory, for tests and scenarios

SEE ALSO:
  - ../validator: the only rule-evaluation caller
  - ../cache: the only grid-status caller
*/
package roster

import (
	"context"

	"github.com/warp/roster-engine/generic"
)

// =============================================================================
// REPOSITORY - Read side consumed by the engine
// =============================================================================

type Repository interface {
	// PlanningInRange returns rows with start <= date <= end. A nil users
	// slice means every user.
	PlanningInRange(ctx context.Context, start, end generic.Date, users []UserID) ([]PlanningRow, error)

	ShiftCodesActive(ctx context.Context) ([]ShiftCode, error)
	SpecialCodesAll(ctx context.Context) ([]SpecialCode, error)

	// HolidaysInYear includes Easter-derived holidays for year.
	HolidaysInYear(ctx context.Context, year int) ([]Holiday, error)

	CyclesInRange(ctx context.Context, start, end generic.Date) ([]Cycle, error)

	HRRules(ctx context.Context) ([]HRRule, error)
	HRRulesActiveAt(ctx context.Context, date generic.Date) (map[string]HRRule, error)

	// UserWorkPosts is ordered by ascending priority.
	UserWorkPosts(ctx context.Context, user UserID) ([]UserWorkPost, error)
	AllUserWorkPosts(ctx context.Context) ([]UserWorkPost, error)

	LeaveBalance(ctx context.Context, user UserID, year int) (LeaveBalance, error)
	// ApprovedLeaveInRange returns approved requests overlapping [start, end].
	// A nil users slice means every user.
	ApprovedLeaveInRange(ctx context.Context, start, end generic.Date, users []UserID) ([]LeaveRequest, error)

	NotesInRange(ctx context.Context, start, end generic.Date) ([]generic.Date, error)

	Users(ctx context.Context) ([]User, error)
	User(ctx context.Context, id UserID) (User, error)
	WorkPosts(ctx context.Context) ([]WorkPost, error)

	TypeTableVersions(ctx context.Context) ([]TypeTableVersion, error)
	TypeTableCells(ctx context.Context, versionID string) ([]TypeTableCell, error)
}

// =============================================================================
// WRITER - UI-side writes, never used by rule evaluation
// =============================================================================

type Writer interface {
	UpsertPlanning(ctx context.Context, row PlanningRow) error
	SetPlanningStatus(ctx context.Context, user UserID, year int, month int, status PlanningStatus) error

	SaveUser(ctx context.Context, u User) error
	SaveWorkPost(ctx context.Context, wp WorkPost) error
	SaveUserWorkPost(ctx context.Context, uwp UserWorkPost) error

	SaveShiftCode(ctx context.Context, c ShiftCode) error
	SaveSpecialCode(ctx context.Context, c SpecialCode) error
	// DeleteSpecialCode fails with generic.ErrTermLocked for term owners.
	DeleteSpecialCode(ctx context.Context, id string) error

	SaveHoliday(ctx context.Context, h Holiday) error
	SaveCycle(ctx context.Context, c Cycle) error

	// SaveHRRule activates a new version, closing the one it supersedes.
	SaveHRRule(ctx context.Context, rule HRRule) error

	SaveTypeTable(ctx context.Context, v TypeTableVersion, cells []TypeTableCell) error
	// ActivateTypeTableVersion archives the active version as of from.
	ActivateTypeTableVersion(ctx context.Context, id string, from generic.Date) error

	SaveLeaveBalance(ctx context.Context, b LeaveBalance) error
	SaveLeaveRequest(ctx context.Context, r LeaveRequest) error
}

// Store is a repository that also accepts writes.
type Store interface {
	Repository
	Writer
}
