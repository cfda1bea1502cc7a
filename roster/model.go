/*
Package roster holds the scheduling domain: the records planners edit, the
versioned configuration the rules read, and the lookups that turn a few
letters in a grid cell into a shift with behaviour.

PURPOSE:
  The constraint checker never sees storage rows directly. This package
  owns the translation:
  - HR rules → HRConfig resolved for an effective date (hrrules.go)
  - special-code terms → current letters (terms.go)
  - cell letters → CodeInfo with flags and times (codebook.go)
  - type-table slots → concrete codes per user and date (typetable.go)
  - dates → cycles, synthesised when the store has a hole (cycles.go)
  - dates → day-type, holidays first (holidays.go)

BEHAVIOUR, NOT LETTERS:
  Rules interrogate codes through three flags (CountsAsWorkday,
  Resets12hRest, BreaksWorkStreak) and an optional Term. Letters are what
  the user types; they change. Nothing in this package compares letters
  to "RX" or "VV".

KEY CONCEPTS IN THIS FILE (model.go):
  - PlanningRow: (user, date, code | "", note, status)
  - ShiftCode / SpecialCode: the two kinds of code a row can carry
  - Cycle, Holiday, TypeTableVersion, HRRule, LeaveBalance: inputs

SEE ALSO:
  - store.go: Repository contract
  - ../checker: the pure rule engine consuming these types
*/
package roster

import (
	"strings"

	"github.com/warp/roster-engine/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string

type WorkPostID string

// =============================================================================
// DAY TYPE / SHIFT TYPE
// =============================================================================

// DayType selects which shift definitions apply on a date.
// Holidays always resolve to DaySunday (see HolidayCalendar.DayType).
type DayType string

const (
	DayWeekday  DayType = "weekday"
	DaySaturday DayType = "saturday"
	DaySunday   DayType = "sunday"
)

// DayTypes in lookup order.
var DayTypes = []DayType{DayWeekday, DaySaturday, DaySunday}

// ShiftType is the normalised kind of a shift within its day-type.
type ShiftType string

const (
	ShiftEarly ShiftType = "early"
	ShiftLate  ShiftType = "late"
	ShiftNight ShiftType = "night"
	ShiftDay   ShiftType = "day"
)

// NormaliseShiftType maps a slot label or shift-type spelling to a ShiftType.
// Unknown labels return "".
func NormaliseShiftType(label string) ShiftType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "v", "vroeg", "early":
		return ShiftEarly
	case "l", "laat", "late":
		return ShiftLate
	case "n", "nacht", "night":
		return ShiftNight
	case "d", "dag", "day":
		return ShiftDay
	}
	return ""
}

// =============================================================================
// TERMS - stable identifiers for special-code purposes
// =============================================================================

// Term locks the purpose of a special code independently of its letters.
type Term string

const (
	TermHolidayLeave     Term = "holiday-leave"
	TermSundayRest       Term = "sunday-rest"
	TermSaturdayRest     Term = "saturday-rest"
	TermSick             Term = "sick"
	TermCompensationDay  Term = "compensation-day"
	TermReductionOfHours Term = "reduction-of-hours"
)

// =============================================================================
// CODES
// =============================================================================

// Behaviour carries the flags every rule dispatches on.
type Behaviour struct {
	CountsAsWorkday  bool `json:"counts_as_workday" yaml:"counts_as_workday"`
	Resets12hRest    bool `json:"resets_12h_rest" yaml:"resets_12h_rest"`
	BreaksWorkStreak bool `json:"breaks_work_streak" yaml:"breaks_work_streak"`
}

// ShiftCode is a (work post, day-type, shift-type) triple with times.
// An End at or before Start means the shift crosses midnight.
type ShiftCode struct {
	ID         string            `json:"id"`
	Code       string            `json:"code"`
	WorkPostID WorkPostID        `json:"work_post_id"`
	DayType    DayType           `json:"day_type"`
	ShiftType  ShiftType         `json:"shift_type"`
	Start      generic.ClockTime `json:"start"`
	End        generic.ClockTime `json:"end"`
	Behaviour
	IsCritical bool `json:"is_critical"`
	Active     bool `json:"active"`
}

// Duration returns the shift length in hours.
func (c ShiftCode) Duration() generic.Amount {
	return generic.ShiftDuration(c.Start, c.End)
}

// SpecialCode is a globally valid code (leave, rest, sickness).
type SpecialCode struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	Term Term   `json:"term,omitempty"`
	Behaviour
}

// =============================================================================
// PEOPLE AND POSTS
// =============================================================================

type User struct {
	ID        UserID `json:"id"`
	Name      string `json:"name"`
	StartWeek int    `json:"start_week"` // 1-based offset into the type-table
	Active    bool   `json:"active"`
}

type WorkPost struct {
	ID     WorkPostID `json:"id"`
	Name   string     `json:"name"`
	Active bool       `json:"active"`
}

// UserWorkPost records that a user knows a post. Lower priority is preferred.
type UserWorkPost struct {
	UserID     UserID     `json:"user_id"`
	WorkPostID WorkPostID `json:"work_post_id"`
	Priority   int        `json:"priority"`
}

// =============================================================================
// PLANNING
// =============================================================================

type PlanningStatus string

const (
	StatusDraft     PlanningStatus = "draft"
	StatusPublished PlanningStatus = "published"
)

// PlanningRow is one grid cell. Code "" means no shift assigned; that is
// still a row, unlike a date with no row at all.
type PlanningRow struct {
	UserID UserID         `json:"user_id"`
	Date   generic.Date   `json:"date"`
	Code   string         `json:"code,omitempty"`
	Note   string         `json:"note,omitempty"`
	Status PlanningStatus `json:"status"`
}

// =============================================================================
// CALENDAR
// =============================================================================

type Holiday struct {
	Date               generic.Date `json:"date"`
	Name               string       `json:"name"`
	CountsAsSundayRest bool         `json:"counts_as_sunday_rest"`
	IsVariable         bool         `json:"is_variable"`
}

// Cycle is one "red line" accounting period.
type Cycle struct {
	PeriodNumber int          `json:"period_number"`
	Start        generic.Date `json:"start"`
	End          generic.Date `json:"end"`
}

func (c Cycle) Period() generic.Period {
	return generic.Period{Start: c.Start, End: c.End}
}

func (c Cycle) Contains(d generic.Date) bool {
	return c.Period().Contains(d)
}

// =============================================================================
// TYPE TABLE
// =============================================================================

type TypeTableStatus string

const (
	TypeTableDraft    TypeTableStatus = "draft"
	TypeTableActive   TypeTableStatus = "active"
	TypeTableArchived TypeTableStatus = "archived"
)

type TypeTableVersion struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Weeks         int             `json:"weeks"`
	Status        TypeTableStatus `json:"status"`
	EffectiveFrom generic.Date    `json:"effective_from"`
	EffectiveTo   *generic.Date   `json:"effective_to,omitempty"`
}

// InEffect reports whether the version governs date d.
// Drafts never do.
func (v TypeTableVersion) InEffect(d generic.Date) bool {
	if v.Status == TypeTableDraft || v.EffectiveFrom.IsZero() {
		return false
	}
	if d.Before(v.EffectiveFrom) {
		return false
	}
	return v.EffectiveTo == nil || d.Before(*v.EffectiveTo)
}

type TypeTableCell struct {
	VersionID string `json:"version_id"`
	Week      int    `json:"week"` // 1..N
	Day       int    `json:"day"`  // 1 = Monday … 7 = Sunday
	Slot      string `json:"slot"`
}

// =============================================================================
// HR RULES
// =============================================================================

// HRRule is one version of a named rule. A nil EffectiveTo is open-ended.
type HRRule struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Value         string        `json:"value"`
	Unit          string        `json:"unit"`
	EffectiveFrom generic.Date  `json:"effective_from"`
	EffectiveTo   *generic.Date `json:"effective_to,omitempty"`
	Active        bool          `json:"active"`
}

// ActiveAt reports whether this version applies on date d: from is inclusive,
// to is exclusive.
func (r HRRule) ActiveAt(d generic.Date) bool {
	if !r.Active || d.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || d.Before(*r.EffectiveTo)
}

// =============================================================================
// LEAVE
// =============================================================================

// LeaveBalance holds read-only counters for one user and year.
type LeaveBalance struct {
	UserID         UserID         `json:"user_id"`
	Year           int            `json:"year"`
	LeaveTotal     generic.Amount `json:"leave_total"`
	LeaveCarryover generic.Amount `json:"leave_carryover"`
	LeaveUsed      generic.Amount `json:"leave_used"`
	CompTotal      generic.Amount `json:"comp_total"`
	CompCarryover  generic.Amount `json:"comp_carryover"`
	CompUsed       generic.Amount `json:"comp_used"`
}

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveDenied   LeaveStatus = "denied"
)

type LeaveRequest struct {
	ID          string         `json:"id"`
	UserID      UserID         `json:"user_id"`
	Start       generic.Date   `json:"start"`
	End         generic.Date   `json:"end"`
	Days        generic.Amount `json:"days"`
	Status      LeaveStatus    `json:"status"`
	GrantedTerm Term           `json:"granted_term,omitempty"`
}
