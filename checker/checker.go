/*
Package checker is the pure constraint engine.

PURPOSE:
  Given planning records with resolved codes, an HR configuration timeline
  and the cycles of the window, return every rule violation. No I/O, no
  clock, no globals: the same input always yields the same Report, in the
  same order.

RULES (evaluation and reporting order):
  R1 min_rest                   rest between consecutive shifts
  R2 max_hours_per_week         hours per configured week
  R3 max_workdays_per_cycle     workdays per red-line cycle
  R4 max_days_between_rest      days between sunday-rest resets
  R5 max_consecutive_workdays   run length of non-breaking codes
  R6 max_consecutive_weekends   streak of worked weekends
  R7 night_then_early           night followed by early next day
  R8 work_post_knowledge        shift on a post the user doesn't know (warning)

BOUNDARIES:
  Shift/period overlap is strict on both sides (generic.Interval.Overlaps).
  A shift ending at exactly 22:00 Friday does not touch a weekend starting
  at 22:00 Friday.

SEGMENTS:
  A date without a record is a gap. R4 and R5 run per segment so a gap is
  never read as either work or rest. A record whose code cannot be
  resolved also splits segments: the record is skipped, not guessed.

DISPATCH:
  Rules look only at CodeInfo flags, shift-type and term. Letters are
  carried for reporting and never compared.

SEE ALSO:
  - rules.go: the eight rules
  - violation.go: Violation, Report, ordering
  - ../validator: loads the window and calls Check
*/
package checker

import (
	"sort"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// INPUT
// =============================================================================

// Record is one planning row with its code resolved. Code "" is a row with
// no shift. Known is false when Code is set but could not be resolved.
type Record struct {
	User  roster.UserID
	Date  generic.Date
	Code  string
	Info  roster.CodeInfo
	Known bool
}

// HasShift reports whether the record carries a resolved shift with times.
func (r Record) HasShift() bool {
	return r.Known && r.Info.HasTimes
}

// Interval returns the shift instants. Only meaningful when HasShift.
func (r Record) Interval() generic.Interval {
	return r.Info.Interval(r.Date)
}

// Input is everything the rules read.
type Input struct {
	Records []Record
	Config  *roster.ConfigTimeline
	Cycles  []roster.Cycle

	// Holidays with CountsAsSundayRest reset the R4 counter on non-work days
	// when holiday_resets_sunday_rest is on.
	Holidays *roster.HolidayCalendar

	// Knows reports whether a user knows a work post (R8).
	Knows func(user roster.UserID, post roster.WorkPostID) bool

	// PostNames maps post IDs to display names for R8 details.
	PostNames map[roster.WorkPostID]string

	// LeaveTerm returns the term of approved leave covering a user's date.
	// R7 treats it like a record carrying that term.
	LeaveTerm func(user roster.UserID, d generic.Date) (roster.Term, bool)
}

// =============================================================================
// CHECK
// =============================================================================

// Check runs every rule.
func Check(in Input) Report {
	return CheckRules(in, Rules...)
}

// CheckRules runs the listed rules for every user in the input.
func CheckRules(in Input, rules ...Rule) Report {
	if in.Config == nil {
		in.Config = roster.SingleConfig(roster.DefaultConfig())
	}
	report := newReport()
	for _, recs := range byUser(in.Records) {
		c := &userCheck{in: in, recs: recs}
		for _, rule := range rules {
			if fn, ok := c.rule(rule); ok {
				report.ByRule[rule] = append(report.ByRule[rule], fn()...)
			}
		}
	}
	for rule, list := range report.ByRule {
		if len(list) == 0 {
			delete(report.ByRule, rule)
			continue
		}
		report.ByRule[rule] = normalise(list)
	}
	return report
}

// byUser groups records by user, each group sorted by date with one record
// per date (the last one wins).
func byUser(records []Record) [][]Record {
	idx := make(map[roster.UserID]map[generic.Date]Record)
	for _, r := range records {
		m, ok := idx[r.User]
		if !ok {
			m = make(map[generic.Date]Record)
			idx[r.User] = m
		}
		m[r.Date] = r
	}
	users := make([]roster.UserID, 0, len(idx))
	for u := range idx {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	out := make([][]Record, 0, len(users))
	for _, u := range users {
		recs := make([]Record, 0, len(idx[u]))
		for _, r := range idx[u] {
			recs = append(recs, r)
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
		out = append(out, recs)
	}
	return out
}

// =============================================================================
// SEGMENTS
// =============================================================================

// Segments splits date-sorted records at missing dates and at records whose
// code could not be resolved. The unresolved records are dropped.
func Segments(recs []Record) [][]Record {
	var (
		out [][]Record
		cur []Record
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
		}
		cur = nil
	}
	for _, r := range recs {
		if r.Code != "" && !r.Known {
			flush()
			continue
		}
		if len(cur) > 0 && !cur[len(cur)-1].Date.AddDays(1).Equal(r.Date) {
			flush()
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

// span returns the date bounds of recs, which must be non-empty and sorted.
func span(recs []Record) generic.Period {
	return generic.Period{Start: recs[0].Date, End: recs[len(recs)-1].Date}
}
