/*
typetable.go - Type-Table Expander

PURPOSE:
  A type-table is an N-week roster template. Each cell holds a slot label
  ("V" early, "L" late, "N" night, "D" day) or a special code's letters
  (rest, reserve). Expansion turns the template into concrete codes for
  one user over a date range.

ALGORITHM for (user, date):
  1. pick the version in effect on date
  2. days      = date - version.effective_from
  3. week      = ((days / 7) + user.start_week - 1) mod N + 1
  4. day       = ISO weekday (1 = Monday)
  5. slot      = cell(week, day)
  6. day-type  = HolidayCalendar.DayType(date)   (holiday → sunday)
  7. special-code letters are returned unchanged
  8. otherwise normalise slot → shift-type, walk the user's posts by
     priority, first (post, day-type, shift-type) code wins
  9. no match → ""

SEE ALSO:
  - codebook.go: the (post, day-type, shift-type) index
  - holidays.go: day-type dispatch
*/
package roster

import (
	"fmt"
	"sort"

	"github.com/warp/roster-engine/generic"
)

// MaxTypeTableWeeks bounds the template length.
const MaxTypeTableWeeks = 52

// =============================================================================
// TYPE TABLE
// =============================================================================

// TypeTable is a version with its cells indexed.
type TypeTable struct {
	Version TypeTableVersion
	slots   map[[2]int]string
}

// NewTypeTable validates cells against the version's week count.
func NewTypeTable(v TypeTableVersion, cells []TypeTableCell) (*TypeTable, error) {
	if v.Weeks < 1 || v.Weeks > MaxTypeTableWeeks {
		return nil, fmt.Errorf("type-table %s: weeks %d outside [1, %d]", v.ID, v.Weeks, MaxTypeTableWeeks)
	}
	t := &TypeTable{Version: v, slots: make(map[[2]int]string, len(cells))}
	for _, c := range cells {
		if c.Week < 1 || c.Week > v.Weeks || c.Day < 1 || c.Day > 7 {
			return nil, fmt.Errorf("type-table %s: cell (%d, %d) out of range", v.ID, c.Week, c.Day)
		}
		t.slots[[2]int{c.Week, c.Day}] = c.Slot
	}
	return t, nil
}

// Slot returns the label at (week, day), "" when empty.
func (t *TypeTable) Slot(week, day int) string {
	return t.slots[[2]int{week, day}]
}

// WeekInCycle returns the 1-based template week for user on d.
func (t *TypeTable) WeekInCycle(startWeek int, d generic.Date) int {
	if startWeek < 1 {
		startWeek = 1
	}
	days := generic.DaysBetween(t.Version.EffectiveFrom, d)
	n := t.Version.Weeks
	w := (floorDiv(days, 7) + startWeek - 1) % n
	if w < 0 {
		w += n
	}
	return w + 1
}

// =============================================================================
// EXPANDER
// =============================================================================

// Expander resolves template slots to codes.
type Expander struct {
	tables []*TypeTable
	book   *CodeBook
}

// NewExpander takes every non-draft version; the one in effect on each date
// is chosen at lookup.
func NewExpander(tables []*TypeTable, book *CodeBook) *Expander {
	sorted := append([]*TypeTable(nil), tables...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version.EffectiveFrom.Before(sorted[j].Version.EffectiveFrom)
	})
	return &Expander{tables: sorted, book: book}
}

// TableAt returns the version in effect on d. With overlapping versions the
// latest effective_from wins.
func (e *Expander) TableAt(d generic.Date) (*TypeTable, bool) {
	for i := len(e.tables) - 1; i >= 0; i-- {
		if e.tables[i].Version.InEffect(d) {
			return e.tables[i], true
		}
	}
	return nil, false
}

// Resolve returns the concrete code for user on d, or "" when the template
// leaves the day open or no code matches.
func (e *Expander) Resolve(user User, d generic.Date) string {
	t, ok := e.TableAt(d)
	if !ok {
		return ""
	}
	slot := t.Slot(t.WeekInCycle(user.StartWeek, d), d.ISOWeekday())
	if slot == "" {
		return ""
	}
	if e.book.IsSpecial(slot) {
		return slot
	}
	st := NormaliseShiftType(slot)
	if st == "" {
		return ""
	}
	dt := e.book.Calendar().DayType(d)
	for _, p := range e.book.Posts(user.ID) {
		if c, ok := e.book.ShiftFor(p.WorkPostID, dt, st); ok {
			return c.Code
		}
	}
	return ""
}

// Expand resolves every date in period. Unresolved dates map to "".
func (e *Expander) Expand(user User, period generic.Period) map[generic.Date]string {
	out := make(map[generic.Date]string, period.Len())
	for _, d := range period.Days() {
		out[d] = e.Resolve(user, d)
	}
	return out
}
