package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// PERIOD - Inclusive range of calendar days
// =============================================================================

// Period is the inclusive date range [Start, End].
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps returns true if the two inclusive ranges share at least one day.
func (p Period) Overlaps(o Period) bool {
	return !p.End.Before(o.Start) && !o.End.Before(p.Start)
}

// Days returns every date in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Len is the number of days in the period.
func (p Period) Len() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Grow widens the period by n days on both sides.
func (p Period) Grow(n int) Period {
	return Period{Start: p.Start.AddDays(-n), End: p.End.AddDays(n)}
}

// Union returns the smallest period covering both.
func (p Period) Union(o Period) Period {
	u := p
	if o.Start.Before(u.Start) {
		u.Start = o.Start
	}
	if o.End.After(u.End) {
		u.End = o.End
	}
	return u
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// INTERVAL - Absolute instants with EXCLUSIVE overlap semantics
// =============================================================================

// Interval is a span between two instants.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps uses strict inequalities on both sides: an interval ending exactly
// when the other starts (or starting exactly when it ends) does not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

// Contains reports whether t lies in [Start, End].
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// Dates returns the calendar days touched by the interval.
func (i Interval) Dates() Period {
	return Period{Start: DateOf(i.Start), End: DateOf(i.End)}
}

func (i Interval) String() string {
	const layout = "2006-01-02T15:04"
	return "[" + i.Start.Format(layout) + ", " + i.End.Format(layout) + "]"
}

// ShiftOverlapsPeriod builds the shift's absolute interval and tests it against
// [periodStart, periodEnd] with strict inequalities.
func ShiftOverlapsPeriod(date Date, start, end ClockTime, periodStart, periodEnd time.Time) bool {
	return ShiftInterval(date, start, end).Overlaps(Interval{Start: periodStart, End: periodEnd})
}

// =============================================================================
// PERIOD SPEC - "<day>-HH:MM|<day>-HH:MM" weekly recurring window
// =============================================================================

// dayCodes maps the configuration day tokens to Monday-based indexes.
var dayCodes = []string{"ma", "di", "wo", "do", "vr", "za", "zo"}

// PeriodSpec is a weekly recurring window such as "ma-00:00|zo-23:59" (week)
// or "vr-22:00|ma-06:00" (weekend).
type PeriodSpec struct {
	StartDay   int // 0 = Monday … 6 = Sunday
	StartClock ClockTime
	EndDay     int
	EndClock   ClockTime
}

// ParsePeriodSpec parses "<day>-HH:MM|<day>-HH:MM".
func ParsePeriodSpec(s string) (PeriodSpec, error) {
	halves := strings.Split(strings.TrimSpace(s), "|")
	if len(halves) != 2 {
		return PeriodSpec{}, fmt.Errorf("%w: %q needs exactly one '|'", ErrMalformedPeriod, s)
	}
	startDay, startClock, err := parseDayClock(halves[0])
	if err != nil {
		return PeriodSpec{}, fmt.Errorf("%w: %q: %v", ErrMalformedPeriod, s, err)
	}
	endDay, endClock, err := parseDayClock(halves[1])
	if err != nil {
		return PeriodSpec{}, fmt.Errorf("%w: %q: %v", ErrMalformedPeriod, s, err)
	}
	return PeriodSpec{StartDay: startDay, StartClock: startClock, EndDay: endDay, EndClock: endClock}, nil
}

// MustPeriodSpec parses a descriptor and panics on error.
func MustPeriodSpec(s string) PeriodSpec {
	p, err := ParsePeriodSpec(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseDayClock(s string) (int, ClockTime, error) {
	day, clock, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("missing '-' in %q", s)
	}
	idx := -1
	for i, code := range dayCodes {
		if strings.EqualFold(day, code) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, 0, fmt.Errorf("unknown day %q", day)
	}
	c, err := ParseClock(clock)
	if err != nil {
		return 0, 0, err
	}
	return idx, c, nil
}

func (p PeriodSpec) String() string {
	return fmt.Sprintf("%s-%s|%s-%s", dayCodes[p.StartDay], p.StartClock, dayCodes[p.EndDay], p.EndClock)
}

// spanDays is how many days after the start day the end falls.
func (p PeriodSpec) spanDays() int {
	n := (p.EndDay - p.StartDay + 7) % 7
	if n == 0 && p.EndClock <= p.StartClock {
		n = 7
	}
	return n
}

// BoundsContaining returns the occurrence whose start is the latest start
// instant at or before t. If t falls between two occurrences, that is the
// occurrence that most recently ended.
func (p PeriodSpec) BoundsContaining(t time.Time) Interval {
	day := DateOf(t)
	back := (WeekdayIndex(t) - p.StartDay + 7) % 7
	startDate := day.AddDays(-back)
	start := startDate.At(p.StartClock)
	if start.After(t) {
		startDate = startDate.AddDays(-7)
		start = startDate.At(p.StartClock)
	}
	end := startDate.AddDays(p.spanDays()).At(p.EndClock)
	return Interval{Start: start, End: end}
}

// Next returns the occurrence following iv.
func (p PeriodSpec) Next(iv Interval) Interval {
	return p.BoundsContaining(iv.Start.AddDate(0, 0, 7))
}

// WeekBounds snaps date to the configured week start at or before it.
func WeekBounds(date Date, weekDef PeriodSpec) Interval {
	return weekDef.BoundsContaining(date.At(0))
}

// WeekendBounds returns the weekend occurrence containing anchor (or the
// most recent one when anchor falls on a weekday).
func WeekendBounds(anchor time.Time, weekendDef PeriodSpec) Interval {
	return weekendDef.BoundsContaining(anchor)
}

// Tile returns consecutive occurrences covering [from 00:00, to 24:00).
func (p PeriodSpec) Tile(from, to Date) []Interval {
	limit := to.AddDays(1).At(0)
	var out []Interval
	for iv := p.BoundsContaining(from.At(0)); iv.Start.Before(limit); iv = p.Next(iv) {
		out = append(out, iv)
	}
	return out
}
