package roster

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/warp/roster-engine/generic"
)

// =============================================================================
// CYCLE INDEX - red-line periods with local recovery
// =============================================================================

// CycleIndex answers which cycle contains a date. Stored cycles win; a date
// no stored cycle covers gets a synthesised cycle at origin + k × length,
// anchored on the nearest stored cycle (or the configured origin when none
// is stored) and clipped so it never overlaps a stored neighbour.
type CycleIndex struct {
	cycles []Cycle
	origin generic.Date
	length int
	log    *logrus.Logger
}

func NewCycleIndex(cycles []Cycle, origin generic.Date, length int, log *logrus.Logger) *CycleIndex {
	if log == nil {
		log = discardLogger()
	}
	if length < 1 {
		length = 28
	}
	sorted := append([]Cycle(nil), cycles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	return &CycleIndex{cycles: sorted, origin: origin, length: length, log: log}
}

// Containing returns the cycle that covers d.
func (x *CycleIndex) Containing(d generic.Date) Cycle {
	i := sort.Search(len(x.cycles), func(i int) bool { return x.cycles[i].End.AfterOrEqual(d) })
	if i < len(x.cycles) && x.cycles[i].Contains(d) {
		return x.cycles[i]
	}
	c := x.synthesise(d, i)
	x.log.WithError(generic.ErrCycleGap).WithFields(logrus.Fields{
		"date":          d.String(),
		"period_number": c.PeriodNumber,
		"start":         c.Start.String(),
		"end":           c.End.String(),
	}).Warn("Synthesised cycle")
	return c
}

// synthesise builds the cycle for d. next is the index of the first stored
// cycle ending at or after d.
func (x *CycleIndex) synthesise(d generic.Date, next int) Cycle {
	anchor := Cycle{PeriodNumber: 1, Start: x.origin}
	var prev, following *Cycle
	if next > 0 {
		prev = &x.cycles[next-1]
	}
	if next < len(x.cycles) {
		following = &x.cycles[next]
	}
	switch {
	case prev != nil && following != nil:
		if generic.DaysBetween(prev.End, d) <= generic.DaysBetween(d, following.Start) {
			anchor = Cycle{PeriodNumber: prev.PeriodNumber + 1, Start: prev.End.AddDays(1)}
		} else {
			anchor = *following
		}
	case prev != nil:
		anchor = Cycle{PeriodNumber: prev.PeriodNumber + 1, Start: prev.End.AddDays(1)}
	case following != nil:
		anchor = *following
	}

	k := floorDiv(generic.DaysBetween(anchor.Start, d), x.length)
	c := Cycle{
		PeriodNumber: anchor.PeriodNumber + k,
		Start:        anchor.Start.AddDays(k * x.length),
	}
	c.End = c.Start.AddDays(x.length - 1)
	if prev != nil && !c.Start.After(prev.End) {
		c.Start = prev.End.AddDays(1)
	}
	if following != nil && !c.End.Before(following.Start) {
		c.End = following.Start.AddDays(-1)
	}
	return c
}

// InRange returns the cycles intersecting [start, end] in order.
func (x *CycleIndex) InRange(start, end generic.Date) []Cycle {
	var out []Cycle
	for d := start; d.BeforeOrEqual(end); {
		c := x.Containing(d)
		out = append(out, c)
		d = c.End.AddDays(1)
	}
	return out
}

// Gaps returns the holes between consecutive stored cycles.
func (x *CycleIndex) Gaps() []generic.Period {
	var out []generic.Period
	for i := 1; i < len(x.cycles); i++ {
		prev, cur := x.cycles[i-1], x.cycles[i]
		if cur.Start.After(prev.End.AddDays(1)) {
			out = append(out, generic.Period{Start: prev.End.AddDays(1), End: cur.Start.AddDays(-1)})
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
