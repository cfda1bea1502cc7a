package checker

import (
	"fmt"
	"strconv"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

// userCheck evaluates rules for one user's date-sorted records.
type userCheck struct {
	in   Input
	recs []Record
}

func (c *userCheck) rule(r Rule) (func() []Violation, bool) {
	switch r {
	case RuleMinRest:
		return c.minRest, true
	case RuleMaxHoursPerWeek:
		return c.maxHoursPerWeek, true
	case RuleMaxWorkdaysPerCycle:
		return c.maxWorkdaysPerCycle, true
	case RuleMaxDaysBetweenRest:
		return c.maxDaysBetweenRest, true
	case RuleMaxConsecutiveWorkdays:
		return c.maxConsecutiveWorkdays, true
	case RuleMaxConsecutiveWeekends:
		return c.maxConsecutiveWeekends, true
	case RuleNightThenEarly:
		return c.nightThenEarly, true
	case RuleWorkPostKnowledge:
		return c.workPostKnowledge, true
	}
	return nil, false
}

func (c *userCheck) cfg(d generic.Date) roster.HRConfig {
	return c.in.Config.At(d)
}

func (c *userCheck) shifts() []Record {
	var out []Record
	for _, r := range c.recs {
		if r.HasShift() {
			out = append(out, r)
		}
	}
	return out
}

func newViolation(rule Rule, r Record, from, to generic.Date) Violation {
	return Violation{
		Rule:     rule,
		User:     r.User,
		Date:     to,
		Span:     generic.Period{Start: from, End: to},
		Code:     r.Code,
		Severity: SeverityError,
		Details:  map[string]string{},
	}
}

// =============================================================================
// R1 - MINIMUM REST BETWEEN SHIFTS
// =============================================================================

// minRest pairs each shift with the previous one. A code that resets the
// 12h rest (rest days, leave) ends the chain.
func (c *userCheck) minRest() []Violation {
	var (
		out  []Violation
		prev *Record
	)
	for i := range c.recs {
		r := c.recs[i]
		if !r.Known {
			continue
		}
		if r.Info.Behaviour.Resets12hRest {
			prev = nil
			continue
		}
		if !r.Info.HasTimes {
			continue
		}
		if prev != nil {
			rest := generic.RestBetween(prev.Date, prev.Info.Start, prev.Info.End, r.Date, r.Info.Start)
			required := c.cfg(r.Date).MinRestHours
			if rest.LessThan(required) {
				v := newViolation(RuleMinRest, r, prev.Date, r.Date)
				v.Description = fmt.Sprintf("%sh rest between %s (%s) and %s (%s), minimum %sh",
					rest, prev.Date, prev.Code, r.Date, r.Code, required)
				v.Details["rest_hours"] = rest.String()
				v.Details["min_rest_hours"] = required.String()
				v.Details["previous_code"] = prev.Code
				out = append(out, v)
			}
		}
		prev = &c.recs[i]
	}
	return out
}

// =============================================================================
// R2 - MAX HOURS PER WEEK
// =============================================================================

// maxHoursPerWeek tiles weeks from week_definition and counts each shift
// once, in the first week it strictly overlaps.
func (c *userCheck) maxHoursPerWeek() []Violation {
	shifts := c.shifts()
	if len(shifts) == 0 {
		return nil
	}
	first, last := shifts[0].Date, shifts[len(shifts)-1].Date
	limit := last.AddDays(2).At(0)
	assigned := make([]bool, len(shifts))

	var out []Violation
	spec := c.cfg(first).WeekDefinition
	for week := spec.BoundsContaining(first.At(0)); week.Start.Before(limit); {
		weekStart := generic.DateOf(week.Start)
		total := generic.NewAmountFromInt(0, generic.UnitHours)
		count := 0
		for i, s := range shifts {
			if assigned[i] || !s.Interval().Overlaps(week) {
				continue
			}
			assigned[i] = true
			total = total.Add(s.Info.Duration())
			count++
		}
		allowed := c.cfg(weekStart).MaxHoursPerWeek
		if count > 0 && total.GreaterThan(allowed) {
			iv := week
			v := newViolation(RuleMaxHoursPerWeek, Record{User: shifts[0].User}, weekStart, generic.DateOf(week.End))
			v.Range = &iv
			v.Description = fmt.Sprintf("%sh planned in week %s, maximum %sh", total, iv, allowed)
			v.Details["total_hours"] = total.String()
			v.Details["max_hours_per_week"] = allowed.String()
			out = append(out, v)
		}
		spec = c.cfg(weekStart.AddDays(7)).WeekDefinition
		week = spec.Next(week)
	}
	return out
}

// =============================================================================
// R3 - MAX WORKDAYS PER CYCLE
// =============================================================================

func (c *userCheck) maxWorkdaysPerCycle() []Violation {
	if len(c.recs) == 0 {
		return nil
	}
	window := span(c.recs)
	var out []Violation
	for _, cycle := range c.in.Cycles {
		if !cycle.Period().Overlaps(window) {
			continue
		}
		count := 0
		for _, r := range c.recs {
			if r.Known && r.Info.Behaviour.CountsAsWorkday && cycle.Contains(r.Date) {
				count++
			}
		}
		allowed := c.cfg(cycle.Start).MaxWorkdaysPerCycle
		if count > allowed {
			v := newViolation(RuleMaxWorkdaysPerCycle, Record{User: c.recs[0].User}, cycle.Start, cycle.End)
			v.Description = fmt.Sprintf("%d workdays in cycle %d (%s), maximum %d",
				count, cycle.PeriodNumber, cycle.Period(), allowed)
			v.Details["workday_count"] = strconv.Itoa(count)
			v.Details["max_workdays_per_cycle"] = strconv.Itoa(allowed)
			v.Details["period_number"] = strconv.Itoa(cycle.PeriodNumber)
			out = append(out, v)
		}
	}
	return out
}

// =============================================================================
// R4 - MAX DAYS BETWEEN SUNDAY-REST
// =============================================================================

// isRestReset reports whether r resets the days-between-rest counter: its
// term is listed in sunday_rest_reset_terms, or holiday_resets_sunday_rest
// is on and r is a non-work day on a holiday that counts as sunday rest.
func (c *userCheck) isRestReset(r Record) bool {
	cfg := c.cfg(r.Date)
	if r.Known && cfg.ResetsRestCounter(r.Info.Term) {
		return true
	}
	if !cfg.HolidayResetsRest {
		return false
	}
	if h, ok := c.in.Holidays.Holiday(r.Date); ok && h.CountsAsSundayRest {
		return r.Code == "" || (r.Known && !r.Info.Behaviour.CountsAsWorkday)
	}
	return false
}

func (c *userCheck) maxDaysBetweenRest() []Violation {
	var out []Violation
	for _, seg := range Segments(c.recs) {
		var rests []int
		for i, r := range seg {
			if c.isRestReset(r) {
				rests = append(rests, i)
			}
		}
		emit := func(from, to int, key string, days int) {
			end := seg[to]
			allowed := c.cfg(end.Date).MaxDaysBetweenRest
			if days <= allowed {
				return
			}
			v := newViolation(RuleMaxDaysBetweenRest, Record{User: end.User}, seg[from].Date, end.Date)
			v.Description = fmt.Sprintf("%d days without sunday rest (%s to %s), maximum %d",
				days, seg[from].Date, end.Date, allowed)
			v.Details[key] = strconv.Itoa(days)
			v.Details["max_days_between_rest"] = strconv.Itoa(allowed)
			out = append(out, v)
		}
		if len(rests) == 0 {
			emit(0, len(seg)-1, "days_without_rest", len(seg))
			continue
		}
		// leading run before the first rest
		emit(0, rests[0], "days_before_rest", rests[0])
		for k := 1; k < len(rests); k++ {
			emit(rests[k-1], rests[k], "days_since_rest", rests[k]-rests[k-1]-1)
		}
		// trailing run after the last rest
		lastRest := rests[len(rests)-1]
		emit(lastRest, len(seg)-1, "days_since_rest", len(seg)-1-lastRest)
	}
	return out
}

// =============================================================================
// R5 - MAX CONSECUTIVE WORKDAYS
// =============================================================================

func (c *userCheck) maxConsecutiveWorkdays() []Violation {
	var out []Violation
	for _, seg := range Segments(c.recs) {
		start := -1
		closeRun := func(end int) {
			if start < 0 {
				return
			}
			n := end - start + 1
			allowed := c.cfg(seg[end].Date).MaxConsecutiveWorkdays
			if n > allowed {
				v := newViolation(RuleMaxConsecutiveWorkdays, seg[end], seg[start].Date, seg[end].Date)
				v.Description = fmt.Sprintf("%d consecutive workdays (%s to %s), maximum %d",
					n, seg[start].Date, seg[end].Date, allowed)
				v.Details["run_length"] = strconv.Itoa(n)
				v.Details["max_consecutive_workdays"] = strconv.Itoa(allowed)
				out = append(out, v)
			}
			start = -1
		}
		for i, r := range seg {
			if r.Code == "" || r.Info.Behaviour.BreaksWorkStreak {
				closeRun(i - 1)
				continue
			}
			if start < 0 {
				start = i
			}
		}
		closeRun(len(seg) - 1)
	}
	return out
}

// =============================================================================
// R6 - MAX CONSECUTIVE WEEKENDS
// =============================================================================

func (c *userCheck) maxConsecutiveWeekends() []Violation {
	shifts := c.shifts()
	if len(shifts) == 0 {
		return nil
	}
	first, last := shifts[0].Date, shifts[len(shifts)-1].Date
	limit := last.AddDays(2).At(0)
	user := shifts[0].User

	var (
		out    []Violation
		streak []generic.Interval
	)
	closeStreak := func() {
		if len(streak) == 0 {
			return
		}
		lastWeekend := streak[len(streak)-1]
		allowed := c.cfg(generic.DateOf(lastWeekend.Start)).MaxConsecutiveWeekends
		if len(streak) > allowed {
			iv := generic.Interval{Start: streak[0].Start, End: lastWeekend.End}
			v := newViolation(RuleMaxConsecutiveWeekends, Record{User: user}, generic.DateOf(iv.Start), generic.DateOf(iv.End))
			v.Range = &iv
			v.Description = fmt.Sprintf("%d consecutive weekends worked (%s), maximum %d", len(streak), iv, allowed)
			v.Details["consecutive_weekends"] = strconv.Itoa(len(streak))
			v.Details["max_consecutive_weekends"] = strconv.Itoa(allowed)
			out = append(out, v)
		}
		streak = nil
	}

	spec := c.cfg(first).WeekendDefinition
	for weekend := spec.BoundsContaining(first.At(0)); weekend.Start.Before(limit); {
		if worked(shifts, weekend) {
			streak = append(streak, weekend)
		} else {
			closeStreak()
		}
		spec = c.cfg(generic.DateOf(weekend.Start).AddDays(7)).WeekendDefinition
		weekend = spec.Next(weekend)
	}
	closeStreak()
	return out
}

func worked(shifts []Record, weekend generic.Interval) bool {
	for _, s := range shifts {
		iv := s.Interval()
		if !iv.Start.Before(weekend.End) {
			return false
		}
		if iv.Overlaps(weekend) {
			return true
		}
	}
	return false
}

// =============================================================================
// R7 - NIGHT THEN EARLY
// =============================================================================

func (c *userCheck) nightThenEarly() []Violation {
	var out []Violation
	for i := 1; i < len(c.recs); i++ {
		a, b := c.recs[i-1], c.recs[i]
		if !a.Date.AddDays(1).Equal(b.Date) || !a.Known || !b.Known {
			continue
		}
		if a.Info.ShiftType != roster.ShiftNight || b.Info.ShiftType != roster.ShiftEarly {
			continue
		}
		cfg := c.cfg(b.Date)
		if c.exempt(cfg, a) || c.exempt(cfg, b) {
			continue
		}
		v := newViolation(RuleNightThenEarly, b, a.Date, b.Date)
		v.Description = fmt.Sprintf("night %s on %s followed by early %s on %s", a.Code, a.Date, b.Code, b.Date)
		v.Details["night_code"] = a.Code
		v.Details["early_code"] = b.Code
		out = append(out, v)
	}
	return out
}

// exempt reports whether r or leave granted on its date carries a term listed
// in night_then_early_exceptions. Shift codes have no term, so for a night
// and early pair only granted leave can exempt it.
func (c *userCheck) exempt(cfg roster.HRConfig, r Record) bool {
	if cfg.HasException(r.Info.Term) {
		return true
	}
	if c.in.LeaveTerm == nil {
		return false
	}
	t, ok := c.in.LeaveTerm(r.User, r.Date)
	return ok && cfg.HasException(t)
}

// =============================================================================
// R8 - WORK-POST KNOWLEDGE
// =============================================================================

func (c *userCheck) workPostKnowledge() []Violation {
	if c.in.Knows == nil {
		return nil
	}
	var out []Violation
	for _, r := range c.recs {
		if !r.Known || r.Info.Kind != roster.KindShift || r.Info.WorkPostID == "" {
			continue
		}
		if c.in.Knows(r.User, r.Info.WorkPostID) {
			continue
		}
		name := c.in.PostNames[r.Info.WorkPostID]
		if name == "" {
			name = string(r.Info.WorkPostID)
		}
		v := newViolation(RuleWorkPostKnowledge, r, r.Date, r.Date)
		v.Severity = SeverityWarning
		v.Description = fmt.Sprintf("%s on %s belongs to work post %s, not known by %s", r.Code, r.Date, name, r.User)
		v.Details["work_post"] = name
		out = append(out, v)
	}
	return out
}
