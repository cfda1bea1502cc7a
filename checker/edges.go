package checker

import "github.com/warp/roster-engine/generic"

// =============================================================================
// WINDOW EDGES
// =============================================================================

// OpenEdges reports whether a run measured by R4/R5 or a weekend streak
// measured by R6 touches the first (start) or last (end) date of window
// and reaches into focus. Such a run may continue outside the window, so
// the caller should load more before trusting its counts.
func OpenEdges(in Input, window, focus generic.Period) (start, end bool) {
	if in.Config == nil {
		return false, false
	}
	for _, recs := range byUser(in.Records) {
		c := &userCheck{in: in, recs: recs}
		s, e := c.openRun(window, focus)
		ws, we := c.openStreak(window, focus)
		start = start || s || ws
		end = end || e || we
		if start && end {
			break
		}
	}
	return start, end
}

// openRun looks at the segments touching the window edges. The run before
// the first rest reset (or after the last one) is the longest thing R4
// and R5 measure there.
func (c *userCheck) openRun(window, focus generic.Period) (start, end bool) {
	for _, seg := range Segments(c.recs) {
		first, last := -1, -1
		for i, r := range seg {
			if c.isRestReset(r) {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		if seg[0].Date.Equal(window.Start) {
			reach := seg[len(seg)-1].Date
			if first >= 0 {
				reach = seg[first].Date
			}
			start = start || !reach.Before(focus.Start)
		}
		if seg[len(seg)-1].Date.Equal(window.End) {
			from := seg[0].Date
			if last >= 0 {
				from = seg[last].Date
			}
			end = end || !from.After(focus.End)
		}
	}
	return start, end
}

// openStreak checks the worked weekends at both edges of the window.
func (c *userCheck) openStreak(window, focus generic.Period) (start, end bool) {
	shifts := c.shifts()
	if len(shifts) == 0 {
		return false, false
	}
	from := window.Start.At(0)
	var weekends []generic.Interval
	for _, iv := range c.cfg(window.Start).WeekendDefinition.Tile(window.Start, window.End) {
		if iv.End.After(from) {
			weekends = append(weekends, iv)
		}
	}
	if len(weekends) == 0 {
		return false, false
	}

	lead := 0
	for lead < len(weekends) && worked(shifts, weekends[lead]) {
		lead++
	}
	if lead > 0 && weekends[lead-1].End.After(focus.Start.At(0)) {
		start = true
	}

	trail := len(weekends)
	for trail > 0 && worked(shifts, weekends[trail-1]) {
		trail--
	}
	focusEnd := focus.End.AddDays(1).At(0)
	if trail < len(weekends) && weekends[trail].Start.Before(focusEnd) {
		end = true
	}
	return start, end
}
