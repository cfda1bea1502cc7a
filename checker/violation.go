package checker

import (
	"errors"
	"sort"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// RULES
// =============================================================================

type Rule string

const (
	RuleMinRest                Rule = "min_rest"
	RuleMaxHoursPerWeek        Rule = "max_hours_per_week"
	RuleMaxWorkdaysPerCycle    Rule = "max_workdays_per_cycle"
	RuleMaxDaysBetweenRest     Rule = "max_days_between_rest"
	RuleMaxConsecutiveWorkdays Rule = "max_consecutive_workdays"
	RuleMaxConsecutiveWeekends Rule = "max_consecutive_weekends"
	RuleNightThenEarly         Rule = "night_then_early"
	RuleWorkPostKnowledge      Rule = "work_post_knowledge"

	// RuleConfiguration carries the single violation reported when the
	// configuration cannot be interpreted.
	RuleConfiguration Rule = "configuration"
)

// Rules in evaluation and reporting order.
var Rules = []Rule{
	RuleMinRest,
	RuleMaxHoursPerWeek,
	RuleMaxWorkdaysPerCycle,
	RuleMaxDaysBetweenRest,
	RuleMaxConsecutiveWorkdays,
	RuleMaxConsecutiveWeekends,
	RuleNightThenEarly,
	RuleWorkPostKnowledge,
}

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Level is the aggregate severity shown in a grid cell.
type Level string

const (
	LevelNone    Level = "none"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

func (s Severity) Level() Level {
	if s == SeverityError {
		return LevelError
	}
	return LevelWarning
}

// Max returns the more severe level.
func (l Level) Max(o Level) Level {
	rank := map[Level]int{LevelNone: 0, "": 0, LevelWarning: 1, LevelError: 2}
	if rank[o] > rank[l] {
		return o
	}
	if l == "" {
		return LevelNone
	}
	return l
}

// =============================================================================
// VIOLATION
// =============================================================================

// Violation is one broken rule.
//
// Span is the inclusive date range the violation is about. Date is the
// primary date (the end of Span). Range is set for rules measured in
// instants (week hours, weekends).
type Violation struct {
	Rule        Rule              `json:"rule"`
	User        roster.UserID     `json:"user"`
	Date        generic.Date      `json:"date"`
	Span        generic.Period    `json:"span"`
	Range       *generic.Interval `json:"range,omitempty"`
	Code        string            `json:"code,omitempty"`
	Severity    Severity          `json:"severity"`
	Description string            `json:"description"`
	Details     map[string]string `json:"details,omitempty"`
}

// Touches reports whether the violation's span contains d.
func (v Violation) Touches(d generic.Date) bool {
	return v.Span.Contains(d)
}

// Overlaps reports whether the violation's span intersects p.
func (v Violation) Overlaps(p generic.Period) bool {
	return v.Span.Overlaps(p)
}

func (v Violation) key() string {
	return string(v.Rule) + "|" + string(v.User) + "|" + v.Span.String() + "|" + v.Code
}

func less(a, b Violation) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c < 0
	}
	if a.User != b.User {
		return a.User < b.User
	}
	if a.Code != b.Code {
		return a.Code < b.Code
	}
	return a.Span.Start.Before(b.Span.Start)
}

// normalise sorts by (date, user, code) and drops duplicates.
func normalise(list []Violation) []Violation {
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
	out := list[:0]
	seen := make(map[string]bool, len(list))
	for _, v := range list {
		k := v.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// =============================================================================
// REPORT
// =============================================================================

// Report groups violations by rule.
type Report struct {
	ByRule map[Rule][]Violation `json:"by_rule"`
}

func newReport() Report {
	return Report{ByRule: make(map[Rule][]Violation)}
}

// ConfigurationReport is the single-violation report returned when the
// configuration is unusable.
func ConfigurationReport(user roster.UserID, window generic.Period, err error) Report {
	v := Violation{
		Rule:        RuleConfiguration,
		User:        user,
		Date:        window.Start,
		Span:        window,
		Severity:    SeverityError,
		Description: err.Error(),
	}
	var cfgErr *generic.ConfigError
	if errors.As(err, &cfgErr) {
		v.Details = map[string]string{"rule": cfgErr.Rule, "value": cfgErr.Value}
	}
	return Report{ByRule: map[Rule][]Violation{RuleConfiguration: {v}}}
}

// All returns every violation, configuration first, then in rule order.
func (r Report) All() []Violation {
	var out []Violation
	out = append(out, r.ByRule[RuleConfiguration]...)
	for _, rule := range Rules {
		out = append(out, r.ByRule[rule]...)
	}
	return out
}

func (r Report) Count() int {
	n := 0
	for _, list := range r.ByRule {
		n += len(list)
	}
	return n
}

// Filter keeps violations for which keep returns true.
func (r Report) Filter(keep func(Violation) bool) Report {
	out := newReport()
	for rule, list := range r.ByRule {
		var kept []Violation
		for _, v := range list {
			if keep(v) {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			out.ByRule[rule] = kept
		}
	}
	return out
}

// HasErrors reports whether any violation has error severity.
func (r Report) HasErrors() bool {
	for _, list := range r.ByRule {
		for _, v := range list {
			if v.Severity == SeverityError {
				return true
			}
		}
	}
	return false
}

// IsConfigurationError reports whether r is a ConfigurationReport.
func (r Report) IsConfigurationError() bool {
	return len(r.ByRule[RuleConfiguration]) > 0
}

// Merge appends o's violations and re-normalises.
func (r Report) Merge(o Report) Report {
	out := newReport()
	for rule, list := range r.ByRule {
		out.ByRule[rule] = append(out.ByRule[rule], list...)
	}
	for rule, list := range o.ByRule {
		out.ByRule[rule] = append(out.ByRule[rule], list...)
	}
	for rule, list := range out.ByRule {
		out.ByRule[rule] = normalise(list)
	}
	return out
}

// Levels returns the highest severity touching each date of p.
func (r Report) Levels(p generic.Period) map[generic.Date]Level {
	out := make(map[generic.Date]Level, p.Len())
	for _, d := range p.Days() {
		out[d] = LevelNone
	}
	for _, list := range r.ByRule {
		for _, v := range list {
			start := v.Span.Start
			if start.Before(p.Start) {
				start = p.Start
			}
			for d := start; d.BeforeOrEqual(v.Span.End) && d.BeforeOrEqual(p.End); d = d.AddDays(1) {
				out[d] = out[d].Max(v.Severity.Level())
			}
		}
	}
	return out
}
