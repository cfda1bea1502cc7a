/*
hrrules.go - HR Rule Registry: versioned rule values resolved per date

PURPOSE:
  Every limit the checker enforces is an HR rule row with an effective
  range. There is no "current" configuration: callers ask for the value
  on the date being evaluated, so a rule changed on 1 March is applied
  to February with the old value and to March with the new one.

RESOLUTION:
  For (name, date) pick the active row with effective_from <= date and
  (effective_to null or date < effective_to). If several match, the one
  with the latest effective_from wins and the overlap is logged. If none
  match, the documented default applies.

VALUE ENCODINGS:
  numeric     "12", "7.5"
  period      "ma-00:00|zo-23:59"
  term list   "holiday-leave,sick"
  day-month   "01-05"
  switch      "true", "false"

  A value that fails to parse is a ConfigError. The validator refuses
  to run on a ConfigError and reports the rule by name.

TIMELINE:
  ConfigTimeline pre-resolves HRConfig at every change point inside a
  window so the pure checker can ask At(date) without error handling.

SEE ALSO:
  - ../checker/checker.go: consumer of HRConfig
  - activation.go: closing the previous version on activation
*/
package roster

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/roster-engine/generic"
)

// =============================================================================
// RULE NAMES AND DEFAULTS
// =============================================================================

const (
	RuleMinRestHours             = "min_rest_hours"
	RuleMaxHoursPerWeek          = "max_hours_per_week"
	RuleMaxWorkdaysPerCycle      = "max_workdays_per_cycle"
	RuleMaxDaysBetweenRest       = "max_days_between_rest"
	RuleMaxConsecutiveWorkdays   = "max_consecutive_workdays"
	RuleMaxConsecutiveWeekends   = "max_consecutive_weekends"
	RuleWeekDefinition           = "week_definition"
	RuleWeekendDefinition        = "weekend_definition"
	RuleNightThenEarlyExceptions = "night_then_early_exceptions"
	RuleLeaveCarryoverExpiry     = "leave_carryover_expiry"
	RuleMaxCarryoverCompensation = "max_carryover_compensation"
	RuleSundayRestResetTerms     = "sunday_rest_reset_terms"
	RuleCycleLengthDays          = "cycle_length_days"
	RuleHolidayResetsRest        = "holiday_resets_sunday_rest"
)

// RuleDefault is the fallback for a rule with no active row.
type RuleDefault struct {
	Name  string
	Value string
	Unit  string
}

// Defaults lists every rule the engine reads.
var Defaults = []RuleDefault{
	{RuleMinRestHours, "12", "hours"},
	{RuleMaxHoursPerWeek, "50", "hours"},
	{RuleMaxWorkdaysPerCycle, "19", "days"},
	{RuleMaxDaysBetweenRest, "7", "days"},
	{RuleMaxConsecutiveWorkdays, "7", "days"},
	{RuleMaxConsecutiveWeekends, "6", "weekends"},
	{RuleWeekDefinition, "ma-00:00|zo-23:59", "period"},
	{RuleWeekendDefinition, "vr-22:00|ma-06:00", "period"},
	{RuleNightThenEarlyExceptions, "holiday-leave,sick", "terms"},
	{RuleLeaveCarryoverExpiry, "01-05", "date"},
	{RuleMaxCarryoverCompensation, "35", "days"},
	{RuleSundayRestResetTerms, "sunday-rest", "terms"},
	{RuleCycleLengthDays, "28", "days"},
	{RuleHolidayResetsRest, "false", "switch"},
}

// DefaultValue returns the documented default for name.
func DefaultValue(name string) (string, bool) {
	for _, d := range Defaults {
		if d.Name == name {
			return d.Value, true
		}
	}
	return "", false
}

// =============================================================================
// HR CONFIG - every rule parsed for one effective date
// =============================================================================

type HRConfig struct {
	MinRestHours             generic.Amount
	MaxHoursPerWeek          generic.Amount
	MaxWorkdaysPerCycle      int
	MaxDaysBetweenRest       int
	MaxConsecutiveWorkdays   int
	MaxConsecutiveWeekends   int
	WeekDefinition           generic.PeriodSpec
	WeekendDefinition        generic.PeriodSpec
	NightThenEarlyExceptions []Term
	LeaveCarryoverExpiry     MonthDay
	MaxCarryoverCompensation generic.Amount
	SundayRestResetTerms     []Term
	CycleLengthDays          int
	// HolidayResetsRest lets a non-work day on a counts-as-sunday-rest
	// holiday reset the days-between-rest counter. Off by default.
	HolidayResetsRest        bool
}

// HasException reports whether t is listed in NightThenEarlyExceptions.
func (c HRConfig) HasException(t Term) bool {
	return t != "" && containsTerm(c.NightThenEarlyExceptions, t)
}

// ResetsRestCounter reports whether t resets the days-between-rest counter.
func (c HRConfig) ResetsRestCounter(t Term) bool {
	return t != "" && containsTerm(c.SundayRestResetTerms, t)
}

func containsTerm(list []Term, t Term) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

// DefaultConfig is HRConfig built from Defaults alone.
func DefaultConfig() HRConfig {
	cfg, err := ParseConfig(func(name string) string {
		v, _ := DefaultValue(name)
		return v
	})
	if err != nil {
		panic(err)
	}
	return cfg
}

// ParseConfig builds an HRConfig from a name → raw value lookup.
// The first value that fails to parse is returned as a *generic.ConfigError.
func ParseConfig(value func(name string) string) (HRConfig, error) {
	var cfg HRConfig
	p := &configParser{value: value}
	cfg.MinRestHours = p.hours(RuleMinRestHours)
	cfg.MaxHoursPerWeek = p.hours(RuleMaxHoursPerWeek)
	cfg.MaxWorkdaysPerCycle = p.count(RuleMaxWorkdaysPerCycle, 0)
	cfg.MaxDaysBetweenRest = p.count(RuleMaxDaysBetweenRest, 0)
	cfg.MaxConsecutiveWorkdays = p.count(RuleMaxConsecutiveWorkdays, 0)
	cfg.MaxConsecutiveWeekends = p.count(RuleMaxConsecutiveWeekends, 0)
	cfg.WeekDefinition = p.period(RuleWeekDefinition)
	cfg.WeekendDefinition = p.period(RuleWeekendDefinition)
	cfg.NightThenEarlyExceptions = p.terms(RuleNightThenEarlyExceptions)
	cfg.LeaveCarryoverExpiry = p.monthDay(RuleLeaveCarryoverExpiry)
	cfg.MaxCarryoverCompensation = p.days(RuleMaxCarryoverCompensation)
	cfg.SundayRestResetTerms = p.terms(RuleSundayRestResetTerms)
	cfg.CycleLengthDays = p.count(RuleCycleLengthDays, 1)
	cfg.HolidayResetsRest = p.flag(RuleHolidayResetsRest)
	return cfg, p.err
}

// ValidateRuleValue checks that value parses for the rule named name.
// Unknown names are accepted as free-form.
func ValidateRuleValue(name, value string) error {
	if _, ok := DefaultValue(name); !ok {
		return nil
	}
	_, err := ParseConfig(func(n string) string {
		if n == name {
			return value
		}
		v, _ := DefaultValue(n)
		return v
	})
	return err
}

// configParser keeps the first error so ParseConfig reads as a list.
type configParser struct {
	value func(string) string
	err   error
}

func (p *configParser) fail(name, raw, reason string) {
	if p.err == nil {
		p.err = &generic.ConfigError{Rule: name, Value: raw, Reason: reason}
	}
}

func (p *configParser) decimal(name string) (decimal.Decimal, string, bool) {
	raw := strings.TrimSpace(p.value(name))
	d, err := decimal.NewFromString(raw)
	if err != nil {
		p.fail(name, raw, "not a number")
		return decimal.Zero, raw, false
	}
	if d.IsNegative() {
		p.fail(name, raw, "must not be negative")
		return decimal.Zero, raw, false
	}
	return d, raw, true
}

func (p *configParser) hours(name string) generic.Amount {
	d, _, _ := p.decimal(name)
	return generic.Amount{Value: d, Unit: generic.UnitHours}
}

func (p *configParser) days(name string) generic.Amount {
	d, _, _ := p.decimal(name)
	return generic.Amount{Value: d, Unit: generic.UnitDays}
}

func (p *configParser) count(name string, min int64) int {
	d, raw, ok := p.decimal(name)
	if !ok {
		return 0
	}
	if !d.Equal(d.Truncate(0)) {
		p.fail(name, raw, "must be a whole number")
		return 0
	}
	if d.IntPart() < min {
		p.fail(name, raw, fmt.Sprintf("must be at least %d", min))
		return 0
	}
	return int(d.IntPart())
}

func (p *configParser) period(name string) generic.PeriodSpec {
	raw := p.value(name)
	spec, err := generic.ParsePeriodSpec(raw)
	if err != nil {
		p.fail(name, raw, err.Error())
	}
	return spec
}

func (p *configParser) terms(name string) []Term {
	raw := p.value(name)
	list, err := ParseTermList(raw)
	if err != nil {
		p.fail(name, raw, err.Error())
	}
	return list
}

func (p *configParser) flag(name string) bool {
	raw := strings.TrimSpace(p.value(name))
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(name, raw, "not a boolean")
	}
	return b
}

func (p *configParser) monthDay(name string) MonthDay {
	raw := p.value(name)
	md, err := ParseMonthDay(raw)
	if err != nil {
		p.fail(name, raw, err.Error())
	}
	return md
}

// =============================================================================
// VALUE ENCODINGS
// =============================================================================

var termPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseTermList parses "holiday-leave,sick". An empty string is an empty list.
func ParseTermList(s string) ([]Term, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []Term
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if !termPattern.MatchString(tok) {
			return nil, fmt.Errorf("invalid term %q", tok)
		}
		out = append(out, Term(tok))
	}
	return out, nil
}

// MonthDay is a "DD-MM" rule value.
type MonthDay struct {
	Month time.Month
	Day   int
}

// ParseMonthDay parses zero-padded "DD-MM".
func ParseMonthDay(s string) (MonthDay, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != '-' {
		return MonthDay{}, fmt.Errorf("expected DD-MM, got %q", s)
	}
	day, err := strconv.Atoi(s[:2])
	if err != nil {
		return MonthDay{}, fmt.Errorf("bad day in %q", s)
	}
	month, err := strconv.Atoi(s[3:])
	if err != nil || month < 1 || month > 12 {
		return MonthDay{}, fmt.Errorf("bad month in %q", s)
	}
	// 2024 is a leap year, so 29-02 is accepted.
	if day < 1 || day > generic.EndOfMonth(2024, time.Month(month)).Day() {
		return MonthDay{}, fmt.Errorf("bad day in %q", s)
	}
	return MonthDay{Month: time.Month(month), Day: day}, nil
}

// In returns the date in year. 29-02 falls back to 28-02 in common years.
func (m MonthDay) In(year int) generic.Date {
	last := generic.EndOfMonth(year, m.Month).Day()
	day := m.Day
	if day > last {
		day = last
	}
	return generic.NewDate(year, m.Month, day)
}

func (m MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", m.Day, int(m.Month))
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry resolves versioned HR rules.
type Registry struct {
	byName map[string][]HRRule
	log    *logrus.Logger
}

// NewRegistry indexes rules by name. A nil logger discards output.
func NewRegistry(rules []HRRule, log *logrus.Logger) *Registry {
	if log == nil {
		log = discardLogger()
	}
	r := &Registry{byName: make(map[string][]HRRule), log: log}
	for _, rule := range rules {
		r.byName[rule.Name] = append(r.byName[rule.Name], rule)
	}
	for name := range r.byName {
		rows := r.byName[name]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].EffectiveFrom.Before(rows[j].EffectiveFrom)
		})
	}
	return r
}

// Resolve returns the row for name in effect on at.
func (r *Registry) Resolve(name string, at generic.Date) (HRRule, bool) {
	var (
		found   HRRule
		matches int
	)
	for _, row := range r.byName[name] {
		if !row.ActiveAt(at) {
			continue
		}
		matches++
		if matches == 1 || !row.EffectiveFrom.Before(found.EffectiveFrom) {
			found = row
		}
	}
	if matches > 1 {
		r.log.WithFields(logrus.Fields{
			"rule":     name,
			"date":     at.String(),
			"versions": matches,
			"chosen":   found.EffectiveFrom.String(),
		}).Warn("Overlapping HR rule versions, latest effective_from wins")
	}
	return found, matches > 0
}

// Value returns the raw value for name on at, falling back to the default.
func (r *Registry) Value(name string, at generic.Date) string {
	if row, ok := r.Resolve(name, at); ok {
		return row.Value
	}
	v, _ := DefaultValue(name)
	return v
}

// ActiveAt returns the resolved row per name, defaults excluded.
func (r *Registry) ActiveAt(at generic.Date) map[string]HRRule {
	out := make(map[string]HRRule)
	for name := range r.byName {
		if row, ok := r.Resolve(name, at); ok {
			out[name] = row
		}
	}
	return out
}

// Config parses every rule for at.
func (r *Registry) Config(at generic.Date) (HRConfig, error) {
	return ParseConfig(func(name string) string { return r.Value(name, at) })
}

// Timeline resolves the configuration for every change point in window.
func (r *Registry) Timeline(window generic.Period) (*ConfigTimeline, error) {
	points := map[generic.Date]bool{window.Start: true}
	for _, rows := range r.byName {
		for _, row := range rows {
			if window.Contains(row.EffectiveFrom) {
				points[row.EffectiveFrom] = true
			}
			if row.EffectiveTo != nil && window.Contains(*row.EffectiveTo) {
				points[*row.EffectiveTo] = true
			}
		}
	}
	starts := make([]generic.Date, 0, len(points))
	for d := range points {
		starts = append(starts, d)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	t := &ConfigTimeline{starts: starts, configs: make([]HRConfig, len(starts))}
	for i, d := range starts {
		cfg, err := r.Config(d)
		if err != nil {
			return nil, err
		}
		t.configs[i] = cfg
	}
	return t, nil
}

// =============================================================================
// CONFIG TIMELINE
// =============================================================================

// ConfigTimeline is a step function date → HRConfig.
type ConfigTimeline struct {
	starts  []generic.Date
	configs []HRConfig
}

// SingleConfig is a timeline that never changes.
func SingleConfig(cfg HRConfig) *ConfigTimeline {
	return &ConfigTimeline{starts: []generic.Date{{}}, configs: []HRConfig{cfg}}
}

// At returns the configuration in effect on d. Dates before the first
// change point get the first configuration.
func (t *ConfigTimeline) At(d generic.Date) HRConfig {
	i := sort.Search(len(t.starts), func(i int) bool { return t.starts[i].After(d) })
	if i == 0 {
		return t.configs[0]
	}
	return t.configs[i-1]
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
