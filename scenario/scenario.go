/*
Package scenario loads demo and test rosters from YAML.

PURPOSE:
  A scenario is a small, literal roster: work posts, users, the code space,
  holidays, cycles, HR rule overrides and planning rows, plus the results
  the engine is expected to produce. The built-in scenarios cover the
  classic edge cases (rest across a month boundary, a 56h week, a crew
  check on a holiday) and double as end-to-end fixtures.

FORMAT:
  Every built-in scenario extends base.yaml, which holds the shared code
  space and users. A scenario file lists only what it adds:

    id: s1-rest-across-month
    month: 2024-11
    planning:
      - {user: u1, date: 2024-10-31, code: "9"}
    runs:
      - {user: u1, from: 2024-10-27, to: 2024-11-06, codes: ["7"]}
    expect:
      - {rule: min_rest, count: 1, date: 2024-11-01}

  A run repeats its codes cyclically over [from, to].

USAGE:
  s, err := scenario.Builtin("s1-rest-across-month")
  err = s.Apply(ctx, store)

SEE ALSO:
  - data/*.yaml: the built-in scenarios
  - ../api: POST /api/scenarios/{id}
  - ../cmd/rosterctl: seed --file
*/
package scenario

import (
	"context"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

//go:embed data/*.yaml
var builtin embed.FS

const baseFile = "data/base.yaml"

// =============================================================================
// FILE FORMAT
// =============================================================================

type Scenario struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Month is the month the expectations are checked against (YYYY-MM).
	Month string `yaml:"month"`

	WorkPosts    []WorkPost    `yaml:"work_posts"`
	Users        []User        `yaml:"users"`
	ShiftCodes   []ShiftCode   `yaml:"shift_codes"`
	SpecialCodes []SpecialCode `yaml:"special_codes"`
	Holidays     []Holiday     `yaml:"holidays"`
	Cycles       []Cycle       `yaml:"cycles"`
	HRRules      []HRRule      `yaml:"hr_rules"`
	Planning     []Row         `yaml:"planning"`
	Runs         []Run         `yaml:"runs"`

	Expect []Expectation `yaml:"expect"`
	Crew   []CrewExpect  `yaml:"crew"`
}

type WorkPost struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type User struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	StartWeek int      `yaml:"start_week"`
	Posts     []string `yaml:"posts"`
}

type ShiftCode struct {
	ID        string `yaml:"id"`
	Code      string `yaml:"code"`
	Post      string `yaml:"post"`
	DayType   string `yaml:"day_type"`
	ShiftType string `yaml:"shift_type"`
	Start     string `yaml:"start"`
	End       string `yaml:"end"`
	Critical  bool   `yaml:"critical"`

	roster.Behaviour `yaml:",inline"`
}

type SpecialCode struct {
	ID   string `yaml:"id"`
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Term string `yaml:"term"`

	roster.Behaviour `yaml:",inline"`
}

type Holiday struct {
	Date               string `yaml:"date"`
	Name               string `yaml:"name"`
	CountsAsSundayRest bool   `yaml:"counts_as_sunday_rest"`
}

type Cycle struct {
	Number int    `yaml:"number"`
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
}

type HRRule struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	From  string `yaml:"from"`
}

type Row struct {
	User string `yaml:"user"`
	Date string `yaml:"date"`
	Code string `yaml:"code"`
	Note string `yaml:"note"`
}

type Run struct {
	User  string   `yaml:"user"`
	From  string   `yaml:"from"`
	To    string   `yaml:"to"`
	Codes []string `yaml:"codes"`
}

// Expectation is a violation count for one rule, optionally pinned to a
// primary date and detail values.
type Expectation struct {
	Rule    string            `yaml:"rule"`
	User    string            `yaml:"user"`
	Count   int               `yaml:"count"`
	Date    string            `yaml:"date"`
	Details map[string]string `yaml:"details"`
}

type CrewExpect struct {
	Date   string `yaml:"date"`
	Status string `yaml:"status"`
}

// =============================================================================
// LOADING
// =============================================================================

// Parse decodes one scenario document.
func Parse(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &s, nil
}

func parseFile(name string) (*Scenario, error) {
	f, err := builtin.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Base returns the shared code space and users.
func Base() (*Scenario, error) {
	return parseFile(baseFile)
}

// Builtin returns the built-in scenario id merged over the base.
func Builtin(id string) (*Scenario, error) {
	all, err := List()
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("scenario %s: %w", id, generic.ErrNotFound)
}

// List returns every built-in scenario, merged over the base, by ID.
func List() ([]*Scenario, error) {
	base, err := Base()
	if err != nil {
		return nil, err
	}
	entries, err := builtin.ReadDir("data")
	if err != nil {
		return nil, err
	}
	var out []*Scenario
	for _, e := range entries {
		name := "data/" + e.Name()
		if name == baseFile || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		s, err := parseFile(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, base.Extend(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Extend returns s with the entities of base prepended. Identity fields and
// expectations come from s.
func (base *Scenario) Extend(s *Scenario) *Scenario {
	out := *s
	out.WorkPosts = append(append([]WorkPost(nil), base.WorkPosts...), s.WorkPosts...)
	out.Users = append(append([]User(nil), base.Users...), s.Users...)
	out.ShiftCodes = append(append([]ShiftCode(nil), base.ShiftCodes...), s.ShiftCodes...)
	out.SpecialCodes = append(append([]SpecialCode(nil), base.SpecialCodes...), s.SpecialCodes...)
	out.Holidays = append(append([]Holiday(nil), base.Holidays...), s.Holidays...)
	out.Cycles = append(append([]Cycle(nil), base.Cycles...), s.Cycles...)
	out.HRRules = append(append([]HRRule(nil), base.HRRules...), s.HRRules...)
	out.Planning = append(append([]Row(nil), base.Planning...), s.Planning...)
	out.Runs = append(append([]Run(nil), base.Runs...), s.Runs...)
	return &out
}

// Period returns the scenario month.
func (s *Scenario) Period() (generic.Period, error) {
	d, err := generic.ParseDate(s.Month + "-01")
	if err != nil {
		return generic.Period{}, fmt.Errorf("scenario %s month %q: %w", s.ID, s.Month, err)
	}
	return generic.MonthPeriod(d.Year(), d.Month()), nil
}

// =============================================================================
// APPLY
// =============================================================================

// Apply writes the scenario through w. Later rows for the same (user, date)
// overwrite earlier ones, so planning rows win over runs.
func (s *Scenario) Apply(ctx context.Context, w roster.Writer) error {
	a := applier{ctx: ctx, w: w}
	for _, p := range s.WorkPosts {
		a.do(w.SaveWorkPost(ctx, roster.WorkPost{ID: roster.WorkPostID(p.ID), Name: p.Name, Active: true}))
	}
	for _, u := range s.Users {
		a.do(w.SaveUser(ctx, roster.User{ID: roster.UserID(u.ID), Name: u.Name, StartWeek: max(u.StartWeek, 1), Active: true}))
		for i, p := range u.Posts {
			a.do(w.SaveUserWorkPost(ctx, roster.UserWorkPost{UserID: roster.UserID(u.ID), WorkPostID: roster.WorkPostID(p), Priority: i + 1}))
		}
	}
	for _, c := range s.ShiftCodes {
		a.shiftCode(c)
	}
	for _, c := range s.SpecialCodes {
		a.do(w.SaveSpecialCode(ctx, roster.SpecialCode{
			ID: c.ID, Code: c.Code, Name: c.Name, Term: roster.Term(c.Term), Behaviour: c.Behaviour,
		}))
	}
	for _, h := range s.Holidays {
		a.do(w.SaveHoliday(ctx, roster.Holiday{Date: a.date(h.Date), Name: h.Name, CountsAsSundayRest: h.CountsAsSundayRest}))
	}
	for _, c := range s.Cycles {
		a.do(w.SaveCycle(ctx, roster.Cycle{PeriodNumber: c.Number, Start: a.date(c.Start), End: a.date(c.End)}))
	}
	for _, r := range s.HRRules {
		a.do(w.SaveHRRule(ctx, roster.HRRule{Name: r.Name, Value: r.Value, EffectiveFrom: a.date(r.From), Active: true}))
	}
	for _, run := range s.Runs {
		a.run(run)
	}
	for _, r := range s.Planning {
		a.do(w.UpsertPlanning(ctx, roster.PlanningRow{UserID: roster.UserID(r.User), Date: a.date(r.Date), Code: r.Code, Note: r.Note}))
	}
	if a.err != nil {
		return fmt.Errorf("apply scenario %s: %w", s.ID, a.err)
	}
	return nil
}

// applier keeps the first error and skips the remaining writes.
type applier struct {
	ctx context.Context
	w   roster.Writer
	err error
}

func (a *applier) do(err error) {
	if a.err == nil && err != nil {
		a.err = err
	}
}

func (a *applier) date(s string) generic.Date {
	d, err := generic.ParseDate(s)
	a.do(err)
	return d
}

func (a *applier) clock(s string) generic.ClockTime {
	c, err := generic.ParseClock(s)
	a.do(err)
	return c
}

func (a *applier) shiftCode(c ShiftCode) {
	a.do(a.w.SaveShiftCode(a.ctx, roster.ShiftCode{
		ID:         c.ID,
		Code:       c.Code,
		WorkPostID: roster.WorkPostID(c.Post),
		DayType:    roster.DayType(c.DayType),
		ShiftType:  roster.NormaliseShiftType(c.ShiftType),
		Start:      a.clock(c.Start),
		End:        a.clock(c.End),
		Behaviour:  c.Behaviour,
		IsCritical: c.Critical,
		Active:     true,
	}))
}

func (a *applier) run(r Run) {
	if len(r.Codes) == 0 {
		a.do(fmt.Errorf("run for %s from %s has no codes", r.User, r.From))
		return
	}
	from, to := a.date(r.From), a.date(r.To)
	if a.err != nil {
		return
	}
	for i, d := 0, from; d.BeforeOrEqual(to); i, d = i+1, d.AddDays(1) {
		a.do(a.w.UpsertPlanning(a.ctx, roster.PlanningRow{
			UserID: roster.UserID(r.User), Date: d, Code: r.Codes[i%len(r.Codes)],
		}))
	}
}
