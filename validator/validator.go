/*
Package validator is the Planning Validator.

PURPOSE:
  The only place where rule evaluation touches storage. It loads a buffered
  window (the month plus 14 days each side, widened to whole cycles),
  resolves planning rows into checker records and runs the pure checker.

OPERATIONS:
  ValidateAll    one user, one month, every rule
  ValidateMonth  every user, one month, one bulk load
  ValidateShift  what-if for a single (user, date, code) before saving
  Levels         per-date highest severity, for grid colouring

MONTH FILTER:
  A violation belongs to a month when its span intersects the month, so a
  rest violation from Oct 31 to Nov 1 is reported from both October and
  November and exactly once in each. Options.IncludeOutside keeps every
  violation the buffered window produced.

ERRORS:
  Repository failures propagate. An HR rule that cannot be parsed does not:
  the report then holds one "configuration" violation and nothing else.
*/
package validator

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/roster-engine/checker"
	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

// DefaultBufferDays is loaded on each side of the inspected period.
const DefaultBufferDays = 14

type Options struct {
	// IncludeOutside keeps violations whose span lies outside the month.
	IncludeOutside bool
}

type Config struct {
	Logger      *logrus.Logger
	BufferDays  int
	CycleOrigin generic.Date
	// CycleLength applies while no cycle_length_days rule is in effect.
	CycleLength int
}

type Validator struct {
	repo        roster.Repository
	log         *logrus.Logger
	bufferDays  int
	cycleOrigin generic.Date
	cycleLength int
}

func New(repo roster.Repository, cfg Config) *Validator {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
		cfg.Logger.SetOutput(io.Discard)
	}
	if cfg.BufferDays <= 0 {
		cfg.BufferDays = DefaultBufferDays
	}
	if cfg.CycleOrigin.IsZero() {
		cfg.CycleOrigin = generic.NewDate(2024, time.January, 1)
	}
	if cfg.CycleLength <= 0 {
		cfg.CycleLength = roster.DefaultConfig().CycleLengthDays
	}
	return &Validator{
		repo:        repo,
		log:         cfg.Logger,
		bufferDays:  cfg.BufferDays,
		cycleOrigin: cfg.CycleOrigin,
		cycleLength: cfg.CycleLength,
	}
}

// =============================================================================
// MONTH VALIDATION
// =============================================================================

// ValidateAll validates one user's month.
func (v *Validator) ValidateAll(ctx context.Context, user roster.UserID, year int, month time.Month, opts Options) (checker.Report, error) {
	focus := generic.MonthPeriod(year, month)
	w, err := v.WindowFor(ctx, focus, []roster.UserID{user})
	if err != nil {
		return checker.Report{}, err
	}
	return v.Evaluate(w, focus, user, opts), nil
}

// ValidateMonth validates every user planned in the month.
func (v *Validator) ValidateMonth(ctx context.Context, year int, month time.Month, opts Options) (checker.Report, error) {
	focus := generic.MonthPeriod(year, month)
	w, err := v.WindowFor(ctx, focus, nil)
	if err != nil {
		return checker.Report{}, err
	}
	return v.Evaluate(w, focus, "", opts), nil
}

// HasBlockingViolations reports whether the month has error-severity
// violations for user. Publishing is refused when it does.
func (v *Validator) HasBlockingViolations(ctx context.Context, user roster.UserID, year int, month time.Month) (bool, error) {
	report, err := v.ValidateAll(ctx, user, year, month, Options{})
	if err != nil {
		return false, err
	}
	return report.HasErrors(), nil
}

// Levels returns the highest severity touching each date of the month,
// over users (nil: everyone).
func (v *Validator) Levels(ctx context.Context, year int, month time.Month, users []roster.UserID) (map[generic.Date]checker.Level, error) {
	focus := generic.MonthPeriod(year, month)
	w, err := v.WindowFor(ctx, focus, users)
	if err != nil {
		return nil, err
	}
	return v.Evaluate(w, focus, "", Options{}).Levels(focus), nil
}

// WindowFor loads focus plus the buffer, widened to the cycles that contain
// the first and last focus dates so R3 sees whole cycles. While a rest run
// or weekend streak crosses the window edge into focus, that edge moves out
// by another buffer, so R4 to R6 count the same run from either month.
func (v *Validator) WindowFor(ctx context.Context, focus generic.Period, users []roster.UserID) (*Window, error) {
	period := focus.Grow(v.bufferDays)
	w, err := v.Load(ctx, period, users)
	if err != nil {
		return nil, err
	}
	for widened := 0; ; widened++ {
		wide := period.
			Union(w.Cycles.Containing(focus.Start).Period()).
			Union(w.Cycles.Containing(focus.End).Period())
		if widened < maxWidenings {
			before, after := v.openEdges(w, focus)
			if before {
				wide.Start = wide.Start.AddDays(-v.bufferDays)
			}
			if after {
				wide.End = wide.End.AddDays(v.bufferDays)
			}
		}
		if wide.Start.Equal(period.Start) && wide.End.Equal(period.End) {
			return w, nil
		}
		period = wide
		if w, err = v.Load(ctx, period, users); err != nil {
			return nil, err
		}
	}
}

// maxWidenings bounds how many buffers WindowFor adds to reach the far end
// of a run that crosses the window edge.
const maxWidenings = 6

// openEdges reports which edges of w cut a rest run or weekend streak that
// reaches focus. An unusable configuration widens nothing; Evaluate reports
// it.
func (v *Validator) openEdges(w *Window, focus generic.Period) (start, end bool) {
	cfg, err := w.Config()
	if err != nil {
		return false, false
	}
	start, end = checker.OpenEdges(v.input(w, cfg, resolve(w, w.Rows)), w.Period, focus)
	if start || end {
		v.log.WithFields(logrus.Fields{
			"start":      w.Period.Start.String(),
			"end":        w.Period.End.String(),
			"open_start": start,
			"open_end":   end,
		}).Debug("Widening validation window")
	}
	return start, end
}

// Evaluate checks every row of w and keeps the violations touching focus.
// user only labels a configuration report.
func (v *Validator) Evaluate(w *Window, focus generic.Period, user roster.UserID, opts Options) checker.Report {
	cfg, err := w.Config()
	if err != nil {
		v.log.WithFields(logrus.Fields{
			"user":  user,
			"start": focus.Start.String(),
			"end":   focus.End.String(),
			"error": err.Error(),
		}).Warn("HR configuration unusable, validation refused")
		return checker.ConfigurationReport(user, focus, err)
	}
	report := checker.Check(v.input(w, cfg, v.records(w, w.Rows)))
	if opts.IncludeOutside {
		return report
	}
	return report.Filter(func(x checker.Violation) bool { return x.Overlaps(focus) })
}

// =============================================================================
// SINGLE SHIFT
// =============================================================================

// ValidateShift evaluates planning code for user on date without saving it.
// An empty code models clearing the cell. Only violations whose span
// contains date are returned.
func (v *Validator) ValidateShift(ctx context.Context, user roster.UserID, date generic.Date, code string) ([]checker.Violation, error) {
	w, err := v.WindowFor(ctx, generic.Period{Start: date, End: date}, []roster.UserID{user})
	if err != nil {
		return nil, err
	}
	cfg, err := w.Config()
	if err != nil {
		v.log.WithFields(logrus.Fields{
			"user":  user,
			"date":  date.String(),
			"error": err.Error(),
		}).Warn("HR configuration unusable, validation refused")
		return checker.ConfigurationReport(user, generic.Period{Start: date, End: date}, err).All(), nil
	}

	rows := make([]roster.PlanningRow, 0, len(w.Rows)+1)
	for _, r := range w.Rows {
		if r.UserID == user && !r.Date.Equal(date) {
			rows = append(rows, r)
		}
	}
	rows = append(rows, roster.PlanningRow{UserID: user, Date: date, Code: code})

	report := checker.Check(v.input(w, cfg, v.records(w, rows)))
	return report.Filter(func(x checker.Violation) bool { return x.Touches(date) }).All(), nil
}
