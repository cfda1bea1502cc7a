package validator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/warp/roster-engine/checker"
	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// WINDOW - everything one evaluation reads, loaded in one pass
// =============================================================================

// Window is a buffered slice of the repository: planning rows plus the code
// space, holidays, cycles and HR configuration they are evaluated against.
type Window struct {
	Period    generic.Period
	Rows      []roster.PlanningRow
	Book      *roster.CodeBook
	Cycles    *roster.CycleIndex
	PostNames map[roster.WorkPostID]string
	Leave     []roster.LeaveRequest

	registry *roster.Registry
}

// Config returns the configuration timeline for the window. A rule value
// that cannot be parsed returns a *generic.ConfigError.
func (w *Window) Config() (*roster.ConfigTimeline, error) {
	return w.registry.Timeline(w.Period)
}

// RowsOn returns the rows planned on d.
func (w *Window) RowsOn(d generic.Date) []roster.PlanningRow {
	var out []roster.PlanningRow
	for _, r := range w.Rows {
		if r.Date.Equal(d) {
			out = append(out, r)
		}
	}
	return out
}

// LeaveTerm returns the granted term of approved leave covering user's d.
func (w *Window) LeaveTerm(user roster.UserID, d generic.Date) (roster.Term, bool) {
	for _, r := range w.Leave {
		if r.UserID == user && r.GrantedTerm != "" && !d.Before(r.Start) && !d.After(r.End) {
			return r.GrantedTerm, true
		}
	}
	return "", false
}

// Load reads the window with a fixed number of repository calls, run
// concurrently. A nil users slice loads every user.
func (v *Validator) Load(ctx context.Context, period generic.Period, users []roster.UserID) (*Window, error) {
	var (
		rows      []roster.PlanningRow
		shifts    []roster.ShiftCode
		specials  []roster.SpecialCode
		stored    []roster.Cycle
		rules     []roster.HRRule
		userPosts []roster.UserWorkPost
		posts     []roster.WorkPost
		leave     []roster.LeaveRequest
	)
	years := make([][]roster.Holiday, period.End.Year()-period.Start.Year()+1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows, err = v.repo.PlanningInRange(gctx, period.Start, period.End, users)
		return wrap("planning", err)
	})
	g.Go(func() (err error) {
		shifts, err = v.repo.ShiftCodesActive(gctx)
		return wrap("shift codes", err)
	})
	g.Go(func() (err error) {
		specials, err = v.repo.SpecialCodesAll(gctx)
		return wrap("special codes", err)
	})
	g.Go(func() (err error) {
		stored, err = v.repo.CyclesInRange(gctx, period.Start.AddDays(-cycleLookaround), period.End.AddDays(cycleLookaround))
		return wrap("cycles", err)
	})
	g.Go(func() (err error) {
		rules, err = v.repo.HRRules(gctx)
		return wrap("hr rules", err)
	})
	g.Go(func() (err error) {
		userPosts, err = v.repo.AllUserWorkPosts(gctx)
		return wrap("user work posts", err)
	})
	g.Go(func() (err error) {
		posts, err = v.repo.WorkPosts(gctx)
		return wrap("work posts", err)
	})
	g.Go(func() (err error) {
		leave, err = v.repo.ApprovedLeaveInRange(gctx, period.Start, period.End, users)
		return wrap("approved leave", err)
	})
	for i := range years {
		i := i
		year := period.Start.Year() + i
		g.Go(func() (err error) {
			years[i], err = v.repo.HolidaysInYear(gctx, year)
			return wrap(fmt.Sprintf("holidays %d", year), err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var holidays []roster.Holiday
	for _, list := range years {
		holidays = append(holidays, list...)
	}
	registry := roster.NewRegistry(rules, v.log)
	cycleLength := v.cycleLength
	if _, ok := registry.Resolve(roster.RuleCycleLengthDays, period.Start); ok {
		if cfg, err := registry.Config(period.Start); err == nil {
			cycleLength = cfg.CycleLengthDays
		}
	}

	names := make(map[roster.WorkPostID]string, len(posts))
	for _, p := range posts {
		names[p.ID] = p.Name
	}

	w := &Window{
		Period:    period,
		Rows:      rows,
		Book:      roster.NewCodeBook(shifts, specials, userPosts, roster.NewHolidayCalendar(holidays)),
		Cycles:    roster.NewCycleIndex(stored, v.cycleOrigin, cycleLength, v.log),
		PostNames: names,
		Leave:     leave,
		registry:  registry,
	}
	v.log.WithFields(logrus.Fields{
		"start": period.Start.String(),
		"end":   period.End.String(),
		"rows":  len(rows),
		"users": len(users),
	}).Debug("Loaded validation window")
	return w, nil
}

// cycleLookaround widens the cycle query so synthesis can anchor on the
// stored neighbours of a window that falls into a gap.
const cycleLookaround = 366

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// =============================================================================
// CONVERSION
// =============================================================================

// records resolves rows against the window's code book. Unknown codes are
// logged and kept with Known false so the checker treats them as gaps.
func (v *Validator) records(w *Window, rows []roster.PlanningRow) []checker.Record {
	out := resolve(w, rows)
	for _, r := range out {
		if r.Code != "" && !r.Known {
			err := &generic.DataIntegrityError{User: string(r.User), Date: r.Date, Code: r.Code}
			v.log.WithFields(logrus.Fields{
				"user": r.User,
				"date": r.Date.String(),
				"code": r.Code,
			}).Warn(err.Error())
		}
	}
	return out
}

// resolve is records without the logging.
func resolve(w *Window, rows []roster.PlanningRow) []checker.Record {
	out := make([]checker.Record, 0, len(rows))
	for _, row := range rows {
		r := checker.Record{User: row.UserID, Date: row.Date, Code: row.Code}
		if row.Code != "" {
			r.Info, r.Known = w.Book.Lookup(row.UserID, row.Date, row.Code)
		}
		out = append(out, r)
	}
	return out
}

func (v *Validator) input(w *Window, cfg *roster.ConfigTimeline, records []checker.Record) checker.Input {
	return checker.Input{
		Records:   records,
		Config:    cfg,
		Cycles:    w.Cycles.InRange(w.Period.Start, w.Period.End),
		Holidays:  w.Book.Calendar(),
		Knows:     w.Book.Knows,
		PostNames: w.PostNames,
		LeaveTerm: w.LeaveTerm,
	}
}
