/*
leave.go - Leave request check against read-only balances

PURPOSE:
  Answers "can this request be granted as <term>?" without touching the
  balance. The engine never books consumption; the leave service does.

AVAILABILITY:
  holiday-leave:     total + carry-over - used
                     carry-over only counts when the whole request ends
                     before leave_carryover_expiry (DD-MM) of the year
  compensation-day:  total + min(carry-over, max_carryover_compensation) - used

SEE ALSO:
  - hrrules.go: leave_carryover_expiry, max_carryover_compensation
*/
package roster

import (
	"fmt"

	"github.com/warp/roster-engine/generic"
)

// =============================================================================
// BALANCE VIEW
// =============================================================================

// CarryoverUsable reports whether leave carry-over still counts for a
// request ending on end.
func (b LeaveBalance) CarryoverUsable(end generic.Date, cfg HRConfig) bool {
	if end.Year() != b.Year {
		return end.Year() < b.Year
	}
	return end.Before(cfg.LeaveCarryoverExpiry.In(b.Year))
}

// AvailableLeave is holiday-leave still available for a request ending on end.
func (b LeaveBalance) AvailableLeave(end generic.Date, cfg HRConfig) generic.Amount {
	avail := b.LeaveTotal.Sub(b.LeaveUsed)
	if b.CarryoverUsable(end, cfg) {
		avail = avail.Add(b.LeaveCarryover)
	}
	return avail
}

// AvailableCompensation caps carried-over compensation days.
func (b LeaveBalance) AvailableCompensation(cfg HRConfig) generic.Amount {
	carry := b.CompCarryover.Min(cfg.MaxCarryoverCompensation)
	return b.CompTotal.Add(carry).Sub(b.CompUsed)
}

// =============================================================================
// CHECK
// =============================================================================

type LeaveCheck struct {
	Term             Term           `json:"term"`
	Requested        generic.Amount `json:"requested"`
	Available        generic.Amount `json:"available"`
	CarryoverExpired bool           `json:"carryover_expired"`
	OK               bool           `json:"ok"`
	Reason           string         `json:"reason,omitempty"`
}

// RequestedDays is req.Days, or the calendar length when Days is unset.
func RequestedDays(req LeaveRequest) generic.Amount {
	if req.Days.Value.IsPositive() {
		return generic.Amount{Value: req.Days.Value, Unit: generic.UnitDays}
	}
	return generic.NewAmountFromInt(generic.Period{Start: req.Start, End: req.End}.Len(), generic.UnitDays)
}

// CheckLeave validates req as term against b.
func CheckLeave(b LeaveBalance, req LeaveRequest, term Term, cfg HRConfig) (LeaveCheck, error) {
	if req.End.Before(req.Start) {
		return LeaveCheck{}, generic.ErrInvalidPeriod
	}
	res := LeaveCheck{Term: term, Requested: RequestedDays(req)}
	switch term {
	case TermHolidayLeave:
		res.Available = b.AvailableLeave(req.End, cfg)
		res.CarryoverExpired = b.LeaveCarryover.IsPositive() && !b.CarryoverUsable(req.End, cfg)
	case TermCompensationDay:
		res.Available = b.AvailableCompensation(cfg)
	default:
		return LeaveCheck{}, fmt.Errorf("term %q is not a leave term", term)
	}
	res.OK = !res.Requested.GreaterThan(res.Available)
	if !res.OK {
		res.Reason = fmt.Sprintf("requested %s days, %s available", res.Requested, res.Available)
	}
	return res, nil
}
