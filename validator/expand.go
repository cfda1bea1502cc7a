package validator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// TYPE-TABLE EXPANSION
// =============================================================================

// Expand resolves the type-table for user over period. Dates the template
// leaves open, or that no code matches, map to "".
func (v *Validator) Expand(ctx context.Context, userID roster.UserID, period generic.Period) (map[generic.Date]string, error) {
	user, err := v.repo.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	w, err := v.Load(ctx, period, []roster.UserID{userID})
	if err != nil {
		return nil, err
	}
	exp, err := v.expander(ctx, w.Book)
	if err != nil {
		return nil, err
	}
	out := exp.Expand(user, period)
	v.log.WithFields(logrus.Fields{
		"user":  userID,
		"start": period.Start.String(),
		"end":   period.End.String(),
	}).Debug("Expanded type-table")
	return out, nil
}

// expander loads every non-draft type-table version with its cells.
func (v *Validator) expander(ctx context.Context, book *roster.CodeBook) (*roster.Expander, error) {
	versions, err := v.repo.TypeTableVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load type-tables: %w", err)
	}
	var tables []*roster.TypeTable
	for _, ver := range versions {
		if ver.Status == roster.TypeTableDraft {
			continue
		}
		cells, err := v.repo.TypeTableCells(ctx, ver.ID)
		if err != nil {
			return nil, fmt.Errorf("load type-table %s: %w", ver.ID, err)
		}
		t, err := roster.NewTypeTable(ver, cells)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return roster.NewExpander(tables, book), nil
}

// =============================================================================
// LEAVE
// =============================================================================

// CheckLeave validates req, to be granted as term, against the user's
// balance for the year the request starts in. The HR configuration in
// effect on the last requested day applies.
func (v *Validator) CheckLeave(ctx context.Context, req roster.LeaveRequest, term roster.Term) (roster.LeaveCheck, error) {
	if req.End.Before(req.Start) {
		return roster.LeaveCheck{}, generic.ErrInvalidPeriod
	}
	balance, err := v.repo.LeaveBalance(ctx, req.UserID, req.Start.Year())
	if err != nil {
		return roster.LeaveCheck{}, err
	}
	rules, err := v.repo.HRRules(ctx)
	if err != nil {
		return roster.LeaveCheck{}, fmt.Errorf("load hr rules: %w", err)
	}
	cfg, err := roster.NewRegistry(rules, v.log).Config(req.End)
	if err != nil {
		return roster.LeaveCheck{}, err
	}
	return roster.CheckLeave(balance, req, term, cfg)
}
