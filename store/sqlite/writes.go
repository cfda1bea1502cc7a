package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// PLANNING
// =============================================================================

func (s *Store) UpsertPlanning(ctx context.Context, row roster.PlanningRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row.Status == "" {
		row.Status = roster.StatusDraft
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO planning (user_id, date, code, note, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			code = excluded.code, note = excluded.note, status = excluded.status
	`, string(row.UserID), row.Date.String(), row.Code, row.Note, string(row.Status))
	if err != nil {
		return fmt.Errorf("failed to upsert planning: %w", err)
	}
	return nil
}

// DeletePlanning removes a row, turning the date into a gap.
func (s *Store) DeletePlanning(ctx context.Context, user roster.UserID, date generic.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM planning WHERE user_id = ? AND date = ?`,
		string(user), date.String())
	if err != nil {
		return fmt.Errorf("failed to delete planning: %w", err)
	}
	return nil
}

func (s *Store) SetPlanningStatus(ctx context.Context, user roster.UserID, year int, month int, status roster.PlanningStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := generic.MonthPeriod(year, time.Month(month))
	res, err := s.db.ExecContext(ctx, `
		UPDATE planning SET status = ?
		WHERE user_id = ? AND date >= ? AND date <= ?
	`, string(status), string(user), p.Start.String(), p.End.String())
	if err != nil {
		return fmt.Errorf("failed to set planning status: %w", err)
	}
	n, _ := res.RowsAffected()
	s.log.WithFields(logrus.Fields{
		"user":   user,
		"month":  p.Start.Format("2006-01"),
		"status": status,
		"rows":   n,
	}).Info("Planning status changed")
	return nil
}

// =============================================================================
// PEOPLE AND POSTS
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u roster.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.StartWeek == 0 {
		u.StartWeek = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, start_week, active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, start_week = excluded.start_week, active = excluded.active
	`, string(u.ID), u.Name, u.StartWeek, u.Active)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) SaveWorkPost(ctx context.Context, wp roster.WorkPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_posts (id, name, active) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, active = excluded.active
	`, string(wp.ID), wp.Name, wp.Active)
	if err != nil {
		return fmt.Errorf("failed to save work post: %w", err)
	}
	return nil
}

func (s *Store) SaveUserWorkPost(ctx context.Context, uwp roster.UserWorkPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_work_posts (user_id, work_post_id, priority) VALUES (?, ?, ?)
		ON CONFLICT(user_id, work_post_id) DO UPDATE SET priority = excluded.priority
	`, string(uwp.UserID), string(uwp.WorkPostID), uwp.Priority)
	if err != nil {
		return fmt.Errorf("failed to save user work post: %w", err)
	}
	return nil
}

// =============================================================================
// CODE SPACE
// =============================================================================

func (s *Store) SaveShiftCode(ctx context.Context, c roster.ShiftCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shift_codes (id, code, work_post_id, day_type, shift_type, start_time, end_time,
			counts_as_workday, resets_12h_rest, breaks_work_streak, is_critical, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code, work_post_id = excluded.work_post_id,
			day_type = excluded.day_type, shift_type = excluded.shift_type,
			start_time = excluded.start_time, end_time = excluded.end_time,
			counts_as_workday = excluded.counts_as_workday,
			resets_12h_rest = excluded.resets_12h_rest,
			breaks_work_streak = excluded.breaks_work_streak,
			is_critical = excluded.is_critical, active = excluded.active
	`, c.ID, c.Code, string(c.WorkPostID), string(c.DayType), string(c.ShiftType),
		c.Start.String(), c.End.String(),
		c.CountsAsWorkday, c.Resets12hRest, c.BreaksWorkStreak, c.IsCritical, c.Active)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("shift code %s on %s/%s: %w", c.Code, c.WorkPostID, c.DayType, generic.ErrCodeCollision)
		}
		return fmt.Errorf("failed to save shift code: %w", err)
	}
	return nil
}

// SaveSpecialCode stores c. A term already owned by another code, or
// letters already in use, fail with ErrCodeCollision. When an existing
// code changes letters, planning rows and type-table slots that carry the
// old letters follow in the same transaction.
func (s *Store) SaveSpecialCode(ctx context.Context, c roster.SpecialCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	previous, err := s.specialCodes(ctx, tx, c.ID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO special_codes (id, code, name, term, counts_as_workday, resets_12h_rest, breaks_work_streak)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code, name = excluded.name, term = excluded.term,
			counts_as_workday = excluded.counts_as_workday,
			resets_12h_rest = excluded.resets_12h_rest,
			breaks_work_streak = excluded.breaks_work_streak
	`, c.ID, c.Code, c.Name, string(c.Term), c.CountsAsWorkday, c.Resets12hRest, c.BreaksWorkStreak)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("special code %s (term %q): %w", c.Code, c.Term, generic.ErrCodeCollision)
		}
		return fmt.Errorf("failed to save special code: %w", err)
	}

	if len(previous) == 1 && previous[0].Code != c.Code {
		old := previous[0].Code
		rows, err := tx.ExecContext(ctx, `UPDATE planning SET code = ? WHERE code = ?`, c.Code, old)
		if err != nil {
			return fmt.Errorf("failed to rename planning codes: %w", err)
		}
		slots, err := tx.ExecContext(ctx, `UPDATE type_table_cells SET slot = ? WHERE slot = ?`, c.Code, old)
		if err != nil {
			return fmt.Errorf("failed to rename type-table slots: %w", err)
		}
		nRows, _ := rows.RowsAffected()
		nSlots, _ := slots.RowsAffected()
		s.log.WithFields(logrus.Fields{
			"from":     old,
			"to":       c.Code,
			"planning": nRows,
			"slots":    nSlots,
		}).Info("Special code renamed")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *Store) DeleteSpecialCode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	codes, err := s.specialCodes(ctx, tx, id)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return fmt.Errorf("special code %s: %w", id, generic.ErrNotFound)
	}
	if err := roster.CanDeleteSpecialCode(codes[0]); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM special_codes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete special code: %w", err)
	}
	return tx.Commit()
}

// =============================================================================
// CALENDAR
// =============================================================================

func (s *Store) SaveHoliday(ctx context.Context, h roster.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (date, name, counts_as_sunday_rest, is_variable) VALUES (?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET
			counts_as_sunday_rest = excluded.counts_as_sunday_rest, is_variable = excluded.is_variable
	`, h.Date.String(), h.Name, h.CountsAsSundayRest, h.IsVariable)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) SaveCycle(ctx context.Context, c roster.Cycle) error {
	if c.End.Before(c.Start) {
		return fmt.Errorf("cycle %d: %w", c.PeriodNumber, generic.ErrInvalidPeriod)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (period_number, start_date, end_date) VALUES (?, ?, ?)
		ON CONFLICT(period_number) DO UPDATE SET
			start_date = excluded.start_date, end_date = excluded.end_date
	`, c.PeriodNumber, c.Start.String(), c.End.String())
	if err != nil {
		return fmt.Errorf("failed to save cycle: %w", err)
	}
	return nil
}

// =============================================================================
// VERSIONED CONFIGURATION
// =============================================================================

// SaveHRRule appends a rule version and closes the one it supersedes, in
// one transaction.
func (s *Store) SaveHRRule(ctx context.Context, rule roster.HRRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := s.hrRules(ctx, tx)
	if err != nil {
		return err
	}
	changed, err := roster.ActivateRule(existing, rule)
	if err != nil {
		return err
	}
	for _, r := range changed {
		if err := s.putHRRule(ctx, tx, r); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit hr rule: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"rule":   rule.Name,
		"value":  rule.Value,
		"from":   rule.EffectiveFrom.String(),
		"closed": len(changed) - 1,
	}).Info("HR rule version saved")
	return nil
}

func (s *Store) putHRRule(ctx context.Context, db execer, r roster.HRRule) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO hr_rules (id, name, value, unit, effective_from, effective_to, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			value = excluded.value, unit = excluded.unit,
			effective_from = excluded.effective_from, effective_to = excluded.effective_to,
			active = excluded.active
	`, r.ID, r.Name, r.Value, r.Unit, r.EffectiveFrom.String(), nullDate(r.EffectiveTo), r.Active)
	if err != nil {
		return fmt.Errorf("failed to save hr rule %s: %w", r.Name, err)
	}
	return nil
}

// SaveTypeTable stores a version and replaces its cells. The grid must be
// complete for the version's week count.
func (s *Store) SaveTypeTable(ctx context.Context, v roster.TypeTableVersion, cells []roster.TypeTableCell) error {
	if _, err := roster.NewTypeTable(v, cells); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Status == "" {
		v.Status = roster.TypeTableDraft
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.putTypeTable(ctx, tx, v); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM type_table_cells WHERE version_id = ?`, v.ID); err != nil {
		return fmt.Errorf("failed to clear type-table cells: %w", err)
	}
	for _, c := range cells {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO type_table_cells (version_id, week, day, slot) VALUES (?, ?, ?, ?)
		`, v.ID, c.Week, c.Day, c.Slot)
		if err != nil {
			return fmt.Errorf("failed to insert type-table cell w%d d%d: %w", c.Week, c.Day, err)
		}
	}
	return tx.Commit()
}

func (s *Store) putTypeTable(ctx context.Context, db execer, v roster.TypeTableVersion) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO type_table_versions (id, name, weeks, status, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, weeks = excluded.weeks, status = excluded.status,
			effective_from = excluded.effective_from, effective_to = excluded.effective_to
	`, v.ID, v.Name, v.Weeks, string(v.Status), formatDate(v.EffectiveFrom), nullDate(v.EffectiveTo))
	if err != nil {
		return fmt.Errorf("failed to save type-table %s: %w", v.ID, err)
	}
	return nil
}

// ActivateTypeTableVersion makes id the active version from `from` and
// archives its predecessor, in one transaction.
func (s *Store) ActivateTypeTableVersion(ctx context.Context, id string, from generic.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	versions, err := s.typeTableVersions(ctx, tx)
	if err != nil {
		return err
	}
	changed, err := roster.ActivateTypeTable(versions, id, from)
	if err != nil {
		return err
	}
	for _, v := range changed {
		if err := s.putTypeTable(ctx, tx, v); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"version": id,
		"from":    from.String(),
	}).Info("Type-table activated")
	return nil
}

// =============================================================================
// LEAVE
// =============================================================================

func (s *Store) SaveLeaveBalance(ctx context.Context, b roster.LeaveBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_balances (user_id, year, leave_total, leave_carryover, leave_used,
			comp_total, comp_carryover, comp_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, year) DO UPDATE SET
			leave_total = excluded.leave_total, leave_carryover = excluded.leave_carryover,
			leave_used = excluded.leave_used, comp_total = excluded.comp_total,
			comp_carryover = excluded.comp_carryover, comp_used = excluded.comp_used
	`, string(b.UserID), b.Year,
		b.LeaveTotal.Value.String(), b.LeaveCarryover.Value.String(), b.LeaveUsed.Value.String(),
		b.CompTotal.Value.String(), b.CompCarryover.Value.String(), b.CompUsed.Value.String())
	if err != nil {
		return fmt.Errorf("failed to save leave balance: %w", err)
	}
	return nil
}

func (s *Store) SaveLeaveRequest(ctx context.Context, r roster.LeaveRequest) error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("leave request: %w", generic.ErrInvalidPeriod)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = roster.LeavePending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_requests (id, user_id, start_date, end_date, days, status, granted_term)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date, end_date = excluded.end_date, days = excluded.days,
			status = excluded.status, granted_term = excluded.granted_term
	`, r.ID, string(r.UserID), r.Start.String(), r.End.String(), r.Days.Value.String(),
		string(r.Status), string(r.GrantedTerm))
	if err != nil {
		return fmt.Errorf("failed to save leave request: %w", err)
	}
	return nil
}
