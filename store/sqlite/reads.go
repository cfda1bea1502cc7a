package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// PLANNING
// =============================================================================

func (s *Store) PlanningInRange(ctx context.Context, start, end generic.Date, users []roster.UserID) ([]roster.PlanningRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT user_id, date, code, note, status
		FROM planning
		WHERE date >= ? AND date <= ?
	`
	args := []any{start.String(), end.String()}
	if users != nil {
		if len(users) == 0 {
			return nil, nil
		}
		query += " AND user_id IN (" + placeholders(len(users)) + ")"
		for _, u := range users {
			args = append(args, string(u))
		}
	}
	query += " ORDER BY date, user_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query planning: %w", err)
	}
	defer rows.Close()

	var out []roster.PlanningRow
	for rows.Next() {
		var (
			row    roster.PlanningRow
			date   string
			userID string
			status string
		)
		if err := rows.Scan(&userID, &date, &row.Code, &row.Note, &status); err != nil {
			return nil, err
		}
		if row.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("planning %s: %w", userID, err)
		}
		row.UserID = roster.UserID(userID)
		row.Status = roster.PlanningStatus(status)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) NotesInRange(ctx context.Context, start, end generic.Date) ([]generic.Date, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT date FROM planning
		WHERE date >= ? AND date <= ? AND note != ''
		ORDER BY date
	`, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var out []generic.Date
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// =============================================================================
// CODE SPACE
// =============================================================================

func (s *Store) ShiftCodesActive(ctx context.Context) ([]roster.ShiftCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, work_post_id, day_type, shift_type, start_time, end_time,
		       counts_as_workday, resets_12h_rest, breaks_work_streak, is_critical, active
		FROM shift_codes
		WHERE active = TRUE
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift codes: %w", err)
	}
	defer rows.Close()

	var out []roster.ShiftCode
	for rows.Next() {
		var (
			c                    roster.ShiftCode
			post, dayType, kind  string
			startClock, endClock string
		)
		if err := rows.Scan(&c.ID, &c.Code, &post, &dayType, &kind, &startClock, &endClock,
			&c.CountsAsWorkday, &c.Resets12hRest, &c.BreaksWorkStreak, &c.IsCritical, &c.Active); err != nil {
			return nil, err
		}
		if c.Start, err = generic.ParseClock(startClock); err != nil {
			return nil, fmt.Errorf("shift code %s: %w", c.ID, err)
		}
		if c.End, err = generic.ParseClock(endClock); err != nil {
			return nil, fmt.Errorf("shift code %s: %w", c.ID, err)
		}
		c.WorkPostID = roster.WorkPostID(post)
		c.DayType = roster.DayType(dayType)
		c.ShiftType = roster.ShiftType(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SpecialCodesAll(ctx context.Context) ([]roster.SpecialCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.specialCodes(ctx, s.db, "")
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// specialCodes loads every special code, or the one with id when set.
func (s *Store) specialCodes(ctx context.Context, db queryer, id string) ([]roster.SpecialCode, error) {
	query := `
		SELECT id, code, name, term, counts_as_workday, resets_12h_rest, breaks_work_streak
		FROM special_codes
	`
	var args []any
	if id != "" {
		query += " WHERE id = ?"
		args = append(args, id)
	}
	query += " ORDER BY id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query special codes: %w", err)
	}
	defer rows.Close()

	var out []roster.SpecialCode
	for rows.Next() {
		var (
			c    roster.SpecialCode
			term string
		)
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &term,
			&c.CountsAsWorkday, &c.Resets12hRest, &c.BreaksWorkStreak); err != nil {
			return nil, err
		}
		c.Term = roster.Term(term)
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// CALENDAR
// =============================================================================

// HolidaysInYear merges the stored rows of year with the generated
// Easter-based holidays. Variable rows of any year are read for their
// CountsAsSundayRest flag.
func (s *Store) HolidaysInYear(ctx context.Context, year int) ([]roster.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, name, counts_as_sunday_rest, is_variable
		FROM holidays
		WHERE (date >= ? AND date <= ?) OR is_variable = TRUE
		ORDER BY date, name
	`, generic.NewDate(year, 1, 1).String(), generic.NewDate(year, 12, 31).String())
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var stored []roster.Holiday
	for rows.Next() {
		var (
			h    roster.Holiday
			date string
		)
		if err := rows.Scan(&date, &h.Name, &h.CountsAsSundayRest, &h.IsVariable); err != nil {
			return nil, err
		}
		if h.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("holiday %s: %w", h.Name, err)
		}
		stored = append(stored, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roster.HolidaysForYear(stored, year), nil
}

func (s *Store) CyclesInRange(ctx context.Context, start, end generic.Date) ([]roster.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT period_number, start_date, end_date
		FROM cycles
		WHERE start_date <= ? AND end_date >= ?
		ORDER BY start_date
	`, end.String(), start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var out []roster.Cycle
	for rows.Next() {
		var (
			c        roster.Cycle
			from, to string
		)
		if err := rows.Scan(&c.PeriodNumber, &from, &to); err != nil {
			return nil, err
		}
		if c.Start, err = parseDate(from); err != nil {
			return nil, fmt.Errorf("cycle %d: %w", c.PeriodNumber, err)
		}
		if c.End, err = parseDate(to); err != nil {
			return nil, fmt.Errorf("cycle %d: %w", c.PeriodNumber, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// HR RULES
// =============================================================================

func (s *Store) HRRules(ctx context.Context) ([]roster.HRRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hrRules(ctx, s.db)
}

func (s *Store) hrRules(ctx context.Context, db queryer) ([]roster.HRRule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, value, unit, effective_from, effective_to, active
		FROM hr_rules
		ORDER BY name, effective_from, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hr rules: %w", err)
	}
	defer rows.Close()

	var out []roster.HRRule
	for rows.Next() {
		var (
			r    roster.HRRule
			from string
			to   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Value, &r.Unit, &from, &to, &r.Active); err != nil {
			return nil, err
		}
		if r.EffectiveFrom, err = parseDate(from); err != nil {
			return nil, fmt.Errorf("hr rule %s: %w", r.ID, err)
		}
		if r.EffectiveTo, err = parseNullDate(to); err != nil {
			return nil, fmt.Errorf("hr rule %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// HRRulesActiveAt resolves the versions in effect on date through the
// registry, so overlapping versions resolve the same way as in validation.
func (s *Store) HRRulesActiveAt(ctx context.Context, date generic.Date) (map[string]roster.HRRule, error) {
	rules, err := s.HRRules(ctx)
	if err != nil {
		return nil, err
	}
	return roster.NewRegistry(rules, s.log).ActiveAt(date), nil
}

// =============================================================================
// PEOPLE AND POSTS
// =============================================================================

func (s *Store) UserWorkPosts(ctx context.Context, user roster.UserID) ([]roster.UserWorkPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userWorkPosts(ctx, "WHERE user_id = ? ORDER BY priority, work_post_id", string(user))
}

func (s *Store) AllUserWorkPosts(ctx context.Context) ([]roster.UserWorkPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userWorkPosts(ctx, "ORDER BY user_id, priority, work_post_id")
}

func (s *Store) userWorkPosts(ctx context.Context, clause string, args ...any) ([]roster.UserWorkPost, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, work_post_id, priority FROM user_work_posts "+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user work posts: %w", err)
	}
	defer rows.Close()

	var out []roster.UserWorkPost
	for rows.Next() {
		var (
			p          roster.UserWorkPost
			user, post string
		)
		if err := rows.Scan(&user, &post, &p.Priority); err != nil {
			return nil, err
		}
		p.UserID = roster.UserID(user)
		p.WorkPostID = roster.WorkPostID(post)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Users(ctx context.Context) ([]roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, start_week, active FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []roster.User
	for rows.Next() {
		var (
			u  roster.User
			id string
		)
		if err := rows.Scan(&id, &u.Name, &u.StartWeek, &u.Active); err != nil {
			return nil, err
		}
		u.ID = roster.UserID(id)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) User(ctx context.Context, id roster.UserID) (roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := roster.User{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, start_week, active FROM users WHERE id = ?`, string(id),
	).Scan(&u.Name, &u.StartWeek, &u.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.User{}, fmt.Errorf("user %s: %w", id, generic.ErrNotFound)
	}
	if err != nil {
		return roster.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *Store) WorkPosts(ctx context.Context) ([]roster.WorkPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, active FROM work_posts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query work posts: %w", err)
	}
	defer rows.Close()

	var out []roster.WorkPost
	for rows.Next() {
		var (
			wp roster.WorkPost
			id string
		)
		if err := rows.Scan(&id, &wp.Name, &wp.Active); err != nil {
			return nil, err
		}
		wp.ID = roster.WorkPostID(id)
		out = append(out, wp)
	}
	return out, rows.Err()
}

// =============================================================================
// TYPE TABLES
// =============================================================================

func (s *Store) TypeTableVersions(ctx context.Context) ([]roster.TypeTableVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typeTableVersions(ctx, s.db)
}

func (s *Store) typeTableVersions(ctx context.Context, db queryer) ([]roster.TypeTableVersion, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, weeks, status, effective_from, effective_to
		FROM type_table_versions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query type-tables: %w", err)
	}
	defer rows.Close()

	var out []roster.TypeTableVersion
	for rows.Next() {
		var (
			v      roster.TypeTableVersion
			status string
			from   string
			to     sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.Name, &v.Weeks, &status, &from, &to); err != nil {
			return nil, err
		}
		v.Status = roster.TypeTableStatus(status)
		if v.EffectiveFrom, err = parseDate(from); err != nil {
			return nil, fmt.Errorf("type-table %s: %w", v.ID, err)
		}
		if v.EffectiveTo, err = parseNullDate(to); err != nil {
			return nil, fmt.Errorf("type-table %s: %w", v.ID, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) TypeTableCells(ctx context.Context, versionID string) ([]roster.TypeTableCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT week, day, slot FROM type_table_cells
		WHERE version_id = ?
		ORDER BY week, day
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query type-table cells: %w", err)
	}
	defer rows.Close()

	var out []roster.TypeTableCell
	for rows.Next() {
		c := roster.TypeTableCell{VersionID: versionID}
		if err := rows.Scan(&c.Week, &c.Day, &c.Slot); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// LEAVE
// =============================================================================

func (s *Store) LeaveBalance(ctx context.Context, user roster.UserID, year int) (roster.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total, carry, used, compTotal, compCarry, compUsed string
	err := s.db.QueryRowContext(ctx, `
		SELECT leave_total, leave_carryover, leave_used, comp_total, comp_carryover, comp_used
		FROM leave_balances
		WHERE user_id = ? AND year = ?
	`, string(user), year).Scan(&total, &carry, &used, &compTotal, &compCarry, &compUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.LeaveBalance{}, fmt.Errorf("leave balance %s/%d: %w", user, year, generic.ErrNotFound)
	}
	if err != nil {
		return roster.LeaveBalance{}, fmt.Errorf("failed to get leave balance: %w", err)
	}
	return roster.LeaveBalance{
		UserID:         user,
		Year:           year,
		LeaveTotal:     parseAmount(total, generic.UnitDays),
		LeaveCarryover: parseAmount(carry, generic.UnitDays),
		LeaveUsed:      parseAmount(used, generic.UnitDays),
		CompTotal:      parseAmount(compTotal, generic.UnitDays),
		CompCarryover:  parseAmount(compCarry, generic.UnitDays),
		CompUsed:       parseAmount(compUsed, generic.UnitDays),
	}, nil
}

// LeaveRequests returns a user's requests ordered by start date.
func (s *Store) LeaveRequests(ctx context.Context, user roster.UserID) ([]roster.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, start_date, end_date, days, status, granted_term
		FROM leave_requests
		WHERE user_id = ?
		ORDER BY start_date, id
	`, string(user))
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()
	return scanLeaveRequests(rows)
}

// ApprovedLeaveInRange returns approved requests overlapping [start, end].
func (s *Store) ApprovedLeaveInRange(ctx context.Context, start, end generic.Date, users []roster.UserID) ([]roster.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, start_date, end_date, days, status, granted_term
		FROM leave_requests
		WHERE status = ? AND start_date <= ? AND end_date >= ?
	`
	args := []any{string(roster.LeaveApproved), end.String(), start.String()}
	if users != nil {
		if len(users) == 0 {
			return nil, nil
		}
		query += " AND user_id IN (" + placeholders(len(users)) + ")"
		for _, u := range users {
			args = append(args, string(u))
		}
	}
	query += " ORDER BY start_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query approved leave: %w", err)
	}
	defer rows.Close()
	return scanLeaveRequests(rows)
}

func scanLeaveRequests(rows *sql.Rows) ([]roster.LeaveRequest, error) {
	var out []roster.LeaveRequest
	for rows.Next() {
		var (
			r              roster.LeaveRequest
			user           string
			from, to, days string
			status, term   string
			err            error
		)
		if err = rows.Scan(&r.ID, &user, &from, &to, &days, &status, &term); err != nil {
			return nil, err
		}
		r.UserID = roster.UserID(user)
		if r.Start, err = parseDate(from); err != nil {
			return nil, fmt.Errorf("leave request %s: %w", r.ID, err)
		}
		if r.End, err = parseDate(to); err != nil {
			return nil, fmt.Errorf("leave request %s: %w", r.ID, err)
		}
		r.Days = parseAmount(days, generic.UnitDays)
		r.Status = roster.LeaveStatus(status)
		r.GrantedTerm = roster.Term(term)
		out = append(out, r)
	}
	return out, rows.Err()
}
