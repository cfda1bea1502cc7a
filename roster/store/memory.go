// Package store provides an in-memory roster.Store.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	users     map[roster.UserID]roster.User
	workPosts map[roster.WorkPostID]roster.WorkPost
	userPosts map[roster.UserID][]roster.UserWorkPost
	shifts    map[string]roster.ShiftCode
	specials  map[string]roster.SpecialCode
	planning  map[planKey]roster.PlanningRow
	holidays  []roster.Holiday
	cycles    []roster.Cycle
	rules     []roster.HRRule
	tables    map[string]roster.TypeTableVersion
	cells     map[string][]roster.TypeTableCell
	balances  map[balanceKey]roster.LeaveBalance
	requests  map[string]roster.LeaveRequest

	// Reads counts repository calls, for asserting bounded query counts.
	Reads int
}

type planKey struct {
	user roster.UserID
	date generic.Date
}

type balanceKey struct {
	user roster.UserID
	year int
}

var _ roster.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[roster.UserID]roster.User),
		workPosts: make(map[roster.WorkPostID]roster.WorkPost),
		userPosts: make(map[roster.UserID][]roster.UserWorkPost),
		shifts:    make(map[string]roster.ShiftCode),
		specials:  make(map[string]roster.SpecialCode),
		planning:  make(map[planKey]roster.PlanningRow),
		tables:    make(map[string]roster.TypeTableVersion),
		cells:     make(map[string][]roster.TypeTableCell),
		balances:  make(map[balanceKey]roster.LeaveBalance),
		requests:  make(map[string]roster.LeaveRequest),
	}
}

// Reset drops every row, keeping the read counter.
func (m *Memory) Reset(_ context.Context) error {
	reads := m.ReadCount()
	fresh := NewMemory()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users, m.workPosts, m.userPosts = fresh.users, fresh.workPosts, fresh.userPosts
	m.shifts, m.specials, m.planning = fresh.shifts, fresh.specials, fresh.planning
	m.holidays, m.cycles, m.rules = nil, nil, nil
	m.tables, m.cells = fresh.tables, fresh.cells
	m.balances, m.requests = fresh.balances, fresh.requests
	m.Reads = reads
	return nil
}

func (m *Memory) read() {
	m.mu.Lock()
	m.Reads++
	m.mu.Unlock()
}

// ReadCount returns the number of repository reads so far.
func (m *Memory) ReadCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Reads
}

// =============================================================================
// READS
// =============================================================================

func (m *Memory) PlanningInRange(_ context.Context, start, end generic.Date, users []roster.UserID) ([]roster.PlanningRow, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filter map[roster.UserID]bool
	if users != nil {
		filter = make(map[roster.UserID]bool, len(users))
		for _, u := range users {
			filter[u] = true
		}
	}
	var out []roster.PlanningRow
	for k, row := range m.planning {
		if k.date.Before(start) || k.date.After(end) {
			continue
		}
		if filter != nil && !filter[k.user] {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (m *Memory) ShiftCodesActive(_ context.Context) ([]roster.ShiftCode, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []roster.ShiftCode
	for _, c := range m.shifts {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SpecialCodesAll(_ context.Context) ([]roster.SpecialCode, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]roster.SpecialCode, 0, len(m.specials))
	for _, c := range m.specials {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) HolidaysInYear(_ context.Context, year int) ([]roster.Holiday, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return roster.HolidaysForYear(m.holidays, year), nil
}

func (m *Memory) CyclesInRange(_ context.Context, start, end generic.Date) ([]roster.Cycle, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	window := generic.Period{Start: start, End: end}
	var out []roster.Cycle
	for _, c := range m.cycles {
		if c.Period().Overlaps(window) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) HRRules(_ context.Context) ([]roster.HRRule, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]roster.HRRule(nil), m.rules...), nil
}

func (m *Memory) HRRulesActiveAt(ctx context.Context, date generic.Date) (map[string]roster.HRRule, error) {
	rules, err := m.HRRules(ctx)
	if err != nil {
		return nil, err
	}
	return roster.NewRegistry(rules, nil).ActiveAt(date), nil
}

func (m *Memory) UserWorkPosts(_ context.Context, user roster.UserID) ([]roster.UserWorkPost, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]roster.UserWorkPost(nil), m.userPosts[user]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (m *Memory) AllUserWorkPosts(_ context.Context) ([]roster.UserWorkPost, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []roster.UserWorkPost
	for _, list := range m.userPosts {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Priority < out[j].Priority
	})
	return out, nil
}

func (m *Memory) ApprovedLeaveInRange(_ context.Context, start, end generic.Date, users []roster.UserID) ([]roster.LeaveRequest, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filter map[roster.UserID]bool
	if users != nil {
		filter = make(map[roster.UserID]bool, len(users))
		for _, u := range users {
			filter[u] = true
		}
	}
	var out []roster.LeaveRequest
	for _, r := range m.requests {
		if r.Status != roster.LeaveApproved || r.End.Before(start) || r.Start.After(end) {
			continue
		}
		if filter != nil && !filter[r.UserID] {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) LeaveBalance(_ context.Context, user roster.UserID, year int) (roster.LeaveBalance, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[balanceKey{user, year}]
	if !ok {
		return roster.LeaveBalance{}, fmt.Errorf("leave balance %s/%d: %w", user, year, generic.ErrNotFound)
	}
	return b, nil
}

func (m *Memory) NotesInRange(_ context.Context, start, end generic.Date) ([]generic.Date, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[generic.Date]bool)
	var out []generic.Date
	for k, row := range m.planning {
		if row.Note == "" || k.date.Before(start) || k.date.After(end) || seen[k.date] {
			continue
		}
		seen[k.date] = true
		out = append(out, k.date)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (m *Memory) Users(_ context.Context) ([]roster.User, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]roster.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) User(_ context.Context, id roster.UserID) (roster.User, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return roster.User{}, fmt.Errorf("user %s: %w", id, generic.ErrNotFound)
	}
	return u, nil
}

func (m *Memory) WorkPosts(_ context.Context) ([]roster.WorkPost, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]roster.WorkPost, 0, len(m.workPosts))
	for _, wp := range m.workPosts {
		out = append(out, wp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) TypeTableVersions(_ context.Context) ([]roster.TypeTableVersion, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]roster.TypeTableVersion, 0, len(m.tables))
	for _, v := range m.tables {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) TypeTableCells(_ context.Context, versionID string) ([]roster.TypeTableCell, error) {
	m.read()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]roster.TypeTableCell(nil), m.cells[versionID]...), nil
}

// =============================================================================
// WRITES
// =============================================================================

func (m *Memory) UpsertPlanning(_ context.Context, row roster.PlanningRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.Status == "" {
		row.Status = roster.StatusDraft
	}
	m.planning[planKey{row.UserID, row.Date}] = row
	return nil
}

// DeletePlanning removes a row, turning the date into a gap.
func (m *Memory) DeletePlanning(_ context.Context, user roster.UserID, date generic.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.planning, planKey{user, date})
	return nil
}

func (m *Memory) SetPlanningStatus(_ context.Context, user roster.UserID, year int, month int, status roster.PlanningStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, row := range m.planning {
		if k.user == user && k.date.Year() == year && int(k.date.Month()) == month {
			row.Status = status
			m.planning[k] = row
		}
	}
	return nil
}

func (m *Memory) SaveUser(_ context.Context, u roster.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) SaveWorkPost(_ context.Context, wp roster.WorkPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workPosts[wp.ID] = wp
	return nil
}

func (m *Memory) SaveUserWorkPost(_ context.Context, uwp roster.UserWorkPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.userPosts[uwp.UserID]
	for i, p := range list {
		if p.WorkPostID == uwp.WorkPostID {
			list[i] = uwp
			return nil
		}
	}
	m.userPosts[uwp.UserID] = append(list, uwp)
	return nil
}

func (m *Memory) SaveShiftCode(_ context.Context, c roster.ShiftCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[c.ID] = c
	return nil
}

func (m *Memory) SaveSpecialCode(_ context.Context, c roster.SpecialCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.Term != "" {
		for id, other := range m.specials {
			if id != c.ID && other.Term == c.Term {
				return fmt.Errorf("term %s already owned by %s: %w", c.Term, other.Code, generic.ErrCodeCollision)
			}
		}
	}
	if prev, ok := m.specials[c.ID]; ok && prev.Code != c.Code {
		for k, row := range m.planning {
			if row.Code == prev.Code {
				row.Code = c.Code
				m.planning[k] = row
			}
		}
		for _, cells := range m.cells {
			for i := range cells {
				if cells[i].Slot == prev.Code {
					cells[i].Slot = c.Code
				}
			}
		}
	}
	m.specials[c.ID] = c
	return nil
}

func (m *Memory) DeleteSpecialCode(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.specials[id]
	if !ok {
		return fmt.Errorf("special code %s: %w", id, generic.ErrNotFound)
	}
	if err := roster.CanDeleteSpecialCode(c); err != nil {
		return err
	}
	delete(m.specials, id)
	return nil
}

func (m *Memory) SaveHoliday(_ context.Context, h roster.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.holidays {
		if existing.Date.Equal(h.Date) && existing.Name == h.Name {
			m.holidays[i] = h
			return nil
		}
	}
	m.holidays = append(m.holidays, h)
	return nil
}

func (m *Memory) SaveCycle(_ context.Context, c roster.Cycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.cycles {
		if existing.PeriodNumber == c.PeriodNumber {
			m.cycles[i] = c
			return nil
		}
	}
	m.cycles = append(m.cycles, c)
	return nil
}

func (m *Memory) SaveHRRule(_ context.Context, rule roster.HRRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rule.ID == "" {
		rule.ID = fmt.Sprintf("rule-%d", len(m.rules)+1)
	}
	changed, err := roster.ActivateRule(m.rules, rule)
	if err != nil {
		return err
	}
	for _, c := range changed {
		replaced := false
		for i := range m.rules {
			if m.rules[i].ID == c.ID {
				m.rules[i] = c
				replaced = true
			}
		}
		if !replaced {
			m.rules = append(m.rules, c)
		}
	}
	return nil
}

func (m *Memory) SaveTypeTable(_ context.Context, v roster.TypeTableVersion, cells []roster.TypeTableCell) error {
	if _, err := roster.NewTypeTable(v, cells); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[v.ID] = v
	m.cells[v.ID] = append([]roster.TypeTableCell(nil), cells...)
	return nil
}

func (m *Memory) ActivateTypeTableVersion(_ context.Context, id string, from generic.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	versions := make([]roster.TypeTableVersion, 0, len(m.tables))
	for _, v := range m.tables {
		versions = append(versions, v)
	}
	changed, err := roster.ActivateTypeTable(versions, id, from)
	if err != nil {
		return err
	}
	for _, v := range changed {
		m.tables[v.ID] = v
	}
	return nil
}

func (m *Memory) SaveLeaveBalance(_ context.Context, b roster.LeaveBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[balanceKey{b.UserID, b.Year}] = b
	return nil
}

func (m *Memory) SaveLeaveRequest(_ context.Context, r roster.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}
