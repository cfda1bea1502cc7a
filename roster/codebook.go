package roster

import (
	"sort"

	"github.com/warp/roster-engine/generic"
)

// =============================================================================
// CODE INFO - what the checker knows about a cell
// =============================================================================

type CodeKind string

const (
	KindShift   CodeKind = "shift"
	KindSpecial CodeKind = "special"
)

// CodeInfo is a resolved code: behaviour flags, term, and for shift codes
// the post, shift-type and clock times.
type CodeInfo struct {
	Code      string
	Kind      CodeKind
	Term      Term
	Behaviour Behaviour

	WorkPostID WorkPostID
	DayType    DayType
	ShiftType  ShiftType
	Start      generic.ClockTime
	End        generic.ClockTime
	HasTimes   bool
	IsCritical bool
}

// Duration is zero for codes without times.
func (c CodeInfo) Duration() generic.Amount {
	if !c.HasTimes {
		return generic.NewAmountFromInt(0, generic.UnitHours)
	}
	return generic.ShiftDuration(c.Start, c.End)
}

// Interval returns the absolute shift instants when planned on d.
func (c CodeInfo) Interval(d generic.Date) generic.Interval {
	return generic.ShiftInterval(d, c.Start, c.End)
}

func shiftInfo(c ShiftCode) CodeInfo {
	return CodeInfo{
		Code:       c.Code,
		Kind:       KindShift,
		Behaviour:  c.Behaviour,
		WorkPostID: c.WorkPostID,
		DayType:    c.DayType,
		ShiftType:  c.ShiftType,
		Start:      c.Start,
		End:        c.End,
		HasTimes:   true,
		IsCritical: c.IsCritical,
	}
}

func specialInfo(c SpecialCode) CodeInfo {
	return CodeInfo{Code: c.Code, Kind: KindSpecial, Term: c.Term, Behaviour: c.Behaviour}
}

// =============================================================================
// CODE BOOK - letters → CodeInfo for a (user, date)
// =============================================================================

// CodeBook resolves the letters stored in planning rows. Shift-code letters
// are only unique per (work post, day-type), so the user's posts and the
// date's day-type pick the concrete code.
type CodeBook struct {
	special  map[string]SpecialCode
	byLetter map[string][]ShiftCode
	byTriple map[tripleKey][]ShiftCode
	posts    map[UserID][]UserWorkPost
	calendar *HolidayCalendar
}

type tripleKey struct {
	post      WorkPostID
	dayType   DayType
	shiftType ShiftType
}

// NewCodeBook indexes codes. userPosts may hold any number of users.
func NewCodeBook(shifts []ShiftCode, specials []SpecialCode, userPosts []UserWorkPost, cal *HolidayCalendar) *CodeBook {
	b := &CodeBook{
		special:  make(map[string]SpecialCode, len(specials)),
		byLetter: make(map[string][]ShiftCode),
		byTriple: make(map[tripleKey][]ShiftCode),
		posts:    make(map[UserID][]UserWorkPost),
		calendar: cal,
	}
	for _, s := range specials {
		b.special[s.Code] = s
	}
	for _, c := range shifts {
		b.byLetter[c.Code] = append(b.byLetter[c.Code], c)
		k := tripleKey{c.WorkPostID, c.DayType, c.ShiftType}
		b.byTriple[k] = append(b.byTriple[k], c)
	}
	for k := range b.byTriple {
		list := b.byTriple[k]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	}
	for _, p := range userPosts {
		b.posts[p.UserID] = append(b.posts[p.UserID], p)
	}
	for u := range b.posts {
		sortPosts(b.posts[u])
	}
	return b
}

func sortPosts(list []UserWorkPost) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].WorkPostID < list[j].WorkPostID
	})
}

// Calendar returns the holiday calendar the book dispatches day-types with.
func (b *CodeBook) Calendar() *HolidayCalendar { return b.calendar }

// Posts returns the user's posts by ascending priority.
func (b *CodeBook) Posts(user UserID) []UserWorkPost { return b.posts[user] }

// Knows reports whether user lists post among their work posts.
func (b *CodeBook) Knows(user UserID, post WorkPostID) bool {
	for _, p := range b.posts[user] {
		if p.WorkPostID == post {
			return true
		}
	}
	return false
}

// IsSpecial reports whether letters belong to a special code.
func (b *CodeBook) IsSpecial(letters string) bool {
	_, ok := b.special[letters]
	return ok
}

// Lookup resolves letters planned for user on d.
//
// Special codes win. Otherwise candidates are shift codes with these letters
// for the date's day-type, preferring the user's posts in priority order and
// then the lowest post ID. If no code exists for the day-type, any day-type
// is accepted in weekday/saturday/sunday order.
func (b *CodeBook) Lookup(user UserID, d generic.Date, letters string) (CodeInfo, bool) {
	if letters == "" {
		return CodeInfo{}, false
	}
	if s, ok := b.special[letters]; ok {
		return specialInfo(s), true
	}
	candidates := b.byLetter[letters]
	if len(candidates) == 0 {
		return CodeInfo{}, false
	}
	dt := b.calendar.DayType(d)
	if c, ok := b.pick(user, candidates, func(c ShiftCode) bool { return c.DayType == dt }); ok {
		return shiftInfo(c), true
	}
	for _, alt := range DayTypes {
		if c, ok := b.pick(user, candidates, func(c ShiftCode) bool { return c.DayType == alt }); ok {
			return shiftInfo(c), true
		}
	}
	return CodeInfo{}, false
}

func (b *CodeBook) pick(user UserID, candidates []ShiftCode, match func(ShiftCode) bool) (ShiftCode, bool) {
	for _, p := range b.posts[user] {
		for _, c := range candidates {
			if c.WorkPostID == p.WorkPostID && match(c) {
				return c, true
			}
		}
	}
	var (
		best  ShiftCode
		found bool
	)
	for _, c := range candidates {
		if !match(c) {
			continue
		}
		if !found || c.WorkPostID < best.WorkPostID {
			best, found = c, true
		}
	}
	return best, found
}

// ShiftFor returns the code for (post, day-type, shift-type).
func (b *CodeBook) ShiftFor(post WorkPostID, dt DayType, st ShiftType) (ShiftCode, bool) {
	list := b.byTriple[tripleKey{post, dt, st}]
	if len(list) == 0 {
		return ShiftCode{}, false
	}
	return list[0], true
}

// CriticalCodes returns the distinct letters of critical codes for dt.
func (b *CodeBook) CriticalCodes(dt DayType) []string {
	seen := make(map[string]bool)
	var out []string
	for letters, list := range b.byLetter {
		for _, c := range list {
			if c.IsCritical && c.DayType == dt && !seen[letters] {
				seen[letters] = true
				out = append(out, letters)
			}
		}
	}
	sort.Strings(out)
	return out
}
