package roster

import (
	"sort"
	"time"

	"github.com/warp/roster-engine/generic"
)

// =============================================================================
// VARIABLE HOLIDAYS - derived from Easter
// =============================================================================

const (
	HolidayEasterMonday = "Easter Monday"
	HolidayAscension    = "Ascension Day"
	HolidayWhitMonday   = "Whit Monday"
)

// Easter returns Easter Sunday for year (anonymous Gregorian algorithm).
func Easter(year int) generic.Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return generic.NewDate(year, time.Month(month), day)
}

// VariableHolidays generates the Easter-derived holidays for year.
func VariableHolidays(year int) []Holiday {
	easter := Easter(year)
	return []Holiday{
		{Date: easter.AddDays(1), Name: HolidayEasterMonday, CountsAsSundayRest: true, IsVariable: true},
		{Date: easter.AddDays(39), Name: HolidayAscension, CountsAsSundayRest: true, IsVariable: true},
		{Date: easter.AddDays(50), Name: HolidayWhitMonday, CountsAsSundayRest: true, IsVariable: true},
	}
}

func isGeneratedName(name string) bool {
	return name == HolidayEasterMonday || name == HolidayAscension || name == HolidayWhitMonday
}

// HolidaysForYear merges stored rows with the generated variable set.
// Stored variable rows from the generated set are replaced by the computed
// date for year, keeping their CountsAsSundayRest flag.
func HolidaysForYear(stored []Holiday, year int) []Holiday {
	flags := make(map[string]bool)
	var out []Holiday
	for _, h := range stored {
		if h.IsVariable && isGeneratedName(h.Name) {
			flags[h.Name] = h.CountsAsSundayRest
			continue
		}
		if h.Date.Year() == year {
			out = append(out, h)
		}
	}
	for _, h := range VariableHolidays(year) {
		if f, ok := flags[h.Name]; ok {
			h.CountsAsSundayRest = f
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// =============================================================================
// HOLIDAY CALENDAR - the single day-type helper
// =============================================================================

// HolidayCalendar answers "is this a holiday" and "what day-type is this".
// A nil calendar knows no holidays.
type HolidayCalendar struct {
	byDate map[generic.Date]Holiday
}

func NewHolidayCalendar(holidays []Holiday) *HolidayCalendar {
	c := &HolidayCalendar{byDate: make(map[generic.Date]Holiday, len(holidays))}
	for _, h := range holidays {
		c.byDate[h.Date] = h
	}
	return c
}

// Holiday returns the holiday on d, if any.
func (c *HolidayCalendar) Holiday(d generic.Date) (Holiday, bool) {
	if c == nil {
		return Holiday{}, false
	}
	h, ok := c.byDate[d]
	return h, ok
}

func (c *HolidayCalendar) IsHoliday(d generic.Date) bool {
	_, ok := c.Holiday(d)
	return ok
}

// DayType resolves d to weekday/saturday/sunday. A holiday is a Sunday,
// whatever its calendar weekday. Every day-type dispatch goes through here.
func (c *HolidayCalendar) DayType(d generic.Date) DayType {
	if c.IsHoliday(d) {
		return DaySunday
	}
	switch d.Weekday() {
	case time.Saturday:
		return DaySaturday
	case time.Sunday:
		return DaySunday
	}
	return DayWeekday
}

// All returns the holidays in date order.
func (c *HolidayCalendar) All() []Holiday {
	if c == nil {
		return nil
	}
	out := make([]Holiday, 0, len(c.byDate))
	for _, h := range c.byDate {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
