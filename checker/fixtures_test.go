package checker_test

import (
	"github.com/warp/roster-engine/checker"
	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

func d(s string) generic.Date { return generic.MustDate(s) }

var workday = roster.Behaviour{CountsAsWorkday: true}

func shift(id, code string, post roster.WorkPostID, dt roster.DayType, st roster.ShiftType, start, end string) roster.ShiftCode {
	return roster.ShiftCode{
		ID: id, Code: code, WorkPostID: post, DayType: dt, ShiftType: st,
		Start: generic.MustClock(start), End: generic.MustClock(end),
		Behaviour: workday, Active: true,
	}
}

// Post A covers every day-type with 8h shifts; post B has one weekday code.
func testBook() *roster.CodeBook {
	return testBookWith(nil)
}

func testBookWith(holidays []roster.Holiday) *roster.CodeBook {
	shifts := []roster.ShiftCode{
		shift("a-wd-e", "7", "A", roster.DayWeekday, roster.ShiftEarly, "06:00", "14:00"),
		shift("a-wd-l", "8", "A", roster.DayWeekday, roster.ShiftLate, "14:00", "22:00"),
		shift("a-wd-n", "9", "A", roster.DayWeekday, roster.ShiftNight, "22:00", "06:00"),
		shift("a-sa-e", "Z7", "A", roster.DaySaturday, roster.ShiftEarly, "07:00", "15:00"),
		shift("a-su-e", "S7", "A", roster.DaySunday, roster.ShiftEarly, "07:00", "15:00"),
		shift("b-wd-x", "B1", "B", roster.DayWeekday, roster.ShiftDay, "09:00", "17:00"),
	}
	rest := roster.Behaviour{Resets12hRest: true, BreaksWorkStreak: true}
	specials := []roster.SpecialCode{
		{ID: "sp-rx", Code: "RX", Term: roster.TermSundayRest, Behaviour: rest},
		{ID: "sp-cx", Code: "CX", Term: roster.TermSaturdayRest, Behaviour: rest},
		{ID: "sp-vv", Code: "VV", Term: roster.TermHolidayLeave, Behaviour: rest},
	}
	posts := []roster.UserWorkPost{{UserID: "u1", WorkPostID: "A", Priority: 1}}
	return roster.NewCodeBook(shifts, specials, posts, roster.NewHolidayCalendar(holidays))
}

// plan resolves "date=code" pairs for u1. An unresolvable code yields a
// record with Known false.
func plan(book *roster.CodeBook, pairs ...string) []checker.Record {
	var out []checker.Record
	for _, p := range pairs {
		date, code := p[:10], p[11:]
		r := checker.Record{User: "u1", Date: d(date), Code: code}
		r.Info, r.Known = book.Lookup("u1", r.Date, code)
		out = append(out, r)
	}
	return out
}

// daily plans code on every date in [from, to].
func daily(book *roster.CodeBook, from, to string, code func(generic.Date) string) []checker.Record {
	var pairs []string
	for day := d(from); day.BeforeOrEqual(d(to)); day = day.AddDays(1) {
		pairs = append(pairs, day.String()+"="+code(day))
	}
	return plan(book, pairs...)
}

// earlyFor returns the 8h early code for d's day-type.
func earlyFor(day generic.Date) string {
	switch day.Weekday() {
	case 6:
		return "Z7"
	case 0:
		return "S7"
	}
	return "7"
}

func input(recs []checker.Record, book *roster.CodeBook) checker.Input {
	return checker.Input{
		Records:  recs,
		Config:   roster.SingleConfig(roster.DefaultConfig()),
		Holidays: book.Calendar(),
		Knows:    book.Knows,
	}
}
