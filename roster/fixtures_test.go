package roster_test

import (
	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
)

var (
	workday   = roster.Behaviour{CountsAsWorkday: true}
	restCode  = roster.Behaviour{Resets12hRest: true, BreaksWorkStreak: true}
	leaveCode = roster.Behaviour{Resets12hRest: true, BreaksWorkStreak: true}
)

func d(s string) generic.Date { return generic.MustDate(s) }

func shift(id, code string, post roster.WorkPostID, dt roster.DayType, st roster.ShiftType, start, end string, critical bool) roster.ShiftCode {
	return roster.ShiftCode{
		ID: id, Code: code, WorkPostID: post, DayType: dt, ShiftType: st,
		Start: generic.MustClock(start), End: generic.MustClock(end),
		Behaviour: workday, IsCritical: critical, Active: true,
	}
}

// testShifts: post A has early/late/night on every day-type, post B has
// only weekday early. Weekday and Sunday letters differ so day-type
// dispatch is observable.
func testShifts() []roster.ShiftCode {
	return []roster.ShiftCode{
		shift("a-wd-e", "7", "A", roster.DayWeekday, roster.ShiftEarly, "06:00", "14:00", true),
		shift("a-wd-l", "8", "A", roster.DayWeekday, roster.ShiftLate, "14:00", "22:00", true),
		shift("a-wd-n", "9", "A", roster.DayWeekday, roster.ShiftNight, "22:00", "06:00", false),
		shift("a-wd-d", "D1", "A", roster.DayWeekday, roster.ShiftDay, "08:00", "16:30", false),
		shift("a-sa-e", "Z7", "A", roster.DaySaturday, roster.ShiftEarly, "07:00", "15:00", true),
		shift("a-sa-l", "Z8", "A", roster.DaySaturday, roster.ShiftLate, "15:00", "23:00", false),
		shift("a-su-e", "S7", "A", roster.DaySunday, roster.ShiftEarly, "07:00", "15:00", true),
		shift("a-su-l", "S8", "A", roster.DaySunday, roster.ShiftLate, "15:00", "23:00", true),
		shift("a-su-n", "S9", "A", roster.DaySunday, roster.ShiftNight, "23:00", "07:00", false),
		shift("b-wd-e", "7", "B", roster.DayWeekday, roster.ShiftEarly, "05:30", "13:30", false),
		shift("b-wd-x", "B1", "B", roster.DayWeekday, roster.ShiftDay, "09:00", "17:00", false),
	}
}

func testSpecials() []roster.SpecialCode {
	return []roster.SpecialCode{
		{ID: "sp-rx", Code: "RX", Name: "Sunday rest", Term: roster.TermSundayRest, Behaviour: restCode},
		{ID: "sp-cx", Code: "CX", Name: "Saturday rest", Term: roster.TermSaturdayRest, Behaviour: restCode},
		{ID: "sp-vv", Code: "VV", Name: "Holiday leave", Term: roster.TermHolidayLeave, Behaviour: leaveCode},
		{ID: "sp-t", Code: "T", Name: "Reserve", Behaviour: roster.Behaviour{CountsAsWorkday: true}},
	}
}

func testPosts() []roster.UserWorkPost {
	return []roster.UserWorkPost{
		{UserID: "u1", WorkPostID: "A", Priority: 1},
		{UserID: "u2", WorkPostID: "B", Priority: 1},
		{UserID: "u2", WorkPostID: "A", Priority: 2},
	}
}

func testCalendar() *roster.HolidayCalendar {
	return roster.NewHolidayCalendar([]roster.Holiday{
		{Date: d("2024-12-25"), Name: "Christmas", CountsAsSundayRest: true},
		{Date: d("2025-01-01"), Name: "New Year", CountsAsSundayRest: true},
	})
}

func testBook() *roster.CodeBook {
	return roster.NewCodeBook(testShifts(), testSpecials(), testPosts(), testCalendar())
}
