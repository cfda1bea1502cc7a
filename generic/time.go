/*
time.go - Calendar dates, clock times and shift arithmetic

PURPOSE:
  Every rule in the roster engine reasons about two kinds of time:
  - Date: a calendar day (planning rows, holidays, cycles are keyed by day)
  - Instant: an absolute point in time (shift start/end, period edges)

  Dates are always midnight UTC. Wall-clock times in the roster are
  interpreted in UTC as well, so daylight-saving transitions never make
  a shift 7 or 9 hours long. This keeps "08:00-16:00" at 8 hours every
  day of the year, which is what the collective agreements count.

MIDNIGHT CROSSING:
  A shift whose end clock is less than or equal to its start clock ends
  on the following day:
    22:00-06:00  → 8h, ends next morning
    06:00-06:00  → 24h

KEY OPERATIONS:
  ShiftDuration(start, end)                      hours, midnight-aware
  ShiftInterval(date, start, end)                absolute [start, end]
  RestBetween(dateA, startA, endA, dateB, startB) hours between A's end and B's start

SEE ALSO:
  - period.go: period descriptors and strict interval overlap
  - types.go: Amount (decimal hours/days)
*/
package generic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for dates.
const DateLayout = "2006-01-02"

// =============================================================================
// DATE - A calendar day
// =============================================================================

// Date is a calendar day at midnight UTC.
type Date struct {
	Time time.Time
}

// NewDate returns the date for year/month/day, normalising overflow the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// MustDate parses YYYY-MM-DD and panics on error. Meant for tests and fixtures.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func Today() Date { return DateOf(time.Now()) }

// Comparison
func (d Date) Before(o Date) bool        { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool         { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool         { return d.Time.Equal(o.Time) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int              { return d.Time.Year() }
func (d Date) Month() time.Month      { return d.Time.Month() }
func (d Date) Day() int               { return d.Time.Day() }
func (d Date) Weekday() time.Weekday  { return d.Time.Weekday() }
func (d Date) IsZero() bool           { return d.Time.IsZero() }
func (d Date) String() string         { return d.Time.Format(DateLayout) }
func (d Date) Format(l string) string { return d.Time.Format(l) }
func (d Date) Compare(o Date) int     { return d.Time.Compare(o.Time) }

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func (d Date) ISOWeekday() int {
	return WeekdayIndex(d.Time) + 1
}

// At returns the instant on this date at the given clock time.
func (d Date) At(c ClockTime) time.Time {
	return d.Time.Add(time.Duration(c) * time.Minute)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WeekdayIndex numbers days Monday=0 … Sunday=6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month+1, 1).AddDays(-1)
}

// MonthPeriod returns [first, last] of the month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// =============================================================================
// CLOCK TIME - Minutes since midnight
// =============================================================================

// ClockTime is a wall-clock time expressed as minutes since midnight (0..1439).
type ClockTime int

// NewClock builds a ClockTime from hours and minutes.
func NewClock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock parses HH:MM.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: hour in %q", ErrMalformedClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: minute in %q", ErrMalformedClock, s)
	}
	return NewClock(h, m), nil
}

// MustClock parses HH:MM and panics on error.
func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// =============================================================================
// SHIFT ARITHMETIC
// =============================================================================

// CrossesMidnight reports whether a shift from start to end ends the next day.
func CrossesMidnight(start, end ClockTime) bool {
	return end <= start
}

// shiftMinutes is the length of a shift in minutes.
func shiftMinutes(start, end ClockTime) int {
	m := int(end) - int(start)
	if CrossesMidnight(start, end) {
		m += 24 * 60
	}
	return m
}

// ShiftDuration returns the length of a shift in hours.
func ShiftDuration(start, end ClockTime) Amount {
	return NewAmountFromMinutes(shiftMinutes(start, end))
}

// ShiftInterval returns the absolute instants of a shift planned on date.
func ShiftInterval(date Date, start, end ClockTime) Interval {
	s := date.At(start)
	return Interval{Start: s, End: s.Add(time.Duration(shiftMinutes(start, end)) * time.Minute)}
}

// RestBetween returns the absolute hours between the end of shift A and the start of shift B.
func RestBetween(dateA Date, startA, endA ClockTime, dateB Date, startB ClockTime) Amount {
	endOfA := ShiftInterval(dateA, startA, endA).End
	gap := dateB.At(startB).Sub(endOfA)
	if gap < 0 {
		gap = -gap
	}
	return NewAmountFromMinutes(int(gap / time.Minute))
}
