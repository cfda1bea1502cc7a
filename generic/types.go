/*
Package generic provides the calendar and clock arithmetic shared by every
part of the roster engine.

PURPOSE:
  The constraint rules are easy to state and easy to get wrong at the edges:
  shifts crossing midnight, weeks that end at 23:59, weekends that start on
  Friday evening, cycles that ignore calendar months. This package owns
  those edges so the rule code above it never compares raw time.Time values.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: an exact quantity with a unit (8 hours, 2.5 days)

DESIGN PRINCIPLES:
  1. Precision: hours and days use decimal.Decimal, never float64
  2. Exclusive edges: interval overlap is strict on both sides (period.go)
  3. UTC wall clock: dates and instants never shift with DST (time.go)

SEE ALSO:
  - time.go: Date, ClockTime, shift duration and rest
  - period.go: Period, Interval, PeriodSpec
  - errors.go: sentinel and structured errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitDays  Unit = "days"
	UnitHours Unit = "hours"
)

var sixty = decimal.NewFromInt(60)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// NewAmountFromMinutes converts minutes to hours.
func NewAmountFromMinutes(minutes int) Amount {
	return Amount{Value: decimal.NewFromInt(int64(minutes)).Div(sixty), Unit: UnitHours}
}

// ParseAmount parses a decimal string ("12", "7.5").
func ParseAmount(s string, unit Unit) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d, Unit: unit}, nil
}

func Hours(n float64) Amount { return NewAmount(n, UnitHours) }
func Days(n float64) Amount  { return NewAmount(n, UnitDays) }

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) String() string               { return a.Value.String() }
func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}
func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
