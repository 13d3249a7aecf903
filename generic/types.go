/*
Package generic provides the domain-agnostic building blocks of the benefit engine.

PURPOSE:
  This package contains the types and algorithms that do not know anything
  about meal vouchers specifically: money amounts, day-precision time points,
  month periods, holiday sets, working-day counting, rate cards, versioned
  payment policies and the error taxonomy. The benefit package builds the
  VR domain on top of them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal currency amount (e.g., R$ 37.50)
  - EmployeeID: Integer employee registration number (matrícula)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Immutability: Every Money operation returns a new value
  3. Type Safety: EmployeeID is not interchangeable with plain ints

USAGE:
  rate := generic.MustParseMoney("37.50")
  total := rate.MulInt(22) // R$ 825.00

SEE ALSO:
  - time.go: TimePoint, holidays and ProportionalWorkDays
  - policy.go: Versioned rule-and-formula policies
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal currency amount
// =============================================================================

type Money struct {
	Value    decimal.Decimal
	Currency Currency
}

type Currency string

const CurrencyBRL Currency = "BRL"

func NewMoneyFromDecimal(value decimal.Decimal) Money {
	return Money{Value: value, Currency: CurrencyBRL}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero, Currency: CurrencyBRL} }

// MustParseMoney parses a decimal string. Invalid input yields zero.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney()
	}
	return NewMoneyFromDecimal(d)
}

func (m Money) Add(b Money) Money            { return Money{Value: m.Value.Add(b.Value), Currency: m.currency()} }
func (m Money) Mul(s decimal.Decimal) Money  { return Money{Value: m.Value.Mul(s), Currency: m.currency()} }
func (m Money) MulInt(n int) Money           { return m.Mul(decimal.NewFromInt(int64(n))) }
func (m Money) Round() Money                 { return Money{Value: m.Value.Round(2), Currency: m.currency()} }
func (m Money) IsZero() bool                 { return m.Value.IsZero() }
func (m Money) Equal(b Money) bool           { return m.Value.Equal(b.Value) }
func (m Money) Float64() float64             { return m.Value.Round(2).InexactFloat64() }
func (m Money) String() string               { return m.Value.StringFixed(2) }

func (m Money) currency() Currency {
	if m.Currency == "" {
		return CurrencyBRL
	}
	return m.Currency
}

// SumMoney adds up amounts; an empty slice sums to zero.
func SumMoney(values ...Money) Money {
	total := ZeroMoney()
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EmployeeID is the integer registration number that keys the registry.
type EmployeeID int64

func (id EmployeeID) String() string { return strconv.FormatInt(int64(id), 10) }
