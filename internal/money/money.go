package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol is the currency symbol prefixed to display strings.
const Symbol = "฿"

// MinorPerUnit is the number of satang in one Baht.
const MinorPerUnit = 100

var (
	// ErrPrecision is returned when an amount carries more than two decimal places.
	ErrPrecision = errors.New("money: more than two decimal places")
	// ErrOutOfRange is returned when an amount exceeds MaxAmount in magnitude.
	ErrOutOfRange = errors.New("money: amount out of range")
)

// MaxAmount bounds every amount the register accepts, one hundred billion Baht.
// It leaves headroom below int64 for tax and summing lines.
const MaxAmount Money = 100_000_000_000 * MinorPerUnit

var maxAmountDecimal = decimal.New(int64(MaxAmount), -2)

// Money represents a monetary value stored in minor units (satang).
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// Units converts whole Baht into Money.
func Units(n int64) Money {
	return Money(n * MinorPerUnit)
}

// FromDecimal converts d into Money rounding half away from zero to two places.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(2).Shift(2).IntPart())
}

// FromDecimalExact converts d into Money and fails when rounding would be required.
func FromDecimalExact(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Round(2)) {
		return 0, ErrPrecision
	}
	if d.Abs().GreaterThan(maxAmountDecimal) {
		return 0, ErrOutOfRange
	}
	return Money(d.Shift(2).IntPart()), nil
}

// Parse reads a decimal string such as "450", "450.5" or "450.50".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return FromDecimalExact(d)
}

// MustParse is Parse for constants in tests and defaults.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the amount in Baht as a decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return m + o }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return m - o }

// MulInt multiplies the amount by an integer quantity. Callers that take the
// quantity from input use MulIntChecked.
func (m Money) MulInt(n int64) Money { return m * Money(n) }

// MulIntChecked is MulInt that fails with ErrOutOfRange instead of leaving
// the MaxAmount bound or wrapping around int64.
func (m Money) MulIntChecked(n int64) (Money, error) {
	if m == 0 || n == 0 {
		return 0, nil
	}
	if m.abs() > MaxAmount || n > int64(MaxAmount) || n < -int64(MaxAmount) {
		return 0, ErrOutOfRange
	}
	p := m * Money(n)
	if p/Money(n) != m || p.abs() > MaxAmount {
		return 0, ErrOutOfRange
	}
	return p, nil
}

// AddChecked is Add that fails with ErrOutOfRange when the sum leaves the
// MaxAmount bound.
func (m Money) AddChecked(o Money) (Money, error) {
	if m.abs() > MaxAmount || o.abs() > MaxAmount {
		return 0, ErrOutOfRange
	}
	sum := m + o
	if sum.abs() > MaxAmount {
		return 0, ErrOutOfRange
	}
	return sum, nil
}

func (m Money) abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// MulRate scales the amount by rate, rounding the result to two places.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return FromDecimal(m.Decimal().Mul(rate))
}

// Cmp returns -1, 0 or +1 depending on whether m is less than, equal to or greater than o.
func (m Money) Cmp(o Money) int {
	switch {
	case m < o:
		return -1
	case m > o:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m == 0 }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m < 0 }

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Money) Money {
	if a > b {
		return a
	}
	return b
}

// NonNegative clamps negative amounts to zero. Only display boundaries use it.
func (m Money) NonNegative() Money {
	if m < 0 {
		return 0
	}
	return m
}

// WholeUnits returns the whole-Baht part, truncated toward zero.
func (m Money) WholeUnits() int64 {
	return int64(m) / MinorPerUnit
}

// Amount formats the value with two decimals and no symbol, e.g. "486.00".
func (m Money) Amount() string {
	return m.Decimal().StringFixed(2)
}

// String formats the value for display, e.g. "฿486.00".
func (m Money) String() string {
	if m < 0 {
		return "-" + Symbol + (-m).Amount()
	}
	return Symbol + m.Amount()
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Amount()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// DefaultUSDRate is the Baht per USD applied to legacy USD prices.
var DefaultUSDRate = decimal.NewFromInt(35)

// ConvertUSD converts a legacy USD reference price into Baht at the given rate.
func ConvertUSD(usd decimal.Decimal, thbPerUSD decimal.Decimal) Money {
	return FromDecimal(usd.Mul(thbPerUSD))
}
