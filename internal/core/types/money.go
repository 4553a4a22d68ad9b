// Package types provides the money type used by pricing and every ledger.
package types

import (
	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. Binary floats never touch currency.
type Money = decimal.Decimal

var hundred = decimal.NewFromInt(100)

// NewMoneyFromString is the preferred constructor for amounts coming from input.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney panics on error. Constants and tests only.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

// FromInt converts whole units.
func FromInt(v int64) Money {
	return decimal.NewFromInt(v)
}

func Zero() Money {
	return decimal.Zero
}

// AddPercent returns v × (1 + pct/100).
func AddPercent(v Money, pct decimal.Decimal) Money {
	return v.Mul(decimal.NewFromInt(1).Add(pct.Div(hundred)))
}

// SubtractPercent returns v × (1 − pct/100).
func SubtractPercent(v Money, pct decimal.Decimal) Money {
	return v.Mul(decimal.NewFromInt(1).Sub(pct.Div(hundred)))
}

// PercentOf returns part/whole × 100, or zero when whole is zero.
func PercentOf(part, whole Money) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
