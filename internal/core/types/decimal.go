// Package types provides the numeric value types shared by the ledger packages.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyPlaces is the number of fractional digits persisted and displayed for amounts.
const MoneyPlaces = 2

// CostPlaces is the number of fractional digits persisted for unit costs.
const CostPlaces = 4

// PricePlaces bounds the fractional digits of input prices and percentages.
// Columns holding them are NUMERIC(_, 6), so a stored value equals the priced one.
const PricePlaces = 6

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds an amount to its persisted precision.
func RoundMoney(m Money) Money {
	return m.Round(MoneyPlaces)
}

// RoundCost rounds a unit cost to its persisted precision.
func RoundCost(m Money) Money {
	return m.Round(CostPlaces)
}

// HasAtMostPlaces reports whether m has no significant digit beyond places.
func HasAtMostPlaces(m Money, places int32) bool {
	return m.Equal(m.Truncate(places))
}

// Percent returns p/100.
func Percent(p Money) Money {
	return p.Div(decimal.NewFromInt(100))
}
