// Package types holds the small value objects shared across modules.
package types

import (
	"fmt"
	"math"
)

// Money is an amount in minor units (cents) of a single currency.
// All fare and wallet arithmetic stays in int64 minor units; floats only
// appear at the edges (distance math, display).
type Money struct {
	Amount   int64
	Currency string
}

const minorUnitsPerUnit = 100

// MoneyFromUnits builds a Money from a whole-unit float, rounding to the
// nearest minor unit.
func MoneyFromUnits(units float64, currency string) Money {
	return Money{Amount: int64(math.Round(units * minorUnitsPerUnit)), Currency: currency}
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}
}

func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}
}

// MulFloat scales the amount by f and rounds to the nearest minor unit.
func (m Money) MulFloat(f float64) Money {
	return Money{Amount: int64(math.Round(float64(m.Amount) * f)), Currency: m.Currency}
}

// RoundToUnit rounds the amount to the nearest whole currency unit.
func (m Money) RoundToUnit() Money {
	units := math.Round(float64(m.Amount) / minorUnitsPerUnit)
	return Money{Amount: int64(units) * minorUnitsPerUnit, Currency: m.Currency}
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

func (m Money) GTE(o Money) bool { return m.Amount >= o.Amount }

// Units returns the amount in whole currency units.
func (m Money) Units() float64 { return float64(m.Amount) / minorUnitsPerUnit }

func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Units(), m.Currency)
}
