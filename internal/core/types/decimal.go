// Package types provides the fixed-point value types used for prices, taxes and stock.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Stored as NUMERIC(15,2).
type Money = decimal.Decimal

// Quantity is an ordered or stocked quantity. Stored as NUMERIC(10,3).
type Quantity = decimal.Decimal

// Percent is a tax rate such as 18 for 18%. Stored as NUMERIC(5,2).
type Percent = decimal.Decimal

// Scales match the column definitions.
const (
	MoneyScale    int32 = 2
	QuantityScale int32 = 3
	PercentScale  int32 = 2
)

var hundred = decimal.NewFromInt(100)

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

// RoundMoney rounds half away from zero to two places.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// RoundQuantity rounds to the stored quantity scale.
func RoundQuantity(q Quantity) Quantity {
	return q.Round(QuantityScale)
}

// PercentOf returns amount × pct / 100, unrounded.
func PercentOf(amount Money, pct Percent) Money {
	return amount.Mul(pct).Div(hundred)
}

// Sum adds values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// MaxQuantity is the exclusive upper bound of NUMERIC(10,3).
var MaxQuantity = decimal.New(1, 10-QuantityScale)

// CheckQuantity rejects quantities the NUMERIC(10,3) column would round or
// overflow, and anything not above zero.
func CheckQuantity(q Quantity) error {
	switch {
	case !q.IsPositive():
		return fmt.Errorf("quantity %s must be greater than 0", q)
	case !q.Equal(RoundQuantity(q)):
		return fmt.Errorf("quantity %s has more than %d decimal places", q, QuantityScale)
	case q.GreaterThanOrEqual(MaxQuantity):
		return fmt.Errorf("quantity %s must be below %s", q, MaxQuantity)
	}
	return nil
}

// CheckPercent accepts tax rates from 0 to 100 with at most two places.
func CheckPercent(p Percent) error {
	switch {
	case p.IsNegative() || p.GreaterThan(hundred):
		return fmt.Errorf("percent %s must be between 0 and 100", p)
	case !p.Equal(p.Round(PercentScale)):
		return fmt.Errorf("percent %s has more than %d decimal places", p, PercentScale)
	}
	return nil
}
