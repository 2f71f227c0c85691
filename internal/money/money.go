// Package money converts between major-unit prices and integer minor units (sen).
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line returns unitPrice*quantity as an exact decimal.
func Line(unitPrice float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
}

// ToMinor rounds a major-unit amount to minor units, half away from zero.
func ToMinor(major decimal.Decimal) int64 {
	return major.Mul(hundred).Round(0).IntPart()
}

// FromMinor converts minor units back to a major-unit float for storage and display.
func FromMinor(minor int64) float64 {
	f, _ := decimal.New(minor, -2).Float64()
	return f
}

// Format renders minor units as "RM 20.00".
func Format(minor int64) string {
	return "RM " + decimal.New(minor, -2).StringFixed(2)
}
