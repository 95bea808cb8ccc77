package deduction

import (
	"github.com/shopspring/decimal"
)

// Round2 rounds a currency amount to cents, half away from zero. Deduction
// amounts are never negative, so this is half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatCurrency renders dollars with two fraction digits and a period
// separator regardless of locale: "700.00".
func FormatCurrency(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatMiles renders miles with one fraction digit: "250.0".
func FormatMiles(d decimal.Decimal) string {
	return d.StringFixed(1)
}

// FormatRate renders a per-mile rate with three fraction digits: "0.655".
func FormatRate(d decimal.Decimal) string {
	return d.StringFixed(3)
}

// FormatPercent renders a fraction as a whole percentage: 0.22 -> "22%".
func FormatPercent(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%"
}
