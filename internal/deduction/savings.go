package deduction

import (
	"github.com/shopspring/decimal"
)

// DefaultMarginalRates are the illustrative brackets shown next to a result.
var DefaultMarginalRates = []decimal.Decimal{
	decimal.RequireFromString("0.22"),
	decimal.RequireFromString("0.24"),
	decimal.RequireFromString("0.32"),
}

var one = decimal.NewFromInt(1)

// TaxSavings estimates the tax saved by a deduction at a marginal rate.
func TaxSavings(deduction, marginalRate decimal.Decimal) (decimal.Decimal, error) {
	if deduction.IsNegative() {
		return decimal.Zero, &InvalidInputError{Field: "deduction", Value: deduction, Reason: "must not be negative"}
	}
	if marginalRate.IsNegative() || marginalRate.GreaterThan(one) {
		return decimal.Zero, &InvalidInputError{Field: "marginal rate", Value: marginalRate, Reason: "must be between 0 and 1"}
	}
	return deduction.Mul(marginalRate), nil
}

// Saving pairs a marginal rate with the estimated saving at that rate.
type Saving struct {
	MarginalRate decimal.Decimal
	Amount       decimal.Decimal
}

// SavingsTable computes TaxSavings for each marginal rate in order.
func SavingsTable(deduction decimal.Decimal, marginalRates []decimal.Decimal) ([]Saving, error) {
	out := make([]Saving, 0, len(marginalRates))
	for _, mr := range marginalRates {
		amount, err := TaxSavings(deduction, mr)
		if err != nil {
			return nil, err
		}
		out = append(out, Saving{MarginalRate: mr, Amount: amount})
	}
	return out, nil
}
