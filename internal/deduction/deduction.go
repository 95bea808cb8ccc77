// Package deduction turns mileage and per-mile rates into deduction figures.
//
// Every function is pure. Amounts keep full decimal precision internally;
// rounding to cents happens only when a figure is displayed, so totals across
// several categories do not accumulate rounding error.
package deduction

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/model"
)

// InvalidInputError is returned when arithmetic input is negative or otherwise
// unusable.
type InvalidInputError struct {
	Field  string
	Value  decimal.Decimal
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %s: %s", e.Field, e.Value, e.Reason)
}

// RateLookup resolves the published rate for a tax year and purpose.
type RateLookup interface {
	Rate(taxYear int, purpose model.Purpose) (decimal.Decimal, error)
}

// Gross returns miles x perMile at full precision.
func Gross(miles, perMile decimal.Decimal) (decimal.Decimal, error) {
	if miles.IsNegative() {
		return decimal.Zero, &InvalidInputError{Field: "miles", Value: miles, Reason: "must not be negative"}
	}
	if perMile.IsNegative() {
		return decimal.Zero, &InvalidInputError{Field: "rate", Value: perMile, Reason: "must not be negative"}
	}
	return miles.Mul(perMile), nil
}

// Net returns gross minus reimbursement, floored at zero. A reimbursement
// larger than the gross deduction yields zero, not an error.
func Net(gross, reimbursement decimal.Decimal) (decimal.Decimal, error) {
	if gross.IsNegative() {
		return decimal.Zero, &InvalidInputError{Field: "gross deduction", Value: gross, Reason: "must not be negative"}
	}
	if reimbursement.IsNegative() {
		return decimal.Zero, &InvalidInputError{Field: "reimbursement", Value: reimbursement, Reason: "must not be negative"}
	}
	net := gross.Sub(reimbursement)
	if net.IsNegative() {
		return decimal.Zero, nil
	}
	return net, nil
}

// Compute validates input, resolves the rate for taxYear and returns the
// gross and net deduction.
func Compute(input model.MileageInput, lookup RateLookup, taxYear int) (model.DeductionResult, error) {
	if err := input.Validate(); err != nil {
		return model.DeductionResult{}, err
	}

	rate, err := lookup.Rate(taxYear, input.Purpose)
	if err != nil {
		return model.DeductionResult{}, err
	}

	gross, err := Gross(input.Miles, rate)
	if err != nil {
		return model.DeductionResult{}, err
	}

	net, err := Net(gross, input.Reimbursement)
	if err != nil {
		return model.DeductionResult{}, err
	}

	return model.DeductionResult{
		Purpose:       input.Purpose,
		RateApplied:   rate,
		Miles:         input.Miles,
		Gross:         gross,
		Reimbursement: input.Reimbursement,
		Net:           net,
	}, nil
}
