package model

import (
	"github.com/shopspring/decimal"
)

// MaxMiles is a sanity bound on a single mileage figure, not a legal limit.
var MaxMiles = decimal.NewFromInt(100000)

// MileageInput is raw mileage for one purpose.
type MileageInput struct {
	Purpose       Purpose
	Miles         decimal.Decimal
	Reimbursement decimal.Decimal // business only; zero when absent
}

// Validate checks field ranges. A reimbursement larger than the deduction is
// allowed; the net deduction clamps to zero instead.
func (in MileageInput) Validate() error {
	var errs ValidationErrors
	if !in.Purpose.Valid() {
		errs = append(errs, ValidationError{Field: "purpose", Message: "unknown purpose " + string(in.Purpose)})
	}
	if in.Miles.IsNegative() || in.Miles.GreaterThan(MaxMiles) {
		errs = append(errs, ValidationError{Field: "miles", Message: "must be between 0 and 100000"})
	}
	if in.Reimbursement.IsNegative() {
		errs = append(errs, ValidationError{Field: "reimbursement", Message: "must not be negative"})
	}
	if !in.Reimbursement.IsZero() && in.Purpose != PurposeBusiness {
		errs = append(errs, ValidationError{Field: "reimbursement", Message: "only applies to business mileage"})
	}
	return errs.AsError()
}

// DeductionResult is derived from a MileageInput and a rate. It is never
// stored on its own.
type DeductionResult struct {
	Purpose       Purpose
	RateApplied   decimal.Decimal
	Miles         decimal.Decimal
	Gross         decimal.Decimal
	Reimbursement decimal.Decimal
	Net           decimal.Decimal
}
