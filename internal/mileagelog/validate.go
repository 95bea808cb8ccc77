package mileagelog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/model"
)

// Draft is a trip as entered, before it is accepted into a Log.
type Draft struct {
	Date            time.Time
	StartLocation   string
	EndLocation     string
	BusinessPurpose string
	StartOdometer   decimal.NullDecimal
	EndOdometer     decimal.NullDecimal
	Miles           decimal.NullDecimal // used when either odometer reading is missing
	Country         string
}

var ten = decimal.NewFromInt(10)

// ValidateDraft checks every field and returns all problems found.
func ValidateDraft(d Draft) model.ValidationErrors {
	var errs model.ValidationErrors

	required := []struct {
		field string
		value string
	}{
		{"start_location", d.StartLocation},
		{"end_location", d.EndLocation},
		{"business_purpose", d.BusinessPurpose},
	}
	if d.Date.IsZero() {
		errs = append(errs, model.ValidationError{Field: "date", Message: "required"})
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, model.ValidationError{Field: r.field, Message: "required"})
		}
	}

	hasOdometer := d.StartOdometer.Valid && d.EndOdometer.Valid

	// Readings are kept to tenths of a mile so exported files hold them exactly.
	// Explicit miles are unused when both odometer readings are present.
	for _, f := range []struct {
		field string
		value decimal.NullDecimal
	}{
		{"start_odometer", d.StartOdometer},
		{"end_odometer", d.EndOdometer},
		{"miles", d.Miles},
	} {
		if !f.value.Valid || (f.field == "miles" && hasOdometer) {
			continue
		}
		if f.value.Decimal.IsNegative() {
			errs = append(errs, model.ValidationError{Field: f.field, Message: "must not be negative"})
		}
		if !tenths(f.value.Decimal) {
			errs = append(errs, model.ValidationError{Field: f.field, Message: "more than one decimal place"})
		}
	}

	switch {
	case hasOdometer:
		miles := d.EndOdometer.Decimal.Sub(d.StartOdometer.Decimal)
		if miles.GreaterThan(model.MaxMiles) {
			errs = append(errs, model.ValidationError{Field: "end_odometer", Message: "trip exceeds 100000 miles"})
		}
	case d.Miles.Valid:
		if d.Miles.Decimal.GreaterThan(model.MaxMiles) {
			errs = append(errs, model.ValidationError{Field: "miles", Message: "must be between 0 and 100000"})
		}
	default:
		errs = append(errs, model.ValidationError{Field: "miles", Message: "odometer readings or miles required"})
	}

	return errs
}

func tenths(d decimal.Decimal) bool {
	scaled := d.Mul(ten)
	return scaled.Equal(scaled.Floor())
}
