package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParsePurpose(t *testing.T) {
	tests := []struct {
		input string
		want  Purpose
	}{
		{"business", PurposeBusiness},
		{"Business", PurposeBusiness},
		{" medical ", PurposeMedical},
		{"moving", PurposeMedical},
		{"charitable", PurposeCharitable},
		{"CHARITY", PurposeCharitable},
	}
	for _, tt := range tests {
		got, err := ParsePurpose(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParsePurpose("commuting")
	assert.Error(t, err)
}

func TestPurposeValid(t *testing.T) {
	for _, p := range Purposes {
		assert.True(t, p.Valid(), "%s should be valid", p)
		assert.NotEmpty(t, p.Label())
	}
	assert.False(t, Purpose("").Valid())
	assert.False(t, Purpose("commute").Valid())
}

func TestMileageInputValidate(t *testing.T) {
	ok := MileageInput{Purpose: PurposeBusiness, Miles: dec("1000"), Reimbursement: dec("5000")}
	assert.NoError(t, ok.Validate(), "reimbursement above deduction is allowed")

	tests := []struct {
		name  string
		input MileageInput
		field string
	}{
		{"negative miles", MileageInput{Purpose: PurposeBusiness, Miles: dec("-1")}, "miles"},
		{"too many miles", MileageInput{Purpose: PurposeBusiness, Miles: dec("100000.1")}, "miles"},
		{"negative reimbursement", MileageInput{Purpose: PurposeBusiness, Miles: dec("1"), Reimbursement: dec("-2")}, "reimbursement"},
		{"medical reimbursement", MileageInput{Purpose: PurposeMedical, Miles: dec("1"), Reimbursement: dec("2")}, "reimbursement"},
		{"unknown purpose", MileageInput{Purpose: "commute", Miles: dec("1")}, "purpose"},
	}
	for _, tt := range tests {
		err := tt.input.Validate()
		require.Error(t, err, tt.name)

		var verrs ValidationErrors
		require.True(t, errors.As(err, &verrs), tt.name)
		assert.True(t, verrs.Has(tt.field), "%s: expected field %s, got %v", tt.name, tt.field, verrs.Fields())
	}
}

func TestMileageInputBoundary(t *testing.T) {
	in := MileageInput{Purpose: PurposeCharitable, Miles: dec("100000")}
	assert.NoError(t, in.Validate())

	in.Miles = decimal.Zero
	assert.NoError(t, in.Validate())
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Field: "date", Message: "required"},
		{Field: "start_location", Message: "required"},
	}
	assert.Equal(t, "validation failed: date: required; start_location: required", errs.Error())
	assert.Equal(t, []string{"date", "start_location"}, errs.Fields())
	assert.Nil(t, ValidationErrors(nil).AsError())
}

func TestOdometerMiles(t *testing.T) {
	e := LogEntry{
		StartOdometer: decimal.NewNullDecimal(dec("1000")),
		EndOdometer:   decimal.NewNullDecimal(dec("1250")),
	}
	assert.True(t, e.HasOdometer())
	assert.True(t, e.OdometerMiles().Equal(dec("250")))

	// Readings entered backwards clamp to zero.
	e.EndOdometer = decimal.NewNullDecimal(dec("900"))
	assert.True(t, e.OdometerMiles().IsZero())

	e.EndOdometer = decimal.NullDecimal{}
	assert.False(t, e.HasOdometer())
	assert.True(t, e.OdometerMiles().IsZero())
}
