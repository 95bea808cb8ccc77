package rates

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mileagekit/mileage/internal/model"
)

func TestRoundTrip(t *testing.T) {
	rates := Default().All()

	var buf bytes.Buffer
	err := WriteRates(&buf, rates)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "tax_year,purpose,per_mile\n"))

	got, err := ReadRates(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(rates))

	for i := range rates {
		assert.Equal(t, rates[i].TaxYear, got[i].TaxYear)
		assert.Equal(t, rates[i].Purpose, got[i].Purpose)
		assert.True(t, rates[i].PerMile.Equal(got[i].PerMile), "row %d: %s != %s", i, rates[i].PerMile, got[i].PerMile)
	}
}

func TestMarshalRate(t *testing.T) {
	row := MarshalRate(model.Rate{TaxYear: 2025, Purpose: model.PurposeBusiness, PerMile: dec("0.7")})
	assert.Equal(t, []string{"2025", "business", "0.700"}, row)
}

func TestUnmarshalRate_Errors(t *testing.T) {
	tests := []struct {
		record []string
		want   string
	}{
		{[]string{"2025", "business"}, "expected 3 fields"},
		{[]string{"twenty", "business", "0.70"}, "parsing tax_year"},
		{[]string{"2025", "commute", "0.70"}, "parsing purpose"},
		{[]string{"2025", "business", "x"}, "parsing per_mile"},
	}
	for _, tt := range tests {
		_, err := UnmarshalRate(tt.record)
		require.Error(t, err)
		assert.Contains(t, err.Error(), tt.want)
	}
}

func TestReadRates_Empty(t *testing.T) {
	got, err := ReadRates(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}
