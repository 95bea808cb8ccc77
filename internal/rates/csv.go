package rates

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/model"
)

const (
	numFields  = 3
	colYear    = 0
	colPurpose = 1
	colPerMile = 2
)

// ReadRates reads a rates CSV with a header row.
func ReadRates(r io.Reader) ([]model.Rate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading rates CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var rates []model.Rate
	for i, rec := range records[1:] {
		rate, err := UnmarshalRate(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

// WriteRates writes rates as CSV with a header row.
func WriteRates(w io.Writer, rates []model.Rate) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"tax_year", "purpose", "per_mile"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range rates {
		if err := cw.Write(MarshalRate(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalRate converts a Rate to a CSV row. Rates keep three fraction digits
// since some years were published in tenths of a cent.
func MarshalRate(r model.Rate) []string {
	row := make([]string, numFields)
	row[colYear] = strconv.Itoa(r.TaxYear)
	row[colPurpose] = string(r.Purpose)
	row[colPerMile] = r.PerMile.StringFixed(3)
	return row
}

// UnmarshalRate converts a CSV row to a Rate.
func UnmarshalRate(record []string) (model.Rate, error) {
	if len(record) != numFields {
		return model.Rate{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	year, err := strconv.Atoi(record[colYear])
	if err != nil {
		return model.Rate{}, fmt.Errorf("parsing tax_year %q: %w", record[colYear], err)
	}

	purpose, err := model.ParsePurpose(record[colPurpose])
	if err != nil {
		return model.Rate{}, fmt.Errorf("parsing purpose: %w", err)
	}

	perMile, err := decimal.NewFromString(record[colPerMile])
	if err != nil {
		return model.Rate{}, fmt.Errorf("parsing per_mile %q: %w", record[colPerMile], err)
	}

	return model.Rate{TaxYear: year, Purpose: purpose, PerMile: perMile}, nil
}
