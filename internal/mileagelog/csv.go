package mileagelog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/model"
)

// Header is the CSV header for an exported log. Column order is stable.
const Header = "id,date,start_location,end_location,business_purpose,start_odometer,end_odometer,total_miles,country"

const (
	numFields     = 9
	DateFormat    = "2006-01-02"
	colID         = 0
	colDate       = 1
	colStart      = 2
	colEnd        = 3
	colPurpose    = 4
	colStartOdo   = 5
	colEndOdo     = 6
	colTotalMiles = 7
	colCountry    = 8
)

// ReadCSV reads entries from a log CSV (with header).
func ReadCSV(r io.Reader) ([]model.LogEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading log CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var entries []model.LogEntry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteCSV writes entries to w, header first.
func WriteCSV(w io.Writer, entries []model.LogEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// DelimitedText returns the log as CSV text.
func (l *Log) DelimitedText() (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, l.entries); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MarshalEntry converts a LogEntry to a CSV row. Miles and odometer readings
// use one fraction digit and a period separator.
func MarshalEntry(e model.LogEntry) []string {
	row := make([]string, numFields)
	row[colID] = e.ID
	row[colDate] = e.Date.Format(DateFormat)
	row[colStart] = e.StartLocation
	row[colEnd] = e.EndLocation
	row[colPurpose] = e.BusinessPurpose
	if e.StartOdometer.Valid {
		row[colStartOdo] = e.StartOdometer.Decimal.StringFixed(1)
	}
	if e.EndOdometer.Valid {
		row[colEndOdo] = e.EndOdometer.Decimal.StringFixed(1)
	}
	row[colTotalMiles] = e.TotalMiles.StringFixed(1)
	row[colCountry] = e.Country
	return row
}

// UnmarshalEntry converts a CSV row to a LogEntry.
func UnmarshalEntry(record []string) (model.LogEntry, error) {
	if len(record) != numFields {
		return model.LogEntry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(DateFormat, record[colDate])
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	startOdo, err := parseOptional(record[colStartOdo])
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("parsing start_odometer %q: %w", record[colStartOdo], err)
	}

	endOdo, err := parseOptional(record[colEndOdo])
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("parsing end_odometer %q: %w", record[colEndOdo], err)
	}

	miles, err := decimal.NewFromString(record[colTotalMiles])
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("parsing total_miles %q: %w", record[colTotalMiles], err)
	}

	return model.LogEntry{
		ID:              record[colID],
		Date:            date,
		StartLocation:   record[colStart],
		EndLocation:     record[colEnd],
		BusinessPurpose: record[colPurpose],
		StartOdometer:   startOdo,
		EndOdometer:     endOdo,
		TotalMiles:      miles,
		Country:         record[colCountry],
	}, nil
}

func parseOptional(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// ParseOptional parses a possibly blank decimal field.
func ParseOptional(s string) (decimal.NullDecimal, error) {
	return parseOptional(strings.TrimSpace(s))
}
