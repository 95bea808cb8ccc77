// Package history keeps the most recent saved calculations in a CSV file,
// newest first.
package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/model"
)

// DefaultKeep is how many calculations are retained when no limit is set.
const DefaultKeep = 10

// Entry is one saved calculation.
type Entry struct {
	Timestamp        time.Time
	TaxYear          int
	BusinessMiles    decimal.Decimal
	MedicalMiles     decimal.Decimal
	CharitableMiles  decimal.Decimal
	BusinessAmount   decimal.Decimal
	MedicalAmount    decimal.Decimal
	CharitableAmount decimal.Decimal
	Reimbursement    decimal.Decimal
	TotalDeduction   decimal.Decimal
}

// Header is the CSV header for the history file.
const Header = "timestamp,tax_year,business_miles,medical_miles,charitable_miles,business_deduction,medical_deduction,charitable_deduction,reimbursement,total_deduction"

const (
	numFields     = 10
	colTimestamp  = 0
	colTaxYear    = 1
	colBusMiles   = 2
	colMedMiles   = 3
	colCharMiles  = 4
	colBusAmount  = 5
	colMedAmount  = 6
	colCharAmount = 7
	colReimbursed = 8
	colTotal      = 9
)

// FromSummary captures a calculation. Amounts are stored rounded to cents.
func FromSummary(s deduction.Summary, at time.Time) Entry {
	e := Entry{
		Timestamp:        at.UTC().Truncate(time.Second),
		TaxYear:          s.TaxYear,
		BusinessMiles:    decimal.Zero,
		MedicalMiles:     decimal.Zero,
		CharitableMiles:  decimal.Zero,
		BusinessAmount:   decimal.Zero,
		MedicalAmount:    decimal.Zero,
		CharitableAmount: decimal.Zero,
		Reimbursement:    deduction.Round2(s.Reimbursement),
		TotalDeduction:   deduction.Round2(s.Net),
	}
	for _, l := range s.Lines {
		switch l.Purpose {
		case model.PurposeBusiness:
			e.BusinessMiles, e.BusinessAmount = l.Miles, deduction.Round2(l.Gross)
		case model.PurposeMedical:
			e.MedicalMiles, e.MedicalAmount = l.Miles, deduction.Round2(l.Gross)
		case model.PurposeCharitable:
			e.CharitableMiles, e.CharitableAmount = l.Miles, deduction.Round2(l.Gross)
		}
	}
	return e
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colTaxYear] = strconv.Itoa(e.TaxYear)
	row[colBusMiles] = deduction.FormatMiles(e.BusinessMiles)
	row[colMedMiles] = deduction.FormatMiles(e.MedicalMiles)
	row[colCharMiles] = deduction.FormatMiles(e.CharitableMiles)
	row[colBusAmount] = deduction.FormatCurrency(e.BusinessAmount)
	row[colMedAmount] = deduction.FormatCurrency(e.MedicalAmount)
	row[colCharAmount] = deduction.FormatCurrency(e.CharitableAmount)
	row[colReimbursed] = deduction.FormatCurrency(e.Reimbursement)
	row[colTotal] = deduction.FormatCurrency(e.TotalDeduction)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	year, err := strconv.Atoi(record[colTaxYear])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing tax_year %q: %w", record[colTaxYear], err)
	}

	e := Entry{Timestamp: ts, TaxYear: year}
	fields := []struct {
		col  int
		name string
		dst  *decimal.Decimal
	}{
		{colBusMiles, "business_miles", &e.BusinessMiles},
		{colMedMiles, "medical_miles", &e.MedicalMiles},
		{colCharMiles, "charitable_miles", &e.CharitableMiles},
		{colBusAmount, "business_deduction", &e.BusinessAmount},
		{colMedAmount, "medical_deduction", &e.MedicalAmount},
		{colCharAmount, "charitable_deduction", &e.CharitableAmount},
		{colReimbursed, "reimbursement", &e.Reimbursement},
		{colTotal, "total_deduction", &e.TotalDeduction},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(record[f.col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing %s %q: %w", f.name, record[f.col], err)
		}
		*f.dst = d
	}
	return e, nil
}

// Save puts e at the top of the history at path and keeps at most keep
// entries. keep <= 0 means DefaultKeep.
func Save(path string, e Entry, keep int) error {
	if keep <= 0 {
		keep = DefaultKeep
	}

	existing, err := Read(path)
	if err != nil {
		return err
	}
	entries := append([]Entry{e}, existing...)
	if len(entries) > keep {
		entries = entries[:keep]
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating history dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating history file: %w", err)
	}
	if err := writeEntries(f, entries); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing history file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}

// Read returns the saved calculations, newest first. It returns nil if the
// file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func writeEntries(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading history CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
