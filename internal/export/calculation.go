package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/mileagekit/mileage/internal/deduction"
)

// Calculation writes a calculation summary to w.
func Calculation(w io.Writer, s deduction.Summary, f Format, now time.Time) error {
	switch f {
	case FormatCSV:
		return writeCalculationCSV(w, s)
	case FormatPDF:
		return writeCalculationPDF(w, s, now)
	case FormatPrint:
		return writeCalculationText(w, s, now)
	}
	return fmt.Errorf("export: unsupported format %q", f)
}

func calculationTitle(s deduction.Summary) string {
	return fmt.Sprintf("IRS Mileage Deduction Calculation - %d", s.TaxYear)
}

// lineText renders "Business Miles: 1000.0 @ $0.700/mile = $700.00".
func lineText(label string, miles, rate, amount string) string {
	return fmt.Sprintf("%s Miles: %s @ $%s/mile = $%s", label, miles, rate, amount)
}

func writeCalculationCSV(w io.Writer, s deduction.Summary) error {
	cw := csv.NewWriter(w)
	rows := [][]string{{"tax_year", "purpose", "miles", "rate", "gross", "reimbursement", "net"}}
	year := strconv.Itoa(s.TaxYear)
	for _, l := range s.Lines {
		rows = append(rows, []string{
			year,
			string(l.Purpose),
			deduction.FormatMiles(l.Miles),
			deduction.FormatRate(l.RateApplied),
			deduction.FormatCurrency(l.Gross),
			deduction.FormatCurrency(l.Reimbursement),
			deduction.FormatCurrency(l.Net),
		})
	}
	rows = append(rows, []string{
		year, "total", "", "",
		deduction.FormatCurrency(s.Gross),
		deduction.FormatCurrency(s.Reimbursement),
		deduction.FormatCurrency(s.Net),
	})
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing calculation CSV: %w", err)
	}
	return nil
}

func writeCalculationText(w io.Writer, s deduction.Summary, now time.Time) error {
	fmt.Fprintln(w, calculationTitle(s))
	fmt.Fprintf(w, "Generated on: %s\n\n", now.Format(dateFormat))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PURPOSE\tMILES\tRATE\tGROSS\tREIMBURSED\tNET\t")
	for _, l := range s.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			l.Purpose.Label(),
			deduction.FormatMiles(l.Miles),
			deduction.FormatRate(l.RateApplied),
			deduction.FormatCurrency(l.Gross),
			deduction.FormatCurrency(l.Reimbursement),
			deduction.FormatCurrency(l.Net))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal Deduction: $%s\n", deduction.FormatCurrency(s.Net))
	if len(s.Savings) > 0 {
		fmt.Fprintln(w, "\nEstimated tax savings:")
		for _, sv := range s.Savings {
			fmt.Fprintf(w, "  %s bracket: $%s\n", deduction.FormatPercent(sv.MarginalRate), deduction.FormatCurrency(sv.Amount))
		}
	}
	fmt.Fprintln(w)
	for _, line := range Disclaimer {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeCalculationPDF(w io.Writer, s deduction.Summary, now time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(calculationTitle(s), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "", 20)
	pdf.Text(20, 30, calculationTitle(s))

	pdf.SetFont("Arial", "", 12)
	pdf.Text(20, 45, "Generated on: "+now.Format(dateFormat))

	pdf.SetFont("Arial", "", 14)
	pdf.Text(20, 65, "Mileage Summary:")

	pdf.SetFont("Arial", "", 12)
	y := 80.0
	for _, l := range s.Lines {
		if l.Miles.IsZero() {
			continue
		}
		pdf.Text(20, y, lineText(l.Purpose.Label(), deduction.FormatMiles(l.Miles),
			deduction.FormatRate(l.RateApplied), deduction.FormatCurrency(l.Gross)))
		y += 10
	}
	if !s.Reimbursement.IsZero() {
		pdf.Text(20, y, "Employer reimbursement: -$"+deduction.FormatCurrency(s.Reimbursement))
		y += 10
	}

	y += 5
	pdf.SetFont("Arial", "", 14)
	pdf.Text(20, y, "Total Deduction: $"+deduction.FormatCurrency(s.Net))

	if len(s.Savings) > 0 {
		y += 15
		pdf.SetFont("Arial", "", 12)
		for _, sv := range s.Savings {
			pdf.Text(20, y, fmt.Sprintf("Estimated savings at %s: $%s",
				deduction.FormatPercent(sv.MarginalRate), deduction.FormatCurrency(sv.Amount)))
			y += 8
		}
	}

	y += 20
	pdf.SetFont("Arial", "", 10)
	for i, line := range Disclaimer {
		pdf.Text(20, y+float64(i)*10, line)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}
