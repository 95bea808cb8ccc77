package export

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jung-kurt/gofpdf"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/id"
	"github.com/mileagekit/mileage/internal/mileagelog"
)

// Log writes a snapshot of a mileage log to w in the given format. The
// snapshot is checked first so an inconsistent log is never written.
func Log(w io.Writer, s mileagelog.Snapshot, f Format) error {
	if err := s.Check(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	switch f {
	case FormatCSV:
		return mileagelog.WriteCSV(w, s.Entries)
	case FormatPDF:
		return writeLogPDF(w, s)
	case FormatPrint:
		return writeLogText(w, s)
	}
	return fmt.Errorf("export: unsupported format %q", f)
}

// PrintableDocument renders the snapshot as PDF bytes.
func PrintableDocument(s mileagelog.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Log(&buf, s, FormatPDF); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func logTitle(s mileagelog.Snapshot) string {
	return fmt.Sprintf("Mileage Log - %d", s.TaxYear)
}

func writeLogText(w io.Writer, s mileagelog.Snapshot) error {
	fmt.Fprintln(w, logTitle(s))
	if s.Owner != "" {
		fmt.Fprintf(w, "Owner: %s\n", s.Owner)
	}
	fmt.Fprintf(w, "Generated on: %s\n\n", s.GeneratedAt.Format(dateFormat))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tFROM\tTO\tPURPOSE\tSTART\tEND\tMILES\tCOUNTRY")
	for _, e := range s.Entries {
		start, end := "-", "-"
		if e.StartOdometer.Valid {
			start = deduction.FormatMiles(e.StartOdometer.Decimal)
		}
		if e.EndOdometer.Valid {
			end = deduction.FormatMiles(e.EndOdometer.Decimal)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			id.Short(e.ID), e.Date.Format(dateFormat), e.StartLocation, e.EndLocation, e.BusinessPurpose,
			start, end, deduction.FormatMiles(e.TotalMiles), e.Country)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTrips: %d\n", len(s.Entries))
	fmt.Fprintf(w, "Total miles: %s\n", deduction.FormatMiles(s.TotalMiles()))
	_, err := fmt.Fprintf(w, "Total deduction: $%s (%s @ $%s/mile)\n",
		deduction.FormatCurrency(s.TotalDeduction()), s.Purpose.Label(), deduction.FormatRate(s.Rate))
	return err
}

var logColumns = []struct {
	title string
	width float64
	align string
}{
	{"ID", 20, "L"},
	{"Date", 22, "L"},
	{"From", 45, "L"},
	{"To", 45, "L"},
	{"Purpose", 60, "L"},
	{"Start", 20, "R"},
	{"End", 20, "R"},
	{"Miles", 17, "R"},
	{"Country", 18, "C"},
}

func writeLogPDF(w io.Writer, s mileagelog.Snapshot) error {
	// Landscape so every entry field gets a column.
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(logTitle(s), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, logTitle(s), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if s.Owner != "" {
		pdf.CellFormat(0, 6, tr("Owner: "+s.Owner), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Generated on: "+s.GeneratedAt.Format(dateFormat), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range logColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, e := range s.Entries {
		start, end := "", ""
		if e.StartOdometer.Valid {
			start = deduction.FormatMiles(e.StartOdometer.Decimal)
		}
		if e.EndOdometer.Valid {
			end = deduction.FormatMiles(e.EndOdometer.Decimal)
		}
		cells := []string{
			id.Short(e.ID),
			e.Date.Format(dateFormat),
			tr(e.StartLocation),
			tr(e.EndLocation),
			tr(e.BusinessPurpose),
			start,
			end,
			deduction.FormatMiles(e.TotalMiles),
			tr(e.Country),
		}
		for i, c := range logColumns {
			pdf.CellFormat(c.width, 6, fit(pdf, cells[i], c.width), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Total miles: %s", deduction.FormatMiles(s.TotalMiles())), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Total deduction: $%s (%s @ $%s/mile)",
		deduction.FormatCurrency(s.TotalDeduction()), s.Purpose.Label(), deduction.FormatRate(s.Rate)),
		"", 1, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}

// fit truncates text so it stays inside a table cell.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"...") > limit {
		text = text[:len(text)-1]
	}
	return text + "..."
}
