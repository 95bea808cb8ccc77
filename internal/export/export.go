// Package export renders mileage logs and calculation summaries as CSV, PDF
// or plain printable text.
package export

import (
	"fmt"
	"strings"
)

// Format selects an output representation.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatPDF   Format = "pdf"
	FormatPrint Format = "print"
)

// Formats lists the supported formats.
var Formats = []Format{FormatCSV, FormatPDF, FormatPrint}

// ParseFormat parses a format name, case-insensitively. "text" and "txt" are
// accepted for print.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "pdf":
		return FormatPDF, nil
	case "print", "text", "txt":
		return FormatPrint, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv, pdf or print)", s)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	if f == FormatPrint {
		return ".txt"
	}
	return "." + string(f)
}

// Disclaimer is printed at the foot of every calculation document.
var Disclaimer = []string{
	"Disclaimer: This calculation is for informational purposes only.",
	"Please consult with a tax professional for specific tax advice.",
}

const dateFormat = "2006-01-02"
