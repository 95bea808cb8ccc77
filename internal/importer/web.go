package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/mileagelog"
)

// WebParser parses the CSV written by the mileage log web page:
// Date,Start Location,End Location,Business Purpose,Start Odometer,End Odometer,Total Miles
type WebParser struct{}

var webHeader = []string{"Date", "Start Location", "End Location", "Business Purpose", "Start Odometer", "End Odometer", "Total Miles"}

// webDateFormats are tried in order. The page writes ISO dates; US-style
// dates appear when a file was round-tripped through a spreadsheet.
var webDateFormats = []string{"2006-01-02", "01/02/2006", "1/2/2006"}

const (
	webNumFields   = 7
	webColDate     = 0
	webColStart    = 1
	webColEnd      = 2
	webColPurpose  = 3
	webColStartOdo = 4
	webColEndOdo   = 5
	webColMiles    = 6
)

// Format returns the parser name.
func (p *WebParser) Format() string { return "web" }

// Header returns the expected first row.
func (p *WebParser) Header() []string { return webHeader }

// Parse reads a web export. Quotes inside location fields were never escaped
// by the page, so the reader is lenient about them.
func (p *WebParser) Parse(r io.Reader) ([]mileagelog.Draft, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = webNumFields
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading web CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var drafts []mileagelog.Draft
	for i, rec := range records[1:] {
		d, err := parseWebRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func parseWebRow(rec []string) (mileagelog.Draft, error) {
	date, err := parseWebDate(rec[webColDate])
	if err != nil {
		return mileagelog.Draft{}, err
	}

	startOdo, err := mileagelog.ParseOptional(rec[webColStartOdo])
	if err != nil {
		return mileagelog.Draft{}, fmt.Errorf("parsing start odometer %q: %w", rec[webColStartOdo], err)
	}
	endOdo, err := mileagelog.ParseOptional(rec[webColEndOdo])
	if err != nil {
		return mileagelog.Draft{}, fmt.Errorf("parsing end odometer %q: %w", rec[webColEndOdo], err)
	}
	miles, err := mileagelog.ParseOptional(rec[webColMiles])
	if err != nil {
		return mileagelog.Draft{}, fmt.Errorf("parsing total miles %q: %w", rec[webColMiles], err)
	}
	// The page stored zero for a blank odometer.
	if startOdo.Valid && endOdo.Valid && startOdo.Decimal.IsZero() && endOdo.Decimal.IsZero() {
		startOdo, endOdo = decimal.NullDecimal{}, decimal.NullDecimal{}
	}

	return mileagelog.Draft{
		Date:            date,
		StartLocation:   strings.TrimSpace(rec[webColStart]),
		EndLocation:     strings.TrimSpace(rec[webColEnd]),
		BusinessPurpose: strings.TrimSpace(rec[webColPurpose]),
		StartOdometer:   startOdo,
		EndOdometer:     endOdo,
		Miles:           miles,
	}, nil
}

func parseWebDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range webDateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q: want YYYY-MM-DD or MM/DD/YYYY", s)
}
