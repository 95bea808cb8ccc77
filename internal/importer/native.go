package importer

import (
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/mileagelog"
)

// NativeParser reads files written by mileagelog.WriteCSV. Entry IDs are not
// kept; imported trips get fresh IDs when added to a log.
type NativeParser struct{}

// Format returns the parser name.
func (p *NativeParser) Format() string { return "native" }

// Header returns the expected first row.
func (p *NativeParser) Header() []string { return strings.Split(mileagelog.Header, ",") }

// Parse reads a native log export.
func (p *NativeParser) Parse(r io.Reader) ([]mileagelog.Draft, error) {
	entries, err := mileagelog.ReadCSV(r)
	if err != nil {
		return nil, err
	}

	var drafts []mileagelog.Draft
	for _, e := range entries {
		drafts = append(drafts, mileagelog.Draft{
			Date:            e.Date,
			StartLocation:   e.StartLocation,
			EndLocation:     e.EndLocation,
			BusinessPurpose: e.BusinessPurpose,
			StartOdometer:   e.StartOdometer,
			EndOdometer:     e.EndOdometer,
			Miles:           decimal.NewNullDecimal(e.TotalMiles),
			Country:         e.Country,
		})
	}
	return drafts, nil
}
