package mileagelog

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/model"
)

// Snapshot is a point-in-time copy of a log handed to exporters.
type Snapshot struct {
	Owner       string
	TaxYear     int
	Purpose     model.Purpose
	Rate        decimal.Decimal
	Entries     []model.LogEntry
	GeneratedAt time.Time
}

// Snapshot copies the log together with the rate its totals are priced at.
func (l *Log) Snapshot(owner string, taxYear int, purpose model.Purpose, rate decimal.Decimal, now time.Time) Snapshot {
	return Snapshot{
		Owner:       owner,
		TaxYear:     taxYear,
		Purpose:     purpose,
		Rate:        rate,
		Entries:     l.Entries(),
		GeneratedAt: now,
	}
}

// TotalMiles sums the snapshot's entries.
func (s Snapshot) TotalMiles() decimal.Decimal {
	return SumMiles(s.Entries)
}

// TotalDeduction prices the snapshot's miles at its rate.
func (s Snapshot) TotalDeduction() decimal.Decimal {
	return s.TotalMiles().Mul(s.Rate)
}

// Check verifies the entry invariants still hold, so an exporter never
// receives an inconsistent log.
func (s Snapshot) Check() error {
	if !s.Purpose.Valid() {
		return fmt.Errorf("snapshot: unknown purpose %q", s.Purpose)
	}
	if s.Rate.IsNegative() {
		return &deduction.InvalidInputError{Field: "rate", Value: s.Rate, Reason: "must not be negative"}
	}
	seen := make(map[string]bool, len(s.Entries))
	for i, e := range s.Entries {
		if e.ID == "" {
			return fmt.Errorf("snapshot entry %d: missing ID", i+1)
		}
		if seen[e.ID] {
			return fmt.Errorf("snapshot entry %d: duplicate ID %s", i+1, e.ID)
		}
		seen[e.ID] = true
		if e.TotalMiles.IsNegative() {
			return fmt.Errorf("snapshot entry %s: negative total miles %s", e.ID, e.TotalMiles)
		}
		if e.HasOdometer() && !e.TotalMiles.Equal(e.OdometerMiles()) {
			return fmt.Errorf("snapshot entry %s: total miles %s does not match odometer difference %s",
				e.ID, e.TotalMiles, e.OdometerMiles())
		}
	}
	return nil
}
