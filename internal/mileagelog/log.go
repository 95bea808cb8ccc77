// Package mileagelog keeps an ordered collection of trips and the totals
// derived from them.
package mileagelog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mileagekit/mileage/internal/deduction"
	"github.com/mileagekit/mileage/internal/id"
	"github.com/mileagekit/mileage/internal/model"
)

// Log is an ordered sequence of entries owned by one caller. Insertion order
// is kept; entries are not sorted by trip date. Log is not safe for
// concurrent use.
type Log struct {
	entries []model.LogEntry
	newID   func() string
}

// New returns a Log holding entries in the given order.
func New(entries ...model.LogEntry) *Log {
	l := &Log{newID: id.NewEntryID}
	l.entries = append(l.entries, entries...)
	return l
}

// Add validates a draft, derives its mileage and appends it. The returned
// entry carries its assigned ID.
func (l *Log) Add(d Draft) (model.LogEntry, error) {
	if errs := ValidateDraft(d); len(errs) > 0 {
		return model.LogEntry{}, errs
	}

	entry := model.LogEntry{
		ID:              l.newID(),
		Date:            d.Date,
		StartLocation:   strings.TrimSpace(d.StartLocation),
		EndLocation:     strings.TrimSpace(d.EndLocation),
		BusinessPurpose: strings.TrimSpace(d.BusinessPurpose),
		StartOdometer:   d.StartOdometer,
		EndOdometer:     d.EndOdometer,
		Country:         strings.TrimSpace(d.Country),
	}
	if entry.Country == "" {
		entry.Country = model.DefaultCountry
	}
	if entry.HasOdometer() {
		entry.TotalMiles = entry.OdometerMiles()
	} else {
		entry.TotalMiles = d.Miles.Decimal
	}

	l.entries = append(l.entries, entry)
	return entry, nil
}

// Remove deletes the entry with the given ID. Removing an unknown ID is a
// no-op. It reports whether an entry was removed.
func (l *Log) Remove(entryID string) bool {
	for i, e := range l.entries {
		if e.ID == entryID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every entry.
func (l *Log) Clear() {
	l.entries = nil
}

// Get returns the entry with the given ID.
func (l *Log) Get(entryID string) (model.LogEntry, bool) {
	for _, e := range l.entries {
		if e.ID == entryID {
			return e, true
		}
	}
	return model.LogEntry{}, false
}

// Entries returns a copy of the entries in insertion order.
func (l *Log) Entries() []model.LogEntry {
	out := make([]model.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// TotalMiles sums the current entries.
func (l *Log) TotalMiles() decimal.Decimal {
	return SumMiles(l.entries)
}

// TotalDeduction returns TotalMiles x rate for the given purpose.
func (l *Log) TotalDeduction(purpose model.Purpose, rate decimal.Decimal) (decimal.Decimal, error) {
	if !purpose.Valid() {
		return decimal.Zero, model.ValidationError{Field: "purpose", Message: fmt.Sprintf("unknown purpose %q", purpose)}
	}
	return deduction.Gross(l.TotalMiles(), rate)
}

// MonthMiles sums entries whose trip date falls in the given month.
func (l *Log) MonthMiles(year, month int) decimal.Decimal {
	total := decimal.Zero
	for _, e := range l.entries {
		if e.Date.Year() == year && int(e.Date.Month()) == month {
			total = total.Add(e.TotalMiles)
		}
	}
	return total
}

// SumMiles adds up TotalMiles across entries.
func SumMiles(entries []model.LogEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.TotalMiles)
	}
	return total
}
