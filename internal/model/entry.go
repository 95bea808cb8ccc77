package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCountry is used when an entry does not name one.
const DefaultCountry = "US"

// LogEntry is one recorded trip.
type LogEntry struct {
	ID              string
	Date            time.Time
	StartLocation   string
	EndLocation     string
	BusinessPurpose string
	StartOdometer   decimal.NullDecimal // informational unless both readings are set
	EndOdometer     decimal.NullDecimal
	TotalMiles      decimal.Decimal
	Country         string
}

// HasOdometer reports whether both odometer readings are present.
func (e LogEntry) HasOdometer() bool {
	return e.StartOdometer.Valid && e.EndOdometer.Valid
}

// OdometerMiles returns max(0, end - start). It returns zero when either
// reading is missing.
func (e LogEntry) OdometerMiles() decimal.Decimal {
	if !e.HasOdometer() {
		return decimal.Zero
	}
	d := e.EndOdometer.Decimal.Sub(e.StartOdometer.Decimal)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
