package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Purpose classifies why miles were driven.
type Purpose string

const (
	PurposeBusiness   Purpose = "business"
	PurposeMedical    Purpose = "medical"
	PurposeCharitable Purpose = "charitable"
)

// Purposes lists every purpose in display order.
var Purposes = []Purpose{PurposeBusiness, PurposeMedical, PurposeCharitable}

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeBusiness, PurposeMedical, PurposeCharitable:
		return true
	}
	return false
}

// Label returns the heading used in reports.
func (p Purpose) Label() string {
	switch p {
	case PurposeBusiness:
		return "Business"
	case PurposeMedical:
		return "Medical/Moving"
	case PurposeCharitable:
		return "Charitable"
	}
	return string(p)
}

// ParsePurpose accepts a purpose name case-insensitively.
// "charity" and "moving" are accepted as aliases.
func ParsePurpose(s string) (Purpose, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "business":
		return PurposeBusiness, nil
	case "medical", "moving":
		return PurposeMedical, nil
	case "charitable", "charity":
		return PurposeCharitable, nil
	}
	return "", fmt.Errorf("unknown purpose %q", s)
}

// Rate is one published per-mile rate.
type Rate struct {
	TaxYear int
	Purpose Purpose
	PerMile decimal.Decimal // dollars per mile
}
