package id

import (
	"fmt"

	"github.com/google/uuid"
)

// NewEntryID returns a fresh random identifier for a log entry.
func NewEntryID() string {
	return uuid.NewString()
}

// ParseEntryID checks that s is a well-formed entry ID and returns it in
// canonical lowercase form.
func ParseEntryID(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid entry ID %q: %w", s, err)
	}
	return u.String(), nil
}

// Short returns the first 8 characters of an ID for display.
// "3f2a9c1e-..." -> "3f2a9c1e"
func Short(entryID string) string {
	if len(entryID) <= 8 {
		return entryID
	}
	return entryID[:8]
}
