package model

import (
	"fmt"
	"strings"
)

// ValidationError describes one invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every field problem found in one input.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Fields returns the names of the invalid fields in order.
func (errs ValidationErrors) Fields() []string {
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	return fields
}

// Has reports whether field failed validation.
func (errs ValidationErrors) Has(field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

// AsError returns nil for an empty list so callers can return it directly.
func (errs ValidationErrors) AsError() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
