package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicatePoint indicates an equivalent passive data point already
	// exists inside the deduplication window; the ingest was a correct no-op.
	ErrDuplicatePoint = errors.New("duplicate data point detected")
	// ErrCheckinExists is returned when the user already checked in on the
	// same calendar day.
	ErrCheckinExists = errors.New("check-in already exists for today")
	// ErrCheckinNotFound is returned when a check-in cannot be located.
	ErrCheckinNotFound = errors.New("check-in not found")
	// ErrPointNotFound is returned when a passive data point cannot be located.
	ErrPointNotFound = errors.New("data point not found")
)

// FieldError describes a single invalid field in a request payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError accumulates field-level problems. It is caller-correctable
// and never has a persistence side effect.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// orNil collapses an empty accumulator to a nil error.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsValidationError unwraps err into a ValidationError if possible.
func IsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
