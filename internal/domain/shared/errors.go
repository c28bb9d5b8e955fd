package shared

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the umbrella for malformed requests. Match it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError names the field that failed validation.
type InvalidInputError struct {
	Field  string
	Reason string
}

func NewInvalidInput(field, reason string) InvalidInputError {
	return InvalidInputError{Field: field, Reason: reason}
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e InvalidInputError) Is(target error) bool {
	if target == ErrInvalidInput {
		return true
	}
	t, ok := target.(InvalidInputError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}
