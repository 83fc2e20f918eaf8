package models

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrDuplicateVehicle = errors.New("vehicle already registered")
)

// ValidationError reports a record field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
