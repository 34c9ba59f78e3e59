package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the service.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrIntentExpired   = errors.New("payment intent expired")
	ErrAttemptNotFound = errors.New("verification attempt not found")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Is wraps the standard library errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
