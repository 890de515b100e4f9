package models

import "errors"

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict indicates a conditional state transition lost.
	ErrConflict = errors.New("state conflict")
	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller's role may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrAreaNotFound is returned for statistics on an area without records.
	ErrAreaNotFound = errors.New("area not found")
)

// ValidationError carries a human readable reason for a 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Required is the ValidationError for a missing field.
func Required(field string) error {
	return Invalid(field, field+" is required")
}
