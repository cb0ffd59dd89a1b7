package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks client input that is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrTopicNotFound is returned when no topic matches a lookup.
	ErrTopicNotFound = fmt.Errorf("topic %w", ErrNotFound)
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicatePath is returned when a topic path is already taken.
	ErrDuplicatePath = errors.New("topic path already in use")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates the caller identity is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError describes which field was rejected and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
