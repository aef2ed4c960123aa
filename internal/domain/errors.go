package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPlayerNotFound is returned when an id does not resolve to a stored player record.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrQuestionBankNotFound indicates the question bank could not be loaded.
	ErrQuestionBankNotFound = errors.New("question bank not found")
)

// ValidationError reports malformed or out-of-range input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StoreError wraps a failure of the underlying persistence layer.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StoreFailure wraps err as a StoreError unless it is nil or already classified.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	var validationErr *ValidationError
	if errors.Is(err, ErrPlayerNotFound) || errors.As(err, &storeErr) || errors.As(err, &validationErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
