package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTrade is wrapped by every ValidationError
	ErrInvalidTrade = errors.New("invalid trade")
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrNoRate is returned when an FX rate set lacks a currency
	ErrNoRate = errors.New("no exchange rate")
	// ErrQuoteUnavailable is returned when a quote provider has no price
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrStaleQuote accompanies a cached price returned after a provider failure
	ErrStaleQuote = errors.New("stale quote")
)

// ValidationError describes which precondition a trade violated
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidTrade
func (e *ValidationError) Unwrap() error {
	return ErrInvalidTrade
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
