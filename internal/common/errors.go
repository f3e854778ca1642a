// Package common defines shared constants, sentinel errors and small helpers
// used across the notekeeper client and its backends. Callers should use
// errors.Is to match the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors.
	ErrInvalidNote = errors.New("invalid note")
	ErrValidation  = errors.New("validation error")

	// Session errors.
	ErrNotAuthenticated = errors.New("no authenticated user")
	ErrInvalidToken     = errors.New("invalid token")
)
