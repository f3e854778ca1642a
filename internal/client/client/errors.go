package client

import "errors"

var (
	ErrUnavailable    = errors.New("backend unavailable")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("object not found")
	ErrBucketNotFound = errors.New("Bucket not found")

	// Messages shown to the user verbatim.
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrAlreadyRegistered  = errors.New("User already registered")
)
