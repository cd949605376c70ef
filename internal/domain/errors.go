package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores,
// the user directory and the auth flow to communicate specific conditions.
// -----------------------------------------------------------------------------

// User errors
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// ErrValidation marks input the auth flow refuses before touching storage
var ErrValidation = errors.New("validation failed")
