package auth

import (
	"errors"
	"fmt"
)

// Kind classifies an auth flow failure. The HTTP boundary maps kinds to
// status codes; nothing below the boundary knows about HTTP.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindInvalidCredentials
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// User-facing messages
const (
	MsgSignupSuccess      = "User created successfully"
	MsgLoginSuccess       = "Login successful"
	MsgDuplicateEmail     = "User with this email already exists"
	MsgInvalidCredentials = "Invalid email or password"
	MsgInvalidToken       = "Invalid or expired token"
	MsgValidationFailed   = "Validation failed"
	MsgSignupFailed       = "Signup failed"
	MsgLoginFailed        = "Login failed"
)

// Failure is the typed error returned by Service operations.
// Message is safe to show to clients; Err is the cause and is only logged.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func newFailure(kind Kind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// KindOf returns the failure kind of err, or KindInternal if err is not a Failure
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindInternal
}

// AsFailure extracts a Failure from err
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}
