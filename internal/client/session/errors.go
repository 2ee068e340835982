package session

import (
	"errors"
)

var (
	// ErrMissingFields is returned when a login or registration form is incomplete.
	ErrMissingFields = errors.New("missing required fields")
	// ErrNotAuthenticated is returned when an operation needs a session and there is none.
	ErrNotAuthenticated = errors.New("not authenticated")
)

const (
	msgLoginFieldsRequired    = `field "email" and "password" is required`
	msgRegisterFieldsRequired = `fields "username", "email" and "password" is required`
	msgRegistered             = "Successfully registered!"
)

// AuthError reports a failed session operation: invalid credentials, a
// rejected or expired token, or a network failure during authentication.
type AuthError struct {
	// Op is the failed operation: "login", "register", "validate" or "account".
	Op string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AuthError) Unwrap() error {
	return e.Err
}
