package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// inactive accounts alike, so responses never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountUnverified is returned when a correct login hits an
	// account whose email has not been verified yet.
	ErrAccountUnverified = errors.New("email not verified")
	// ErrPasswordMismatch is returned when new and confirm passwords differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrSamePassword is returned when a password change reuses the
	// current password.
	ErrSamePassword = errors.New("new password must differ from current password")
	// ErrNoTokenContext is returned when logout cannot identify a session.
	ErrNoTokenContext = errors.New("no token context for logout")
)
