package user

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password
	// so callers cannot tell which one happened.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
)
