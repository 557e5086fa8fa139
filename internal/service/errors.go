package service

import "errors"

// Service errors.
var (
	// ErrInvalidCredentials is returned on a failed login. It deliberately
	// does not distinguish a missing user from a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrApplicationRejected is returned when a company fails verification
	// during token creation.
	ErrApplicationRejected = errors.New("company application rejected")
)
