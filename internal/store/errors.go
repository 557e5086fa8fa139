package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specifics.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails to
	// commit or an operation within it fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors.

	ErrUserNotFound        = fmt.Errorf("%w: user", ErrNotFound)
	ErrTokenNotFound       = fmt.Errorf("%w: token", ErrNotFound)
	ErrWalletNotFound      = fmt.Errorf("%w: wallet", ErrNotFound)
	ErrApplicationNotFound = fmt.Errorf("%w: application", ErrNotFound)

	// Entity-specific "duplicate" errors.

	ErrUsernameExists = fmt.Errorf("%w: username", ErrDuplicate)
	ErrSymbolExists   = fmt.Errorf("%w: token symbol", ErrDuplicate)
)

// IsNotFoundError checks whether the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks whether the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
