package errors

import "errors"

var (
	ErrNotFound = errors.New("payment not found")

	ErrInvalidID = errors.New("invalid payment ID format")

	// ErrDuplicateTxnRef means the normalized transaction reference is
	// already attached to a different booking.
	ErrDuplicateTxnRef = errors.New("transaction reference already used")
)
