package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrDuplicateRef means the generated booking reference collided with an
	// existing one; callers regenerate and retry.
	ErrDuplicateRef = errors.New("booking reference already exists")
)
