package errors

import "errors"

var (
	ErrNotFound = errors.New("turf not found")

	ErrInvalidID = errors.New("invalid turf ID format")

	ErrDuplicateName = errors.New("turf with the same name already exists")
)
