package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	// ErrDuplicateSlot means a slot already exists for the same turf,
	// date and start time.
	ErrDuplicateSlot = errors.New("slot already exists for this turf, date and start time")

	// ErrLockConflict means the slot is held by a live lock owned by
	// someone else.
	ErrLockConflict = errors.New("slot is locked by another user")

	// ErrNotLockOwner means the caller tried to release or consume a lock
	// they do not hold.
	ErrNotLockOwner = errors.New("slot is not locked by this user")

	ErrBooked = errors.New("slot is already booked")
)
