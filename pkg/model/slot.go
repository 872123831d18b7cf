package model

import "time"

// Slot is one bookable time interval at one turf on one calendar date.
// The tuple (turf_id, date, start_time) is unique. LockedBy/LockedAt are
// both set or both unset; the same holds for BookedBy/BookingID.
type Slot struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TurfID    string     `json:"turf_id" bson:"turf_id" validate:"required,mongodb"`
	Date      time.Time  `json:"date" bson:"date" validate:"required"`
	StartTime string     `json:"start_time" bson:"start_time" validate:"required,hhmm"`
	EndTime   string     `json:"end_time" bson:"end_time" validate:"required,hhmm"`
	Price     float64    `json:"price" bson:"price" validate:"min=0"`
	Status    SlotStatus `json:"status" bson:"status" validate:"required,oneof=available locked booked"`
	LockedBy  string     `json:"locked_by,omitempty" bson:"locked_by,omitempty" validate:"omitempty,mongodb"`
	LockedAt  *time.Time `json:"locked_at,omitempty" bson:"locked_at,omitempty"`
	BookedBy  string     `json:"booked_by,omitempty" bson:"booked_by,omitempty" validate:"omitempty,mongodb"`
	BookingID string     `json:"booking_id,omitempty" bson:"booking_id,omitempty" validate:"omitempty,mongodb"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// IsLockExpired reports whether the slot carries a lock older than
// lockDuration at the given instant. A slot without a lock timestamp is
// never considered expired.
func (s *Slot) IsLockExpired(now time.Time, lockDuration time.Duration) bool {
	if s.Status != SlotLocked || s.LockedAt == nil {
		return false
	}
	return now.After(s.LockedAt.Add(lockDuration))
}

// ClearLock resets the slot to available and removes lock ownership.
func (s *Slot) ClearLock() {
	s.Status = SlotAvailable
	s.LockedBy = ""
	s.LockedAt = nil
}
