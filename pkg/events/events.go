// Package events defines the booking lifecycle events published for the
// notification and invoicing collaborators.
package events

import (
	"context"
	"time"
)

const (
	TopicBookings = "turfbook.bookings"
	TopicDLQ      = "turfbook.bookings.dlq"

	TypeBookingCreated   = "booking.created"
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingCancelled = "booking.cancelled"
	TypePaymentSubmitted = "payment.submitted"
	TypePaymentVerified  = "payment.verified"
	TypePaymentFailed    = "payment.failed"
)

// BookingEvent is the payload for all booking lifecycle event types.
type BookingEvent struct {
	BookingID   string    `json:"booking_id"`
	BookingRef  string    `json:"booking_ref"`
	UserID      string    `json:"user_id"`
	TurfID      string    `json:"turf_id"`
	Date        time.Time `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	TotalAmount float64   `json:"total_amount"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
}

// PaymentEvent is the payload for payment lifecycle event types.
type PaymentEvent struct {
	PaymentID  string  `json:"payment_id"`
	BookingID  string  `json:"booking_id"`
	BookingRef string  `json:"booking_ref"`
	UserID     string  `json:"user_id"`
	Amount     float64 `json:"amount"`
	Method     string  `json:"method"`
	TxnRef     string  `json:"txn_ref,omitempty"`
	Status     string  `json:"status"`
}

// Publisher emits lifecycle events. Publishing is best-effort: services log
// failures and continue, the store stays authoritative.
type Publisher interface {
	Publish(ctx context.Context, eventType string, key string, payload any) error
}

// Noop discards all events; used when eventing is disabled and in tests.
type Noop struct{}

func (Noop) Publish(ctx context.Context, eventType string, key string, payload any) error {
	return nil
}
