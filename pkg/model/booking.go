package model

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// CustomerDetails is the contact snapshot captured at booking time. It is
// independent of the user account the booking belongs to.
type CustomerDetails struct {
	Name  string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone" bson:"phone" validate:"required,min=7,max=20"`
}

// Booking is a reservation spanning one or more slots on the same turf and
// date. TotalAmount is snapshotted from slot prices at creation time and
// never recomputed.
type Booking struct {
	ID                 string               `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookingRef         string               `json:"booking_ref" bson:"booking_ref" validate:"required,bookingref"`
	UserID             string               `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	TurfID             string               `json:"turf_id" bson:"turf_id" validate:"required,mongodb"`
	SlotIDs            []string             `json:"slot_ids" bson:"slot_ids" validate:"required,min=1,dive,mongodb"`
	Date               time.Time            `json:"date" bson:"date" validate:"required"`
	StartTime          string               `json:"start_time" bson:"start_time" validate:"required,hhmm"`
	EndTime            string               `json:"end_time" bson:"end_time" validate:"required,hhmm"`
	TotalAmount        float64              `json:"total_amount" bson:"total_amount" validate:"min=0"`
	Status             BookingStatus        `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	PaymentID          string               `json:"payment_id,omitempty" bson:"payment_id,omitempty" validate:"omitempty,mongodb"`
	PaymentStatus      BookingPaymentStatus `json:"payment_status" bson:"payment_status" validate:"required,oneof=pending paid failed refunded"`
	CustomerDetails    CustomerDetails      `json:"customer_details" bson:"customer_details"`
	NumberOfPlayers    int                  `json:"number_of_players,omitempty" bson:"number_of_players,omitempty" validate:"omitempty,min=1"`
	SpecialRequests    string               `json:"special_requests,omitempty" bson:"special_requests,omitempty" validate:"omitempty,max=500"`
	CancellationReason string               `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	InvoiceURL         string               `json:"invoice_url,omitempty" bson:"invoice_url,omitempty"`
	CreatedAt          time.Time            `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// BookingRequest is the checkout payload. Customer fields left empty fall
// back to the authenticated user's profile.
type BookingRequest struct {
	SlotIDs         []string        `json:"slot_ids"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	NumberOfPlayers int             `json:"number_of_players,omitempty"`
	SpecialRequests string          `json:"special_requests,omitempty"`
}

// OfflineBookingRequest models a cash-at-counter sale recorded by an admin
// for a single slot. It bypasses the lock and payment verification flow.
type OfflineBookingRequest struct {
	SlotID          string          `json:"slot_id"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	AmountPaid      float64         `json:"amount_paid"`
	NumberOfPlayers int             `json:"number_of_players,omitempty"`
	SpecialRequests string          `json:"special_requests,omitempty"`
}

// BookingFilter narrows admin booking listings.
type BookingFilter struct {
	Status        BookingStatus
	PaymentStatus BookingPaymentStatus
	From          *time.Time
	To            *time.Time
}

// BookingStats is the admin dashboard aggregate.
type BookingStats struct {
	TotalBookings     int64   `json:"total_bookings"`
	TodayBookings     int64   `json:"today_bookings"`
	UpcomingBookings  int64   `json:"upcoming_bookings"`
	CancelledBookings int64   `json:"cancelled_bookings"`
	TotalRevenue      float64 `json:"total_revenue"`
	TodayRevenue      float64 `json:"today_revenue"`
}

// NewBookingRef generates a human-readable booking reference of the form
// SB<yymmdd><nnnn>. Uniqueness is enforced by the store; callers retry on
// duplicate key.
func NewBookingRef(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	var suffix int64
	if err != nil {
		suffix = int64(now.Nanosecond() % 10000)
	} else {
		suffix = n.Int64()
	}
	return fmt.Sprintf("SB%s%04d", now.Format("060102"), suffix)
}
