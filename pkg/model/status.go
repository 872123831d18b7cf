package model

// SlotStatus is the lifecycle state of a bookable slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotLocked    SlotStatus = "locked"
	SlotBooked    SlotStatus = "booked"
)

// BookingStatus is the lifecycle state of a booking aggregate.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// PaymentStatus is the verification state of a payment attempt.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// BookingPaymentStatus is the payment state tracked on the booking itself.
type BookingPaymentStatus string

const (
	BookingPaymentPending  BookingPaymentStatus = "pending"
	BookingPaymentPaid     BookingPaymentStatus = "paid"
	BookingPaymentFailed   BookingPaymentStatus = "failed"
	BookingPaymentRefunded BookingPaymentStatus = "refunded"
)

// Transition tables. Every status change performed by a service must appear
// here; anything else is a Conflict. Re-locking an already locked slot is
// legal at the table level; lock ownership is checked by the service.
var slotTransitions = map[SlotStatus][]SlotStatus{
	SlotAvailable: {SlotLocked, SlotBooked},
	SlotLocked:    {SlotAvailable, SlotLocked, SlotBooked},
	SlotBooked:    {SlotAvailable},
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled, BookingCompleted},
	BookingCancelled: {},
	BookingCompleted: {},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPending, PaymentVerified, PaymentFailed},
	PaymentVerified: {PaymentRefunded},
	PaymentFailed:   {PaymentPending},
	PaymentRefunded: {},
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (s SlotStatus) CanTransition(target SlotStatus) bool {
	return contains(slotTransitions[s], target)
}

func (s BookingStatus) CanTransition(target BookingStatus) bool {
	return contains(bookingTransitions[s], target)
}

// IsTerminal reports whether no further transitions are allowed.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

func (s PaymentStatus) CanTransition(target PaymentStatus) bool {
	return contains(paymentTransitions[s], target)
}
