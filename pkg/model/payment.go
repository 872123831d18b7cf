package model

import "time"

// Payment is one payment attempt tied to exactly one booking. A booking has
// at most one payment record; resubmission updates it in place. The
// normalized transaction reference is globally unique across bookings.
type Payment struct {
	ID            string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	BookingID     string        `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	UserID        string        `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	Amount        float64       `json:"amount" bson:"amount" validate:"min=0"`
	Currency      string        `json:"currency" bson:"currency"`
	Method        string        `json:"method" bson:"method" validate:"required,oneof=UPI Cash Card"`
	TxnRef        string        `json:"txn_ref,omitempty" bson:"txn_ref,omitempty" validate:"omitempty,upiref"`
	UPIID         string        `json:"upi_id,omitempty" bson:"upi_id,omitempty"`
	ScreenshotURL string        `json:"screenshot_url,omitempty" bson:"screenshot_url,omitempty"`
	Status        PaymentStatus `json:"status" bson:"status" validate:"required,oneof=pending verified failed refunded"`
	VerifiedBy    string        `json:"verified_by,omitempty" bson:"verified_by,omitempty" validate:"omitempty,mongodb"`
	VerifiedAt    *time.Time    `json:"verified_at,omitempty" bson:"verified_at,omitempty"`
	Notes         string        `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=500"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// PaymentSubmission is the payment-evidence payload a customer sends after
// paying out of band.
type PaymentSubmission struct {
	BookingID     string  `json:"booking_id"`
	Method        string  `json:"method,omitempty"`
	TxnRef        string  `json:"txn_ref"`
	UPIID         string  `json:"upi_id,omitempty"`
	ScreenshotURL string  `json:"screenshot_url,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
}

// VerificationDecision is the admin verdict on a submitted payment.
type VerificationDecision struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes,omitempty"`
}

const DefaultCurrency = "INR"

const (
	MethodUPI  = "UPI"
	MethodCash = "Cash"
	MethodCard = "Card"
)
