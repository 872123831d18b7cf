package validator

import (
	"testing"
	"time"

	"turfbook/pkg/model"
)

func validBooking() *model.Booking {
	return &model.Booking{
		BookingRef:    "SB2609150042",
		UserID:        "665f1f77bcf86cd799439011",
		TurfID:        "665f1f77bcf86cd799439099",
		SlotIDs:       []string{"665f1f77bcf86cd799439001"},
		Date:          time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		StartTime:     "09:00",
		EndTime:       "10:00",
		TotalAmount:   500,
		Status:        model.BookingPending,
		PaymentStatus: model.BookingPaymentPending,
		CustomerDetails: model.CustomerDetails{
			Name:  "Asha Rao",
			Phone: "+919876543210",
		},
	}
}

func TestValidate(t *testing.T) {
	v := NewBookingValidator()

	tests := []struct {
		name      string
		mutate    func(b *model.Booking)
		wantError bool
	}{
		{
			name:      "valid booking",
			mutate:    func(b *model.Booking) {},
			wantError: false,
		},
		{
			name:      "booking ref wrong prefix",
			mutate:    func(b *model.Booking) { b.BookingRef = "XX2609150042" },
			wantError: true,
		},
		{
			name:      "booking ref wrong length",
			mutate:    func(b *model.Booking) { b.BookingRef = "SB26091500" },
			wantError: true,
		},
		{
			name:      "no slots",
			mutate:    func(b *model.Booking) { b.SlotIDs = nil },
			wantError: true,
		},
		{
			name:      "malformed slot id",
			mutate:    func(b *model.Booking) { b.SlotIDs = []string{"slot-1"} },
			wantError: true,
		},
		{
			name:      "missing customer name",
			mutate:    func(b *model.Booking) { b.CustomerDetails.Name = "" },
			wantError: true,
		},
		{
			name:      "missing customer phone",
			mutate:    func(b *model.Booking) { b.CustomerDetails.Phone = "" },
			wantError: true,
		},
		{
			name:      "bad customer email",
			mutate:    func(b *model.Booking) { b.CustomerDetails.Email = "not-an-email" },
			wantError: true,
		},
		{
			name:      "unknown status",
			mutate:    func(b *model.Booking) { b.Status = "draft" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking := validBooking()
			tt.mutate(booking)

			err := v.Validate(booking)
			if tt.wantError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
