package validator

import (
	"testing"

	"turfbook/pkg/model"
)

func validPayment() *model.Payment {
	return &model.Payment{
		BookingID: "665f1f77bcf86cd799439111",
		UserID:    "665f1f77bcf86cd799439011",
		Amount:    1000,
		Currency:  model.DefaultCurrency,
		Method:    model.MethodUPI,
		TxnRef:    "ABC123456789",
		Status:    model.PaymentPending,
	}
}

func TestValidate(t *testing.T) {
	v := NewPaymentValidator()

	tests := []struct {
		name      string
		mutate    func(p *model.Payment)
		wantError bool
	}{
		{
			name:      "valid payment",
			mutate:    func(p *model.Payment) {},
			wantError: false,
		},
		{
			name:      "cash payment without txn ref",
			mutate:    func(p *model.Payment) { p.Method = model.MethodCash; p.TxnRef = "" },
			wantError: false,
		},
		{
			name:      "missing booking id",
			mutate:    func(p *model.Payment) { p.BookingID = "" },
			wantError: true,
		},
		{
			name:      "short txn ref",
			mutate:    func(p *model.Payment) { p.TxnRef = "ABC123" },
			wantError: true,
		},
		{
			name:      "txn ref with punctuation",
			mutate:    func(p *model.Payment) { p.TxnRef = "ABC-123456789" },
			wantError: true,
		},
		{
			name:      "unknown method",
			mutate:    func(p *model.Payment) { p.Method = "Cheque" },
			wantError: true,
		},
		{
			name:      "negative amount",
			mutate:    func(p *model.Payment) { p.Amount = -10 },
			wantError: true,
		},
		{
			name:      "unknown status",
			mutate:    func(p *model.Payment) { p.Status = "approved" },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := validPayment()
			tt.mutate(payment)

			err := v.Validate(payment)
			if tt.wantError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
