package upi

import (
	"strings"
	"testing"
)

func TestNormalizeTxnRef(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercase uppercased",
			input: "xyz999999999",
			want:  "XYZ999999999",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  ABC123456789  ",
			want:  "ABC123456789",
		},
		{
			name:  "already canonical",
			input: "ABC123456789",
			want:  "ABC123456789",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTxnRef(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeTxnRef(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidTxnRef(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{
			name:  "twelve alphanumerics",
			input: "ABC123456789",
			want:  true,
		},
		{
			name:  "lowercase accepted after normalization",
			input: "xyz999999999",
			want:  true,
		},
		{
			name:  "longer than twelve",
			input: "UPI1234567890123456",
			want:  true,
		},
		{
			name:  "too short",
			input: "ABC123",
			want:  false,
		},
		{
			name:  "special characters rejected",
			input: "ABC-12345678",
			want:  false,
		},
		{
			name:  "empty",
			input: "",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidTxnRef(tt.input)
			if got != tt.want {
				t.Errorf("IsValidTxnRef(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPaymentString(t *testing.T) {
	s := PaymentString(PaymentRequest{
		PayeeID:   "turfbook@okicici",
		PayeeName: "Turfbook",
		Amount:    1000,
		Note:      "SB2609150042",
	})

	if !strings.HasPrefix(s, "upi://pay?") {
		t.Fatalf("expected upi://pay deeplink, got %q", s)
	}
	for _, part := range []string{"pa=turfbook%40okicici", "am=1000.00", "tn=SB2609150042", "cu=INR"} {
		if !strings.Contains(s, part) {
			t.Errorf("expected %q in %q", part, s)
		}
	}
}

func TestNewPaymentData(t *testing.T) {
	data := NewPaymentData(PaymentRequest{
		PayeeID:   "turfbook@okicici",
		PayeeName: "Turfbook",
		Amount:    500,
		Note:      "SB2609150001",
	})

	if data.Amount != 500 {
		t.Errorf("expected amount 500, got %v", data.Amount)
	}
	if data.UPIString == "" || data.QRCodeURL == "" {
		t.Error("expected UPI string and QR URL to be populated")
	}
	if !strings.Contains(data.QRCodeURL, "chl=") {
		t.Errorf("expected QR URL to embed the UPI string, got %q", data.QRCodeURL)
	}
}
