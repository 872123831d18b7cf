// Package upi generates UPI payment strings and validates externally
// supplied transaction references. No payment gateway is involved; payments
// are verified manually by an administrator.
package upi

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var txnRefRegex = regexp.MustCompile(`^[A-Z0-9]{12,}$`)

// PaymentRequest describes a single UPI collect request.
type PaymentRequest struct {
	PayeeID   string  // receiver VPA, e.g. name@bank
	PayeeName string
	Amount    float64
	Note      string
}

// PaymentData is what the client renders: the upi:// deeplink plus a QR
// image URL encoding it.
type PaymentData struct {
	PayeeID   string  `json:"upi_id"`
	PayeeName string  `json:"payee_name"`
	Amount    float64 `json:"amount"`
	UPIString string  `json:"upi_string"`
	QRCodeURL string  `json:"qr_code_url"`
	Note      string  `json:"note"`
}

// PaymentString builds the upi://pay deeplink for the request.
func PaymentString(req PaymentRequest) string {
	params := url.Values{}
	params.Set("pa", req.PayeeID)
	params.Set("pn", req.PayeeName)
	params.Set("am", fmt.Sprintf("%.2f", req.Amount))
	params.Set("tn", req.Note)
	params.Set("cu", "INR")
	return "upi://pay?" + params.Encode()
}

// QRCodeURL returns a chart URL rendering the UPI string as a QR image.
func QRCodeURL(upiString string, size int) string {
	if size <= 0 {
		size = 300
	}
	return fmt.Sprintf(
		"https://chart.googleapis.com/chart?cht=qr&chl=%s&chs=%dx%d&chld=L|0",
		url.QueryEscape(upiString), size, size,
	)
}

// NewPaymentData assembles the full client payload for a request.
func NewPaymentData(req PaymentRequest) PaymentData {
	s := PaymentString(req)
	return PaymentData{
		PayeeID:   req.PayeeID,
		PayeeName: req.PayeeName,
		Amount:    req.Amount,
		UPIString: s,
		QRCodeURL: QRCodeURL(s, 300),
		Note:      req.Note,
	}
}

// NormalizeTxnRef canonicalizes an externally supplied transaction
// reference: trimmed and uppercased. All storage and uniqueness checks use
// the normalized form.
func NormalizeTxnRef(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

// IsValidTxnRef reports whether the normalized reference has the expected
// shape: at least 12 alphanumeric characters.
func IsValidTxnRef(ref string) bool {
	return txnRefRegex.MatchString(NormalizeTxnRef(ref))
}
