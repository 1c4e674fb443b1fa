package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"storefront/internal/payment"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
)

// PaymentService opens processor transactions and verifies their signed
// confirmations. The signature check is the sole authenticity gate for
// "payment succeeded".
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, amount float64) (*payment.ProcessorOrder, error)
	VerifyPayment(processorOrderID, processorPaymentID, signature string) error
}

type paymentService struct {
	processor payment.Processor
	keySecret string
	currency  string
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(processor payment.Processor, keySecret, currency string) PaymentService {
	return &paymentService{
		processor: processor,
		keySecret: keySecret,
		currency:  currency,
	}
}

// CreatePaymentIntent opens a processor order for the amount in minor units
// with auto-capture enabled
func (s *paymentService) CreatePaymentIntent(ctx context.Context, amount float64) (*payment.ProcessorOrder, error) {
	receipt, err := randomReceipt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate receipt: %w", err)
	}

	minor := int64(math.Round(amount * 100))
	return s.processor.CreateOrder(ctx, minor, s.currency, receipt)
}

// VerifyPayment recomputes the HMAC-SHA256 of "orderID|paymentID" under the
// processor key secret and compares it to the presented signature in
// constant time.
func (s *paymentService) VerifyPayment(processorOrderID, processorPaymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(s.keySecret))
	mac.Write([]byte(processorOrderID + "|" + processorPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func randomReceipt() (string, error) {
	suffix, err := randomHex(6)
	if err != nil {
		return "", err
	}
	return "order_rcptid_" + suffix, nil
}

// randomHex returns n random bytes as uppercased hex
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
