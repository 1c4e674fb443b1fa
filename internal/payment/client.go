// Package payment talks to the external payment processor. The processor
// captures funds out of band; this client only opens processor orders and the
// verification of signed confirmations lives in the service layer.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
)

var (
	// ErrProvider wraps any processor-side failure
	ErrProvider = errors.New("payment provider error")
)

// ProcessorOrder is the processor's handle for a pending payment
type ProcessorOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Processor opens payment-processor transactions
type Processor interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*ProcessorOrder, error)
}

type client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// NewClient creates a Processor backed by the configured REST API
func NewClient(cfg config.PaymentConfig) Processor {
	return &client{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type createOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

// CreateOrder opens a processor order in minor units with auto-capture
func (c *client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*ProcessorOrder, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:         amountMinor,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrProvider, resp.StatusCode)
	}

	order := &ProcessorOrder{}
	if err := json.NewDecoder(resp.Body).Decode(order); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}

	return order, nil
}
