package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Payout moves the broker commission to an external payout account.
type Payout interface {
	Pay(ctx context.Context, idempotencyKey, payeeID string, amountCents int64, currency string) (paymentID string, err error)
	Close()
}

type HTTPPayout struct {
	httpClient
}

func NewHTTPPayout(baseURL, apiKey string) *HTTPPayout {
	return &HTTPPayout{httpClient: newHTTPClient(baseURL, apiKey)}
}

func (c *HTTPPayout) Pay(ctx context.Context, idempotencyKey, payeeID string, amountCents int64, currency string) (string, error) {
	in := struct {
		IdempotencyKey string `json:"idempotencyKey"`
		PayeeID        string `json:"payeeId"`
		AmountCents    int64  `json:"amountCents"`
		Currency       string `json:"currency"`
	}{idempotencyKey, payeeID, amountCents, currency}

	var out struct {
		PaymentID string `json:"paymentId"`
	}
	if err := c.postJSON(ctx, "/payouts", in, &out); err != nil {
		return "", err
	}
	return out.PaymentID, nil
}

// MockPayout stands in when the payout provider is not configured. Its
// payment IDs carry a mock- prefix so a fake payout can never be read as
// a real financial operation.
type MockPayout struct {
	mu       sync.Mutex
	payments map[string]string // idempotency key -> payment ID
}

func NewMockPayout() *MockPayout {
	return &MockPayout{payments: make(map[string]string)}
}

func (m *MockPayout) Close() {}

func (m *MockPayout) Pay(ctx context.Context, idempotencyKey, payeeID string, amountCents int64, currency string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.payments[idempotencyKey]; ok {
		return id, nil
	}
	id := "mock-payment-" + uuid.NewString()
	m.payments[idempotencyKey] = id
	return id, nil
}
