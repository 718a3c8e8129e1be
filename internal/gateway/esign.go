package gateway

import (
	"context"
	"sync"
)

// Signer identifies one party on a tri-party envelope.
type Signer struct {
	Role    string `json:"role"` // buyer | supplier | broker
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// EnvelopeStatus reports which of the three parties have signed.
type EnvelopeStatus struct {
	Buyer    bool `json:"buyer"`
	Supplier bool `json:"supplier"`
	Broker   bool `json:"broker"`
}

func (s EnvelopeStatus) AllSigned() bool { return s.Buyer && s.Supplier && s.Broker }

// ESign is the e-signature provider boundary.
type ESign interface {
	// CreateEnvelope submits a document for signature and returns the
	// provider envelope ID. The idempotency key is the contract ID so a
	// retried stage reuses the existing envelope.
	CreateEnvelope(ctx context.Context, idempotencyKey, document string, signers []Signer) (string, error)
	EnvelopeStatus(ctx context.Context, envelopeID string) (EnvelopeStatus, error)
	Close()
}

type HTTPESign struct {
	httpClient
}

func NewHTTPESign(baseURL, apiKey string) *HTTPESign {
	return &HTTPESign{httpClient: newHTTPClient(baseURL, apiKey)}
}

func (c *HTTPESign) CreateEnvelope(ctx context.Context, idempotencyKey, document string, signers []Signer) (string, error) {
	in := struct {
		IdempotencyKey string   `json:"idempotencyKey"`
		Document       string   `json:"document"`
		Signers        []Signer `json:"signers"`
	}{idempotencyKey, document, signers}

	var out struct {
		EnvelopeID string `json:"envelopeId"`
	}
	if err := c.postJSON(ctx, "/envelopes", in, &out); err != nil {
		return "", err
	}
	return out.EnvelopeID, nil
}

func (c *HTTPESign) EnvelopeStatus(ctx context.Context, envelopeID string) (EnvelopeStatus, error) {
	var out EnvelopeStatus
	if err := c.getJSON(ctx, "/envelopes/"+envelopeID+"/status", &out); err != nil {
		return EnvelopeStatus{}, err
	}
	return out, nil
}

// MockESign signs envelopes after a scripted number of status polls so
// the signature-collection loop can be exercised without a provider.
type MockESign struct {
	mu            sync.Mutex
	envelopes     map[string]string // idempotency key -> envelope ID
	pollsToSign   int
	polls         map[string]int
	createErr     error
}

func NewMockESign() *MockESign {
	return &MockESign{envelopes: make(map[string]string), polls: make(map[string]int)}
}

func (m *MockESign) Close() {}

// SignAfterPolls delays all-signed until the nth status call.
func (m *MockESign) SignAfterPolls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollsToSign = n
}

// FailCreate makes envelope creation fail, forcing the placeholder path.
func (m *MockESign) FailCreate(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

func (m *MockESign) CreateEnvelope(ctx context.Context, idempotencyKey, document string, signers []Signer) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	if id, ok := m.envelopes[idempotencyKey]; ok {
		return id, nil
	}
	id := "mock-envelope-" + idempotencyKey
	m.envelopes[idempotencyKey] = id
	return id, nil
}

func (m *MockESign) EnvelopeStatus(ctx context.Context, envelopeID string) (EnvelopeStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls[envelopeID]++
	if m.polls[envelopeID] > m.pollsToSign {
		return EnvelopeStatus{Buyer: true, Supplier: true, Broker: true}, nil
	}
	return EnvelopeStatus{}, nil
}
