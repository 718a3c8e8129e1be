package gateway

import (
	"context"
	"fmt"
	"sync"
)

// Escrow is the hold-then-capture payment boundary. Authorize reserves
// the full contract amount, Capture confirms it, Release moves a slice
// to its final destination. No two concurrent financial calls are made
// for the same contract; settlement stages are sequential per contract.
type Escrow interface {
	Authorize(ctx context.Context, idempotencyKey string, amountCents int64, currency string) (holdID string, err error)
	Capture(ctx context.Context, holdID string) error
	Release(ctx context.Context, holdID, destination string, amountCents int64) error
	Refund(ctx context.Context, holdID string) error
	Close()
}

type HTTPEscrow struct {
	httpClient
}

func NewHTTPEscrow(baseURL, apiKey string) *HTTPEscrow {
	return &HTTPEscrow{httpClient: newHTTPClient(baseURL, apiKey)}
}

func (c *HTTPEscrow) Authorize(ctx context.Context, idempotencyKey string, amountCents int64, currency string) (string, error) {
	in := struct {
		IdempotencyKey string `json:"idempotencyKey"`
		AmountCents    int64  `json:"amountCents"`
		Currency       string `json:"currency"`
	}{idempotencyKey, amountCents, currency}

	var out struct {
		HoldID string `json:"holdId"`
	}
	if err := c.postJSON(ctx, "/holds", in, &out); err != nil {
		return "", err
	}
	return out.HoldID, nil
}

func (c *HTTPEscrow) Capture(ctx context.Context, holdID string) error {
	return c.postJSON(ctx, "/holds/"+holdID+"/capture", nil, nil)
}

func (c *HTTPEscrow) Release(ctx context.Context, holdID, destination string, amountCents int64) error {
	in := struct {
		Destination string `json:"destination"`
		AmountCents int64  `json:"amountCents"`
	}{destination, amountCents}
	return c.postJSON(ctx, "/holds/"+holdID+"/release", in, nil)
}

func (c *HTTPEscrow) Refund(ctx context.Context, holdID string) error {
	return c.postJSON(ctx, "/holds/"+holdID+"/refund", nil, nil)
}

// MockEscrow tracks holds in memory with idempotent authorization.
type MockEscrow struct {
	mu       sync.Mutex
	holds    map[string]*mockHold // by hold ID
	byKey    map[string]string    // idempotency key -> hold ID
	releases []MockRelease
	seq      int
}

type mockHold struct {
	amountCents int64
	currency    string
	captured    bool
	remaining   int64
}

// MockRelease records one release for assertions.
type MockRelease struct {
	HoldID      string
	Destination string
	AmountCents int64
}

func NewMockEscrow() *MockEscrow {
	return &MockEscrow{holds: make(map[string]*mockHold), byKey: make(map[string]string)}
}

func (m *MockEscrow) Close() {}

func (m *MockEscrow) Authorize(ctx context.Context, idempotencyKey string, amountCents int64, currency string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byKey[idempotencyKey]; ok {
		return id, nil
	}
	m.seq++
	id := fmt.Sprintf("mock-hold-%d", m.seq)
	m.holds[id] = &mockHold{amountCents: amountCents, currency: currency, remaining: amountCents}
	m.byKey[idempotencyKey] = id
	return id, nil
}

func (m *MockEscrow) Capture(ctx context.Context, holdID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[holdID]
	if !ok {
		return fmt.Errorf("mock escrow: unknown hold %s", holdID)
	}
	h.captured = true
	return nil
}

func (m *MockEscrow) Release(ctx context.Context, holdID, destination string, amountCents int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[holdID]
	if !ok {
		return fmt.Errorf("mock escrow: unknown hold %s", holdID)
	}
	if !h.captured {
		return fmt.Errorf("mock escrow: hold %s not captured", holdID)
	}
	if amountCents > h.remaining {
		return fmt.Errorf("mock escrow: release %d exceeds remaining %d", amountCents, h.remaining)
	}
	h.remaining -= amountCents
	m.releases = append(m.releases, MockRelease{HoldID: holdID, Destination: destination, AmountCents: amountCents})
	return nil
}

func (m *MockEscrow) Refund(ctx context.Context, holdID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[holdID]
	if !ok {
		return fmt.Errorf("mock escrow: unknown hold %s", holdID)
	}
	h.remaining = 0
	return nil
}

// Releases returns all recorded releases.
func (m *MockEscrow) Releases() []MockRelease {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockRelease, len(m.releases))
	copy(out, m.releases)
	return out
}

// Remaining reports the unreleased balance still sitting on a hold.
func (m *MockEscrow) Remaining(holdID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.holds[holdID]; ok {
		return h.remaining
	}
	return 0
}
