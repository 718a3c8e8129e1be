package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rfqbroker/internal/model"
)

// Messaging is the asynchronous channel RFQs and negotiation messages
// travel over. Inbound replies accumulate in a mailbox that a single
// consumer polls; Ack marks a message consumed before it is processed,
// trading at-most-once loss for never reprocessing after a crash.
type Messaging interface {
	Connect(ctx context.Context) error
	Close()
	Send(ctx context.Context, msg model.OutboundMessage) error
	FetchInbound(ctx context.Context) ([]model.InboundMessage, error)
	Ack(ctx context.Context, messageID string) error
}

// HTTPMessaging talks to a REST mail-relay service.
type HTTPMessaging struct {
	httpClient
}

func NewHTTPMessaging(baseURL, apiKey string) *HTTPMessaging {
	return &HTTPMessaging{httpClient: newHTTPClient(baseURL, apiKey)}
}

func (g *HTTPMessaging) Connect(ctx context.Context) error {
	if !g.configured() {
		return ErrNotConfigured
	}
	return g.getJSON(ctx, "/health", nil)
}

func (g *HTTPMessaging) Send(ctx context.Context, msg model.OutboundMessage) error {
	return g.postJSON(ctx, "/messages", msg, nil)
}

func (g *HTTPMessaging) FetchInbound(ctx context.Context) ([]model.InboundMessage, error) {
	var out struct {
		Messages []model.InboundMessage `json:"messages"`
	}
	if err := g.getJSON(ctx, "/inbox?status=unread", &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (g *HTTPMessaging) Ack(ctx context.Context, messageID string) error {
	return g.postJSON(ctx, "/inbox/"+messageID+"/ack", nil, nil)
}

// MockMessaging is the in-memory channel used in dev mode and tests.
// Sends are recorded, and tests can enqueue inbound replies. Every send
// is logged by the caller as a mock so it can never pass for delivery.
type MockMessaging struct {
	mu       sync.Mutex
	sent     []model.OutboundMessage
	inbox    []model.InboundMessage
	sendErr  map[string]error // per-recipient injected failures
	connects int
}

func NewMockMessaging() *MockMessaging {
	return &MockMessaging{sendErr: make(map[string]error)}
}

func (g *MockMessaging) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connects++
	return nil
}

func (g *MockMessaging) Close() {}

func (g *MockMessaging) Send(ctx context.Context, msg model.OutboundMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if msg.To == "" {
		return fmt.Errorf("mock messaging: empty recipient")
	}
	if err, ok := g.sendErr[msg.To]; ok {
		return err
	}
	g.sent = append(g.sent, msg)
	return nil
}

func (g *MockMessaging) FetchInbound(ctx context.Context) ([]model.InboundMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.InboundMessage, len(g.inbox))
	copy(out, g.inbox)
	return out, nil
}

func (g *MockMessaging) Ack(ctx context.Context, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, m := range g.inbox {
		if m.ID == messageID {
			g.inbox = append(g.inbox[:i], g.inbox[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("mock messaging: unknown message %s", messageID)
}

// Deliver enqueues an inbound reply as if a supplier had responded.
func (g *MockMessaging) Deliver(from, subject, text string) model.InboundMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	msg := model.InboundMessage{
		ID:         "mock-msg-" + uuid.NewString(),
		From:       from,
		Subject:    subject,
		Text:       text,
		ReceivedAt: time.Now().UTC(),
	}
	g.inbox = append(g.inbox, msg)
	return msg
}

// FailSendsTo makes future sends to the given recipient fail.
func (g *MockMessaging) FailSendsTo(contact string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sendErr[contact] = err
}

// Sent returns a copy of everything sent so far.
func (g *MockMessaging) Sent() []model.OutboundMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.OutboundMessage, len(g.sent))
	copy(out, g.sent)
	return out
}
