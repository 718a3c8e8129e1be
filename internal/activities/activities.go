// Package activities holds the Temporal activity implementations. Every
// side effect the workflows need — registry reads, message sends, LLM
// calls, provider operations — lives here behind an injectable
// dependency set so tests swap in fakes per component.
package activities

import (
	"context"
	"fmt"
	"log/slog"

	"rfqbroker/internal/draft"
	"rfqbroker/internal/extract"
	"rfqbroker/internal/gateway"
	"rfqbroker/internal/model"
	"rfqbroker/internal/store"
)

type Activities struct {
	Messaging gateway.Messaging
	Extractor *extract.Extractor
	Drafter   *draft.Drafter
	ESign     gateway.ESign
	Escrow    gateway.Escrow
	Payout    gateway.Payout
	Suppliers *store.SupplierRegistry
	RFQs      *store.RFQRegistry
	Log       *slog.Logger
}

// ListCandidates returns the supplier pool for one framework, in stable
// order, so the match engine scores the same input every run.
func (a *Activities) ListCandidates(ctx context.Context, framework model.Framework) ([]model.Supplier, error) {
	return a.Suppliers.ListByFramework(framework), nil
}

// SendOutbound pushes one message through the messaging gateway.
func (a *Activities) SendOutbound(ctx context.Context, msg model.OutboundMessage) error {
	if err := a.Messaging.Send(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", msg.To, err)
	}
	return nil
}

// SetRFQStatus advances the RFQ's human-readable lifecycle status.
func (a *Activities) SetRFQStatus(ctx context.Context, rfqID string, status model.RFQStatus) error {
	return a.RFQs.SetStatus(rfqID, status)
}

// ExtractQuote reads a structured quote out of a raw reply. A nil quote
// means the reply was unusable; that is data, not an error.
func (a *Activities) ExtractQuote(ctx context.Context, raw string) (*model.ExtractedQuote, error) {
	return a.Extractor.Extract(ctx, raw)
}

// DraftCounterOffer asks the text-generation service for the next
// outbound negotiation message.
func (a *Activities) DraftCounterOffer(ctx context.Context, in draft.CounterInput) (model.OutboundMessage, error) {
	return a.Drafter.CounterOffer(ctx, in)
}
