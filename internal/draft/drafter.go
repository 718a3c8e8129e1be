// Package draft produces the outbound negotiation messages. The initial
// RFQ message is a deterministic template; counter-offers are drafted by
// the text-generation service from a structured prompt carrying the
// round number and full prior transcript so asks are not repeated.
package draft

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"rfqbroker/internal/gateway"
	"rfqbroker/internal/model"
)

// maxDraftChars bounds generated message length regardless of what the
// provider returns.
const maxDraftChars = 1600

const systemPrompt = "You draft concise, professional B2B procurement messages. " +
	"Reply with the message body only, no subject line, under 200 words."

// Ask is the single concession a counter-offer round pushes for.
type Ask string

const (
	AskLowerPrice    Ask = "lower unit price"
	AskLooserMOQ     Ask = "lower minimum order quantity"
	AskShorterLead   Ask = "shorter lead time"
	AskClarification Ask = "a complete written quote"
)

type Drafter struct {
	gen             gateway.Generation
	targetMarginPct float64
}

func New(gen gateway.Generation, targetMarginPct float64) *Drafter {
	return &Drafter{gen: gen, targetMarginPct: targetMarginPct}
}

// InitialMessage renders the first outbound RFQ message. It is a pure
// template so dispatch stays deterministic and cheap.
func InitialMessage(rfq model.RFQ, supplier model.Supplier) model.OutboundMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", supplier.Name)
	fmt.Fprintf(&b, "We are sourcing on behalf of a buyer under the %s compliance framework and would like a quote.\n\n", rfq.Framework)
	if rfq.Requirements.ProductType != "" {
		fmt.Fprintf(&b, "Product: %s\n", rfq.Requirements.ProductType)
	}
	if rfq.Requirements.Quantity > 0 {
		fmt.Fprintf(&b, "Quantity: %d units\n", rfq.Requirements.Quantity)
	}
	if rfq.Requirements.CustomText != "" {
		fmt.Fprintf(&b, "Additional requirements: %s\n", rfq.Requirements.CustomText)
	}
	fmt.Fprintf(&b, "Timeline: %s\n\n", rfq.Timeline)
	b.WriteString("Please reply with unit price, minimum order quantity, lead time, payment terms, and relevant certifications.\n")

	return model.OutboundMessage{
		To:      supplier.Contact,
		Subject: model.ThreadSubject(rfq.ID, rfq.Requirements.ProductType),
		Body:    b.String(),
	}
}

// CounterInput is everything the generator needs for one counter round.
type CounterInput struct {
	RFQ        model.RFQ
	Supplier   model.Supplier
	Quote      *model.ExtractedQuote // nil when the last reply was unusable
	Round      int                   // the round this message opens
	Transcript []string              // prior outbound/inbound bodies, in order
	Final      bool                  // round-cap message: no further concessions implied
}

// CounterOffer drafts the next outbound message. The target margin
// decides which concession to push for; the final round is framed as a
// last position rather than another request.
func (d *Drafter) CounterOffer(ctx context.Context, in CounterInput) (model.OutboundMessage, error) {
	ask := ChooseAsk(in.Quote, d.targetMarginPct, in.Transcript)

	var p strings.Builder
	fmt.Fprintf(&p, "Draft negotiation round %d of %d to supplier %s for RFQ %s.\n",
		in.Round, model.MaxRounds, in.Supplier.Name, in.RFQ.ID)
	if in.Quote != nil {
		fmt.Fprintf(&p, "Their current offer: %s\n", describeQuote(in.Quote))
	} else {
		p.WriteString("Their last reply contained no usable quote; ask for a complete written quote.\n")
	}
	fmt.Fprintf(&p, "Our brokerage targets a %.0f%% margin; push for: %s.\n", d.targetMarginPct, ask)
	if in.Final {
		p.WriteString("This is the FINAL round: state our best and final position, thank them, and do not request further concessions.\n")
	}
	if len(in.Transcript) > 0 {
		p.WriteString("Prior transcript, oldest first (do not repeat earlier asks):\n")
		for i, t := range in.Transcript {
			fmt.Fprintf(&p, "--- message %d ---\n%s\n", i+1, t)
		}
	}

	text, err := d.gen.Generate(ctx, gateway.GenerateRequest{
		System:    systemPrompt,
		Prompt:    p.String(),
		MaxTokens: 400,
	})
	if err != nil {
		return model.OutboundMessage{}, fmt.Errorf("draft counter-offer: %w", err)
	}
	text = strings.TrimSpace(text)
	if len(text) > maxDraftChars {
		cut := maxDraftChars
		// Never split a multi-byte rune at the bound.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	return model.OutboundMessage{
		To:      in.Supplier.Contact,
		Subject: "Re: " + model.ThreadSubject(in.RFQ.ID, in.RFQ.Requirements.ProductType),
		Body:    text,
	}, nil
}

// ChooseAsk picks the concession for this round. Price comes first while
// the margin target is unmet, then MOQ, then lead time; asks already
// made in the transcript are skipped so rounds do not repeat themselves.
func ChooseAsk(q *model.ExtractedQuote, targetMarginPct float64, transcript []string) Ask {
	if q == nil || q.UnitPriceCents == nil {
		return AskClarification
	}
	prior := strings.ToLower(strings.Join(transcript, "\n"))
	asked := func(a Ask) bool { return strings.Contains(prior, string(a)) }

	if targetMarginPct > 0 && !asked(AskLowerPrice) {
		return AskLowerPrice
	}
	if q.MinOrderQty != nil && !asked(AskLooserMOQ) {
		return AskLooserMOQ
	}
	if q.LeadTimeDays != nil && !asked(AskShorterLead) {
		return AskShorterLead
	}
	return AskLowerPrice
}

func describeQuote(q *model.ExtractedQuote) string {
	parts := []string{}
	if q.UnitPriceCents != nil {
		parts = append(parts, fmt.Sprintf("unit price %.2f", float64(*q.UnitPriceCents)/100))
	}
	if q.MinOrderQty != nil {
		parts = append(parts, fmt.Sprintf("MOQ %d", *q.MinOrderQty))
	}
	if q.LeadTimeDays != nil {
		parts = append(parts, fmt.Sprintf("lead time %d days", *q.LeadTimeDays))
	}
	if q.PaymentTerms != "" {
		parts = append(parts, "terms "+q.PaymentTerms)
	}
	if len(parts) == 0 {
		return "no concrete terms stated"
	}
	return strings.Join(parts, ", ")
}
