package model

import "time"

type ThreadStatus string

const (
	ThreadInitiated     ThreadStatus = "INITIATED"
	ThreadAwaitingReply ThreadStatus = "AWAITING_REPLY"
	ThreadNegotiating   ThreadStatus = "NEGOTIATING"
	ThreadAccepted      ThreadStatus = "ACCEPTED"
	ThreadAbandoned     ThreadStatus = "ABANDONED"
)

// MaxRounds caps every negotiation thread. The outbound message of the
// final round must not imply further concession requests.
const MaxRounds = 3

// NegotiationRound is one immutable entry in a thread's transcript:
// one outbound message, at most one reply, at most one usable quote.
type NegotiationRound struct {
	Number   int              `json:"number"`
	Outbound *OutboundMessage `json:"outbound,omitempty"`
	Inbound  *InboundMessage  `json:"inbound,omitempty"`
	Quote    *ExtractedQuote  `json:"quote,omitempty"`
	At       time.Time        `json:"at"`
}

// NegotiationThread is the append-only transcript for one (RFQ, supplier)
// pair. Rounds are never rewritten; the full negotiation can always be
// reconstructed from it.
type NegotiationThread struct {
	RFQID      string             `json:"rfqId"`
	SupplierID string             `json:"supplierId"`
	Status     ThreadStatus       `json:"status"`
	Rounds     []NegotiationRound `json:"rounds"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// LatestQuote returns the most recent usable quote in the transcript and
// the round it arrived on, or nil when none cleared the gate yet.
func (t *NegotiationThread) LatestQuote() (*ExtractedQuote, int) {
	for i := len(t.Rounds) - 1; i >= 0; i-- {
		if t.Rounds[i].Quote != nil {
			return t.Rounds[i].Quote, t.Rounds[i].Number
		}
	}
	return nil, 0
}

// QuoteForRound returns the quote recorded on the given round, if any.
func (t *NegotiationThread) QuoteForRound(n int) *ExtractedQuote {
	for i := range t.Rounds {
		if t.Rounds[i].Number == n {
			return t.Rounds[i].Quote
		}
	}
	return nil
}
