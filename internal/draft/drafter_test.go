package draft

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqbroker/internal/gateway"
	"rfqbroker/internal/model"
)

func quoteWith(priceCents int64, moq, lead int) *model.ExtractedQuote {
	return &model.ExtractedQuote{
		UnitPriceCents: &priceCents,
		MinOrderQty:    &moq,
		LeadTimeDays:   &lead,
		Confidence:     0.9,
	}
}

func TestInitialMessageCarriesThreadTag(t *testing.T) {
	rfq := model.RFQ{
		ID:        "rfq-9",
		Framework: model.FrameworkBuyDomestic,
		Requirements: model.Requirements{
			ProductType: "steel plates",
			Quantity:    250,
		},
		Timeline: model.TimelineOneMonth,
	}
	s := model.Supplier{Name: "Allegheny Steelworks", Contact: "quotes@as.example"}

	msg := InitialMessage(rfq, s)

	assert.Equal(t, "quotes@as.example", msg.To)
	assert.Equal(t, "rfq-9", model.RFQIDFromSubject(msg.Subject))
	assert.Contains(t, msg.Body, "steel plates")
	assert.Contains(t, msg.Body, "250 units")
	assert.Contains(t, msg.Body, string(model.FrameworkBuyDomestic))
}

func TestChooseAskOrderAndNoRepeats(t *testing.T) {
	q := quoteWith(4250, 500, 30)

	first := ChooseAsk(q, 15, nil)
	assert.Equal(t, AskLowerPrice, first)

	transcript := []string{"we would need a " + string(AskLowerPrice) + " to proceed"}
	second := ChooseAsk(q, 15, transcript)
	assert.Equal(t, AskLooserMOQ, second)

	transcript = append(transcript, "could you offer a "+string(AskLooserMOQ)+"?")
	third := ChooseAsk(q, 15, transcript)
	assert.Equal(t, AskShorterLead, third)
}

func TestChooseAskWithoutQuoteAsksForClarification(t *testing.T) {
	assert.Equal(t, AskClarification, ChooseAsk(nil, 15, nil))
	assert.Equal(t, AskClarification, ChooseAsk(&model.ExtractedQuote{Confidence: 0.9}, 15, nil))
}

func TestCounterOfferPromptCarriesRoundAndTranscript(t *testing.T) {
	ai := gateway.NewMockTextAI()
	ai.ScriptDraft("Thanks for the offer. Could you come down on unit price?")
	d := New(ai, 15)

	in := CounterInput{
		RFQ:        model.RFQ{ID: "rfq-3", Requirements: model.Requirements{ProductType: "steel plates"}},
		Supplier:   model.Supplier{Name: "Allegheny", Contact: "q@a.example"},
		Quote:      quoteWith(4250, 500, 30),
		Round:      2,
		Transcript: []string{"initial rfq body", "their first reply"},
	}
	msg, err := d.CounterOffer(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "q@a.example", msg.To)
	assert.Equal(t, "rfq-3", model.RFQIDFromSubject(msg.Subject))

	prompts := ai.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Prompt, "round 2 of 3")
	assert.Contains(t, prompts[0].Prompt, "their first reply")
	assert.NotContains(t, prompts[0].Prompt, "FINAL round")
}

func TestFinalRoundFraming(t *testing.T) {
	ai := gateway.NewMockTextAI()
	ai.ScriptDraft("This is our best and final position.")
	d := New(ai, 15)

	in := CounterInput{
		RFQ:      model.RFQ{ID: "rfq-3"},
		Supplier: model.Supplier{Name: "Allegheny", Contact: "q@a.example"},
		Quote:    quoteWith(4000, 500, 30),
		Round:    model.MaxRounds,
		Final:    true,
	}
	_, err := d.CounterOffer(context.Background(), in)
	require.NoError(t, err)

	prompts := ai.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].Prompt, "FINAL round")
	assert.Contains(t, prompts[0].Prompt, "do not request further concessions")
}

func TestCounterOfferBoundsLength(t *testing.T) {
	ai := gateway.NewMockTextAI()
	ai.ScriptDraft(strings.Repeat("x", maxDraftChars*3))
	d := New(ai, 15)

	msg, err := d.CounterOffer(context.Background(), CounterInput{
		RFQ:      model.RFQ{ID: "rfq-1"},
		Supplier: model.Supplier{Contact: "s@e.example"},
		Quote:    quoteWith(100, 1, 1),
		Round:    2,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(msg.Body), maxDraftChars)
}

func TestCounterOfferTruncationKeepsRunesIntact(t *testing.T) {
	ai := gateway.NewMockTextAI()
	// A multi-byte rune straddles the length bound.
	ai.ScriptDraft(strings.Repeat("a", maxDraftChars-1) + strings.Repeat("é", 50))
	d := New(ai, 15)

	msg, err := d.CounterOffer(context.Background(), CounterInput{
		RFQ:      model.RFQ{ID: "rfq-1"},
		Supplier: model.Supplier{Contact: "s@e.example"},
		Quote:    quoteWith(100, 1, 1),
		Round:    2,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(msg.Body), maxDraftChars)
	assert.True(t, utf8.ValidString(msg.Body), "truncation must not split a rune")
}
