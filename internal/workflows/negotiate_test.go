package workflows

import (
	"time"

	"github.com/stretchr/testify/mock"

	"rfqbroker/internal/draft"
	"rfqbroker/internal/model"
)

func negotiationInput(d *deps) NegotiationInput {
	rfq := steelRFQ()
	d.rfqs.Create(rfq)
	supplier := domestic("s1", "s1@x.example")
	return NegotiationInput{
		RFQ:             rfq,
		Supplier:        supplier,
		InitialOutbound: draft.InitialMessage(rfq, supplier),
		Params:          testParams(),
	}
}

func reply(text string) model.InboundMessage {
	return model.InboundMessage{
		ID:         "msg-" + text[:3],
		From:       "s1@x.example",
		Subject:    "Re: [RFQ:rfq-100] Request for quote",
		Text:       text,
		ReceivedAt: time.Now().UTC(),
	}
}

func (s *WorkflowSuite) TestNegotiationConfidenceGateAcrossRounds() {
	d := newDeps()
	// Round 1 reply extracts at 0.4: ignored. Round 2 reply at 0.9: recorded.
	d.ai.ScriptExtraction(`{"unit_price": 45.00, "min_order_quantity": 300}`, 0.4, nil)
	d.ai.ScriptExtraction(`{"unit_price": 42.00, "min_order_quantity": 250, "lead_time_days": 21}`, 0.9, nil)

	env := s.newEnv(d)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(SupplierReplySignal, reply("vague first reply"))
	}, time.Minute)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(SupplierReplySignal, reply("firm second reply"))
	}, 2*time.Minute)

	var mid model.NegotiationThread
	env.RegisterDelayedCallback(func() {
		v, err := env.QueryWorkflow("thread")
		s.NoError(err)
		s.NoError(v.Get(&mid))
	}, 3*time.Minute)

	env.ExecuteWorkflow(Negotiate, negotiationInput(d))
	s.True(env.IsWorkflowCompleted())

	s.Equal(model.ThreadNegotiating, mid.Status)
	quotes := 0
	for _, r := range mid.Rounds {
		if r.Quote != nil {
			quotes++
			s.Equal(2, r.Number, "the usable quote belongs to round 2")
			s.Equal(int64(4200), *r.Quote.UnitPriceCents)
		}
	}
	s.Equal(1, quotes, "exactly one recorded quote")
	s.Nil(mid.QuoteForRound(1), "the low-confidence reply never surfaces as an offer")
}

func (s *WorkflowSuite) TestNegotiationRoundCapAndFinalFraming() {
	d := newDeps()
	for n := 0; n < 3; n++ {
		d.ai.ScriptExtraction(`{"unit_price": 40.00}`, 0.9, nil)
	}

	env := s.newEnv(d)
	for i := 0; i < 3; i++ {
		env.RegisterDelayedCallback(func() {
			env.SignalWorkflow(SupplierReplySignal, reply("reply round offer"))
		}, time.Duration(i+1)*time.Minute)
	}

	env.ExecuteWorkflow(Negotiate, negotiationInput(d))
	s.True(env.IsWorkflowCompleted())

	// No acceptance ever arrives, so the cap plus deadline abandons.
	var result string
	s.NoError(env.GetWorkflowResult(&result))
	s.Equal("ABANDONED", result)

	v, err := env.QueryWorkflow("thread")
	s.NoError(err)
	var thread model.NegotiationThread
	s.NoError(v.Get(&thread))
	s.Len(thread.Rounds, model.MaxRounds, "a thread never exceeds the round cap")
	s.Equal(model.ThreadAbandoned, thread.Status)

	// Two counters were drafted (rounds 2 and 3); the last one is final.
	prompts := d.ai.Prompts()
	s.Len(prompts, 2)
	s.Contains(prompts[1].Prompt, "FINAL round")

	// The third reply produced no fourth outbound.
	s.Len(d.messaging.Sent(), 2, "counters for rounds 2 and 3 only")
}

func (s *WorkflowSuite) TestNegotiationTimeoutAbandons() {
	d := newDeps()
	env := s.newEnv(d)

	env.ExecuteWorkflow(Negotiate, negotiationInput(d))
	s.True(env.IsWorkflowCompleted())

	var result string
	s.NoError(env.GetWorkflowResult(&result))
	s.Equal("ABANDONED", result)

	v, err := env.QueryWorkflow("status")
	s.NoError(err)
	var status model.ThreadStatus
	s.NoError(v.Get(&status))
	s.Equal(model.ThreadAbandoned, status)
}

func (s *WorkflowSuite) TestNegotiationBuyerAcceptStartsSettlement() {
	d := newDeps()
	d.ai.ScriptExtraction(`{"product_name": "A36 plate", "unit_price": 42.00, "payment_terms": "net 30"}`, 0.95, nil)

	env := s.newEnv(d)
	// The settlement pipeline has its own tests; here it only needs to
	// start and finish so the parent can return.
	env.OnWorkflow(SettleContract, mock.Anything, mock.Anything).Return("COMPLETED", nil)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(SupplierReplySignal, reply("offer at 42"))
	}, time.Minute)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(BuyerAcceptSignal, AcceptQuote{Round: 1, DecidedAt: time.Now().UTC()})
	}, 2*time.Minute)

	in := negotiationInput(d)
	env.ExecuteWorkflow(Negotiate, in)
	s.True(env.IsWorkflowCompleted())

	var result string
	s.NoError(env.GetWorkflowResult(&result))
	s.Equal("ACCEPTED", result)

	v, err := env.QueryWorkflow("status")
	s.NoError(err)
	var status model.ThreadStatus
	s.NoError(v.Get(&status))
	s.Equal(model.ThreadAccepted, status)

	got, err := d.rfqs.Get(in.RFQ.ID)
	s.NoError(err)
	s.Equal(model.RFQStatusClosed, got.Status)
}

func (s *WorkflowSuite) TestNegotiationAcceptWithoutQuoteIsIgnored() {
	d := newDeps()
	env := s.newEnv(d)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(BuyerAcceptSignal, AcceptQuote{Round: 1})
	}, time.Minute)

	env.ExecuteWorkflow(Negotiate, negotiationInput(d))
	s.True(env.IsWorkflowCompleted())

	// With no quote on file the acceptance is ignored and the deadline
	// eventually abandons the thread.
	var result string
	s.NoError(env.GetWorkflowResult(&result))
	s.Equal("ABANDONED", result)
}

func (s *WorkflowSuite) TestNegotiationAdvancesRFQLifecycle() {
	d := newDeps()
	d.ai.ScriptExtraction(`{"unit_price": 41.00}`, 0.9, nil)

	env := s.newEnv(d)
	in := negotiationInput(d)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(SupplierReplySignal, reply("offer at 41"))
	}, time.Minute)

	var mid model.RFQ
	env.RegisterDelayedCallback(func() {
		got, err := d.rfqs.Get(in.RFQ.ID)
		s.NoError(err)
		mid = got
	}, 2*time.Minute)

	env.ExecuteWorkflow(Negotiate, in)
	s.True(env.IsWorkflowCompleted())

	s.Equal(model.RFQStatusNegotiating, mid.Status, "a counter in flight marks the RFQ negotiating")

	got, err := d.rfqs.Get(in.RFQ.ID)
	s.NoError(err)
	s.Equal(model.RFQStatusRejected, got.Status, "abandonment marks the RFQ rejected")
}

func (s *WorkflowSuite) TestNegotiationRoundTakesSingleReply() {
	d := newDeps()
	for n := 0; n < 3; n++ {
		d.ai.ScriptExtraction(`{"unit_price": 40.00}`, 0.9, nil)
	}

	env := s.newEnv(d)
	texts := []string{"first offer", "second offer", "third offer", "late duplicate"}
	for i, text := range texts {
		env.RegisterDelayedCallback(func() {
			env.SignalWorkflow(SupplierReplySignal, reply(text))
		}, time.Duration(i+1)*time.Minute)
	}

	env.ExecuteWorkflow(Negotiate, negotiationInput(d))
	s.True(env.IsWorkflowCompleted())

	v, err := env.QueryWorkflow("thread")
	s.NoError(err)
	var thread model.NegotiationThread
	s.NoError(v.Get(&thread))
	s.Len(thread.Rounds, model.MaxRounds)
	s.Equal("third offer", thread.Rounds[2].Inbound.Text, "an answered round keeps its first reply")

	v, err = env.QueryWorkflow("audit_log")
	s.NoError(err)
	var events []model.AuditEvent
	s.NoError(v.Get(&events))
	extras := 0
	for _, e := range events {
		if e.Kind == "EXTRA_REPLY" {
			extras++
		}
	}
	s.Equal(1, extras, "the fourth reply is audited, never recorded on a round")
}
