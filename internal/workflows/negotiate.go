package workflows

import (
	"time"

	"rfqbroker/internal/draft"
	"rfqbroker/internal/model"

	enums "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

type NegotiationInput struct {
	RFQ             model.RFQ             `json:"rfq"`
	Supplier        model.Supplier        `json:"supplier"`
	InitialOutbound model.OutboundMessage `json:"initialOutbound"`
	Params          Params                `json:"params"`
}

// Negotiate runs the bounded price/terms negotiation for one
// (RFQ, supplier) pair. The thread is an append-only transcript; every
// inbound reply closes out the current round, and a new outbound opens
// the next until the round cap. Acceptance only ever arrives from the
// buyer as a signal; deadlines, not cancellation, end a silent thread.
func Negotiate(ctx workflow.Context, in NegotiationInput) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("negotiation started", "rfqId", in.RFQ.ID, "supplierId", in.Supplier.ID)

	thread := model.NegotiationThread{
		RFQID:      in.RFQ.ID,
		SupplierID: in.Supplier.ID,
		Status:     model.ThreadAwaitingReply,
		Rounds: []model.NegotiationRound{{
			Number:   1,
			Outbound: &in.InitialOutbound,
			At:       workflow.Now(ctx),
		}},
		UpdatedAt: workflow.Now(ctx),
	}
	audit := &auditor{}
	audit.append(ctx, "INITIATED", "initial RFQ message recorded", map[string]any{"supplierId": in.Supplier.ID})

	_ = workflow.SetQueryHandler(ctx, "thread", func() (model.NegotiationThread, error) {
		return thread, nil
	})
	_ = workflow.SetQueryHandler(ctx, "status", func() (model.ThreadStatus, error) {
		return thread.Status, nil
	})
	_ = workflow.SetQueryHandler(ctx, "audit_log", func() ([]model.AuditEvent, error) {
		return audit.events, nil
	})

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	replyCh := workflow.GetSignalChannel(ctx, SupplierReplySignal)
	acceptCh := workflow.GetSignalChannel(ctx, BuyerAcceptSignal)

	round := 1
	deadline := workflow.NewTimer(ctx, in.Params.ReplyDeadline)

	for {
		var reply model.InboundMessage
		var accept AcceptQuote
		var gotReply, gotAccept, timedOut bool

		sel := workflow.NewSelector(ctx)
		sel.AddReceive(replyCh, func(c workflow.ReceiveChannel, more bool) {
			c.Receive(ctx, &reply)
			gotReply = true
		})
		sel.AddReceive(acceptCh, func(c workflow.ReceiveChannel, more bool) {
			c.Receive(ctx, &accept)
			gotAccept = true
		})
		sel.AddFuture(deadline, func(f workflow.Future) {
			timedOut = true
		})
		sel.Select(ctx)

		switch {
		case gotAccept:
			quote, quoteRound := acceptedQuote(&thread, accept)
			if quote == nil {
				audit.append(ctx, "ACCEPT_REJECTED", "buyer accepted a round with no usable quote", map[string]any{"round": accept.Round})
				logger.Warn("ignoring acceptance without a usable quote", "round", accept.Round)
				continue
			}
			thread.Status = model.ThreadAccepted
			thread.UpdatedAt = workflow.Now(ctx)
			audit.append(ctx, "ACCEPTED", "buyer accepted quote", map[string]any{"round": quoteRound})

			if err := startSettlement(ctx, in, quote); err != nil {
				logger.Error("failed to start settlement", "error", err)
				return "", err
			}
			if err := workflow.ExecuteActivity(ctx, "SetRFQStatus", in.RFQ.ID, model.RFQStatusClosed).Get(ctx, nil); err != nil {
				logger.Error("failed to close rfq", "rfqId", in.RFQ.ID, "error", err)
			}
			return "ACCEPTED", nil

		case timedOut:
			thread.Status = model.ThreadAbandoned
			thread.UpdatedAt = workflow.Now(ctx)
			reason := "reply deadline exceeded"
			if round >= model.MaxRounds {
				reason = "round cap exhausted with no acceptance"
			}
			audit.append(ctx, "ABANDONED", reason, map[string]any{"round": round})
			logger.Info("negotiation abandoned", "rfqId", in.RFQ.ID, "supplierId", in.Supplier.ID, "reason", reason)
			// The registry ignores this if a sibling thread already closed
			// the RFQ.
			if err := workflow.ExecuteActivity(ctx, "SetRFQStatus", in.RFQ.ID, model.RFQStatusRejected).Get(ctx, nil); err != nil {
				logger.Error("failed to mark rfq rejected", "rfqId", in.RFQ.ID, "error", err)
			}
			return "ABANDONED", nil

		case gotReply:
			deadline = handleReply(ctx, in, &thread, audit, &round, reply)
		}
	}
}

// handleReply closes the current round with the inbound message, gates
// the extraction on confidence, and opens the next round with a drafted
// counter unless the cap is reached. Returns the refreshed reply timer.
func handleReply(ctx workflow.Context, in NegotiationInput, thread *model.NegotiationThread, audit *auditor, round *int, reply model.InboundMessage) workflow.Future {
	logger := workflow.GetLogger(ctx)

	cur := &thread.Rounds[len(thread.Rounds)-1]
	if cur.Inbound != nil {
		// The transcript is append-only: a round takes exactly one reply.
		// Record anything beyond that without touching the round.
		audit.append(ctx, "EXTRA_REPLY", "reply ignored, round already answered", map[string]any{
			"round": cur.Number, "messageId": reply.ID, "from": reply.From,
		})
		logger.Warn("ignoring extra reply on answered round", "round", cur.Number, "messageId", reply.ID)
		return workflow.NewTimer(ctx, in.Params.ReplyDeadline)
	}
	if thread.Status == model.ThreadAwaitingReply {
		thread.Status = model.ThreadNegotiating
		if err := workflow.ExecuteActivity(ctx, "SetRFQStatus", in.RFQ.ID, model.RFQStatusResponded).Get(ctx, nil); err != nil {
			logger.Error("failed to mark rfq responded", "rfqId", in.RFQ.ID, "error", err)
		}
	}
	cur.Inbound = &reply
	thread.UpdatedAt = workflow.Now(ctx)

	var quote *model.ExtractedQuote
	if err := workflow.ExecuteActivity(ctx, "ExtractQuote", reply.Text).Get(ctx, &quote); err != nil {
		logger.Warn("quote extraction activity failed, treating reply as unusable", "error", err)
		quote = nil
	}

	if quote.Usable(in.Params.ConfidenceThreshold) {
		cur.Quote = quote
		audit.append(ctx, "QUOTE_RECORDED", "usable quote extracted", map[string]any{
			"round": cur.Number, "confidence": quote.Confidence,
		})
	} else {
		// Low confidence is not a failure: this round simply produced
		// no new information.
		conf := 0.0
		if quote != nil {
			conf = quote.Confidence
		}
		audit.append(ctx, "NO_USABLE_QUOTE", "reply did not clear the confidence gate", map[string]any{
			"round": cur.Number, "confidence": conf,
		})
		quote = nil
	}

	if *round >= model.MaxRounds {
		audit.append(ctx, "CAP_REACHED", "no further outbound after final round", map[string]any{"round": *round})
		return workflow.NewTimer(ctx, in.Params.ReplyDeadline)
	}

	next := *round + 1
	counter, err := draftCounter(ctx, in, thread, quote, next)
	if err != nil {
		logger.Error("failed to draft counter-offer, holding round open", "error", err)
		return workflow.NewTimer(ctx, in.Params.ReplyDeadline)
	}
	if err := workflow.ExecuteActivity(ctx, "SendOutbound", counter).Get(ctx, nil); err != nil {
		logger.Error("failed to send counter-offer, holding round open", "error", err)
		return workflow.NewTimer(ctx, in.Params.ReplyDeadline)
	}

	*round = next
	thread.Rounds = append(thread.Rounds, model.NegotiationRound{
		Number:   next,
		Outbound: &counter,
		At:       workflow.Now(ctx),
	})
	thread.UpdatedAt = workflow.Now(ctx)
	audit.append(ctx, "COUNTER_SENT", "counter-offer sent", map[string]any{
		"round": next, "final": next == model.MaxRounds,
	})
	if err := workflow.ExecuteActivity(ctx, "SetRFQStatus", in.RFQ.ID, model.RFQStatusNegotiating).Get(ctx, nil); err != nil {
		logger.Error("failed to mark rfq negotiating", "rfqId", in.RFQ.ID, "error", err)
	}
	return workflow.NewTimer(ctx, in.Params.ReplyDeadline)
}

func draftCounter(ctx workflow.Context, in NegotiationInput, thread *model.NegotiationThread, quote *model.ExtractedQuote, next int) (model.OutboundMessage, error) {
	transcript := make([]string, 0, len(thread.Rounds)*2)
	for _, r := range thread.Rounds {
		if r.Outbound != nil {
			transcript = append(transcript, r.Outbound.Body)
		}
		if r.Inbound != nil {
			transcript = append(transcript, r.Inbound.Text)
		}
	}
	if quote == nil {
		// Negotiate against the last recorded offer when this reply
		// carried nothing usable.
		quote, _ = thread.LatestQuote()
	}

	var counter model.OutboundMessage
	err := workflow.ExecuteActivity(ctx, "DraftCounterOffer", draft.CounterInput{
		RFQ:        in.RFQ,
		Supplier:   in.Supplier,
		Quote:      quote,
		Round:      next,
		Transcript: transcript,
		Final:      next == model.MaxRounds,
	}).Get(ctx, &counter)
	return counter, err
}

// acceptedQuote resolves which quote the buyer accepted. Round 0 means
// the latest usable quote on the thread.
func acceptedQuote(thread *model.NegotiationThread, accept AcceptQuote) (*model.ExtractedQuote, int) {
	if accept.Round == 0 {
		return thread.LatestQuote()
	}
	return thread.QuoteForRound(accept.Round), accept.Round
}

// startSettlement builds the contract from the accepted quote and spawns
// the settlement pipeline detached. The payout/commission split is
// computed here, once, and never recomputed downstream.
func startSettlement(ctx workflow.Context, in NegotiationInput, quote *model.ExtractedQuote) error {
	qty := in.RFQ.Requirements.Quantity
	if qty <= 0 && quote.MinOrderQty != nil {
		qty = *quote.MinOrderQty
	}
	if qty <= 0 {
		qty = 1
	}
	total := *quote.UnitPriceCents * int64(qty)
	payout, commission := model.SplitTotal(total, in.Params.CommissionPct)

	product := quote.ProductName
	if product == "" {
		product = in.RFQ.Requirements.ProductType
	}

	contract := model.Contract{
		ID:    ContractID(in.RFQ.ID, in.Supplier.ID),
		RFQID: in.RFQ.ID,
		Buyer: model.Party{ID: in.RFQ.BuyerID, Name: in.RFQ.BuyerID, Contact: in.RFQ.BuyerContact},
		Supplier: model.Party{
			ID: in.Supplier.ID, Name: in.Supplier.Name, Contact: in.Supplier.Contact,
		},
		Broker: in.Params.Broker,
		Terms: model.ContractTerms{
			Product:             product,
			Quantity:            qty,
			UnitPriceCents:      *quote.UnitPriceCents,
			TotalCents:          total,
			SupplierPayoutCents: payout,
			CommissionCents:     commission,
			Currency:            in.Params.Currency,
			PaymentTerms:        quote.PaymentTerms,
		},
		Status:    model.ContractPendingSignatures,
		CreatedAt: workflow.Now(ctx),
		UpdatedAt: workflow.Now(ctx),
	}

	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID:            SettlementWorkflowID(contract.ID),
		ParentClosePolicy:     enums.PARENT_CLOSE_POLICY_ABANDON,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	})
	fut := workflow.ExecuteChildWorkflow(cctx, SettleContract, SettlementInput{
		Contract: contract,
		Params:   in.Params,
	})

	var exec workflow.Execution
	return fut.GetChildWorkflowExecution().Get(ctx, &exec)
}
