package workflows

import (
	"time"

	"rfqbroker/internal/model"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

type SettlementInput struct {
	Contract model.Contract `json:"contract"`
	Params   Params         `json:"params"`
}

type envelopeResult struct {
	EnvelopeID  string `json:"envelopeId"`
	Placeholder bool   `json:"placeholder"`
}

type envelopeStatus struct {
	Buyer    bool `json:"buyer"`
	Supplier bool `json:"supplier"`
	Broker   bool `json:"broker"`
}

type commissionResult struct {
	PaymentID string `json:"paymentId"`
	Mock      bool   `json:"mock"`
}

// SettleContract drives one contract through signature collection,
// escrow funding, delivery-gated release and commission payout. Stages
// run strictly sequentially and every provider call is keyed on the
// contract ID, so a retried stage never issues a second financial
// operation. A stage failure halts forward progress; the contract stays
// inspectable at its last good status.
func SettleContract(ctx workflow.Context, in SettlementInput) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("settlement started", "contractId", in.Contract.ID, "totalCents", in.Contract.Terms.TotalCents)

	contract := in.Contract
	escrow := model.EscrowPayment{
		ContractID: contract.ID,
		TotalCents: contract.Terms.TotalCents,
		Currency:   contract.Terms.Currency,
		Status:     model.EscrowRequiresPayment,
		UpdatedAt:  workflow.Now(ctx),
	}
	audit := &auditor{}

	_ = workflow.SetQueryHandler(ctx, "contract", func() (model.Contract, error) {
		return contract, nil
	})
	_ = workflow.SetQueryHandler(ctx, "escrow", func() (model.EscrowPayment, error) {
		return escrow, nil
	})
	_ = workflow.SetQueryHandler(ctx, "audit_log", func() ([]model.AuditEvent, error) {
		return audit.events, nil
	})

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Stage 1: tri-party envelope. A provider failure degrades to a
	// flagged placeholder inside the activity, never silently.
	var env envelopeResult
	if err := workflow.ExecuteActivity(ctx, "CreateEnvelope", contract).Get(ctx, &env); err != nil {
		logger.Error("envelope creation failed", "error", err)
		return "", err
	}
	contract.EnvelopeID = env.EnvelopeID
	contract.EnvelopeIsPlaceholder = env.Placeholder
	contract.UpdatedAt = workflow.Now(ctx)
	audit.append(ctx, "ENVELOPE_CREATED", "signature envelope created", map[string]any{
		"envelopeId": env.EnvelopeID, "placeholder": env.Placeholder,
	})

	// Stage 2: collect all three signatures before anything financial.
	signDeadline := workflow.Now(ctx).Add(in.Params.SignatureDeadline)
	for {
		var status envelopeStatus
		if err := workflow.ExecuteActivity(ctx, "CheckEnvelope", contract.EnvelopeID).Get(ctx, &status); err != nil {
			logger.Error("signature status check failed", "error", err)
			return "", err
		}
		if status.Buyer && status.Supplier && status.Broker {
			break
		}
		if workflow.Now(ctx).After(signDeadline) {
			audit.append(ctx, "SIGNATURES_INCOMPLETE", "signature deadline passed", map[string]any{
				"buyer": status.Buyer, "supplier": status.Supplier, "broker": status.Broker,
			})
			logger.Warn("settlement halted awaiting signatures", "contractId", contract.ID)
			return "SIGNATURES_INCOMPLETE", nil
		}
		if err := workflow.Sleep(ctx, in.Params.SignaturePollEvery); err != nil {
			return "", err
		}
	}
	contract.Status = model.ContractSigned
	contract.UpdatedAt = workflow.Now(ctx)
	audit.append(ctx, "SIGNED", "all three parties signed", nil)

	// Stage 3: hold-then-capture escrow funding for the full amount.
	var holdID string
	if err := workflow.ExecuteActivity(ctx, "AuthorizeEscrow",
		contract.ID, contract.Terms.TotalCents, contract.Terms.Currency).Get(ctx, &holdID); err != nil {
		logger.Error("escrow authorization failed", "contractId", contract.ID, "error", err)
		return "", err
	}
	escrow.HoldID = holdID
	audit.append(ctx, "ESCROW_AUTHORIZED", "hold placed for full amount", map[string]any{
		"holdId": holdID, "amountCents": contract.Terms.TotalCents,
	})

	if err := workflow.ExecuteActivity(ctx, "CaptureEscrow", holdID).Get(ctx, nil); err != nil {
		logger.Error("escrow capture failed", "contractId", contract.ID, "error", err)
		return "", err
	}
	escrow.Status = model.EscrowEscrowed
	escrow.UpdatedAt = workflow.Now(ctx)
	contract.Status = model.ContractFunded
	contract.UpdatedAt = workflow.Now(ctx)
	audit.append(ctx, "ESCROW_CAPTURED", "funding confirmed", map[string]any{"holdId": holdID})

	// Stage 4: wait for the delivery confirmation, then release the
	// split fixed at contract creation. Never recomputed here.
	var delivery DeliveryConfirmation
	workflow.GetSignalChannel(ctx, DeliveryConfirmedSignal).Receive(ctx, &delivery)
	audit.append(ctx, "DELIVERY_CONFIRMED", "delivery confirmed by external signal", map[string]any{
		"reference": delivery.Reference,
	})

	if err := workflow.ExecuteActivity(ctx, "ReleaseEscrow",
		holdID, contract.Supplier.ID, contract.Terms.SupplierPayoutCents).Get(ctx, nil); err != nil {
		logger.Error("escrow release failed", "contractId", contract.ID, "error", err)
		return "", err
	}
	escrow.Status = model.EscrowReleased
	escrow.UpdatedAt = workflow.Now(ctx)
	audit.append(ctx, "ESCROW_RELEASED", "supplier payout released", map[string]any{
		"amountCents": contract.Terms.SupplierPayoutCents,
	})

	// Stage 5: broker commission payout.
	var pay commissionResult
	if err := workflow.ExecuteActivity(ctx, "PayCommission",
		contract.ID, in.Params.BrokerPayoutAccount, contract.Terms.CommissionCents,
		contract.Terms.Currency).Get(ctx, &pay); err != nil {
		logger.Error("commission payout failed", "contractId", contract.ID, "error", err)
		return "", err
	}
	audit.append(ctx, "COMMISSION_PAID", "broker commission paid out", map[string]any{
		"paymentId": pay.PaymentID, "mock": pay.Mock, "amountCents": contract.Terms.CommissionCents,
	})

	contract.Status = model.ContractCompleted
	contract.UpdatedAt = workflow.Now(ctx)
	audit.append(ctx, "DONE", "settlement completed", nil)
	logger.Info("settlement completed", "contractId", contract.ID)
	return "COMPLETED", nil
}
