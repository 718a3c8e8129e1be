// Package workflows contains the three Temporal workflows that make up
// the brokerage pipeline: RFQ dispatch fan-out, per-supplier negotiation,
// and contract settlement. Data flows one way per RFQ: dispatch spawns
// negotiations, an accepted negotiation spawns settlement. All children
// are started with an abandoned parent-close policy so each unit of work
// runs detached from whatever triggered it.
package workflows

import (
	"time"

	"rfqbroker/internal/model"

	"go.temporal.io/sdk/workflow"
)

const TaskQueue = "RFQ_BROKER_TASK_QUEUE"

// Signal names. Replies and buyer decisions always arrive from outside
// the workflow; the orchestrator never accepts on the buyer's behalf.
const (
	SupplierReplySignal     = "SUPPLIER_REPLY_SIGNAL"
	BuyerAcceptSignal       = "BUYER_ACCEPT_SIGNAL"
	DeliveryConfirmedSignal = "DELIVERY_CONFIRMED_SIGNAL"
)

// AcceptQuote is the buyer's decision to take the quote recorded on a
// specific round. Round 0 means "the latest usable quote".
type AcceptQuote struct {
	Round     int       `json:"round"`
	BuyerNote string    `json:"buyerNote,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// DeliveryConfirmation is the external signal that goods arrived and the
// escrowed amount may be split and released.
type DeliveryConfirmation struct {
	Reference   string    `json:"reference,omitempty"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// Params carries the tunables every workflow needs. They ride along in
// workflow inputs so a config change never alters the behavior of runs
// already in flight.
type Params struct {
	ConfidenceThreshold float64       `json:"confidenceThreshold"`
	TargetMarginPct     float64       `json:"targetMarginPct"`
	ReplyDeadline       time.Duration `json:"replyDeadline"`
	SignaturePollEvery  time.Duration `json:"signaturePollEvery"`
	SignatureDeadline   time.Duration `json:"signatureDeadline"`
	CommissionPct       float64       `json:"commissionPct"`
	Currency            string        `json:"currency"`
	Broker              model.Party   `json:"broker"`
	BrokerPayoutAccount string        `json:"brokerPayoutAccount"`
}

func DispatchWorkflowID(rfqID string) string { return "dispatch-" + rfqID }

func NegotiationWorkflowID(rfqID, supplierID string) string {
	return "negotiate-" + rfqID + "-" + supplierID
}

// ContractID is derived, not random, so settlement stays idempotent when
// re-invoked for the same RFQ and supplier.
func ContractID(rfqID, supplierID string) string {
	return "ctr-" + rfqID + "-" + supplierID
}

func SettlementWorkflowID(contractID string) string { return "settle-" + contractID }

// auditor appends immutable audit events to a workflow-owned trail.
type auditor struct {
	events []model.AuditEvent
}

func (a *auditor) append(ctx workflow.Context, kind, message string, data map[string]any) {
	a.events = append(a.events, model.AuditEvent{
		At:      workflow.Now(ctx),
		Kind:    kind,
		Message: message,
		Data:    data,
	})
}
