package model

import "time"

type ContractStatus string

const (
	ContractPendingSignatures ContractStatus = "PENDING_SIGNATURES"
	ContractSigned            ContractStatus = "SIGNED"
	ContractFunded            ContractStatus = "FUNDED"
	ContractCompleted         ContractStatus = "COMPLETED"
	ContractVoided            ContractStatus = "VOIDED"
)

type EscrowStatus string

const (
	EscrowRequiresPayment EscrowStatus = "REQUIRES_PAYMENT"
	EscrowEscrowed        EscrowStatus = "ESCROWED"
	EscrowReleased        EscrowStatus = "RELEASED"
	EscrowRefunded        EscrowStatus = "REFUNDED"
)

type Party struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// ContractTerms carries the negotiated economics into settlement. The
// payout/commission split is computed exactly once, at contract creation;
// release stages reuse these numbers verbatim. All amounts are minor
// currency units and TotalCents == SupplierPayoutCents + CommissionCents
// always holds.
type ContractTerms struct {
	Product             string `json:"product"`
	Quantity            int    `json:"quantity"`
	UnitPriceCents      int64  `json:"unitPriceCents"`
	TotalCents          int64  `json:"totalCents"`
	SupplierPayoutCents int64  `json:"supplierPayoutCents"`
	CommissionCents     int64  `json:"commissionCents"`
	Currency            string `json:"currency"`
	PaymentTerms        string `json:"paymentTerms,omitempty"`
}

type Contract struct {
	ID         string        `json:"id"`
	RFQID      string        `json:"rfqId"`
	Buyer      Party         `json:"buyer"`
	Supplier   Party         `json:"supplier"`
	Broker     Party         `json:"broker"`
	Terms      ContractTerms `json:"terms"`
	EnvelopeID string        `json:"envelopeId,omitempty"`
	// EnvelopeIsPlaceholder marks a locally generated envelope used when
	// the e-signature provider was unavailable. Never silently equal to a
	// real envelope.
	EnvelopeIsPlaceholder bool           `json:"envelopeIsPlaceholder,omitempty"`
	Status                ContractStatus `json:"status"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

type EscrowPayment struct {
	ContractID string       `json:"contractId"`
	HoldID     string       `json:"holdId,omitempty"`
	TotalCents int64        `json:"totalCents"`
	Currency   string       `json:"currency"`
	Status     EscrowStatus `json:"status"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// SplitTotal computes the commission split for a supplier price. The
// commission is a percentage of the supplier total, floored at zero and
// rounded down to the nearest minor unit; the payout is the remainder so
// the two always sum back to the total exactly.
func SplitTotal(totalCents int64, commissionPct float64) (payout, commission int64) {
	if commissionPct < 0 {
		commissionPct = 0
	}
	commission = int64(float64(totalCents) * commissionPct / 100.0)
	if commission < 0 {
		commission = 0
	}
	if commission > totalCents {
		commission = totalCents
	}
	return totalCents - commission, commission
}
