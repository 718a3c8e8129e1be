package model

import "time"

type Framework string

const (
	FrameworkBuyDomestic     Framework = "BUY_DOMESTIC"
	FrameworkCompostablePack Framework = "COMPOSTABLE_PACKAGING"
	FrameworkTraceableOrigin Framework = "TRACEABLE_ORIGIN"
)

type RFQStatus string

const (
	RFQStatusDraft       RFQStatus = "DRAFT"
	RFQStatusSent        RFQStatus = "SENT"
	RFQStatusResponded   RFQStatus = "RESPONDED"
	RFQStatusNegotiating RFQStatus = "NEGOTIATING"
	RFQStatusClosed      RFQStatus = "CLOSED"
	RFQStatusRejected    RFQStatus = "REJECTED"
)

type Timeline string

const (
	TimelineUrgent      Timeline = "urgent"
	TimelineOneMonth    Timeline = "1month"
	TimelineThreeMonths Timeline = "3months"
	TimelineFlexible    Timeline = "flexible"
)

// Requirements is the schema-less requirements blob attached to an RFQ.
// Every field is optional; matching falls back to neutral scores when a
// field is absent.
type Requirements struct {
	ProductType string `json:"productType,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	CustomText  string `json:"customText,omitempty"`
}

type RFQ struct {
	ID           string       `json:"id"`
	BuyerID      string       `json:"buyerId"`
	BuyerContact string       `json:"buyerContact"`
	Framework    Framework    `json:"framework"`
	Requirements Requirements `json:"requirements"`
	Timeline     Timeline     `json:"timeline"`
	Status       RFQStatus    `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// DispatchResult summarizes one fan-out pass over the matched supplier pool.
// Per-supplier failures never abort the batch; they are collected here.
type DispatchResult struct {
	RFQID            string          `json:"rfqId"`
	SuppliersMatched int             `json:"suppliersMatched"`
	MessagesSent     int             `json:"messagesSent"`
	Errors           []DispatchError `json:"errors,omitempty"`
	Threads          []string        `json:"threads,omitempty"`
	CompletedAt      time.Time       `json:"completedAt"`
}

type DispatchError struct {
	SupplierID string `json:"supplierId"`
	Reason     string `json:"reason"`
}
