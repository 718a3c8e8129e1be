package model

import "time"

type Supplier struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Country        string    `json:"country"`
	Framework      Framework `json:"framework"`
	Products       []string  `json:"products"`
	Certifications []string  `json:"certifications"`
	Contact        string    `json:"contact"` // messaging address; empty means unreachable
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// SupplierMatch is a derived, per-dispatch ranking entry. It is recomputed
// for every RFQ and never persisted past the dispatch decision.
type SupplierMatch struct {
	Supplier Supplier `json:"supplier"`
	Score    int      `json:"score"`
	Reasons  []string `json:"reasons"`
	Priority Priority `json:"priority"`
}
