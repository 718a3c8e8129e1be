// Package extract turns raw supplier replies into structured quotes.
// The text-understanding service is an untyped boundary: everything it
// returns is validated here and an unusable response becomes a nil
// quote, never an error the caller has to branch on and never a panic.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"rfqbroker/internal/gateway"
	"rfqbroker/internal/model"
)

// DefaultConfidenceThreshold is the acceptance gate applied by callers:
// extractions below it count as "no usable reply yet", not as offers.
const DefaultConfidenceThreshold = 0.7

// quoteSchema is the strict target schema handed to the understanding
// service. Prices are plain currency units; absent fields must stay null.
const quoteSchema = `{
  "type": "object",
  "properties": {
    "supplier_name":      {"type": "string"},
    "product_name":       {"type": "string"},
    "unit_price":         {"type": "number"},
    "min_order_quantity": {"type": "integer"},
    "lead_time_days":     {"type": "integer"},
    "payment_terms":      {"type": "string"},
    "certifications":     {"type": "array", "items": {"type": "string"}}
  }
}`

type Extractor struct {
	ai  gateway.Understanding
	log *slog.Logger
}

func New(ai gateway.Understanding, log *slog.Logger) *Extractor {
	return &Extractor{ai: ai, log: log}
}

// rawQuote mirrors the schema with pointer fields so "not stated" stays
// distinguishable from zero. A missing price is unknown, not free.
type rawQuote struct {
	SupplierName *string  `json:"supplier_name"`
	ProductName  *string  `json:"product_name"`
	UnitPrice    *float64 `json:"unit_price"`
	MinOrderQty  *int     `json:"min_order_quantity"`
	LeadTimeDays *int     `json:"lead_time_days"`
	PaymentTerms *string  `json:"payment_terms"`
	Certs        []string `json:"certifications"`
}

// Extract reads a quote out of raw message text. It returns (nil, nil)
// for anything unusable: provider errors, malformed JSON, an empty
// extraction. Transport and provider failures are logged, not surfaced.
func (e *Extractor) Extract(ctx context.Context, raw string) (*model.ExtractedQuote, error) {
	if raw == "" {
		return nil, nil
	}

	resp, err := e.ai.Understand(ctx, gateway.UnderstandRequest{
		Text:   raw,
		Schema: json.RawMessage(quoteSchema),
	})
	if err != nil {
		e.log.Warn("quote extraction call failed", "error", err)
		return nil, nil
	}

	var rq rawQuote
	if err := json.Unmarshal(resp.Fields, &rq); err != nil {
		e.log.Warn("quote extraction returned malformed fields", "error", err)
		return nil, nil
	}

	q := &model.ExtractedQuote{
		Confidence:     clamp01(resp.Confidence),
		Certifications: rq.Certs,
	}
	if rq.SupplierName != nil {
		q.SupplierName = *rq.SupplierName
	}
	if rq.ProductName != nil {
		q.ProductName = *rq.ProductName
	}
	if rq.UnitPrice != nil && *rq.UnitPrice >= 0 {
		cents := int64(math.Round(*rq.UnitPrice * 100))
		q.UnitPriceCents = &cents
	}
	if rq.MinOrderQty != nil && *rq.MinOrderQty >= 0 {
		q.MinOrderQty = rq.MinOrderQty
	}
	if rq.LeadTimeDays != nil && *rq.LeadTimeDays >= 0 {
		q.LeadTimeDays = rq.LeadTimeDays
	}
	if rq.PaymentTerms != nil {
		q.PaymentTerms = *rq.PaymentTerms
	}

	if empty(q) {
		return nil, nil
	}
	return q, nil
}

func empty(q *model.ExtractedQuote) bool {
	return q.SupplierName == "" && q.ProductName == "" && q.UnitPriceCents == nil &&
		q.MinOrderQty == nil && q.LeadTimeDays == nil && q.PaymentTerms == "" &&
		len(q.Certifications) == 0
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
