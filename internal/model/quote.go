package model

// ExtractedQuote is the structured reading of an unstructured supplier
// reply. Numeric fields stay nil when the supplier did not state them;
// nil is "unknown", never "free". Amounts are minor currency units.
type ExtractedQuote struct {
	SupplierName   string   `json:"supplierName,omitempty"`
	ProductName    string   `json:"productName,omitempty"`
	UnitPriceCents *int64   `json:"unitPriceCents,omitempty"`
	MinOrderQty    *int     `json:"minOrderQty,omitempty"`
	LeadTimeDays   *int     `json:"leadTimeDays,omitempty"`
	PaymentTerms   string   `json:"paymentTerms,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Confidence     float64  `json:"confidence"`
}

// Usable reports whether the extraction cleared the confidence gate and
// carries enough substance to negotiate against.
func (q *ExtractedQuote) Usable(threshold float64) bool {
	if q == nil {
		return false
	}
	return q.Confidence >= threshold && q.UnitPriceCents != nil
}
