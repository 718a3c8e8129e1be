package extract

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfqbroker/internal/gateway"
)

func newTestExtractor() (*Extractor, *gateway.MockTextAI) {
	ai := gateway.NewMockTextAI()
	return New(ai, slog.Default()), ai
}

func TestExtractWellFormedQuote(t *testing.T) {
	e, ai := newTestExtractor()
	ai.ScriptExtraction(`{
		"supplier_name": "Allegheny Steelworks",
		"product_name": "A36 steel plate",
		"unit_price": 42.50,
		"min_order_quantity": 100,
		"lead_time_days": 21,
		"payment_terms": "net 30",
		"certifications": ["ASTM A36"]
	}`, 0.92, nil)

	q, err := e.Extract(context.Background(), "We can do A36 plate at $42.50/unit, MOQ 100, 3 weeks, net 30.")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "Allegheny Steelworks", q.SupplierName)
	require.NotNil(t, q.UnitPriceCents)
	assert.Equal(t, int64(4250), *q.UnitPriceCents)
	require.NotNil(t, q.MinOrderQty)
	assert.Equal(t, 100, *q.MinOrderQty)
	assert.InDelta(t, 0.92, q.Confidence, 1e-9)
	assert.True(t, q.Usable(DefaultConfidenceThreshold))
}

func TestExtractMalformedFieldsReturnsNil(t *testing.T) {
	e, ai := newTestExtractor()
	ai.ScriptExtraction(`{"unit_price": "not a number"`, 0.9, nil)

	q, err := e.Extract(context.Background(), "garbage either way")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestExtractProviderErrorReturnsNilNotError(t *testing.T) {
	e, ai := newTestExtractor()
	ai.ScriptExtraction(`{}`, 0, errors.New("upstream 503"))

	q, err := e.Extract(context.Background(), "some reply")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestExtractClampsConfidence(t *testing.T) {
	e, ai := newTestExtractor()
	ai.ScriptExtraction(`{"unit_price": 10}`, 3.7, nil)

	q, err := e.Extract(context.Background(), "price is ten dollars")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, 1.0, q.Confidence)

	ai.ScriptExtraction(`{"unit_price": 10}`, -0.2, nil)
	q, err = e.Extract(context.Background(), "price is ten dollars")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, 0.0, q.Confidence)
}

func TestExtractMissingNumbersStayNil(t *testing.T) {
	e, ai := newTestExtractor()
	ai.ScriptExtraction(`{"supplier_name": "Veritex", "payment_terms": "LC at sight"}`, 0.8, nil)

	q, err := e.Extract(context.Background(), "we prefer LC at sight")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Nil(t, q.UnitPriceCents, "unstated price must stay unknown, not zero")
	assert.Nil(t, q.MinOrderQty)
	assert.Nil(t, q.LeadTimeDays)
	assert.False(t, q.Usable(DefaultConfidenceThreshold), "no price means nothing to negotiate against")
}

func TestExtractEmptyExtractionReturnsNil(t *testing.T) {
	e, ai := newTestExtractor()
	ai.ScriptExtraction(`{}`, 0.95, nil)

	q, err := e.Extract(context.Background(), "thanks, we'll get back to you")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestExtractEmptyInput(t *testing.T) {
	e, _ := newTestExtractor()
	q, err := e.Extract(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, q)
}
