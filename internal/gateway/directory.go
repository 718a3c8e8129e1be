package gateway

import (
	"context"
	"time"

	"rfqbroker/internal/model"
)

// Directory is the upstream company directory the supplier pool is
// populated from. The orchestrator only ever reads it; the admin sync
// endpoint is the single producer of Supplier records.
type Directory interface {
	ListSuppliers(ctx context.Context, framework model.Framework) ([]model.Supplier, error)
	Close()
}

type HTTPDirectory struct {
	httpClient
}

func NewHTTPDirectory(baseURL, apiKey string) *HTTPDirectory {
	return &HTTPDirectory{httpClient: newHTTPClient(baseURL, apiKey)}
}

func (c *HTTPDirectory) ListSuppliers(ctx context.Context, framework model.Framework) ([]model.Supplier, error) {
	var out struct {
		Suppliers []model.Supplier `json:"suppliers"`
	}
	if err := c.getJSON(ctx, "/suppliers?framework="+string(framework), &out); err != nil {
		return nil, err
	}
	return out.Suppliers, nil
}

// MockDirectory serves a small fixed pool per framework for dev mode.
type MockDirectory struct{}

func NewMockDirectory() *MockDirectory { return &MockDirectory{} }

func (m *MockDirectory) Close() {}

func (m *MockDirectory) ListSuppliers(ctx context.Context, framework model.Framework) ([]model.Supplier, error) {
	now := time.Now().UTC()
	pool := map[model.Framework][]model.Supplier{
		model.FrameworkBuyDomestic: {
			{ID: "sup-steelworks", Name: "Allegheny Steelworks", Country: "US", Framework: model.FrameworkBuyDomestic,
				Products: []string{"steel plates", "steel pipe", "structural alloy"}, Certifications: []string{"ASTM A36", "mill certificate"},
				Contact: "quotes@alleghenysteel.example", UpdatedAt: now},
			{ID: "sup-fastener", Name: "Great Lakes Fastener Co", Country: "US", Framework: model.FrameworkBuyDomestic,
				Products: []string{"bolts", "fasteners", "anchors"}, Certifications: []string{"domestic melted and poured"},
				Contact: "sales@glfastener.example", UpdatedAt: now},
		},
		model.FrameworkCompostablePack: {
			{ID: "sup-greenwrap", Name: "GreenWrap Packaging", Country: "CA", Framework: model.FrameworkCompostablePack,
				Products: []string{"compostable film", "bagasse trays"}, Certifications: []string{"BPI", "ASTM D6400"},
				Contact: "hello@greenwrap.example", UpdatedAt: now},
		},
		model.FrameworkTraceableOrigin: {
			{ID: "sup-veritex", Name: "Veritex Cotton Mills", Country: "IN", Framework: model.FrameworkTraceableOrigin,
				Products: []string{"cotton yarn", "woven fabric"}, Certifications: []string{"origin verified", "chain of custody"},
				Contact: "export@veritex.example", UpdatedAt: now},
		},
	}
	return pool[framework], nil
}
