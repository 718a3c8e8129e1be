package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// UnderstandRequest asks the text-understanding service to read free text
// into a target JSON schema. Temperature stays at zero so extraction is
// as deterministic as the provider allows.
type UnderstandRequest struct {
	Text   string          `json:"text"`
	Schema json.RawMessage `json:"schema"`
}

// UnderstandResponse is best-effort: Fields may be malformed or partial
// and Confidence may be out of range. Callers must validate both.
type UnderstandResponse struct {
	Fields     json.RawMessage `json:"fields"`
	Confidence float64         `json:"confidence"`
}

type Understanding interface {
	Understand(ctx context.Context, req UnderstandRequest) (UnderstandResponse, error)
	Close()
}

// GenerateRequest is a structured drafting prompt: the current quote and
// transcript go in as context so the generator does not repeat asks.
type GenerateRequest struct {
	System    string `json:"system"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"maxTokens"`
}

type Generation interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Close()
}

// HTTPTextAI backs both interfaces with one completion-style service.
type HTTPTextAI struct {
	httpClient
	model string
}

func NewHTTPTextAI(baseURL, apiKey, modelName string) *HTTPTextAI {
	return &HTTPTextAI{httpClient: newHTTPClient(baseURL, apiKey), model: modelName}
}

func (c *HTTPTextAI) Understand(ctx context.Context, req UnderstandRequest) (UnderstandResponse, error) {
	in := struct {
		Model       string          `json:"model"`
		Text        string          `json:"text"`
		Schema      json.RawMessage `json:"schema"`
		Temperature float64         `json:"temperature"`
	}{Model: c.model, Text: req.Text, Schema: req.Schema, Temperature: 0}

	var out UnderstandResponse
	if err := c.postJSON(ctx, "/v1/extract", in, &out); err != nil {
		return UnderstandResponse{}, err
	}
	return out, nil
}

func (c *HTTPTextAI) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	in := struct {
		Model     string `json:"model"`
		System    string `json:"system"`
		Prompt    string `json:"prompt"`
		MaxTokens int    `json:"maxTokens"`
	}{Model: c.model, System: req.System, Prompt: req.Prompt, MaxTokens: req.MaxTokens}

	var out struct {
		Text string `json:"text"`
	}
	if err := c.postJSON(ctx, "/v1/complete", in, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// MockTextAI returns canned extraction and drafting results for dev mode
// and tests. Responses are scripted per call in FIFO order.
type MockTextAI struct {
	mu        sync.Mutex
	responses []UnderstandResponse
	errs      []error
	drafts    []string
	prompts   []GenerateRequest
}

func NewMockTextAI() *MockTextAI { return &MockTextAI{} }

func (m *MockTextAI) Close() {}

// ScriptExtraction queues the next Understand result.
func (m *MockTextAI) ScriptExtraction(fields string, confidence float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, UnderstandResponse{
		Fields:     json.RawMessage(fields),
		Confidence: confidence,
	})
	m.errs = append(m.errs, err)
}

func (m *MockTextAI) Understand(ctx context.Context, req UnderstandRequest) (UnderstandResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		// Unscripted call: echo a low-confidence shrug.
		return UnderstandResponse{Fields: json.RawMessage(`{}`), Confidence: 0}, nil
	}
	resp, err := m.responses[0], m.errs[0]
	m.responses, m.errs = m.responses[1:], m.errs[1:]
	return resp, err
}

// ScriptDraft queues the next Generate result.
func (m *MockTextAI) ScriptDraft(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts = append(m.drafts, text)
}

func (m *MockTextAI) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, req)
	if len(m.drafts) == 0 {
		// Deterministic fallback draft, clearly mock-flavored.
		return "[mock draft] " + firstLine(req.Prompt), nil
	}
	d := m.drafts[0]
	m.drafts = m.drafts[1:]
	return d, nil
}

// Prompts returns every drafting prompt seen, for assertions on what the
// generator was told.
func (m *MockTextAI) Prompts() []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateRequest, len(m.prompts))
	copy(out, m.prompts)
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
