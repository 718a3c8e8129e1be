// Package gateway holds the clients for every external collaborator the
// orchestrator talks to: the messaging channel, the text-understanding
// and text-generation services, the e-signature, escrow and payout
// providers, and the upstream supplier directory. Each client is an
// explicitly constructed dependency with its own lifecycle so tests and
// dev mode can substitute fakes per component; none of them are ambient
// singletons.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned by a real client constructed without the
// settings it needs. Callers degrade to a clearly flagged mock path
// instead of failing the whole pipeline.
var ErrNotConfigured = errors.New("gateway: provider not configured")

const defaultHTTPTimeout = 30 * time.Second

// httpClient is the shared plumbing for the JSON-over-HTTP providers.
type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newHTTPClient(baseURL, apiKey string) httpClient {
	return httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (c *httpClient) configured() bool { return c.baseURL != "" }

// Close releases pooled connections. Safe to call on an unconfigured client.
func (c *httpClient) Close() {
	if c.http != nil {
		c.http.CloseIdleConnections()
	}
}

// postJSON sends a JSON body and decodes the JSON reply into out.
// Non-2xx statuses come back as errors with a response excerpt.
func (c *httpClient) postJSON(ctx context.Context, path string, in, out any) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.do(req, out)
}

func (c *httpClient) getJSON(ctx context.Context, path string, out any) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, excerpt)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
