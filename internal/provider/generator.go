package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPGenerator requests content from the generation service over HTTP.
// The URL is injected from config so tests can point to a local mock.
type HTTPGenerator struct {
	url        string
	httpClient *http.Client
}

func NewHTTPGenerator(url string, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate posts the request and expects 200 OK with a JSON batch.
func (g *HTTPGenerator) Generate(ctx context.Context, r GenerateRequest) (*Batch, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected generator status: %d", resp.StatusCode)
	}

	var batch Batch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(batch.Items) == 0 {
		return nil, fmt.Errorf("generator returned no items")
	}

	return &batch, nil
}

// compile-time check that HTTPGenerator implements Generator
var _ Generator = (*HTTPGenerator)(nil)
