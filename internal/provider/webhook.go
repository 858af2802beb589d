package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// sendResponse maps the delivery service's 202 Accepted response body.
type sendResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// WebhookDeliverer hands generated content to the delivery service by
// POSTing it as JSON. The URL is injected from config.
type WebhookDeliverer struct {
	url        string
	httpClient *http.Client
}

func NewWebhookDeliverer(url string, timeout time.Duration) *WebhookDeliverer {
	return &WebhookDeliverer{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Deliver posts the delivery and treats 202 Accepted as success. Any other
// status is a declined delivery; transport failures are returned as errors.
func (p *WebhookDeliverer) Deliver(ctx context.Context, d Delivery) (Receipt, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return Receipt{Delivered: false}, nil
	}

	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		// The service accepted the message; a malformed body only loses the id.
		return Receipt{Delivered: true}, nil
	}

	return Receipt{Delivered: true, MessageID: sr.MessageID}, nil
}

// compile-time check that WebhookDeliverer implements Deliverer
var _ Deliverer = (*WebhookDeliverer)(nil)
