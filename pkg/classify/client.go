// Package classify calls the remote sentiment-classification service with
// a full record batch. The service's response is opaque to this module and
// is persisted and forwarded verbatim.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/commentpulse/commentpulse/pkg/comments"
)

var classifyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "commentpulse_classify_requests_total",
	Help: "Total classification requests by outcome",
}, []string{"outcome"})

// Client submits record batches for classification.
type Client struct {
	url        string
	httpClient *http.Client
}

// New creates a classification client for the given service URL.
func New(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// batchRequest is the wire format for one classification call.
type batchRequest struct {
	Records []comments.Record `json:"records"`
}

// Classify sends the whole batch in one request and returns the raw
// response payload.
func (c *Client) Classify(ctx context.Context, records []comments.Record) (json.RawMessage, error) {
	body, err := json.Marshal(batchRequest{Records: records})
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		classifyRequestsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("classification request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		classifyRequestsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("read classification response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		classifyRequestsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("classification service returned status %d", resp.StatusCode)
	}

	if !json.Valid(payload) {
		classifyRequestsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("classification response is not valid JSON")
	}

	classifyRequestsTotal.WithLabelValues("success").Inc()
	return payload, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
