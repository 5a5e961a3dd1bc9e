// Package analysis is the HTTP client for the external market-impact
// analysis collaborator. The pipeline only cares that a blob comes back; its
// content stays opaque.
package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client calls the impact-analysis service.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates an analysis client with a per-call timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type analyzeRequest struct {
	EventID string `json:"event_id"`
}

// Analyze requests an impact analysis for the event and returns the raw
// response body.
func (c *Client) Analyze(eventID uuid.UUID) (json.RawMessage, error) {
	body, err := json.Marshal(analyzeRequest{EventID: eventID.String()})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/analyze", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis API error: %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("analysis API returned invalid JSON")
	}

	return raw, nil
}
