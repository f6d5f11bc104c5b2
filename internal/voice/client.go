// Package voice is the boundary to the remote transcript classifier. The core
// consumes only the discrete action token it returns; transcripts are never
// interpreted locally.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Classification is the classifier's verdict on one transcript.
type Classification struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// Client calls the remote intent classifier service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a classifier client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type classifyRequest struct {
	Transcript string `json:"transcript"`
}

// Classify sends a transcript and returns the classifier's action token and
// confidence.
func (c *Client) Classify(ctx context.Context, transcript string) (*Classification, error) {
	body, err := json.Marshal(classifyRequest{Transcript: transcript})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classifier returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	var result Classification
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
