// Package engine submits enrichment jobs to the external workflow engine.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Auth header shapes.
const (
	AuthBearer = "bearer"
	AuthHeader = "header"
)

// Job is the body the engine expects. apolloUrl carries the lead source URL.
type Job struct {
	CampaignID string `json:"campaignId"`
	UserID     string `json:"userId"`
	SourceURL  string `json:"apolloUrl"`
}

type Submitter interface {
	// Configured is false when the endpoint or key is missing.
	Configured() bool
	Submit(ctx context.Context, job Job) error
}

// StatusError is returned for any non-2xx engine response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine returned status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	URL      string
	APIKey   string
	AuthMode string
	HTTP     *http.Client
}

func NewClient(url, apiKey, authMode string) *Client {
	return &Client{
		URL:      strings.TrimSpace(url),
		APIKey:   strings.TrimSpace(apiKey),
		AuthMode: authMode,
		HTTP:     &http.Client{},
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.URL != "" && c.APIKey != ""
}

// Submit posts the job. The deadline comes from ctx; the client sets none of its own.
func (c *Client) Submit(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.AuthMode == AuthHeader {
		req.Header.Set("x-api-key", c.APIKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("post job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return nil
}

var _ Submitter = (*Client)(nil)
