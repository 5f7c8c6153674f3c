// Package partybox implements the HTTP client for the Party Box remote
// backend. Clients are built from a configuration snapshot and replaced
// wholesale when the configuration changes; they hold no connections or
// other resources between calls, so the old instance is simply dropped.
package partybox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"partybox/internal/config"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("party box API error (status %d): %s", e.StatusCode, e.Message)
}

// GenerateRequest asks the backend to generate code.
type GenerateRequest struct {
	Prompt    string `json:"prompt"`
	Language  string `json:"language,omitempty"`
	Workspace string `json:"workspace,omitempty"`
	Model     string `json:"model,omitempty"`
}

// GenerateResponse is the backend's code generation result.
type GenerateResponse struct {
	Code        string `json:"code"`
	Explanation string `json:"explanation,omitempty"`
	TokensUsed  int    `json:"tokensUsed,omitempty"`
}

// ReviewRequest asks the backend to review a file.
type ReviewRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// ReviewComment is a single review finding.
type ReviewComment struct {
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ReviewResponse is the backend's review result.
type ReviewResponse struct {
	Summary  string          `json:"summary"`
	Comments []ReviewComment `json:"comments,omitempty"`
}

// Client talks to the Party Box backend over JSON/HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient builds a client from a configuration snapshot.
func NewClient(cfg config.Snapshot) *Client {
	timeout := cfg.Backend.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.Backend.Endpoint, "/"),
		apiKey:     cfg.Backend.APIKey,
		model:      cfg.Backend.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the backend base URL this client was built with.
func (c *Client) Endpoint() string {
	return c.baseURL
}

// Generate requests code generation.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	var resp GenerateResponse
	if err := c.post(ctx, "/v1/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Review requests a code review.
func (c *Client) Review(ctx context.Context, req ReviewRequest) (*ReviewResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	var resp ReviewResponse
	if err := c.post(ctx, "/v1/review", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return &APIError{
			StatusCode: httpResp.StatusCode,
			Message:    readErrorMessage(httpResp.Body),
		}
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// readErrorMessage pulls a message out of an error body, tolerating both
// {"error": "..."} and plain-text responses.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "no error detail"
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(data))
}
