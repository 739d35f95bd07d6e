package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls a remote mentor service (POST {base}/api/mentor).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a mentor client. Returns nil if baseURL is empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// Enabled reports whether the client has a target.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Ask posts the question and returns the service's answer.
func (c *Client) Ask(ctx context.Context, req Request) (Response, error) {
	if !c.Enabled() {
		return Response{}, fmt.Errorf("mentor service not configured")
	}
	req.Normalize()

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal mentor request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/mentor", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create mentor request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("mentor call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("read mentor response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("mentor error %d: %s", resp.StatusCode, string(respBody))
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Response{}, fmt.Errorf("parse mentor response: %w", err)
	}
	if strings.TrimSpace(out.Answer) == "" {
		return Response{}, fmt.Errorf("empty mentor answer")
	}
	return out, nil
}
