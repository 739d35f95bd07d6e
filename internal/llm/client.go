// Package llm provides the Claude API client behind the farm mentor.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultAPIURL = "https://api.anthropic.com/v1/messages"
	apiVersion    = "2023-06-01"
	defaultModel  = "claude-haiku-4-5-20251001"

	callsPerMinute = 20
	maxReplyBytes  = 1 << 20
)

// APIError is a non-200 answer from the Messages endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// Overloaded reports whether the call may succeed if retried later.
func (e *APIError) Overloaded() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == 529 || e.Status >= 500
}

// budget caps calls per minute across all callers of one client.
type budget struct {
	mu      sync.Mutex
	limit   int
	used    int
	resetAt time.Time
	now     func() time.Time
}

func (b *budget) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if now.After(b.resetAt) {
		b.used = 0
		b.resetAt = now.Add(time.Minute)
	}
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

// Client wraps the Anthropic Messages API.
type Client struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
	budget     *budget
}

// NewClient creates a new API client.
// Returns nil if apiKey is empty (LLM features disabled).
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:     apiKey,
		apiURL:     defaultAPIURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		budget:     &budget{limit: callsPerMinute, now: time.Now},
	}
}

// WithEndpoint points the client at a different Messages endpoint.
func (c *Client) WithEndpoint(url string) *Client {
	if c != nil && url != "" {
		c.apiURL = url
	}
	return c
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    string `json:"system,omitempty"`
	Messages  []turn `json:"messages"`
}

type messagesReply struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// text joins every text block of the reply.
func (r messagesReply) text() string {
	var parts []string
	for _, block := range r.Content {
		if block.Type == "" || block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "")
}

// Complete sends a single-turn prompt and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, userPrompt string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("LLM client not configured")
	}
	if !c.budget.take() {
		return "", fmt.Errorf("rate limit exceeded (%d calls/min)", c.budget.limit)
	}

	reply, err := c.post(ctx, messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []turn{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", err
	}

	text := reply.text()
	if text == "" {
		return "", fmt.Errorf("empty response (stop reason %q)", reply.StopReason)
	}
	slog.Debug("llm call",
		"model", c.model,
		"input_tokens", reply.Usage.InputTokens,
		"output_tokens", reply.Usage.OutputTokens,
	)
	return text, nil
}

func (c *Client) post(ctx context.Context, body messagesRequest) (messagesReply, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return messagesReply{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return messagesReply{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return messagesReply{}, fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return messagesReply{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return messagesReply{}, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	var reply messagesReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return messagesReply{}, fmt.Errorf("unmarshal response: %w", err)
	}
	return reply, nil
}
