package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
)

// Client calls a remote price service (POST {base}/api/prices).
type Client struct {
	baseURL string
	client  *http.Client

	mu          sync.Mutex
	lastFailAt  time.Time
	failBackoff time.Duration
	now         func() time.Time
}

// NewClient creates a price service client. Returns nil if baseURL is empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

// Prices fetches prices for ids. After a failure the client backs off
// (1 minute, doubling up to 10) before calling the service again.
func (c *Client) Prices(ctx context.Context, ids []crops.ID) (economy.PriceMap, error) {
	if c == nil {
		return nil, fmt.Errorf("price service not configured")
	}

	c.mu.Lock()
	if c.failBackoff > 0 && c.now().Sub(c.lastFailAt) < c.failBackoff {
		remaining := c.failBackoff - c.now().Sub(c.lastFailAt)
		c.mu.Unlock()
		return nil, fmt.Errorf("price service backoff (%s remaining)", remaining.Round(time.Second))
	}
	c.mu.Unlock()

	prices, err := c.fetch(ctx, ids)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastFailAt = c.now()
		if c.failBackoff == 0 {
			c.failBackoff = time.Minute
		} else if c.failBackoff < 10*time.Minute {
			c.failBackoff *= 2
		}
		return nil, err
	}
	c.failBackoff = 0
	return prices, nil
}

func (c *Client) fetch(ctx context.Context, ids []crops.ID) (economy.PriceMap, error) {
	body, err := json.Marshal(Request{Crops: ids})
	if err != nil {
		return nil, fmt.Errorf("marshal price request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/prices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create price request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price service call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read price response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price service error %d: %s", resp.StatusCode, string(respBody))
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse prices: %w", err)
	}
	for id, p := range out.Prices {
		if p <= 0 {
			delete(out.Prices, id)
		}
	}
	return out.Prices, nil
}
