// Package farmhand implements the autonomous farm helper.
// It observes the farm via the API, decides on routine chores and acts
// through the player action endpoints.
package farmhand

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/talgya/valley-farm/internal/farm"
)

// Observer fetches farm state from the farmsim API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Observe returns the current farm view.
func (o *Observer) Observe(ctx context.Context) (*farm.View, error) {
	var v farm.View
	if err := o.getJSON(ctx, "/api/v1/farm", &v); err != nil {
		return nil, fmt.Errorf("farm: %w", err)
	}
	return &v, nil
}

// Ready reports whether the API answers its status endpoint.
func (o *Observer) Ready(ctx context.Context) bool {
	var status map[string]any
	return o.getJSON(ctx, "/api/v1/status", &status) == nil
}

func (o *Observer) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return json.Unmarshal(body, dest)
}
