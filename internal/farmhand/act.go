package farmhand

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/talgya/valley-farm/internal/crops"
)

// Outcome is the parsed reply of one action endpoint.
type Outcome struct {
	OK     bool   `json:"ok"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Actor performs chores through the action API.
type Actor struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL.
func NewActor(baseURL string) *Actor {
	return &Actor{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Act sends one chore. A rejected action is an Outcome with OK false, not an
// error; errors mean the API could not be reached or answered garbage.
func (a *Actor) Act(ctx context.Context, c Chore) (Outcome, error) {
	var body io.Reader
	if c.Body != nil {
		b, err := json.Marshal(c.Body)
		if err != nil {
			return Outcome{}, fmt.Errorf("marshal chore: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, c.Method, a.BaseURL+c.Path, body)
	if err != nil {
		return Outcome{}, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", c, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Outcome{}, fmt.Errorf("read response: %w", err)
	}
	var out Outcome
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Outcome{}, fmt.Errorf("%s returned %d: %s", c, resp.StatusCode, string(respBody))
	}
	return out, nil
}

// Cycle runs one observe → decide → act pass and returns how many chores
// the farm accepted.
func Cycle(ctx context.Context, o *Observer, a *Actor, tbl *crops.Table) (int, error) {
	v, err := o.Observe(ctx)
	if err != nil {
		return 0, fmt.Errorf("observe: %w", err)
	}
	chores := Decide(v, tbl)
	slog.Info("farmhand observed",
		"revision", v.Revision,
		"coins", v.Resources.Coins,
		"seeds", v.Resources.Seeds,
		"water", v.Resources.Water,
		"chores", len(chores),
	)

	done := 0
	for _, c := range chores {
		out, err := a.Act(ctx, c)
		if err != nil {
			return done, err
		}
		if !out.OK {
			slog.Info("chore refused", "action", c.Action, "path", c.Path, "kind", out.Kind, "reason", out.Reason)
			continue
		}
		done++
		slog.Debug("chore done", "action", c.Action, "path", c.Path)
	}
	return done, nil
}
