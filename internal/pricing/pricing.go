// Package pricing provides market price sources: the remote price service
// client, a locally generated fallback, and the reference quote generator
// served by the farm's own price endpoint.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
)

// Source returns current unit prices for the requested crops.
type Source interface {
	Prices(ctx context.Context, ids []crops.ID) (economy.PriceMap, error)
}

// Request is the price service request body.
type Request struct {
	Crops []crops.ID `json:"crops"`
}

// Response is the price service response body.
type Response struct {
	Prices economy.PriceMap `json:"prices"`
}

// Fetch asks primary for prices and substitutes fallback on any failure.
// The boolean reports whether the fallback was used.
func Fetch(ctx context.Context, primary, fallback Source, ids []crops.ID) (economy.PriceMap, bool, error) {
	if primary != nil {
		prices, err := primary.Prices(ctx, ids)
		if err == nil && len(prices) > 0 {
			return prices, false, nil
		}
		if err == nil {
			err = fmt.Errorf("price service returned no prices")
		}
		slog.Warn("price service unavailable, using fallback", "error", err)
	}
	if fallback == nil {
		return nil, true, fmt.Errorf("no fallback price source")
	}
	prices, err := fallback.Prices(ctx, ids)
	if err != nil {
		return nil, true, fmt.Errorf("fallback prices: %w", err)
	}
	return prices, true, nil
}

// Fallback derives prices within ±5% of the static table. Jitter comes from
// simplex noise walked one step per refresh, so a given seed always yields the
// same smooth price series.
type Fallback struct {
	table *crops.Table
	noise opensimplex.Noise

	mu   sync.Mutex
	step int
}

// NewFallback creates a fallback source seeded for reproducible prices.
func NewFallback(table *crops.Table, seed int64) *Fallback {
	return &Fallback{table: table, noise: opensimplex.NewNormalized(seed)}
}

// Prices returns the next fallback price for every requested crop.
func (f *Fallback) Prices(_ context.Context, ids []crops.ID) (economy.PriceMap, error) {
	f.mu.Lock()
	step := f.step
	f.step++
	f.mu.Unlock()

	out := make(economy.PriceMap, len(ids))
	for i, id := range ids {
		n := f.noise.Eval2(float64(i)*7.31, float64(step)*0.17)
		base := f.table.BasePrice(id)
		out[id] = math.Max(1, math.Round(base*(0.95+n*0.1)))
	}
	return out, nil
}

// Float64 is a uniform [0,1) source. *math/rand/v2.Rand satisfies it.
type Float64 interface {
	Float64() float64
}

// Quote generates the reference price service's answer: the base price moved by
// up to ±10% plus up to ±1.5 of jitter, rounded to paise, never below 1.
func Quote(table *crops.Table, ids []crops.ID, rng Float64) economy.PriceMap {
	if len(ids) == 0 {
		ids = table.IDs()
	}
	out := make(economy.PriceMap, len(ids))
	for _, id := range ids {
		base := table.BasePrice(id)
		fluct := base * (rng.Float64()*0.2 - 0.1)
		jitter := rng.Float64()*3 - 1.5
		out[id] = math.Max(1, math.Round((base+fluct+jitter)*100)/100)
	}
	return out
}
