package farm

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/talgya/valley-farm/internal/advisor"
	"github.com/talgya/valley-farm/internal/assets"
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
	"github.com/talgya/valley-farm/internal/pricing"
)

// Timeouts for external service calls made on behalf of the farm.
const (
	PriceTimeout  = 10 * time.Second
	MentorTimeout = 20 * time.Second
)

// PriceRefresh describes a price map replacement.
type PriceRefresh struct {
	Prices   economy.PriceMap `json:"prices"`
	Previous economy.PriceMap `json:"previous"`
	Fallback bool             `json:"fallback"`
	News     []string         `json:"news"`
}

// RefreshPrices replaces the price map from the price service, or from the
// local fallback when the service fails. The farm is not locked during the call.
func (f *Farm) RefreshPrices(ctx context.Context) (PriceRefresh, error) {
	const op = "prices"
	f.mu.Lock()
	ids := f.priceIDsLocked()
	primary, fallback := f.prices, f.fallback
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, PriceTimeout)
	defer cancel()
	prices, usedFallback, err := pricing.Fetch(ctx, primary, fallback, ids)

	f.mu.Lock()
	defer f.unlock()
	if err != nil {
		slog.Warn("price refresh failed", "farm", f.id, "error", err)
		return PriceRefresh{}, &ActionError{Op: op, Kind: ErrServiceUnavailable, Reason: "Prices are unavailable right now."}
	}

	prev := f.priceMap
	f.priceMap = prices.Clone()
	f.lastPrices = prev
	news := economy.PriceNews(prev, f.priceMap)
	for _, line := range news {
		f.addNews(line)
	}
	f.touch(EventPrices, "", "Market prices updated.")
	slog.Info("prices refreshed", "farm", f.id, "crops", len(prices), "fallback", usedFallback, "headlines", len(news))
	return PriceRefresh{Prices: f.priceMap.Clone(), Previous: prev.Clone(), Fallback: usedFallback, News: news}, nil
}

func (f *Farm) priceIDsLocked() []crops.ID {
	set := map[crops.ID]bool{}
	for _, id := range f.table.IDs() {
		set[id] = true
	}
	for _, id := range f.inventory.IDs() {
		set[id] = true
	}
	ids := make([]crops.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MentorAnswer is the reply to a mentor question.
type MentorAnswer struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
}

// AskMentor forwards a question with the farm context to the mentor service,
// answering with the fixed tip when no service is configured or it fails.
func (f *Farm) AskMentor(ctx context.Context, question string) MentorAnswer {
	f.mu.Lock()
	req := advisor.Request{
		Question: question,
		Context:  advisor.Context{Soil: f.soil, Params: f.params, Practices: f.practices},
	}
	mentor := f.mentor
	f.mu.Unlock()
	req.Normalize()

	if mentor == nil {
		return MentorAnswer{Answer: advisor.FallbackTip, Fallback: true}
	}
	ctx, cancel := context.WithTimeout(ctx, MentorTimeout)
	defer cancel()
	resp, err := mentor.Ask(ctx, req)
	if err != nil {
		slog.Warn("mentor unavailable, using fallback tip", "farm", f.id, "error", err)
		return MentorAnswer{Answer: advisor.FallbackTip, Fallback: true}
	}
	return MentorAnswer{Answer: resp.Answer}
}

// SuccessProbability estimates the chance that crop succeeds on a plot under
// current conditions, practices and the plot's installed assets.
func (f *Farm) SuccessProbability(crop string, row, col int) (float64, error) {
	const op = "probability"
	f.mu.Lock()
	defer f.unlock()

	k := PlotKey{row, col}
	if err := f.checkKey(op, k); err != nil {
		return 0, err
	}
	id, err := f.table.Lookup(crop)
	if err != nil {
		return 0, f.reject(op, ErrInvalidInput, lookupReason(err))
	}
	soil := f.soil
	if soil != advisor.Terrains[0] && soil != advisor.Terrains[1] {
		soil = advisor.Terrains[0]
	}
	return advisor.Probability(f.table, advisor.ProbabilityRequest{
		Crop:      string(id),
		Soil:      soil,
		Params:    advisor.ParamsOf(f.params),
		Practices: advisor.PracticeKeys(f.practices, f.peek(k).Assets),
	})
}

// Recommendations returns up to three tips for the current situation.
func (f *Farm) Recommendations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return advisor.Recommendations(f.situationLocked(), 3)
}

// LiveHint returns the single most urgent nudge.
func (f *Farm) LiveHint() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return advisor.LiveHint(f.params, f.practices)
}

func (f *Farm) situationLocked() advisor.Situation {
	return advisor.Situation{
		Params:         f.params,
		Practices:      f.practices,
		SelectedCrop:   f.selected,
		HasInventory:   f.inventory.Total() > 0,
		DripStock:      f.stock[assets.Drip],
		RainwaterStock: f.stock[assets.Rainwater],
	}
}
