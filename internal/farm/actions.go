package farm

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/valley-farm/internal/agronomy"
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
)

// PlantResult describes a successful planting.
type PlantResult struct {
	Plot       string              `json:"plot"`
	Crop       crops.ID            `json:"crop"`
	SeedCost   int                 `json:"seedCost"`
	Evaluation agronomy.Evaluation `json:"evaluation"`
	Warning    string              `json:"warning,omitempty"`
}

// Plant sows crop on an empty plot and starts its growth clock.
func (f *Farm) Plant(row, col int, crop string) (PlantResult, error) {
	const op = "plant"
	f.mu.Lock()
	defer f.unlock()

	k := PlotKey{row, col}
	if err := f.checkKey(op, k); err != nil {
		return PlantResult{}, err
	}
	id, err := f.table.Lookup(crop)
	if err != nil {
		return PlantResult{}, f.reject(op, ErrInvalidInput, lookupReason(err))
	}
	rule, _ := f.table.Rule(id)

	current := f.peek(k)
	switch current.State() {
	case Ready:
		return PlantResult{}, f.reject(op, ErrInvalidState, "Crop is ready! Harvest it before planting again.")
	case Growing:
		return PlantResult{}, f.reject(op, ErrInvalidState, "This plot already has crops growing!")
	}

	if f.res.Seeds <= 0 {
		return PlantResult{}, f.reject(op, ErrInsufficientResource, "Not enough seeds!")
	}
	seedCost := f.table.SeedCost(id)
	if f.res.Coins < seedCost {
		return PlantResult{}, f.reject(op, ErrInsufficientResource, "Not enough coins to buy seeds!")
	}

	ev := agronomy.Evaluate(&rule, current.Assets, f.params, f.soil)
	if !ev.Allowed {
		reason := fmt.Sprintf("Conditions unsuitable for %s.", id)
		if len(ev.Reasons) > 0 {
			reason = ev.Reasons[0]
		}
		return PlantResult{}, f.reject(op, ErrUnsuitableConditions, reason)
	}

	if err := f.res.Debit(economy.Cost{Resource: economy.Seeds, Amount: 1}, economy.Cost{Resource: economy.Coins, Amount: seedCost}); err != nil {
		return PlantResult{}, f.reject(op, ErrInsufficientResource, err.Error())
	}

	p := f.plot(k)
	p.Crop = id
	p.Stage = 1
	p.PlantedAt = f.sched.Now()
	p.Watered = false
	p.Ready = false
	p.PlantingPenalty = ev.Penalty
	f.params.AfterPlant(p.Assets)
	f.startGrowthLocked(k)

	res := PlantResult{Plot: k.String(), Crop: id, SeedCost: seedCost, Evaluation: ev}
	if ev.Marginal() {
		res.Warning = fmt.Sprintf("Marginal conditions for %s (≈ -%d%% yield). Improve pH/water/soil.", id, int(math.Round((1-ev.Penalty)*100)))
	}
	f.touch(EventPlanted, k.String(), fmt.Sprintf("Planted %s!", id))
	slog.Debug("planted", "farm", f.id, "plot", k.String(), "crop", id, "penalty", ev.Penalty)
	return res, nil
}

// WaterResult describes a successful watering.
type WaterResult struct {
	Plot  string `json:"plot"`
	Cost  int    `json:"cost"`
	Stage int    `json:"stage"`
	Ready bool   `json:"ready"`
}

// Water irrigates a planted plot, charging water reduced by installed and
// neighboring assets, and nudges growth one stage.
func (f *Farm) Water(row, col int) (WaterResult, error) {
	const op = "water"
	f.mu.Lock()
	defer f.unlock()

	k := PlotKey{row, col}
	if err := f.checkKey(op, k); err != nil {
		return WaterResult{}, err
	}
	current := f.peek(k)
	if current.Crop == "" {
		return WaterResult{}, f.reject(op, ErrInvalidState, "Plant something first!")
	}

	hub := f.hubEfficiency(k)
	cost := agronomy.WaterCost(current.Assets, hub)
	if err := f.res.Debit(economy.Cost{Resource: economy.Water, Amount: cost}); err != nil {
		return WaterResult{}, f.reject(op, ErrInsufficientResource, "Not enough water for this plot!")
	}

	p := f.plot(k)
	p.Watered = true
	f.params.AfterWater(p.Assets, f.global, hub)
	ready := f.nudgeLocked(k, p)

	msg := "Plot watered!"
	if ready {
		msg = "Watered to full growth!"
	}
	f.touch(EventWatered, k.String(), msg)
	return WaterResult{Plot: k.String(), Cost: cost, Stage: p.Stage, Ready: p.Ready}, nil
}

// FertilizeResult describes a successful fertilizer application.
type FertilizeResult struct {
	Plot       string              `json:"plot"`
	Fertilizer agronomy.Fertilizer `json:"fertilizer"`
	Cost       int                 `json:"cost"`
	Stage      int                 `json:"stage"`
	Ready      bool                `json:"ready"`
}

// Fertilize applies the selected fertilizer to a planted plot.
func (f *Farm) Fertilize(row, col int) (FertilizeResult, error) {
	const op = "fertilize"
	f.mu.Lock()
	defer f.unlock()

	k := PlotKey{row, col}
	if err := f.checkKey(op, k); err != nil {
		return FertilizeResult{}, err
	}
	if f.peek(k).Crop == "" {
		return FertilizeResult{}, f.reject(op, ErrInvalidState, "Plant something first!")
	}
	cost := f.fertilizer.Cost()
	if err := f.res.Debit(economy.Cost{Resource: economy.Coins, Amount: cost}); err != nil {
		return FertilizeResult{}, f.reject(op, ErrInsufficientResource, fmt.Sprintf("Not enough coins for %s fertilizer.", f.fertilizer))
	}

	p := f.plot(k)
	if f.params.AfterFertilize(f.fertilizer) {
		f.practices.ExcessChemicalFertilizer = true
	}
	ready := f.nudgeLocked(k, p)

	msg := "Fertilizer boosted growth!"
	if ready {
		msg = "Fertilizer worked! Crop is ready!"
	}
	f.touch(EventFertilized, k.String(), msg)
	return FertilizeResult{Plot: k.String(), Fertilizer: f.fertilizer, Cost: cost, Stage: p.Stage, Ready: p.Ready}, nil
}

// HarvestResult describes a successful harvest.
type HarvestResult struct {
	Plot  string   `json:"plot"`
	Crop  crops.ID `json:"crop"`
	Price float64  `json:"price"`
	agronomy.YieldResult
}

// Harvest collects a ready crop, credits coins, deposits the produce in
// inventory and resets the plot.
func (f *Farm) Harvest(row, col int) (HarvestResult, error) {
	const op = "harvest"
	f.mu.Lock()
	defer f.unlock()

	k := PlotKey{row, col}
	if err := f.checkKey(op, k); err != nil {
		return HarvestResult{}, err
	}
	current := f.peek(k)
	switch current.State() {
	case Empty:
		return HarvestResult{}, f.reject(op, ErrInvalidState, "Nothing to harvest here!")
	case Growing:
		return HarvestResult{}, f.reject(op, ErrInvalidState, "Crop not ready yet!")
	}

	p := f.plot(k)
	var rulePtr *crops.Rule
	if rule, ok := f.table.Rule(p.Crop); ok {
		rulePtr = &rule
	}
	planting := p.PlantingPenalty
	if planting <= 0 {
		planting = 1
	}
	price, ok := f.priceMap[p.Crop]
	if !ok {
		price = f.table.BasePrice(p.Crop)
	}
	yield := agronomy.ComputeYield(f.rng, agronomy.YieldInput{
		Installed:       p.Assets,
		Params:          f.params,
		Practices:       f.practices,
		PlantingPenalty: planting,
		HarvestPenalty:  agronomy.HarvestPenalty(rulePtr, f.params, f.practices),
		Price:           price,
	})

	crop := p.Crop
	f.res.Credit(economy.Coins, yield.Coins)
	f.inventory.Add(crop, yield.QuantityKg)
	f.stopGrowthLocked(k)
	p.clear()
	f.params.AfterHarvest(p.Assets, f.global)

	f.touch(EventHarvested, k.String(), fmt.Sprintf("Harvested %dkg of %s for ₹%d!", yield.QuantityKg, crop, yield.Coins))
	return HarvestResult{Plot: k.String(), Crop: crop, Price: price, YieldResult: yield}, nil
}

func lookupReason(err error) string {
	var unk *crops.UnknownCropError
	if errors.As(err, &unk) {
		if unk.Suggestion != "" {
			return fmt.Sprintf("Unknown crop %q. Did you mean %s?", unk.Name, unk.Suggestion)
		}
		return fmt.Sprintf("Unknown crop %q.", unk.Name)
	}
	return err.Error()
}
