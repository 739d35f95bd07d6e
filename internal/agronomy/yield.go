package agronomy

import (
	"math"
	"strconv"

	"github.com/talgya/valley-farm/internal/assets"
)

// Yield multiplier bounds.
const (
	MinYieldMultiplier = 0.35
	MaxYieldMultiplier = 1.4
)

// Base harvest quantity range in kg (inclusive).
const (
	BaseYieldMin = 3
	BaseYieldMax = 7
)

// IntN is the random source used for base yields. *math/rand/v2.Rand satisfies it.
type IntN interface {
	IntN(n int) int
}

// YieldInput is everything the harvest calculator reads.
type YieldInput struct {
	Installed       assets.Set
	Params          Params
	Practices       Practices
	PlantingPenalty float64
	HarvestPenalty  float64
	Price           float64
}

// YieldResult is a harvest outcome.
type YieldResult struct {
	BaseKg          int     `json:"baseKg"`
	Multiplier      float64 `json:"multiplier"`
	QuantityKg      int     `json:"quantityKg"`
	Coins           int     `json:"coins"`
	PlantingPenalty float64 `json:"plantingPenalty"`
	HarvestPenalty  float64 `json:"harvestPenalty"`
}

// Multiplier composes every yield modifier and clamps the result.
func Multiplier(in YieldInput) float64 {
	p := in.Params
	mult := 0.85 + p.SoilHealth*0.3
	if p.PH >= 6.2 && p.PH <= 6.8 {
		mult *= 1.06
	} else {
		mult *= 0.86
	}
	if p.Weather.Adverse() {
		mult *= 0.85
	}
	mult *= in.Installed.YieldBonus()
	if in.Practices.ExcessChemicalFertilizer {
		mult *= 0.75
	}
	mult *= in.PlantingPenalty * in.HarvestPenalty
	return ClampRange(mult, MinYieldMultiplier, MaxYieldMultiplier)
}

// ComputeYield draws a base quantity and applies the multiplier and price.
func ComputeYield(rng IntN, in YieldInput) YieldResult {
	base := BaseYieldMin + rng.IntN(BaseYieldMax-BaseYieldMin+1)
	mult := Multiplier(in)
	qty := max(1, int(math.Round(float64(base)*mult)))
	return YieldResult{
		BaseKg:          base,
		Multiplier:      mult,
		QuantityKg:      qty,
		Coins:           int(math.Round(float64(qty) * in.Price)),
		PlantingPenalty: in.PlantingPenalty,
		HarvestPenalty:  in.HarvestPenalty,
	}
}

func trimFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
