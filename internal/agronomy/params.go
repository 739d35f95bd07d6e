// Package agronomy models the farm-wide environmental parameters, the crop
// suitability calculus and the harvest yield calculator.
package agronomy

import (
	"fmt"
	"math"
	"strings"

	"github.com/talgya/valley-farm/internal/assets"
)

// Weather is the farm-wide weather condition.
type Weather string

const (
	Normal  Weather = "normal"
	Drought Weather = "drought"
	Flood   Weather = "flood"
	Hail    Weather = "hail"
)

// AllWeather lists every weather condition.
var AllWeather = []Weather{Normal, Drought, Flood, Hail}

// ParseWeather validates a weather name.
func ParseWeather(s string) (Weather, error) {
	w := Weather(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case Normal, Drought, Flood, Hail:
		return w, nil
	}
	return "", fmt.Errorf("unknown weather %q", s)
}

// Adverse reports whether the weather reduces yields.
func (w Weather) Adverse() bool {
	return w == Drought || w == Flood || w == Hail
}

// pH limits accepted from the settings surface.
const (
	MinPH = 3.5
	MaxPH = 9.0
)

// BaseWaterCost is the water charged to irrigate a plot with no assets.
const BaseWaterCost = 5

// Params is the environmental state shared by every plot on a farm.
type Params struct {
	SoilHealth  float64 `json:"soilHealth"`
	Groundwater float64 `json:"groundwater"`
	PH          float64 `json:"ph"`
	Weather     Weather `json:"weather"`
}

// DefaultParams is the state of a freshly created farm.
func DefaultParams() Params {
	return Params{SoilHealth: 0.7, Groundwater: 0.6, PH: 6.5, Weather: Normal}
}

// Clamp forces soil health and groundwater into [0,1] and repairs an unknown weather.
func (p *Params) Clamp() {
	p.SoilHealth = Clamp01(p.SoilHealth)
	p.Groundwater = Clamp01(p.Groundwater)
	if _, err := ParseWeather(string(p.Weather)); err != nil {
		p.Weather = Normal
	}
}

// Practices are sticky farm-wide toggles.
type Practices struct {
	Mulching                 bool `json:"mulching"`
	DripIrrigation           bool `json:"dripIrrigation"`
	Compost                  bool `json:"compost"`
	ExcessChemicalFertilizer bool `json:"excessChemicalFertilizer"`
}

// Toggle flips a practice by name and returns its new value.
func (pr *Practices) Toggle(name string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mulching":
		pr.Mulching = !pr.Mulching
		return pr.Mulching, nil
	case "dripirrigation", "drip-irrigation", "drip":
		pr.DripIrrigation = !pr.DripIrrigation
		return pr.DripIrrigation, nil
	case "compost":
		pr.Compost = !pr.Compost
		return pr.Compost, nil
	case "excesschemicalfertilizer", "excess-chemical-fertilizer":
		pr.ExcessChemicalFertilizer = !pr.ExcessChemicalFertilizer
		return pr.ExcessChemicalFertilizer, nil
	}
	return false, fmt.Errorf("unknown practice %q", name)
}

// Fertilizer is the selected fertilizer type.
type Fertilizer string

const (
	Natural    Fertilizer = "natural"
	Artificial Fertilizer = "artificial"
)

// ParseFertilizer validates a fertilizer name.
func ParseFertilizer(s string) (Fertilizer, error) {
	f := Fertilizer(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case Natural, Artificial:
		return f, nil
	}
	return "", fmt.Errorf("unknown fertilizer %q", s)
}

// Cost is the coin price of one application.
func (f Fertilizer) Cost() int {
	if f == Artificial {
		return 2
	}
	return 1
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	return ClampRange(v, 0, 1)
}

// ClampRange bounds v to [lo,hi]. NaN collapses to lo.
func ClampRange(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MoveToward steps v toward target by at most step.
func MoveToward(v, target, step float64) float64 {
	if math.Abs(target-v) <= step {
		return target
	}
	if v < target {
		return v + step
	}
	return v - step
}

// HubEfficiency sums the watering bonus contributed by neighboring plots' assets,
// capped at 10%.
func HubEfficiency(neighbors []assets.Set) float64 {
	eff := 0.0
	for _, n := range neighbors {
		eff += n.NeighborBonus()
	}
	return math.Min(0.10, eff)
}

// WaterCost is the water charged to irrigate a plot with the given installed set
// and neighbor hub efficiency.
func WaterCost(installed assets.Set, hub float64) int {
	cost := installed.WaterCost(BaseWaterCost)
	return max(1, int(math.Round(float64(cost)*(1-hub))))
}

// AfterPlant applies the soil disturbance of planting.
func (p *Params) AfterPlant(installed assets.Set) {
	if installed.Has(assets.Compost) {
		p.SoilHealth = Clamp01(p.SoilHealth + 0.008)
		p.PH = MoveToward(p.PH, 6.5, 0.05)
	} else {
		p.SoilHealth = Clamp01(p.SoilHealth - 0.005)
	}
	if installed.Has(assets.Mulch) {
		p.SoilHealth = Clamp01(p.SoilHealth + 0.003)
	}
}

// AfterWater recharges groundwater; waterlogging above 0.9 hurts soil health.
func (p *Params) AfterWater(installed assets.Set, global assets.GlobalCounts, hub float64) {
	delta := 0.02
	if installed.Has(assets.Rainwater) {
		delta += 0.01
	}
	if installed.Has(assets.Drip) {
		delta += 0.005
	}
	if installed.Has(assets.Mulch) {
		delta += 0.003
	}
	if global.Solar > 0 {
		delta += math.Min(0.01, float64(global.Solar)*0.002)
	}
	if global.Wind > 0 {
		delta += math.Min(0.008, float64(global.Wind)*0.002)
	}
	if hub > 0 {
		delta += math.Min(0.01, hub*0.02)
	}
	p.Groundwater = Clamp01(p.Groundwater + delta)
	if p.Groundwater > 0.9 {
		p.SoilHealth = Clamp01(p.SoilHealth - 0.05)
	}
}

// AfterHarvest incorporates crop residue into the soil.
func (p *Params) AfterHarvest(installed assets.Set, global assets.GlobalCounts) {
	if installed.Has(assets.Compost) {
		p.SoilHealth = Clamp01(p.SoilHealth + 0.02)
	} else {
		p.SoilHealth = Clamp01(p.SoilHealth + 0.01)
	}
	if installed.Has(assets.Mulch) {
		p.SoilHealth = Clamp01(p.SoilHealth + 0.004)
	}
	if global.Trees > 0 {
		p.SoilHealth = Clamp01(p.SoilHealth + math.Min(0.01, float64(global.Trees)*0.002))
	}
}

// AfterFertilize applies a fertilizer and reports whether it counts as excess
// chemical use.
func (p *Params) AfterFertilize(f Fertilizer) (excess bool) {
	if f == Artificial {
		p.SoilHealth = Clamp01(p.SoilHealth - 0.03)
		return true
	}
	p.SoilHealth = Clamp01(p.SoilHealth + 0.05)
	return false
}

// Decay drains groundwater by a fixed amount per passive tick.
func (p *Params) Decay(amount float64) {
	p.Groundwater = Clamp01(p.Groundwater - amount)
}

// DecayPerTick is the groundwater lost on each passive decay tick.
const DecayPerTick = 0.0015
