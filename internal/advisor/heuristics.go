package advisor

import (
	"fmt"
	"math"
	"sort"

	"github.com/talgya/valley-farm/internal/agronomy"
	"github.com/talgya/valley-farm/internal/assets"
	"github.com/talgya/valley-farm/internal/crops"
)

// Situation is the farm state the recommendation rules read.
type Situation struct {
	Params         agronomy.Params
	Practices      agronomy.Practices
	SelectedCrop   crops.ID
	HasInventory   bool
	DripStock      int
	RainwaterStock int
}

// Recommendations returns up to limit prioritized tips for the situation.
func Recommendations(s Situation, limit int) []string {
	p := s.Params
	var recos []string

	switch {
	case p.Groundwater < 0.4:
		recos = append(recos, "Groundwater is low – install drip irrigation or a rainwater tank; avoid overwatering.")
	case p.Groundwater > 0.85:
		recos = append(recos, "High water levels – monitor for waterlogging; prefer short, moderate-water crops.")
	}
	if p.SoilHealth < 0.5 {
		recos = append(recos, "Soil health is declining – apply compost and add crop residues after harvest.")
	}
	if s.Practices.ExcessChemicalFertilizer {
		recos = append(recos, "Reduce chemical fertilizer use; switch to natural inputs to recover soil health.")
	}
	if p.PH < 6.0 || p.PH > 7.0 {
		recos = append(recos, "Soil pH is suboptimal – compost helps buffer toward ~6.5.")
	}
	if s.SelectedCrop == "tea" && p.PH > 5.5 {
		recos = append(recos, "Tea prefers acidic soil (pH 4.5–5.5) – consider amending or choose a crop suited to current pH.")
	}
	switch p.Weather {
	case agronomy.Drought:
		recos = append(recos, "Drought conditions – prioritize maize or short-duration crops, use mulching and drip.")
	case agronomy.Flood:
		recos = append(recos, "Flood risk – build drainage, avoid overwatering, and plant tolerant varieties if available.")
	}
	if s.HasInventory {
		recos = append(recos, "You have harvest in inventory – consider storing cereals in the silo or selling at current prices.")
	}
	if s.DripStock > 0 && s.RainwaterStock > 0 && p.Groundwater < 0.6 {
		recos = append(recos, "Install available drip/rainwater units on key plots to save water.")
	}

	if len(recos) == 0 {
		recos = append(recos, "Keep balancing water, soil health, and pH; rotate crops and use compost regularly.")
	}
	if limit > 0 && len(recos) > limit {
		recos = recos[:limit]
	}
	return recos
}

// LiveHint is the single most urgent nudge for the current parameters.
func LiveHint(p agronomy.Params, pr agronomy.Practices) string {
	switch {
	case p.SoilHealth < 0.4:
		return "Soil health is dropping. Add compost or rotate crops."
	case p.Groundwater < 0.35:
		return "Groundwater is low. Use drip or rainwater harvesting."
	case p.PH < 6.0 || p.PH > 7.0:
		return "pH suboptimal. Use compost to buffer towards 6.5."
	case pr.ExcessChemicalFertilizer:
		return "Reduce chemical fertilizer to protect soil health."
	}
	return "All good. Keep practicing sustainable farming."
}

// Practice keys understood by the probability estimator.
const (
	PracticeMulching       = "mulching"
	PracticeDrip           = "drip-irrigation"
	PracticeCompost        = "compost"
	PracticeRainwater      = "rainwater"
	PracticeExcessChemical = "excess-chemical-fertilizer"
)

// PracticeKeys merges farm-wide practice toggles with a plot's installed assets.
func PracticeKeys(pr agronomy.Practices, installed assets.Set) []string {
	set := map[string]bool{}
	if pr.Mulching {
		set[PracticeMulching] = true
	}
	if pr.DripIrrigation || installed.Has(assets.Drip) {
		set[PracticeDrip] = true
	}
	if pr.Compost || installed.Has(assets.Compost) {
		set[PracticeCompost] = true
	}
	if pr.ExcessChemicalFertilizer {
		set[PracticeExcessChemical] = true
	}
	if installed.Has(assets.Rainwater) {
		set[PracticeRainwater] = true
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ProbabilityParams are the optional parameter readings of a probability request.
// Missing or out-of-range readings fall back to the defaults.
type ProbabilityParams struct {
	PH          *float64 `json:"ph,omitempty"`
	SoilHealth  *float64 `json:"soilHealth,omitempty"`
	Groundwater *float64 `json:"groundwater,omitempty"`
	Weather     string   `json:"weather,omitempty"`
}

// ParamsOf converts a parameter state into a probability request reading.
func ParamsOf(p agronomy.Params) ProbabilityParams {
	ph, sh, gw := p.PH, p.SoilHealth, p.Groundwater
	return ProbabilityParams{PH: &ph, SoilHealth: &sh, Groundwater: &gw, Weather: string(p.Weather)}
}

// ProbabilityRequest is the estimator input.
type ProbabilityRequest struct {
	Crop      string            `json:"crop"`
	Soil      string            `json:"soil"`
	Params    ProbabilityParams `json:"params"`
	Practices []string          `json:"practices"`
}

// Terrains accepted by the estimator.
var Terrains = []string{"alluvial", "mountain"}

func reading(v *float64, lo, hi, def float64) float64 {
	if v == nil || math.IsNaN(*v) || *v < lo || *v > hi {
		return def
	}
	return *v
}

// Probability estimates the chance a planting succeeds, in [0,1].
func Probability(tbl *crops.Table, req ProbabilityRequest) (float64, error) {
	if req.Crop == "" {
		return 0, fmt.Errorf("invalid crop parameter")
	}
	if req.Soil == "" {
		req.Soil = "alluvial"
	}
	if req.Soil != Terrains[0] && req.Soil != Terrains[1] {
		return 0, fmt.Errorf("invalid soil parameter %q", req.Soil)
	}

	prac := map[string]bool{}
	for _, k := range req.Practices {
		prac[k] = true
	}
	hasDrip := prac[PracticeDrip] || prac["dripIrrigation"]
	hasExcess := prac[PracticeExcessChemical] || prac["excessChemicalFertilizer"]

	base := 0.55
	if r, ok := tbl.Rule(crops.ID(req.Crop)); ok && r.SuitsTerrain(req.Soil) {
		base += 0.15
	} else {
		base -= 0.15
	}

	ph := reading(req.Params.PH, agronomy.MinPH, agronomy.MaxPH, 6.5)
	health := reading(req.Params.SoilHealth, 0, 1, 0.7)
	gw := reading(req.Params.Groundwater, 0, 1, 0.6)
	weather, err := agronomy.ParseWeather(req.Params.Weather)
	if err != nil {
		weather = agronomy.Normal
	}

	if ph >= 6.0 && ph <= 7.0 {
		base += 0.1
	} else {
		base -= 0.1
	}
	base += (health - 0.5) * 0.3
	base += (0.6-math.Abs(gw-0.6))*0.2 - 0.06
	if weather.Adverse() {
		base -= 0.15
	}
	if prac[PracticeMulching] {
		base += 0.05
	}
	if hasDrip {
		base += 0.07
	}
	if prac[PracticeCompost] {
		base += 0.07
	}
	if hasExcess {
		base -= 0.2
	}
	return agronomy.Clamp01(base), nil
}
