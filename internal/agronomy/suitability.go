package agronomy

import (
	"math"

	"github.com/talgya/valley-farm/internal/assets"
	"github.com/talgya/valley-farm/internal/crops"
)

// Planting penalty bounds.
const (
	MinPlantingPenalty = 0.5
	MaxPlantingPenalty = 1.15
)

// Evaluation is the outcome of a planting suitability check.
type Evaluation struct {
	Allowed bool     `json:"allowed"`
	Penalty float64  `json:"penalty"`
	Reasons []string `json:"reasons"`
}

// Marginal reports whether the penalty is large enough to warn the player.
func (e Evaluation) Marginal() bool {
	return e.Allowed && e.Penalty < 0.95
}

// Evaluate decides whether a crop may be planted on a plot under the current
// parameters and soil type, and computes the planting penalty. A nil rule means
// the crop is unknown to the rule table.
func Evaluate(rule *crops.Rule, installed assets.Set, p Params, soil string) Evaluation {
	ev := Evaluation{Allowed: true, Penalty: 1.0}
	hasIrrigation := installed.Has(assets.Drip) || installed.Has(assets.Rainwater)

	if rule != nil && rule.Gate.AppliesTo(soil) {
		g := rule.Gate
		for _, key := range g.Requires {
			k, err := assets.Parse(key)
			if err != nil || !installed.Has(k) {
				ev.Allowed = false
				ev.Reasons = append(ev.Reasons, rule.Name+" requires "+joinRequires(g.Requires)+" installed on "+soil+" plots.")
				break
			}
		}
		if g.MaxPH > 0 && p.PH > g.MaxPH {
			ev.Allowed = false
			ev.Reasons = append(ev.Reasons, rule.Name+" needs acidic soil (pH ≤ "+formatPH(g.MaxPH)+").")
		}
		if !ev.Allowed {
			ev.Penalty = 0
			return ev
		}
		if g.MarginalPenalty > 0 && p.PH > g.MarginalAbove {
			ev.Penalty *= g.MarginalPenalty
		}
	}

	if rule == nil {
		ev.Reasons = append(ev.Reasons, "Unknown crop parameters; expect reduced yield.")
		ev.Penalty *= 0.85
	} else {
		if !rule.SoilMatches(soil) {
			ev.Penalty *= 0.85
			ev.Reasons = append(ev.Reasons, "Soil is not ideal for "+string(rule.ID)+".")
		}

		lo, hi := rule.PHLow, rule.PHHigh
		switch {
		case p.PH < lo:
			ev.Penalty *= phDistancePenalty(lo - p.PH)
			ev.Reasons = append(ev.Reasons, "Soil pH is outside the ideal range for "+string(rule.ID)+".")
		case p.PH > hi:
			ev.Penalty *= phDistancePenalty(p.PH - hi)
			ev.Reasons = append(ev.Reasons, "Soil pH is outside the ideal range for "+string(rule.ID)+".")
		case math.Abs(p.PH-rule.PHMid()) <= 0.2:
			ev.Penalty *= 1.02
		}

		switch rule.Water {
		case crops.WaterHigh:
			if p.Groundwater < 0.35 && !hasIrrigation {
				if p.Weather == Drought && p.Groundwater < 0.25 {
					ev.Allowed = false
					ev.Reasons = append(ev.Reasons, "Too dry to plant "+string(rule.ID)+" without irrigation assets.")
				} else {
					ev.Penalty *= 0.8
					ev.Reasons = append(ev.Reasons, "Low water availability; install drip or rainwater tank.")
				}
			}
			if p.Weather == Flood {
				ev.Penalty *= 0.9
			}
		case crops.WaterModerate:
			if p.Groundwater < 0.3 && !hasIrrigation {
				ev.Penalty *= 0.88
				ev.Reasons = append(ev.Reasons, "Groundwater is low; irrigation assets would help.")
			}
			if p.Weather == Drought {
				ev.Penalty *= 0.92
			}
		}
	}

	if p.SoilHealth < 0.45 {
		ev.Penalty *= 0.88
		ev.Reasons = append(ev.Reasons, "Soil health is low; add compost.")
	}
	if p.SoilHealth < 0.35 {
		ev.Penalty *= 0.85
	}

	ev.Penalty = ClampRange(ev.Penalty, MinPlantingPenalty, MaxPlantingPenalty)
	return ev
}

func phDistancePenalty(dist float64) float64 {
	if dist > 0.5 {
		return 0.7
	}
	return 0.85
}

// HarvestPenalty is the dynamic penalty computed from conditions at harvest time,
// bounded to [0.7, 1.0]. It applies on top of the stored planting penalty.
func HarvestPenalty(rule *crops.Rule, p Params, pr Practices) float64 {
	mult := 1.0
	floodTolerant, droughtSensitive := false, false
	if rule != nil {
		floodTolerant, droughtSensitive = rule.FloodTolerant, rule.DroughtSensitive
	}

	switch {
	case p.Weather == Hail:
		mult *= 0.85
	case p.Weather == Flood && !floodTolerant:
		mult *= 0.9
	case p.Weather == Drought && droughtSensitive:
		mult *= 0.9
	}

	if rule != nil && (p.PH < rule.PHLow-0.7 || p.PH > rule.PHHigh+0.7) {
		mult *= 0.85
	}
	if pr.ExcessChemicalFertilizer {
		mult *= 0.9
	}
	return ClampRange(mult, 0.7, 1.0)
}

func joinRequires(keys []string) string {
	switch len(keys) {
	case 0:
		return "nothing"
	case 1:
		return keys[0]
	}
	out := keys[0]
	for _, k := range keys[1:] {
		out += " + " + k
	}
	return out
}

func formatPH(v float64) string {
	return trimFloat(v, 1)
}
