// Package crops holds the static crop rule table: soil, pH and water preferences,
// growth duration, seed cost and market prices for every plantable crop.
package crops

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Stages is the number of growth stages; stage 4 is mature.
const Stages = 4

// ID identifies a crop ("rice", "tea", ...).
type ID string

// Category decides which storage bin holds a crop.
type Category string

const (
	Cereal  Category = "cereal"
	Produce Category = "produce"
)

// WaterNeed is a crop's irrigation demand.
type WaterNeed string

const (
	WaterModerate WaterNeed = "moderate"
	WaterHigh     WaterNeed = "high"
)

// Gate is a hard planting restriction for a crop on specific soils.
// Planting is refused unless every required asset is installed and pH is at most MaxPH;
// pH above MarginalAbove (but within MaxPH) is allowed with MarginalPenalty.
type Gate struct {
	Soils           []string `yaml:"soils" json:"soils"`
	Requires        []string `yaml:"requires" json:"requires"`
	MaxPH           float64  `yaml:"max_ph" json:"max_ph"`
	MarginalAbove   float64  `yaml:"marginal_above" json:"marginal_above"`
	MarginalPenalty float64  `yaml:"marginal_penalty" json:"marginal_penalty"`
}

// AppliesTo reports whether the gate covers the given soil type.
func (g *Gate) AppliesTo(soil string) bool {
	if g == nil {
		return false
	}
	for _, s := range g.Soils {
		if strings.EqualFold(s, soil) {
			return true
		}
	}
	return false
}

// Rule is immutable reference data for one crop.
type Rule struct {
	ID               ID            `json:"id"`
	Name             string        `json:"name"`
	Soils            []string      `json:"soils"`
	PHLow            float64       `json:"ph_low"`
	PHHigh           float64       `json:"ph_high"`
	Water            WaterNeed     `json:"water"`
	Category         Category      `json:"category"`
	SeedCost         int           `json:"seed_cost"`
	BasePrice        float64       `json:"base_price"`
	ChannelPrice     float64       `json:"channel_price"`
	Terrains         []string      `json:"terrains"`
	Growth           time.Duration `json:"growth"`
	FloodTolerant    bool          `json:"flood_tolerant"`
	DroughtSensitive bool          `json:"drought_sensitive"`
	Gate             *Gate         `json:"gate,omitempty"`
}

// SoilMatches reports whether any preferred soil appears in the active soil type.
func (r Rule) SoilMatches(soil string) bool {
	soil = strings.ToLower(soil)
	for _, s := range r.Soils {
		if strings.Contains(soil, s) {
			return true
		}
	}
	return false
}

// SuitsTerrain reports whether the crop is traditionally grown on a terrain.
func (r Rule) SuitsTerrain(terrain string) bool {
	for _, t := range r.Terrains {
		if strings.EqualFold(t, terrain) {
			return true
		}
	}
	return false
}

// PHMid returns the center of the crop's pH band.
func (r Rule) PHMid() float64 {
	return (r.PHLow + r.PHHigh) / 2
}

// StageInterval is the time between stage advances.
func (r Rule) StageInterval() time.Duration {
	return r.Growth / Stages
}

// Table is the loaded set of crop rules.
type Table struct {
	rules        map[ID]Rule
	ids          []ID
	defaultPrice float64
}

//go:embed rules.yaml
var defaultRules []byte

type document struct {
	DefaultPrice float64 `yaml:"default_price"`
	Crops        []struct {
		ID               string    `yaml:"id"`
		Name             string    `yaml:"name"`
		Soils            []string  `yaml:"soils"`
		PHRange          []float64 `yaml:"ph_range"`
		Water            string    `yaml:"water"`
		Category         string    `yaml:"category"`
		SeedCost         int       `yaml:"seed_cost"`
		BasePrice        float64   `yaml:"base_price"`
		ChannelPrice     float64   `yaml:"channel_price"`
		Terrains         []string  `yaml:"terrains"`
		GrowthSeconds    float64   `yaml:"growth_seconds"`
		FloodTolerant    bool      `yaml:"flood_tolerant"`
		DroughtSensitive bool      `yaml:"drought_sensitive"`
		Gate             *Gate     `yaml:"gate"`
	} `yaml:"crops"`
}

// Default returns the built-in rule table.
func Default() *Table {
	t, err := Load(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("crops: embedded rules invalid: %v", err))
	}
	return t
}

// Load parses a YAML rule table.
func Load(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse crop rules: %w", err)
	}
	if len(doc.Crops) == 0 {
		return nil, fmt.Errorf("no crops defined")
	}

	t := &Table{rules: make(map[ID]Rule, len(doc.Crops)), defaultPrice: doc.DefaultPrice}
	if t.defaultPrice <= 0 {
		t.defaultPrice = 20
	}
	for _, c := range doc.Crops {
		id := ID(strings.ToLower(strings.TrimSpace(c.ID)))
		if id == "" {
			return nil, fmt.Errorf("crop with empty id")
		}
		if _, dup := t.rules[id]; dup {
			return nil, fmt.Errorf("duplicate crop %q", id)
		}
		if len(c.PHRange) != 2 || c.PHRange[0] > c.PHRange[1] {
			return nil, fmt.Errorf("crop %q: ph_range must be [lo, hi]", id)
		}
		water := WaterNeed(c.Water)
		if water != WaterModerate && water != WaterHigh {
			return nil, fmt.Errorf("crop %q: unknown water need %q", id, c.Water)
		}
		cat := Category(c.Category)
		if cat != Cereal && cat != Produce {
			return nil, fmt.Errorf("crop %q: unknown category %q", id, c.Category)
		}
		if c.GrowthSeconds <= 0 {
			return nil, fmt.Errorf("crop %q: growth_seconds must be positive", id)
		}
		if c.SeedCost < 0 {
			return nil, fmt.Errorf("crop %q: negative seed cost", id)
		}
		t.rules[id] = Rule{
			ID:               id,
			Name:             c.Name,
			Soils:            c.Soils,
			PHLow:            c.PHRange[0],
			PHHigh:           c.PHRange[1],
			Water:            water,
			Category:         cat,
			SeedCost:         c.SeedCost,
			BasePrice:        c.BasePrice,
			ChannelPrice:     c.ChannelPrice,
			Terrains:         c.Terrains,
			Growth:           time.Duration(c.GrowthSeconds * float64(time.Second)),
			FloodTolerant:    c.FloodTolerant,
			DroughtSensitive: c.DroughtSensitive,
			Gate:             c.Gate,
		}
		t.ids = append(t.ids, id)
	}
	sort.Slice(t.ids, func(i, j int) bool { return t.ids[i] < t.ids[j] })
	return t, nil
}

// Rule returns the rule for id.
func (t *Table) Rule(id ID) (Rule, bool) {
	r, ok := t.rules[id]
	return r, ok
}

// IDs returns all crop IDs in ascending order.
func (t *Table) IDs() []ID {
	out := make([]ID, len(t.ids))
	copy(out, t.ids)
	return out
}

// BasePrice returns the static default price for a crop, or the table's
// default price for unknown crops.
func (t *Table) BasePrice(id ID) float64 {
	if r, ok := t.rules[id]; ok && r.BasePrice > 0 {
		return r.BasePrice
	}
	return t.defaultPrice
}

// IsCereal reports whether a crop belongs in the silo.
func (t *Table) IsCereal(id ID) bool {
	r, ok := t.rules[id]
	return ok && r.Category == Cereal
}

// SeedCost returns the coin cost of one seed of the crop (1 for unknown crops).
func (t *Table) SeedCost(id ID) int {
	if r, ok := t.rules[id]; ok {
		return r.SeedCost
	}
	return 1
}
