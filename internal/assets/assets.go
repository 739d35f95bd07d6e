// Package assets defines the closed set of sustainable assets a player can install,
// their costs and stock rules, per-plot asset sets, and the remaining stock ledger.
package assets

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind is one installable sustainable asset.
type Kind uint8

const (
	Compost Kind = iota + 1
	Drip
	Rainwater
	Mulch
	Solar
	Wind
	Biogas
	Trees
)

// Spec carries the fixed economics and agronomic effects of an asset kind.
type Spec struct {
	Kind         Kind
	Key          string
	Cost         int
	InitialStock int
	FarmWide     bool

	// Watering cost reduction and the floor it cannot push the cost below.
	WaterCut   int
	WaterFloor int

	// Efficiency contributed to adjacent plots' watering.
	NeighborBonus float64

	// Multiplicative harvest bonus (1.0 = none).
	YieldBonus float64
}

var catalog = [...]Spec{
	{Kind: Compost, Key: "compost", Cost: 15, InitialStock: 2, YieldBonus: 1.10},
	{Kind: Drip, Key: "drip", Cost: 25, InitialStock: 2, WaterCut: 3, WaterFloor: 2, NeighborBonus: 0.02, YieldBonus: 1.05},
	{Kind: Rainwater, Key: "rainwater", Cost: 20, InitialStock: 2, WaterCut: 1, WaterFloor: 1, NeighborBonus: 0.015, YieldBonus: 1.03},
	{Kind: Mulch, Key: "mulch", Cost: 5, InitialStock: 4, WaterCut: 1, WaterFloor: 1, YieldBonus: 1.04},
	{Kind: Solar, Key: "solar", Cost: 60, InitialStock: 4, FarmWide: true, YieldBonus: 1},
	{Kind: Wind, Key: "wind", Cost: 80, InitialStock: 4, FarmWide: true, YieldBonus: 1},
	{Kind: Biogas, Key: "biogas", Cost: 70, InitialStock: 4, FarmWide: true, YieldBonus: 1},
	{Kind: Trees, Key: "trees", Cost: 10, InitialStock: 4, FarmWide: true, YieldBonus: 1},
}

// RemovalPriority is the order "remove one asset" picks from.
var RemovalPriority = []Kind{Drip, Rainwater, Compost, Mulch, Solar, Wind, Biogas, Trees}

// All returns every kind in catalog order.
func All() []Kind {
	out := make([]Kind, 0, len(catalog))
	for _, s := range catalog {
		out = append(out, s.Kind)
	}
	return out
}

// Valid reports whether k is a catalog kind.
func (k Kind) Valid() bool {
	return k >= Compost && int(k) <= len(catalog)
}

// Spec returns the catalog entry for k. Invalid kinds return a zero Spec.
func (k Kind) Spec() Spec {
	if !k.Valid() {
		return Spec{}
	}
	return catalog[k-1]
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("asset(%d)", uint8(k))
	}
	return catalog[k-1].Key
}

// Parse resolves an asset key. Hyphenated UI aliases ("drip-irrigation",
// "rainwater-tank", "asset-solar") are accepted.
func Parse(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimPrefix(key, "asset-")
	switch key {
	case "drip-irrigation", "dripirrigation":
		key = "drip"
	case "rainwater-tank", "rainwater-harvesting":
		key = "rainwater"
	case "mulching":
		key = "mulch"
	case "tree", "agroforestry":
		key = "trees"
	}
	for _, spec := range catalog {
		if spec.Key == key {
			return spec.Kind, nil
		}
	}
	return 0, fmt.Errorf("unknown asset %q", s)
}

// MarshalText implements encoding.TextMarshaler so kinds can key JSON maps.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid asset kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Set is the set of assets installed on one plot.
type Set uint16

func bit(k Kind) Set { return 1 << uint(k) }

// Has reports whether k is installed.
func (s Set) Has(k Kind) bool { return k.Valid() && s&bit(k) != 0 }

// With returns s with k added.
func (s Set) With(k Kind) Set { return s | bit(k) }

// Without returns s with k removed.
func (s Set) Without(k Kind) Set { return s &^ bit(k) }

// Kinds lists installed kinds in catalog order.
func (s Set) Kinds() []Kind {
	var out []Kind
	for _, k := range All() {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Empty reports whether nothing is installed.
func (s Set) Empty() bool { return s == 0 }

// Map returns the set as key → true, the persisted representation.
func (s Set) Map() map[string]bool {
	out := make(map[string]bool)
	for _, k := range s.Kinds() {
		out[k.String()] = true
	}
	return out
}

// SetFromMap builds a Set from a persisted key → flag map. Unknown keys and
// false flags are ignored.
func SetFromMap(m map[string]bool) Set {
	var s Set
	for key, on := range m {
		if !on {
			continue
		}
		if k, err := Parse(key); err == nil {
			s = s.With(k)
		}
	}
	return s
}

// MarshalJSON encodes the set as an object of installed keys.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// UnmarshalJSON decodes an object of key → bool.
func (s *Set) UnmarshalJSON(b []byte) error {
	var m map[string]bool
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*s = SetFromMap(m)
	return nil
}

// WaterCost applies the plot's installed water-saving assets to a base cost.
// Each asset lowers the cost by its cut but never below its own floor.
func (s Set) WaterCost(base int) int {
	cost := base
	for _, k := range []Kind{Drip, Rainwater, Mulch} {
		if !s.Has(k) {
			continue
		}
		spec := k.Spec()
		cost = max(spec.WaterFloor, cost-spec.WaterCut)
	}
	return cost
}

// NeighborBonus is the watering efficiency this plot contributes to each neighbor.
func (s Set) NeighborBonus() float64 {
	total := 0.0
	for _, k := range s.Kinds() {
		total += k.Spec().NeighborBonus
	}
	return total
}

// YieldBonus is the product of installed assets' yield bonuses.
func (s Set) YieldBonus() float64 {
	mult := 1.0
	for _, k := range s.Kinds() {
		if b := k.Spec().YieldBonus; b > 0 {
			mult *= b
		}
	}
	return mult
}

// Stock is the remaining installable count per kind.
type Stock map[Kind]int

// DefaultStock returns the starting stock from the catalog.
func DefaultStock() Stock {
	st := make(Stock, len(catalog))
	for _, spec := range catalog {
		st[spec.Kind] = spec.InitialStock
	}
	return st
}

// Normalize fills kinds missing from a loaded stock with their initial stock
// and clamps negative counts to zero.
func (st Stock) Normalize() {
	for _, spec := range catalog {
		n, ok := st[spec.Kind]
		if !ok {
			st[spec.Kind] = spec.InitialStock
			continue
		}
		if n < 0 {
			st[spec.Kind] = 0
		}
	}
}

// Take consumes one unit. Returns false if none remain.
func (st Stock) Take(k Kind) bool {
	if st[k] <= 0 {
		return false
	}
	st[k]--
	return true
}

// Return puts one unit back.
func (st Stock) Return(k Kind) {
	st[k]++
}

// Units is the total remaining stock across kinds.
func (st Stock) Units() int {
	total := 0
	for _, n := range st {
		total += n
	}
	return total
}

// Clone copies the stock.
func (st Stock) Clone() Stock {
	out := make(Stock, len(st))
	for k, n := range st {
		out[k] = n
	}
	return out
}

// Keys returns stock keys sorted in catalog order.
func (st Stock) Keys() []Kind {
	keys := make([]Kind, 0, len(st))
	for k := range st {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// GlobalCounts is the farm-wide tally of installed farm-wide assets.
type GlobalCounts struct {
	Solar  int `json:"solar"`
	Wind   int `json:"wind"`
	Biogas int `json:"biogas"`
	Trees  int `json:"trees"`
}

// CountFarmWide recomputes GlobalCounts from every plot's installed set.
func CountFarmWide(sets []Set) GlobalCounts {
	var gc GlobalCounts
	for _, s := range sets {
		if s.Has(Solar) {
			gc.Solar++
		}
		if s.Has(Wind) {
			gc.Wind++
		}
		if s.Has(Biogas) {
			gc.Biogas++
		}
		if s.Has(Trees) {
			gc.Trees++
		}
	}
	return gc
}
