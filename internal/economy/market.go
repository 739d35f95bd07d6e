package economy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/talgya/valley-farm/internal/agronomy"
	"github.com/talgya/valley-farm/internal/assets"
	"github.com/talgya/valley-farm/internal/crops"
)

// Inventory maps a crop to harvested kilograms. Zero entries are removed.
type Inventory map[crops.ID]int

// Add deposits qty kg of a crop.
func (inv Inventory) Add(id crops.ID, qty int) {
	if qty <= 0 {
		return
	}
	inv[id] += qty
}

// Remove withdraws qty kg, failing without change if the inventory holds less.
func (inv Inventory) Remove(id crops.ID, qty int) error {
	have := inv[id]
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}
	if have < qty {
		return fmt.Errorf("not enough %s: need %d kg, have %d kg: %w", id, qty, have, ErrShortfall)
	}
	inv[id] = have - qty
	inv.prune()
	return nil
}

func (inv Inventory) prune() {
	for id, q := range inv {
		if q <= 0 {
			delete(inv, id)
		}
	}
}

// Total is the kilograms held across crops.
func (inv Inventory) Total() int {
	total := 0
	for _, q := range inv {
		total += q
	}
	return total
}

// IDs returns held crops in ascending order.
func (inv Inventory) IDs() []crops.ID {
	ids := make([]crops.ID, 0, len(inv))
	for id, q := range inv {
		if q > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone copies the inventory.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for id, q := range inv {
		if q > 0 {
			out[id] = q
		}
	}
	return out
}

// Bin is a storage building.
type Bin string

const (
	Silo Bin = "silo"
	Barn Bin = "barn"
)

// Base storage capacity per bin before renewable bonuses.
const BaseCapacity = 100

// Capacities bounds each bin.
type Capacities struct {
	Silo int `json:"silo"`
	Barn int `json:"barn"`
}

// CapacitiesFor derives bin sizes from the farm-wide asset counts.
func CapacitiesFor(gc assets.GlobalCounts) Capacities {
	return Capacities{
		Silo: BaseCapacity + min(100, (gc.Solar+gc.Wind)*10),
		Barn: BaseCapacity + min(100, (gc.Biogas+gc.Trees)*10),
	}
}

// Of returns the capacity of a bin.
func (c Capacities) Of(b Bin) int {
	if b == Silo {
		return c.Silo
	}
	return c.Barn
}

// Storage holds the contents of both bins.
type Storage struct {
	Silo Inventory `json:"silo"`
	Barn Inventory `json:"barn"`
}

// NewStorage returns empty bins.
func NewStorage() Storage {
	return Storage{Silo: Inventory{}, Barn: Inventory{}}
}

// Bin returns the contents of b, allocating it if needed.
func (s *Storage) Bin(b Bin) Inventory {
	switch b {
	case Silo:
		if s.Silo == nil {
			s.Silo = Inventory{}
		}
		return s.Silo
	default:
		if s.Barn == nil {
			s.Barn = Inventory{}
		}
		return s.Barn
	}
}

// StoreAll moves every inventory crop accepted by the bin into it, in ascending
// crop order, until the bin is full. It returns the kilograms moved per crop.
func StoreAll(inv Inventory, bin Inventory, capacity int, accept func(crops.ID) bool) map[crops.ID]int {
	moved := make(map[crops.ID]int)
	used := bin.Total()
	for _, id := range inv.IDs() {
		if used >= capacity {
			break
		}
		if !accept(id) {
			continue
		}
		move := min(inv[id], capacity-used)
		if move <= 0 {
			continue
		}
		bin[id] += move
		inv[id] -= move
		used += move
		moved[id] = move
	}
	inv.prune()
	return moved
}

// PriceMap maps crops to unit prices.
type PriceMap map[crops.ID]float64

// Clone copies the map.
func (pm PriceMap) Clone() PriceMap {
	out := make(PriceMap, len(pm))
	for id, p := range pm {
		out[id] = p
	}
	return out
}

// PriceOf returns the live price rounded to a whole coin, or the table's
// fallback price when none is set.
func PriceOf(pm PriceMap, tbl *crops.Table, id crops.ID) float64 {
	if p, ok := pm[id]; ok {
		return math.Round(p)
	}
	return math.Round(tbl.BasePrice(id))
}

// Channel is a market outlet.
type Channel string

const (
	LocalMarket Channel = "local-market"
	Middleman   Channel = "middleman"
	Government  Channel = "government"
)

// ParseChannel validates a channel name.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case LocalMarket, Middleman, Government:
		return c, nil
	}
	return "", fmt.Errorf("unknown sell channel %q", s)
}

// Multiplier is the channel's price multiplier.
func (c Channel) Multiplier() float64 {
	switch c {
	case LocalMarket:
		return 1.2
	case Government:
		return 0.9
	}
	return 1.0
}

// Label is the display name.
func (c Channel) Label() string {
	switch c {
	case LocalMarket:
		return "Local Market"
	case Middleman:
		return "Trader/Middleman"
	case Government:
		return "Government Procurement"
	}
	return string(c)
}

// Meters are the market reputation meters, each in [0,100].
type Meters struct {
	Yield   int `json:"yield"`
	Quality int `json:"quality"`
}

// DefaultMeters is the starting reputation.
func DefaultMeters() Meters {
	return Meters{Yield: 70, Quality: 80}
}

// Normalize clamps meters to [0,100].
func (m *Meters) Normalize() {
	m.Yield = min(100, max(0, m.Yield))
	m.Quality = min(100, max(0, m.Quality))
}

// AfterSale applies a channel's reputation side effect.
func (m *Meters) AfterSale(c Channel, qty int) {
	switch c {
	case LocalMarket:
		m.Yield = min(100, m.Yield+2*qty)
	case Government:
		m.Quality = min(100, m.Quality+2*qty)
	}
}

// Sell gate thresholds.
const (
	MinSellSoilHealth  = 0.5
	MinSellGroundwater = 0.4
	MinSellPH          = 6.0
	MaxSellPH          = 7.5
	MinSellYield       = 40
	MinSellQuality     = 50
)

// GateError lists every threshold that blocked a sale.
type GateError struct {
	Reasons []string
}

func (e *GateError) Error() string {
	return "sale denied: " + strings.Join(e.Reasons, "; ")
}

// CheckSellGate verifies farm parameters and meters allow a channel sale.
func CheckSellGate(p agronomy.Params, m Meters) error {
	var reasons []string
	if p.SoilHealth < MinSellSoilHealth {
		reasons = append(reasons, fmt.Sprintf("soil health %.2f below %.2f", p.SoilHealth, MinSellSoilHealth))
	}
	if p.Groundwater < MinSellGroundwater {
		reasons = append(reasons, fmt.Sprintf("groundwater %.2f below %.2f", p.Groundwater, MinSellGroundwater))
	}
	if p.PH < MinSellPH || p.PH > MaxSellPH {
		reasons = append(reasons, fmt.Sprintf("pH %.1f outside %.1f-%.1f", p.PH, MinSellPH, MaxSellPH))
	}
	if m.Yield < MinSellYield {
		reasons = append(reasons, fmt.Sprintf("yield meter %d below %d", m.Yield, MinSellYield))
	}
	if m.Quality < MinSellQuality {
		reasons = append(reasons, fmt.Sprintf("quality meter %d below %d", m.Quality, MinSellQuality))
	}
	if len(reasons) > 0 {
		return &GateError{Reasons: reasons}
	}
	return nil
}

// DefaultChannelPrice is the channel base price for crops without one.
const DefaultChannelPrice = 10

// ChannelQuote prices a channel sale of qty kg.
func ChannelQuote(rule *crops.Rule, c Channel, m Meters, qty int) int {
	base := float64(DefaultChannelPrice)
	if rule != nil && rule.ChannelPrice > 0 {
		base = rule.ChannelPrice
	}
	yieldMult := 0.5 + float64(m.Yield)/200
	qualityMult := 0.5 + float64(m.Quality)/200
	return int(math.Round(base * c.Multiplier() * yieldMult * qualityMult * float64(qty)))
}
