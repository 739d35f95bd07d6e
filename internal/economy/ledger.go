// Package economy provides the resource ledger, harvested inventory, storage
// bins and the marketplace pricing rules.
package economy

import (
	"errors"
	"fmt"
)

// ErrShortfall is matched by every ShortfallError.
var ErrShortfall = errors.New("insufficient resource")

// Resource names a scalar ledger resource.
type Resource string

const (
	Seeds Resource = "seeds"
	Coins Resource = "coins"
	Water Resource = "water"
)

// ShortfallError reports a debit the ledger could not cover.
type ShortfallError struct {
	Resource Resource
	Need     int
	Have     int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("not enough %s: need %d, have %d", e.Resource, e.Need, e.Have)
}

// Is lets errors.Is(err, ErrShortfall) match.
func (e *ShortfallError) Is(target error) bool {
	return target == ErrShortfall
}

// Cost is one resource amount to debit.
type Cost struct {
	Resource Resource
	Amount   int
}

// Resources is the scalar economic ledger. Balances never go negative.
type Resources struct {
	Seeds int `json:"seeds"`
	Coins int `json:"coins"`
	Water int `json:"water"`
}

func (r *Resources) slot(res Resource) *int {
	switch res {
	case Seeds:
		return &r.Seeds
	case Coins:
		return &r.Coins
	case Water:
		return &r.Water
	}
	return nil
}

// Get returns the balance of a resource.
func (r Resources) Get(res Resource) int {
	if p := r.slot(res); p != nil {
		return *p
	}
	return 0
}

// CanAfford reports the first cost the ledger cannot cover, or nil.
func (r Resources) CanAfford(costs ...Cost) error {
	need := make(map[Resource]int, len(costs))
	for _, c := range costs {
		if c.Amount < 0 {
			return fmt.Errorf("negative %s cost %d", c.Resource, c.Amount)
		}
		if r.slot(c.Resource) == nil {
			return fmt.Errorf("unknown resource %q", c.Resource)
		}
		need[c.Resource] += c.Amount
	}
	for _, c := range costs {
		if have := r.Get(c.Resource); have < need[c.Resource] {
			return &ShortfallError{Resource: c.Resource, Need: need[c.Resource], Have: have}
		}
	}
	return nil
}

// Debit removes every cost, or none of them if any cannot be covered.
func (r *Resources) Debit(costs ...Cost) error {
	if err := r.CanAfford(costs...); err != nil {
		return err
	}
	for _, c := range costs {
		*r.slot(c.Resource) -= c.Amount
	}
	return nil
}

// Credit adds to a resource. Negative amounts are ignored.
func (r *Resources) Credit(res Resource, amount int) {
	if p := r.slot(res); p != nil && amount > 0 {
		*p += amount
	}
}

// Normalize clamps loaded balances at zero.
func (r *Resources) Normalize() {
	r.Seeds = max(0, r.Seeds)
	r.Coins = max(0, r.Coins)
	r.Water = max(0, r.Water)
}

// Government support thresholds and grant.
const (
	SupportCoinsBelow = 20
	SupportSeedsBelow = 5
	SupportWaterBelow = 10

	SupportCoins = 100
	SupportSeeds = 50
	SupportWater = 50
)

// NeedsSupport reports whether the farm qualifies for government support.
func (r Resources) NeedsSupport() bool {
	return r.Coins < SupportCoinsBelow || r.Seeds < SupportSeedsBelow || r.Water < SupportWaterBelow
}

// ApplySupport credits the support grant.
func (r *Resources) ApplySupport() {
	r.Credit(Coins, SupportCoins)
	r.Credit(Seeds, SupportSeeds)
	r.Credit(Water, SupportWater)
}

// Starting balances before the baseline economy is applied.
var StartingResources = Resources{Seeds: 1000, Coins: 50, Water: 95}

// ApplyBaseline raises seeds and coins to the new-farm floor, which grows with
// the number of asset units in stock.
func (r *Resources) ApplyBaseline(stockUnits int) {
	r.Seeds = max(r.Seeds, 800+min(300, stockUnits*10))
	r.Coins = max(r.Coins, 40+min(200, stockUnits*5))
}

// SeedPrice is the coin price of one seed bought at the shop.
const SeedPrice = 2
