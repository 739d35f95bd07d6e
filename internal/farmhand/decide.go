package farmhand

import (
	"fmt"

	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
	"github.com/talgya/valley-farm/internal/farm"
)

// MaxChores caps the actions taken in one cycle.
const MaxChores = 12

// DefaultCrop is planted when the player has not selected one.
const DefaultCrop = "rice"

// Chore is one player action the helper will perform.
type Chore struct {
	Action string `json:"action"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Body   any    `json:"body,omitempty"`
}

func (c Chore) String() string {
	return fmt.Sprintf("%s %s", c.Method, c.Path)
}

// Decide turns an observation into an ordered list of chores: support when
// broke, harvest, water, then sell or store, and finally plant while reserves
// allow.
func Decide(v *farm.View, tbl *crops.Table) []Chore {
	h := Triage(v, tbl)
	var chores []Chore
	add := func(c Chore) bool {
		if len(chores) >= MaxChores {
			return false
		}
		chores = append(chores, c)
		return true
	}

	if h.Status == "BROKE" {
		add(Chore{Action: "support", Method: "POST", Path: "/api/v1/support"})
	}

	for _, p := range h.Ready {
		if !add(plotChore("harvest", p)) {
			return chores
		}
	}

	water := v.Resources.Water
	for _, p := range h.Thirsty {
		if p.WaterCost > water {
			break
		}
		water -= p.WaterCost
		if !add(plotChore("water", p)) {
			return chores
		}
	}

	if h.InventoryKg > 0 {
		if v.SellOK {
			for _, id := range v.Inventory.IDs() {
				body := map[string]any{"crop": string(id), "kg": v.Inventory[id], "channel": string(economy.LocalMarket)}
				if !add(Chore{Action: "sell", Method: "POST", Path: "/api/v1/market/sell", Body: body}) {
					return chores
				}
			}
		} else if h.CerealKg > 0 && h.SiloRoom > 0 {
			add(Chore{Action: "store", Method: "POST", Path: "/api/v1/storage/cereals"})
		}
	}

	if h.Status != "OK" {
		return chores
	}
	crop := string(v.SelectedCrop)
	if crop == "" {
		crop = DefaultCrop
	}
	seedCost := tbl.SeedCost(crops.ID(crop))
	coins, seeds := v.Resources.Coins, v.Resources.Seeds
	for _, p := range h.Empty {
		if seeds <= 0 || coins-seedCost < coinReserve {
			break
		}
		coins -= seedCost
		seeds--
		c := plotChore("plant", p)
		c.Body = map[string]string{"crop": crop}
		if !add(c) {
			break
		}
	}
	return chores
}

func plotChore(action string, p farm.PlotView) Chore {
	return Chore{Action: action, Method: "POST", Path: fmt.Sprintf("/api/v1/plots/%s/%s", p.Key, action)}
}
