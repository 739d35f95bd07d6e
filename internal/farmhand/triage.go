package farmhand

import (
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/farm"
)

// Health holds derived signals computed from a farm view.
// Runs before any decision and is deterministic.
type Health struct {
	Ready       []farm.PlotView // harvestable
	Thirsty     []farm.PlotView // growing and not yet watered
	Empty       []farm.PlotView
	InventoryKg int
	CerealKg    int
	SiloRoom    int
	BarnRoom    int
	Status      string // "BROKE", "LOW", "OK"
}

// Reserves the helper keeps before spending on new plantings.
const (
	coinReserve  = 30
	waterReserve = 20
)

// Triage computes a Health from the view.
func Triage(v *farm.View, tbl *crops.Table) *Health {
	h := &Health{}
	for _, p := range v.Plots {
		switch p.State {
		case farm.Ready:
			h.Ready = append(h.Ready, p)
		case farm.Growing:
			if !p.Watered {
				h.Thirsty = append(h.Thirsty, p)
			}
		case farm.Empty:
			h.Empty = append(h.Empty, p)
		}
	}
	for id, kg := range v.Inventory {
		h.InventoryKg += kg
		if tbl.IsCereal(id) {
			h.CerealKg += kg
		}
	}
	h.SiloRoom = max(0, v.Capacities.Silo-v.Storage.Silo.Total())
	h.BarnRoom = max(0, v.Capacities.Barn-v.Storage.Barn.Total())

	res := v.Resources
	switch {
	case v.SupportEligible:
		h.Status = "BROKE"
	case res.Coins < coinReserve || res.Water < waterReserve:
		h.Status = "LOW"
	default:
		h.Status = "OK"
	}
	return h
}
