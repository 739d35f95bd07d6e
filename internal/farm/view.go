package farm

import (
	"errors"

	"github.com/talgya/valley-farm/internal/advisor"
	"github.com/talgya/valley-farm/internal/agronomy"
	"github.com/talgya/valley-farm/internal/assets"
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
)

// PlotView is a plot as shown to a player.
type PlotView struct {
	Key             string     `json:"key"`
	Row             int        `json:"row"`
	Col             int        `json:"col"`
	State           Lifecycle  `json:"state"`
	Crop            crops.ID   `json:"crop,omitempty"`
	Stage           int        `json:"stage"`
	Watered         bool       `json:"watered"`
	Assets          assets.Set `json:"assets"`
	PlantingPenalty float64    `json:"plantingPenalty,omitempty"`
	WaterCost       int        `json:"waterCost"`
}

// View is the complete presentation state of the farm.
type View struct {
	ID              string              `json:"id"`
	Revision        uint64              `json:"revision"`
	Soil            string              `json:"soil"`
	Rows            int                 `json:"rows"`
	Cols            int                 `json:"cols"`
	Resources       economy.Resources   `json:"resources"`
	Params          agronomy.Params     `json:"params"`
	Practices       agronomy.Practices  `json:"practices"`
	Fertilizer      agronomy.Fertilizer `json:"fertilizer"`
	SelectedCrop    crops.ID            `json:"selectedCrop"`
	Plots           []PlotView          `json:"plots"`
	Stock           map[string]int      `json:"stock"`
	Global          assets.GlobalCounts `json:"global"`
	Inventory       economy.Inventory   `json:"inventory"`
	Storage         economy.Storage     `json:"storage"`
	Capacities      economy.Capacities  `json:"capacities"`
	Meters          economy.Meters      `json:"meters"`
	Prices          economy.PriceMap    `json:"prices"`
	SellOK          bool                `json:"sellOk"`
	SellBlockers    []string            `json:"sellBlockers,omitempty"`
	SupportEligible bool                `json:"supportEligible"`
	Hint            string              `json:"hint"`
	Recommendations []string            `json:"recommendations"`
	News            []string            `json:"news"`
}

// View renders every plot of the grid (including never-touched ones) along
// with the ledgers and advice.
func (f *Farm) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshotLocked()
	v := View{
		ID:              f.id,
		Revision:        f.rev,
		Soil:            f.soil,
		Rows:            f.rows,
		Cols:            f.cols,
		Resources:       f.res,
		Params:          f.params,
		Practices:       f.practices,
		Fertilizer:      f.fertilizer,
		SelectedCrop:    f.selected,
		Stock:           snap.SustainableAssets,
		Global:          f.global,
		Inventory:       snap.Inventory,
		Storage:         snap.Storage,
		Capacities:      f.capacities,
		Meters:          f.meters,
		Prices:          snap.PriceMap,
		SupportEligible: f.res.NeedsSupport(),
		News:            snap.News,
	}
	var gate *economy.GateError
	if err := economy.CheckSellGate(f.params, f.meters); errors.As(err, &gate) {
		v.SellBlockers = gate.Reasons
	} else {
		v.SellOK = true
	}
	v.Hint = advisor.LiveHint(f.params, f.practices)
	v.Recommendations = advisor.Recommendations(f.situationLocked(), 3)

	for row := 1; row <= f.rows; row++ {
		for col := 1; col <= f.cols; col++ {
			k := PlotKey{row, col}
			p := f.peek(k)
			v.Plots = append(v.Plots, PlotView{
				Key:             k.String(),
				Row:             row,
				Col:             col,
				State:           p.State(),
				Crop:            p.Crop,
				Stage:           p.Stage,
				Watered:         p.Watered,
				Assets:          p.Assets,
				PlantingPenalty: p.PlantingPenalty,
				WaterCost:       agronomy.WaterCost(p.Assets, f.hubEfficiency(k)),
			})
		}
	}
	return v
}
