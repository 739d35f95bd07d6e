// Package report exports the farm ledger as an .xlsx workbook.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
	"github.com/talgya/valley-farm/internal/farm"
)

// Sheet names.
const (
	SheetSummary = "Summary"
	SheetPlots   = "Plots"
	SheetStock   = "Inventory"
	SheetPrices  = "Prices"
	SheetNews    = "News"
)

// Build lays out the view across one sheet per ledger.
func Build(v farm.View) (*excelize.File, error) {
	x := excelize.NewFile()
	if err := x.SetSheetName("Sheet1", SheetSummary); err != nil {
		x.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetPlots, SheetStock, SheetPrices, SheetNews} {
		if _, err := x.NewSheet(name); err != nil {
			x.Close()
			return nil, fmt.Errorf("add sheet %s: %w", name, err)
		}
	}

	w := &writer{x: x}
	w.summary(v)
	w.plots(v)
	w.inventory(v)
	w.prices(v)
	w.news(v)
	if w.err != nil {
		x.Close()
		return nil, w.err
	}
	return x, nil
}

// Write streams the workbook for v to out.
func Write(out io.Writer, v farm.View) error {
	x, err := Build(v)
	if err != nil {
		return err
	}
	defer x.Close()
	if _, err := x.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writer keeps the first error so sheet builders read straight through.
type writer struct {
	x   *excelize.File
	err error
}

func (w *writer) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.x.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("%s row %d: %w", sheet, n, err)
	}
}

func (w *writer) summary(v farm.View) {
	s := SheetSummary
	w.row(s, 1, "Field", "Value")
	rows := [][]any{
		{"Farm", v.ID},
		{"Soil", v.Soil},
		{"Grid", fmt.Sprintf("%dx%d", v.Rows, v.Cols)},
		{"Seeds", v.Resources.Seeds},
		{"Coins", v.Resources.Coins},
		{"Water", v.Resources.Water},
		{"Soil health", v.Params.SoilHealth},
		{"Groundwater", v.Params.Groundwater},
		{"pH", v.Params.PH},
		{"Weather", string(v.Params.Weather)},
		{"Fertilizer", string(v.Fertilizer)},
		{"Yield meter", v.Meters.Yield},
		{"Quality meter", v.Meters.Quality},
		{"Silo capacity", v.Capacities.Silo},
		{"Barn capacity", v.Capacities.Barn},
	}
	for i, r := range rows {
		w.row(s, i+2, r...)
	}
}

func (w *writer) plots(v farm.View) {
	s := SheetPlots
	w.row(s, 1, "Plot", "State", "Crop", "Stage", "Watered", "Assets", "Planting penalty", "Water cost")
	for i, p := range v.Plots {
		var names []string
		for _, k := range p.Assets.Kinds() {
			names = append(names, k.String())
		}
		w.row(s, i+2, p.Key, string(p.State), string(p.Crop), p.Stage, p.Watered,
			strings.Join(names, ", "), p.PlantingPenalty, p.WaterCost)
	}
}

func (w *writer) inventory(v farm.View) {
	s := SheetStock
	w.row(s, 1, "Location", "Crop", "Kg")
	n := 2
	bins := []struct {
		name string
		inv  economy.Inventory
	}{
		{"inventory", v.Inventory},
		{"silo", v.Storage.Silo},
		{"barn", v.Storage.Barn},
	}
	for _, b := range bins {
		for _, id := range b.inv.IDs() {
			w.row(s, n, b.name, string(id), b.inv[id])
			n++
		}
	}
	kinds := make([]string, 0, len(v.Stock))
	for k := range v.Stock {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		w.row(s, n, "asset stock", k, v.Stock[k])
		n++
	}
}

func (w *writer) prices(v farm.View) {
	s := SheetPrices
	w.row(s, 1, "Crop", "Price (₹/kg)")
	ids := make([]crops.ID, 0, len(v.Prices))
	for id := range v.Prices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		w.row(s, i+2, string(id), v.Prices[id])
	}
}

func (w *writer) news(v farm.View) {
	s := SheetNews
	w.row(s, 1, "#", "Headline")
	for i, line := range v.News {
		w.row(s, i+2, i+1, line)
	}
}
