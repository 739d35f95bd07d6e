package farm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/valley-farm/internal/agronomy"
	"github.com/talgya/valley-farm/internal/assets"
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
)

// SnapshotVersion is the current persisted document version.
const SnapshotVersion = 1

// PlotRecord is the persisted form of a plot.
type PlotRecord struct {
	Crop               crops.ID        `json:"crop,omitempty"`
	Stage              int             `json:"stage"`
	PlantedTime        *int64          `json:"plantedTime,omitempty" jsonschema:"description=unix milliseconds"`
	Watered            bool            `json:"watered"`
	Ready              bool            `json:"ready"`
	Assets             map[string]bool `json:"assets"`
	SuitabilityPenalty float64         `json:"suitabilityPenalty,omitempty"`
}

// Snapshot is the complete persisted state of a farm.
type Snapshot struct {
	Version           int                   `json:"version"`
	ID                string                `json:"id"`
	CreatedAt         time.Time             `json:"createdAt"`
	SavedAt           time.Time             `json:"savedAt"`
	SoilType          string                `json:"soilType"`
	Rows              int                   `json:"rows"`
	Cols              int                   `json:"cols"`
	Resources         economy.Resources     `json:"resources"`
	Params            agronomy.Params       `json:"params"`
	Practices         agronomy.Practices    `json:"practices"`
	FertilizerType    agronomy.Fertilizer   `json:"fertilizerType"`
	SelectedCrop      crops.ID              `json:"selectedCrop"`
	Plots             map[string]PlotRecord `json:"plots"`
	Inventory         economy.Inventory     `json:"inventory"`
	PriceMap          economy.PriceMap      `json:"priceMap"`
	LastPriceMap      economy.PriceMap      `json:"lastPriceMap"`
	Storage           economy.Storage       `json:"storage"`
	Capacities        economy.Capacities    `json:"capacities"`
	SustainableAssets map[string]int        `json:"sustainableAssets"`
	GlobalAssetCounts assets.GlobalCounts   `json:"globalAssetCounts"`
	Meters            economy.Meters        `json:"meters"`
	News              []string              `json:"news"`
}

// Snapshot captures the farm's state.
func (f *Farm) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Farm) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:           SnapshotVersion,
		ID:                f.id,
		CreatedAt:         f.createdAt,
		SavedAt:           f.sched.Now(),
		SoilType:          f.soil,
		Rows:              f.rows,
		Cols:              f.cols,
		Resources:         f.res,
		Params:            f.params,
		Practices:         f.practices,
		FertilizerType:    f.fertilizer,
		SelectedCrop:      f.selected,
		Plots:             make(map[string]PlotRecord, len(f.plots)),
		Inventory:         f.inventory.Clone(),
		PriceMap:          f.priceMap.Clone(),
		LastPriceMap:      f.lastPrices.Clone(),
		Storage:           economy.Storage{Silo: f.storage.Silo.Clone(), Barn: f.storage.Barn.Clone()},
		Capacities:        f.capacities,
		SustainableAssets: make(map[string]int, len(f.stock)),
		GlobalAssetCounts: f.global,
		Meters:            f.meters,
		News:              f.news.Items(),
	}
	for k, p := range f.plots {
		rec := PlotRecord{
			Crop:               p.Crop,
			Stage:              p.Stage,
			Watered:            p.Watered,
			Ready:              p.Ready,
			Assets:             p.Assets.Map(),
			SuitabilityPenalty: p.PlantingPenalty,
		}
		if !p.PlantedAt.IsZero() {
			ms := p.PlantedAt.UnixMilli()
			rec.PlantedTime = &ms
		}
		s.Plots[k.String()] = rec
	}
	for _, k := range f.stock.Keys() {
		s.SustainableAssets[k.String()] = f.stock[k]
	}
	return s
}

// Encode serializes a snapshot.
func (s Snapshot) Encode() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot parses a persisted document.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version > SnapshotVersion {
		return Snapshot{}, fmt.Errorf("decode snapshot: unsupported version %d", s.Version)
	}
	return s, nil
}

// Restore rebuilds a farm from a snapshot. Derived fields (farm-wide asset
// counts and storage capacities) are recomputed from the plots rather than
// trusted; growth clocks restart for growing plots from their current stage.
// Options.ID, Soil, Rows and Cols are taken from the snapshot when set there.
func Restore(opts Options, s Snapshot) (*Farm, error) {
	if s.ID != "" {
		opts.ID = s.ID
	}
	if s.SoilType != "" {
		opts.Soil = s.SoilType
	}
	if s.Rows > 0 {
		opts.Rows = s.Rows
	}
	if s.Cols > 0 {
		opts.Cols = s.Cols
	}
	f := newFarm(opts)

	f.mu.Lock()
	defer f.unlock()

	if !s.CreatedAt.IsZero() {
		f.createdAt = s.CreatedAt
	}
	f.res = s.Resources
	f.res.Normalize()
	f.params = s.Params
	if f.params.Weather == "" {
		f.params.Weather = agronomy.Normal
	}
	if f.params.PH == 0 {
		f.params.PH = agronomy.DefaultParams().PH
	}
	f.params.Clamp()
	f.practices = s.Practices
	if fert, err := agronomy.ParseFertilizer(string(s.FertilizerType)); err == nil {
		f.fertilizer = fert
	}
	if _, ok := f.table.Rule(s.SelectedCrop); ok {
		f.selected = s.SelectedCrop
	}

	for key, rec := range s.Plots {
		k, err := ParsePlotKey(key)
		if err != nil {
			return nil, fmt.Errorf("restore farm %s: %w", f.id, err)
		}
		if f.checkKey("restore", k) != nil {
			slog.Warn("dropping plot outside grid", "farm", f.id, "plot", key)
			continue
		}
		p := &Plot{
			Crop:            rec.Crop,
			Stage:           min(crops.Stages, max(0, rec.Stage)),
			Watered:         rec.Watered,
			Ready:           rec.Ready,
			Assets:          assets.SetFromMap(rec.Assets),
			PlantingPenalty: rec.SuitabilityPenalty,
		}
		if rec.PlantedTime != nil {
			p.PlantedAt = time.UnixMilli(*rec.PlantedTime)
		}
		if p.Crop == "" {
			p.clear()
		} else {
			p.Stage = max(1, p.Stage)
			if p.Stage >= crops.Stages {
				p.Ready = true
			}
			if p.Ready {
				p.Stage = crops.Stages
			}
			if p.PlantingPenalty != 0 {
				p.PlantingPenalty = agronomy.ClampRange(p.PlantingPenalty,
					agronomy.MinPlantingPenalty, agronomy.MaxPlantingPenalty)
			}
		}
		f.plots[k] = p
	}

	f.stock = assets.Stock{}
	for key, n := range s.SustainableAssets {
		if kind, err := assets.Parse(key); err == nil {
			f.stock[kind] = n
		}
	}
	f.stock.Normalize()
	f.recountAssets()

	f.inventory = s.Inventory.Clone()
	if f.inventory == nil {
		f.inventory = economy.Inventory{}
	}
	f.storage = economy.NewStorage()
	if s.Storage.Silo != nil {
		f.storage.Silo = s.Storage.Silo.Clone()
	}
	if s.Storage.Barn != nil {
		f.storage.Barn = s.Storage.Barn.Clone()
	}
	f.priceMap = s.PriceMap.Clone()
	f.lastPrices = s.LastPriceMap.Clone()
	f.meters = s.Meters
	if f.meters == (economy.Meters{}) {
		f.meters = economy.DefaultMeters()
	}
	f.meters.Normalize()
	f.news = economy.NewNewsLog(economy.NewsLimit, s.News)
	if f.news.Len() == 0 {
		f.news.Add(economy.WelcomeNews)
	}

	growing := 0
	for _, k := range f.sortedKeys() {
		if f.plots[k].State() == Growing {
			f.startGrowthLocked(k)
			growing++
		}
	}
	slog.Info("farm restored", "id", f.id, "plots", len(f.plots), "growing", growing,
		"coins", f.res.Coins, "saved", s.SavedAt)
	return f, nil
}
