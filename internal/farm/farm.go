// Package farm owns the complete state of one farm: plots and their growth
// clocks, the resource ledger, environmental parameters, asset stock,
// inventory, storage, market prices and the news log. All mutation goes
// through named actions that enforce the game's invariants under one lock.
package farm

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/valley-farm/internal/advisor"
	"github.com/talgya/valley-farm/internal/agronomy"
	"github.com/talgya/valley-farm/internal/assets"
	"github.com/talgya/valley-farm/internal/clock"
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
	"github.com/talgya/valley-farm/internal/pricing"
)

// Default grid size.
const (
	DefaultRows = 4
	DefaultCols = 6
)

// Options wires a farm to its collaborators. Zero values get defaults.
type Options struct {
	ID        string
	Soil      string
	Rows      int
	Cols      int
	Crops     *crops.Table
	Scheduler clock.Scheduler
	Rand      agronomy.IntN

	// Prices is the remote price source; nil means fallback prices only.
	Prices         pricing.Source
	FallbackPrices pricing.Source

	// Mentor answers questions; nil means the fixed fallback tip.
	Mentor advisor.Service

	// OnEvent receives every event after the farm lock is released.
	OnEvent func(Event)
}

func (o *Options) defaults() {
	if o.Soil == "" {
		o.Soil = "alluvial"
	}
	if o.Rows <= 0 {
		o.Rows = DefaultRows
	}
	if o.Cols <= 0 {
		o.Cols = DefaultCols
	}
	if o.Crops == nil {
		o.Crops = crops.Default()
	}
	if o.Scheduler == nil {
		o.Scheduler = clock.Real{}
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	if o.FallbackPrices == nil {
		o.FallbackPrices = pricing.NewFallback(o.Crops, time.Now().UnixNano())
	}
}

// Farm is the state-owning simulation of a single farm.
type Farm struct {
	mu sync.Mutex

	id        string
	createdAt time.Time
	soil      string
	rows      int
	cols      int

	table    *crops.Table
	sched    clock.Scheduler
	rng      agronomy.IntN
	prices   pricing.Source
	fallback pricing.Source
	mentor   advisor.Service
	onEvent  func(Event)

	res        economy.Resources
	params     agronomy.Params
	practices  agronomy.Practices
	fertilizer agronomy.Fertilizer
	selected   crops.ID

	plots  map[PlotKey]*Plot
	clocks map[PlotKey]*growthClock
	epoch  uint64

	stock      assets.Stock
	global     assets.GlobalCounts
	inventory  economy.Inventory
	storage    economy.Storage
	capacities economy.Capacities
	meters     economy.Meters
	priceMap   economy.PriceMap
	lastPrices economy.PriceMap
	news       *economy.NewsLog

	rev     uint64
	pending []Event
	closed  bool
}

func newFarm(opts Options) *Farm {
	opts.defaults()
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	f := &Farm{
		id:         id,
		createdAt:  opts.Scheduler.Now(),
		soil:       opts.Soil,
		rows:       opts.Rows,
		cols:       opts.Cols,
		table:      opts.Crops,
		sched:      opts.Scheduler,
		rng:        opts.Rand,
		prices:     opts.Prices,
		fallback:   opts.FallbackPrices,
		mentor:     opts.Mentor,
		onEvent:    opts.OnEvent,
		res:        economy.StartingResources,
		params:     agronomy.DefaultParams(),
		fertilizer: agronomy.Natural,
		selected:   "rice",
		plots:      make(map[PlotKey]*Plot),
		clocks:     make(map[PlotKey]*growthClock),
		stock:      assets.DefaultStock(),
		inventory:  economy.Inventory{},
		storage:    economy.NewStorage(),
		meters:     economy.DefaultMeters(),
		priceMap:   economy.PriceMap{},
		lastPrices: economy.PriceMap{},
		news:       economy.NewNewsLog(economy.NewsLimit, nil),
	}
	f.capacities = economy.CapacitiesFor(f.global)
	return f
}

// New creates a fresh farm with the baseline economy applied.
func New(opts Options) *Farm {
	f := newFarm(opts)
	f.res.ApplyBaseline(f.stock.Units())
	f.news.Add(economy.WelcomeNews)
	slog.Info("farm created", "id", f.id, "soil", f.soil, "grid", fmt.Sprintf("%dx%d", f.rows, f.cols),
		"seeds", f.res.Seeds, "coins", f.res.Coins)
	return f
}

// ID returns the farm's identifier.
func (f *Farm) ID() string {
	return f.id
}

// Revision increases with every state change.
func (f *Farm) Revision() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rev
}

// Resources returns the current ledger.
func (f *Farm) Resources() economy.Resources {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.res
}

// Params returns the current environmental parameters.
func (f *Farm) Params() agronomy.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params
}

// Plot returns a copy of the plot at row, col (the empty default if never touched).
func (f *Farm) Plot(row, col int) (Plot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := PlotKey{row, col}
	if err := f.checkKey("plot", k); err != nil {
		return Plot{}, err
	}
	if p, ok := f.plots[k]; ok {
		return *p, nil
	}
	return Plot{}, nil
}

// Close stops every growth clock. Further timer callbacks are ignored.
func (f *Farm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.clocks {
		f.stopGrowthLocked(k)
	}
	f.closed = true
}

// unlock releases the lock and delivers queued events outside it.
func (f *Farm) unlock() {
	events := f.pending
	f.pending = nil
	hook := f.onEvent
	f.mu.Unlock()
	if hook == nil {
		return
	}
	for _, ev := range events {
		hook(ev)
	}
}

// touch records a state change and queues an event.
func (f *Farm) touch(kind EventKind, plot, msg string) {
	f.rev++
	f.emit(kind, plot, msg)
}

func (f *Farm) emit(kind EventKind, plot, msg string) {
	f.pending = append(f.pending, Event{Kind: kind, Plot: plot, Message: msg, At: f.sched.Now(), Revision: f.rev})
}

func (f *Farm) addNews(text string) {
	f.news.Add(text)
	f.emit(EventNews, "", text)
}

func (f *Farm) reject(op string, kind error, reason string) error {
	slog.Info("action rejected", "farm", f.id, "op", op, "kind", KindName(kind), "reason", reason)
	f.emit(EventRejected, "", reason)
	return &ActionError{Op: op, Kind: kind, Reason: reason}
}

func (f *Farm) checkKey(op string, k PlotKey) error {
	if k.Row < 1 || k.Row > f.rows || k.Col < 1 || k.Col > f.cols {
		return &ActionError{Op: op, Kind: ErrInvalidInput,
			Reason: fmt.Sprintf("Plot %s is outside the %dx%d farm.", k, f.rows, f.cols)}
	}
	return nil
}

// plot returns the plot at k, creating the empty default on first access.
func (f *Farm) plot(k PlotKey) *Plot {
	p, ok := f.plots[k]
	if !ok {
		p = &Plot{}
		f.plots[k] = p
	}
	return p
}

// peek returns the plot at k without creating it.
func (f *Farm) peek(k PlotKey) Plot {
	if p, ok := f.plots[k]; ok {
		return *p
	}
	return Plot{}
}

func (f *Farm) hubEfficiency(k PlotKey) float64 {
	var sets []assets.Set
	for _, n := range k.Neighbors() {
		if p, ok := f.plots[n]; ok {
			sets = append(sets, p.Assets)
		}
	}
	return agronomy.HubEfficiency(sets)
}

// recountAssets recomputes farm-wide counts and storage capacities from every plot.
func (f *Farm) recountAssets() {
	sets := make([]assets.Set, 0, len(f.plots))
	for _, p := range f.plots {
		sets = append(sets, p.Assets)
	}
	f.global = assets.CountFarmWide(sets)
	f.capacities = economy.CapacitiesFor(f.global)
}

func (f *Farm) sortedKeys() []PlotKey {
	keys := make([]PlotKey, 0, len(f.plots))
	for k := range f.plots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Row == keys[j].Row {
			return keys[i].Col < keys[j].Col
		}
		return keys[i].Row < keys[j].Row
	})
	return keys
}
