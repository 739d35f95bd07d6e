package farm

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/talgya/valley-farm/internal/advisor"
	"github.com/talgya/valley-farm/internal/agronomy"
	"github.com/talgya/valley-farm/internal/assets"
	"github.com/talgya/valley-farm/internal/clock"
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
)

var testStart = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

type fixedRand int

func (r fixedRand) IntN(n int) int { return int(r) % n }

type staticPrices economy.PriceMap

func (s staticPrices) Prices(context.Context, []crops.ID) (economy.PriceMap, error) {
	return economy.PriceMap(s).Clone(), nil
}

type failingMentor struct{}

func (failingMentor) Ask(context.Context, advisor.Request) (advisor.Response, error) {
	return advisor.Response{}, errors.New("mentor down")
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func newTestFarm(t *testing.T) (*Farm, *clock.Manual, *recorder) {
	t.Helper()
	clk := clock.NewManual(testStart)
	rec := &recorder{}
	f := New(Options{
		ID:             "test-farm",
		Scheduler:      clk,
		Rand:           fixedRand(2),
		FallbackPrices: staticPrices{"rice": 40, "wheat": 25},
		OnEvent:        rec.add,
	})
	t.Cleanup(f.Close)
	return f, clk, rec
}

func TestNewFarmBaseline(t *testing.T) {
	f, _, _ := newTestFarm(t)
	res := f.Resources()
	if res.Seeds != 1060 || res.Coins != 170 || res.Water != 95 {
		t.Fatalf("unexpected baseline resources %+v", res)
	}
	if got := f.View().News; len(got) != 1 || got[0] != economy.WelcomeNews {
		t.Fatalf("expected welcome news, got %v", got)
	}
}

func TestScenarioAPlantRice(t *testing.T) {
	f, clk, _ := newTestFarm(t)
	f.res = economy.Resources{Seeds: 1000, Coins: 100, Water: 95}

	res, err := f.Plant(1, 1, "rice")
	if err != nil {
		t.Fatalf("plant: %v", err)
	}
	if res.Crop != "rice" || res.SeedCost != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	p, _ := f.Plot(1, 1)
	if p.Stage != 1 || p.Ready || p.Watered || !p.PlantedAt.Equal(testStart) {
		t.Fatalf("unexpected plot %+v", p)
	}
	if p.PlantingPenalty != 1.02 {
		t.Fatalf("expected planting penalty 1.02 got %v", p.PlantingPenalty)
	}
	got := f.Resources()
	if got.Seeds != 999 || got.Coins != 99 {
		t.Fatalf("expected seeds 999 coins 99, got %+v", got)
	}
	if clk.Pending() != 1 {
		t.Fatalf("expected one growth clock, got %d", clk.Pending())
	}
}

func TestPlantFailuresLeaveResourcesUnchanged(t *testing.T) {
	f, clk, _ := newTestFarm(t)

	cases := []struct {
		name string
		res  economy.Resources
	}{
		{"no seeds", economy.Resources{Seeds: 0, Coins: 100, Water: 50}},
		{"no coins", economy.Resources{Seeds: 10, Coins: 0, Water: 50}},
	}
	for _, c := range cases {
		f.res = c.res
		_, err := f.Plant(1, 1, "rice")
		if !errors.Is(err, ErrInsufficientResource) {
			t.Fatalf("%s: expected insufficient resource, got %v", c.name, err)
		}
		if f.Resources() != c.res {
			t.Fatalf("%s: resources changed to %+v", c.name, f.Resources())
		}
		if p, _ := f.Plot(1, 1); p.State() != Empty {
			t.Fatalf("%s: plot should stay empty", c.name)
		}
	}
	if clk.Pending() != 0 {
		t.Fatalf("no clock should be running")
	}
}

func TestPlantRejections(t *testing.T) {
	f, _, _ := newTestFarm(t)

	if _, err := f.Plant(0, 1, "rice"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for out-of-grid plot, got %v", err)
	}
	_, err := f.Plant(1, 1, "whaet")
	if !errors.Is(err, ErrInvalidInput) || !strings.Contains(Reason(err), "wheat") {
		t.Fatalf("expected suggestion for misspelled crop, got %v", err)
	}
	_, err = f.Plant(1, 1, "tea")
	if !errors.Is(err, ErrUnsuitableConditions) {
		t.Fatalf("expected tea to be gated on alluvial soil, got %v", err)
	}
	if _, err := f.Plant(1, 1, "rice"); err != nil {
		t.Fatalf("plant: %v", err)
	}
	_, err = f.Plant(1, 1, "wheat")
	if !errors.Is(err, ErrInvalidState) || Reason(err) != "This plot already has crops growing!" {
		t.Fatalf("expected growing rejection, got %v", err)
	}
}

func TestScenarioBWater(t *testing.T) {
	f, _, _ := newTestFarm(t)
	if _, err := f.Plant(1, 1, "wheat"); err != nil {
		t.Fatalf("plant: %v", err)
	}
	f.params.Groundwater = 0.6
	before := f.Resources().Water

	res, err := f.Water(1, 1)
	if err != nil {
		t.Fatalf("water: %v", err)
	}
	if res.Cost != 5 || f.Resources().Water != before-5 {
		t.Fatalf("expected cost 5, got %d (water %d -> %d)", res.Cost, before, f.Resources().Water)
	}
	p, _ := f.Plot(1, 1)
	if !p.Watered || p.Stage != 2 {
		t.Fatalf("expected watered plot at stage 2, got %+v", p)
	}
	if gw := f.Params().Groundwater; gw < 0.619 || gw > 0.621 {
		t.Fatalf("expected groundwater ~0.62 got %v", gw)
	}
}

func TestWaterRequiresCropAndWater(t *testing.T) {
	f, _, _ := newTestFarm(t)
	if _, err := f.Water(1, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected invalid state on empty plot, got %v", err)
	}
	if _, err := f.Plant(1, 1, "wheat"); err != nil {
		t.Fatalf("plant: %v", err)
	}
	f.res.Water = 4
	if _, err := f.Water(1, 1); !errors.Is(err, ErrInsufficientResource) {
		t.Fatalf("expected insufficient water, got %v", err)
	}
	if f.Resources().Water != 4 {
		t.Fatalf("water should be unchanged")
	}
}

func TestScenarioCGrowthClock(t *testing.T) {
	f, clk, rec := newTestFarm(t)
	if _, err := f.Plant(1, 1, "rice"); err != nil {
		t.Fatalf("plant: %v", err)
	}

	clk.Advance(11 * time.Second)
	if p, _ := f.Plot(1, 1); p.Stage != 3 || p.Ready {
		t.Fatalf("expected stage 3 before maturity, got %+v", p)
	}

	clk.Advance(4 * time.Second)
	p, _ := f.Plot(1, 1)
	if p.Stage != crops.Stages || !p.Ready {
		t.Fatalf("expected ready at stage 4, got %+v", p)
	}
	if rec.count(EventReady) != 1 {
		t.Fatalf("expected exactly one ready event, got %d", rec.count(EventReady))
	}
	if clk.Pending() != 0 {
		t.Fatalf("growth clock should stop after maturity, %d pending", clk.Pending())
	}

	rev := f.Revision()
	clk.Advance(time.Minute)
	if f.Revision() != rev || rec.count(EventReady) != 1 {
		t.Fatalf("no state change expected after maturity")
	}
}

func TestNudgeToReadyStopsClock(t *testing.T) {
	f, clk, rec := newTestFarm(t)
	if _, err := f.Plant(1, 1, "wheat"); err != nil {
		t.Fatalf("plant: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.Water(1, 1); err != nil {
			t.Fatalf("water %d: %v", i, err)
		}
	}
	res, err := f.Fertilize(1, 1)
	if err != nil {
		t.Fatalf("fertilize: %v", err)
	}
	if !res.Ready || res.Stage != 4 {
		t.Fatalf("expected fertilize to finish growth, got %+v", res)
	}
	if clk.Pending() != 0 {
		t.Fatalf("expected clock stopped, %d pending", clk.Pending())
	}
	clk.Advance(time.Minute)
	if p, _ := f.Plot(1, 1); p.Stage != 4 || !p.Ready {
		t.Fatalf("unexpected plot %+v", p)
	}
	if rec.count(EventGrew) != 0 || rec.count(EventReady) != 0 {
		t.Fatalf("stale timers must not fire")
	}
}

func TestReplantRunsSingleClock(t *testing.T) {
	f, clk, _ := newTestFarm(t)
	if _, err := f.Plant(1, 1, "rice"); err != nil {
		t.Fatalf("plant: %v", err)
	}
	clk.Advance(15 * time.Second)
	if _, err := f.Harvest(1, 1); err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if _, err := f.Plant(1, 1, "rice"); err != nil {
		t.Fatalf("replant: %v", err)
	}
	if clk.Pending() != 1 {
		t.Fatalf("expected a single clock after replant, got %d", clk.Pending())
	}

	// A restart on the same plot replaces the pending timer.
	f.mu.Lock()
	f.startGrowthLocked(PlotKey{1, 1})
	f.mu.Unlock()
	if clk.Pending() != 1 {
		t.Fatalf("expected a single clock after restart, got %d", clk.Pending())
	}
	clk.Advance(15 * time.Second)
	if p, _ := f.Plot(1, 1); p.Stage != 4 {
		t.Fatalf("expected stage 4, got %d", p.Stage)
	}
}

func TestHarvest(t *testing.T) {
	f, clk, _ := newTestFarm(t)
	if _, err := f.Harvest(1, 1); !errors.Is(err, ErrInvalidState) || Reason(err) != "Nothing to harvest here!" {
		t.Fatalf("expected empty harvest rejection, got %v", err)
	}
	if _, err := f.Plant(1, 1, "rice"); err != nil {
		t.Fatalf("plant: %v", err)
	}
	if _, err := f.Harvest(1, 1); !errors.Is(err, ErrInvalidState) || Reason(err) != "Crop not ready yet!" {
		t.Fatalf("expected not-ready rejection, got %v", err)
	}
	clk.Advance(15 * time.Second)

	coins := f.Resources().Coins
	res, err := f.Harvest(1, 1)
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if res.BaseKg != 5 || res.QuantityKg < 1 {
		t.Fatalf("unexpected yield %+v", res.YieldResult)
	}
	if res.Multiplier < agronomy.MinYieldMultiplier || res.Multiplier > agronomy.MaxYieldMultiplier {
		t.Fatalf("multiplier out of bounds: %v", res.Multiplier)
	}
	if res.Price != 35 {
		t.Fatalf("expected base price 35 without a price refresh, got %v", res.Price)
	}
	if f.Resources().Coins != coins+res.Coins {
		t.Fatalf("coins not credited")
	}
	if f.View().Inventory["rice"] != res.QuantityKg {
		t.Fatalf("inventory not credited")
	}
	if p, _ := f.Plot(1, 1); p.State() != Empty {
		t.Fatalf("plot should be reset, got %+v", p)
	}
}

func TestScenarioDInstall(t *testing.T) {
	f, _, _ := newTestFarm(t)
	f.res.Coins = 100

	if err := f.InstallAsset(2, 3, "drip"); err != nil {
		t.Fatalf("install: %v", err)
	}
	if f.stock[assets.Drip] != 1 || f.Resources().Coins != 75 {
		t.Fatalf("expected stock 1 coins 75, got %d / %d", f.stock[assets.Drip], f.Resources().Coins)
	}
	if p, _ := f.Plot(2, 3); !p.Assets.Has(assets.Drip) {
		t.Fatalf("drip not installed")
	}

	err := f.InstallAsset(2, 3, "drip-irrigation")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected already-installed rejection, got %v", err)
	}
	if f.stock[assets.Drip] != 1 || f.Resources().Coins != 75 {
		t.Fatalf("state changed on rejected install")
	}
}

func TestInstallWithoutStock(t *testing.T) {
	f, _, _ := newTestFarm(t)
	f.stock[assets.Drip] = 0
	coins := f.Resources().Coins

	if err := f.InstallAsset(1, 1, "drip"); !errors.Is(err, ErrInsufficientResource) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if f.stock[assets.Drip] != 0 || f.Resources().Coins != coins {
		t.Fatalf("stock or coins changed")
	}
}

func TestRemoveAsset(t *testing.T) {
	f, _, _ := newTestFarm(t)

	if err := f.RemoveAsset(1, 1, "compost"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected not-installed rejection, got %v", err)
	}
	if f.stock[assets.Compost] != 2 {
		t.Fatalf("stock changed on failed remove")
	}

	if err := f.InstallAsset(1, 1, "compost"); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := f.InstallAsset(1, 1, "solar"); err != nil {
		t.Fatalf("install: %v", err)
	}
	coins := f.Resources().Coins
	if f.View().Capacities.Silo != 110 {
		t.Fatalf("expected silo capacity 110 with one solar")
	}

	if err := f.RemoveAsset(1, 1, "compost"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if f.stock[assets.Compost] != 2 || f.Resources().Coins != coins {
		t.Fatalf("expected stock restored without refund, stock=%d coins=%d", f.stock[assets.Compost], f.Resources().Coins)
	}

	kind, err := f.RemoveOneAsset(1, 1)
	if err != nil || kind != assets.Solar {
		t.Fatalf("expected solar removed, got %v %v", kind, err)
	}
	if f.View().Global.Solar != 0 || f.View().Capacities.Silo != economy.BaseCapacity {
		t.Fatalf("farm-wide counts not recomputed")
	}
	if _, err := f.RemoveOneAsset(1, 1); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected nothing to remove, got %v", err)
	}
}

func TestScenarioESellGated(t *testing.T) {
	f, _, _ := newTestFarm(t)
	f.inventory.Add("rice", 5)
	f.params.SoilHealth = 0.3
	coins := f.Resources().Coins

	_, err := f.Sell("rice", 5, "local-market")
	if !errors.Is(err, ErrUnsuitableConditions) || !strings.HasPrefix(Reason(err), "Sale denied:") {
		t.Fatalf("expected gated sale, got %v", err)
	}
	if f.inventory["rice"] != 5 || f.Resources().Coins != coins {
		t.Fatalf("inventory or coins changed on denied sale")
	}
}

func TestSellThroughChannel(t *testing.T) {
	f, _, _ := newTestFarm(t)
	f.inventory.Add("rice", 8)
	coins := f.Resources().Coins

	res, err := f.Sell("rice", 5, "local-market")
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if res.Coins != 55 || res.Receipt == "" {
		t.Fatalf("unexpected sale %+v", res)
	}
	if f.Resources().Coins != coins+55 || f.inventory["rice"] != 3 {
		t.Fatalf("ledger not updated")
	}
	if res.Meters.Yield != 80 {
		t.Fatalf("expected yield meter 80 got %d", res.Meters.Yield)
	}

	if _, err := f.Sell("rice", 4, "local-market"); !errors.Is(err, ErrInsufficientResource) {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
	if _, err := f.Sell("rice", 1, "bazaar"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected bad channel, got %v", err)
	}
}

func TestSellAll(t *testing.T) {
	f, _, _ := newTestFarm(t)
	if _, err := f.SellAll(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected nothing to sell, got %v", err)
	}
	f.inventory.Add("rice", 4)
	f.inventory.Add("potato", 2)
	coins := f.Resources().Coins

	res, err := f.SellAll()
	if err != nil {
		t.Fatalf("sell all: %v", err)
	}
	if res.Coins != 4*35+2*20 || res.Kg != 6 {
		t.Fatalf("unexpected sale %+v", res)
	}
	if f.Resources().Coins != coins+res.Coins || f.inventory.Total() != 0 {
		t.Fatalf("ledger not updated")
	}
	news := f.View().News
	if news[len(news)-1] != economy.SaleNews(res.Coins) {
		t.Fatalf("expected sale headline, got %v", news)
	}
}

func TestStorage(t *testing.T) {
	f, _, _ := newTestFarm(t)
	f.inventory.Add("rice", 30)
	f.inventory.Add("wheat", 20)
	f.inventory.Add("potato", 10)

	res, err := f.StoreCereals()
	if err != nil {
		t.Fatalf("store cereals: %v", err)
	}
	if res.Total != 50 || res.Used != 50 || res.Cap != economy.BaseCapacity {
		t.Fatalf("unexpected store result %+v", res)
	}
	if _, err := f.StoreCereals(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected nothing left to store, got %v", err)
	}
	res, err = f.StoreProduce()
	if err != nil || res.Moved["potato"] != 10 {
		t.Fatalf("store produce: %+v %v", res, err)
	}
	if f.inventory.Total() != 0 {
		t.Fatalf("inventory should be empty")
	}
}

func TestGovernmentSupport(t *testing.T) {
	f, _, _ := newTestFarm(t)
	if _, err := f.ApplyGovernmentSupport(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ineligible, got %v", err)
	}
	f.res = economy.Resources{Seeds: 100, Coins: 10, Water: 50}
	res, err := f.ApplyGovernmentSupport()
	if err != nil {
		t.Fatalf("support: %v", err)
	}
	if res.Coins != 110 || res.Seeds != 150 || res.Water != 100 {
		t.Fatalf("unexpected grant %+v", res)
	}
}

func TestBuySeeds(t *testing.T) {
	f, _, _ := newTestFarm(t)
	f.res = economy.Resources{Seeds: 0, Coins: 10, Water: 0}
	res, err := f.BuySeeds(5)
	if err != nil || res.Seeds != 5 || res.Coins != 0 {
		t.Fatalf("buy seeds: %+v %v", res, err)
	}
	if _, err := f.BuySeeds(1); !errors.Is(err, ErrInsufficientResource) {
		t.Fatalf("expected insufficient coins, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	f, _, _ := newTestFarm(t)

	if ph, err := f.SetPH(12); err != nil || ph != agronomy.MaxPH {
		t.Fatalf("expected pH clamped to %v, got %v %v", agronomy.MaxPH, ph, err)
	}
	if err := f.SetWeather("drought"); err != nil || f.Params().Weather != agronomy.Drought {
		t.Fatalf("set weather: %v", err)
	}
	if err := f.SetWeather("tornado"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid weather, got %v", err)
	}
	on, err := f.TogglePractice("mulching")
	if err != nil || !on {
		t.Fatalf("toggle: %v %v", on, err)
	}
	if err := f.SetFertilizerType("artificial"); err != nil {
		t.Fatalf("fertilizer: %v", err)
	}
	if err := f.SetSoilType("Mountain"); err != nil || f.View().Soil != "mountain" {
		t.Fatalf("soil: %v", err)
	}
	if err := f.SelectCrop("pot"); err != nil || f.View().SelectedCrop != "potato" {
		t.Fatalf("select crop: %v", err)
	}

	gw := f.Params().Groundwater
	f.DecayTick()
	if got := f.Params().Groundwater; got >= gw {
		t.Fatalf("expected groundwater decay, %v -> %v", gw, got)
	}
}

func TestArtificialFertilizerIsSticky(t *testing.T) {
	f, _, _ := newTestFarm(t)
	if err := f.SetFertilizerType("artificial"); err != nil {
		t.Fatalf("fertilizer: %v", err)
	}
	if _, err := f.Plant(1, 1, "wheat"); err != nil {
		t.Fatalf("plant: %v", err)
	}
	coins := f.Resources().Coins
	res, err := f.Fertilize(1, 1)
	if err != nil || res.Cost != 2 || f.Resources().Coins != coins-2 {
		t.Fatalf("fertilize: %+v %v", res, err)
	}
	if !f.View().Practices.ExcessChemicalFertilizer {
		t.Fatalf("artificial fertilizer should flag excess chemical use")
	}
}

func TestParamsStayClamped(t *testing.T) {
	f, clk, _ := newTestFarm(t)
	f.rng = rand.New(rand.NewPCG(7, 11))
	rng := rand.New(rand.NewPCG(1, 2))
	ids := []string{"rice", "wheat", "potato", "maize"}
	kinds := assets.All()

	for i := 0; i < 3000; i++ {
		f.res = economy.Resources{Seeds: 1000, Coins: 1000, Water: 1000}
		row, col := 1+rng.IntN(DefaultRows), 1+rng.IntN(DefaultCols)
		switch rng.IntN(9) {
		case 0:
			f.Plant(row, col, ids[rng.IntN(len(ids))])
		case 1, 2:
			f.Water(row, col)
		case 3:
			f.Fertilize(row, col)
		case 4:
			f.Harvest(row, col)
		case 5:
			f.InstallAsset(row, col, kinds[rng.IntN(len(kinds))].String())
		case 6:
			f.RemoveOneAsset(row, col)
		case 7:
			f.SetWeather(string(agronomy.AllWeather[rng.IntN(len(agronomy.AllWeather))]))
		case 8:
			clk.Advance(time.Duration(rng.IntN(5000)) * time.Millisecond)
			f.DecayTick()
		}
		p := f.Params()
		if p.SoilHealth < 0 || p.SoilHealth > 1 || p.Groundwater < 0 || p.Groundwater > 1 {
			t.Fatalf("step %d: params out of range %+v", i, p)
		}
		if p.PH < agronomy.MinPH || p.PH > agronomy.MaxPH {
			t.Fatalf("step %d: pH out of range %v", i, p.PH)
		}
	}
}

func TestEventsDeliveredOutsideLock(t *testing.T) {
	clk := clock.NewManual(testStart)
	var f *Farm
	var revisions []uint64
	f = New(Options{Scheduler: clk, Rand: fixedRand(0), OnEvent: func(ev Event) {
		// Re-entering the farm from the hook must not deadlock.
		revisions = append(revisions, f.Revision())
	}})
	defer f.Close()

	if _, err := f.Plant(1, 1, "rice"); err != nil {
		t.Fatalf("plant: %v", err)
	}
	if _, err := f.Harvest(1, 2); err == nil {
		t.Fatalf("expected rejection")
	}
	if len(revisions) != 2 {
		t.Fatalf("expected planted and rejected events, got %d", len(revisions))
	}
}

func TestRefreshPrices(t *testing.T) {
	clk := clock.NewManual(testStart)
	src := &mutablePrices{prices: economy.PriceMap{"rice": 40}}
	f := New(Options{Scheduler: clk, Rand: fixedRand(0), Prices: src, FallbackPrices: staticPrices{"rice": 1}})
	defer f.Close()

	first, err := f.RefreshPrices(context.Background())
	if err != nil || first.Fallback || first.Prices["rice"] != 40 || len(first.News) != 0 {
		t.Fatalf("first refresh: %+v %v", first, err)
	}

	src.prices = economy.PriceMap{"rice": 45}
	second, err := f.RefreshPrices(context.Background())
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if second.Previous["rice"] != 40 || second.Prices["rice"] != 45 {
		t.Fatalf("unexpected refresh %+v", second)
	}
	if len(second.News) != 1 || second.News[0] != "Rice prices up ₹5/kg to ₹45." {
		t.Fatalf("unexpected news %v", second.News)
	}
	if snap := f.Snapshot(); snap.LastPriceMap["rice"] != 40 {
		t.Fatalf("lastPriceMap should hold the previous map")
	}
}

type brokenPrices struct{}

func (brokenPrices) Prices(context.Context, []crops.ID) (economy.PriceMap, error) {
	return nil, errors.New("timeout")
}

type mutablePrices struct {
	prices economy.PriceMap
}

func (m *mutablePrices) Prices(context.Context, []crops.ID) (economy.PriceMap, error) {
	return m.prices.Clone(), nil
}

func TestRefreshPricesFallsBack(t *testing.T) {
	f := New(Options{Scheduler: clock.NewManual(testStart), Rand: fixedRand(0),
		Prices: brokenPrices{}, FallbackPrices: staticPrices{"rice": 33}})
	defer f.Close()

	res, err := f.RefreshPrices(context.Background())
	if err != nil || !res.Fallback || res.Prices["rice"] != 33 {
		t.Fatalf("expected fallback prices, got %+v %v", res, err)
	}
}

func TestAskMentor(t *testing.T) {
	f, _, _ := newTestFarm(t)
	if got := f.AskMentor(context.Background(), ""); got.Answer != advisor.FallbackTip || !got.Fallback {
		t.Fatalf("expected fallback tip without a mentor, got %+v", got)
	}
	f.mentor = failingMentor{}
	if got := f.AskMentor(context.Background(), "how?"); !got.Fallback {
		t.Fatalf("expected fallback when the mentor fails")
	}
	f.mentor = advisor.Static("Mulch now.")
	if got := f.AskMentor(context.Background(), "how?"); got.Answer != "Mulch now." || got.Fallback {
		t.Fatalf("unexpected answer %+v", got)
	}
}

func TestSuccessProbability(t *testing.T) {
	f, _, _ := newTestFarm(t)
	p, err := f.SuccessProbability("rice", 1, 1)
	if err != nil || p <= 0 || p > 1 {
		t.Fatalf("probability: %v %v", p, err)
	}
	if _, err := f.SuccessProbability("quinoa", 1, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid crop, got %v", err)
	}
}

func TestViewCoversGrid(t *testing.T) {
	f, _, _ := newTestFarm(t)
	v := f.View()
	if len(v.Plots) != DefaultRows*DefaultCols {
		t.Fatalf("expected %d plots got %d", DefaultRows*DefaultCols, len(v.Plots))
	}
	if v.Plots[0].Key != "1-1" || v.Plots[0].WaterCost != agronomy.BaseWaterCost {
		t.Fatalf("unexpected first plot %+v", v.Plots[0])
	}
	if !v.SellOK || v.Hint == "" {
		t.Fatalf("expected default farm to be sellable with a hint: %+v", v)
	}
}
