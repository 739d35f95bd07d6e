package farmhand

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/talgya/valley-farm/internal/api"
	"github.com/talgya/valley-farm/internal/clock"
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
	"github.com/talgya/valley-farm/internal/farm"
)

func baseView() *farm.View {
	return &farm.View{
		Resources:  economy.Resources{Seeds: 100, Coins: 100, Water: 50},
		Capacities: economy.Capacities{Silo: 100, Barn: 100},
		Storage:    economy.NewStorage(),
		Inventory:  economy.Inventory{},
	}
}

func countActions(chores []Chore) map[string]int {
	out := map[string]int{}
	for _, c := range chores {
		out[c.Action]++
	}
	return out
}

func TestDecideOrdersChores(t *testing.T) {
	v := baseView()
	v.Plots = []farm.PlotView{
		{Key: "1-1", State: farm.Ready, Crop: "rice", Stage: 4},
		{Key: "1-2", State: farm.Growing, Crop: "rice", Stage: 2, WaterCost: 5},
		{Key: "1-3", State: farm.Growing, Crop: "rice", Stage: 2, Watered: true, WaterCost: 5},
		{Key: "1-4", State: farm.Empty},
	}
	v.Inventory = economy.Inventory{"wheat": 4}

	chores := Decide(v, crops.Default())
	if len(chores) != 4 {
		t.Fatalf("expected 4 chores got %v", chores)
	}
	want := []string{"harvest", "water", "store", "plant"}
	for i, a := range want {
		if chores[i].Action != a {
			t.Fatalf("chore %d: expected %s got %s", i, a, chores[i].Action)
		}
	}
	if chores[0].Path != "/api/v1/plots/1-1/harvest" {
		t.Fatalf("unexpected harvest path %q", chores[0].Path)
	}
	if body := chores[3].Body.(map[string]string); body["crop"] != DefaultCrop {
		t.Fatalf("expected default crop got %v", body)
	}
}

func TestDecideSellsWhenAllowed(t *testing.T) {
	v := baseView()
	v.SellOK = true
	v.Inventory = economy.Inventory{"potato": 3, "rice": 2}

	got := countActions(Decide(v, crops.Default()))
	if got["sell"] != 2 || got["store"] != 0 {
		t.Fatalf("expected two sales and no storage, got %v", got)
	}
}

func TestDecideBrokeFarm(t *testing.T) {
	v := baseView()
	v.Resources = economy.Resources{Seeds: 2, Coins: 5, Water: 3}
	v.SupportEligible = true
	v.Plots = []farm.PlotView{
		{Key: "1-1", State: farm.Growing, Crop: "rice", WaterCost: 5},
		{Key: "1-2", State: farm.Empty},
	}

	chores := Decide(v, crops.Default())
	if len(chores) != 1 || chores[0].Action != "support" {
		t.Fatalf("broke farm should only ask for support, got %v", chores)
	}
}

func TestDecideCapsChores(t *testing.T) {
	v := baseView()
	for i := 1; i <= 30; i++ {
		v.Plots = append(v.Plots, farm.PlotView{Key: farm.PlotKey{Row: 1, Col: i}.String(), State: farm.Ready, Crop: "rice"})
	}
	if n := len(Decide(v, crops.Default())); n != MaxChores {
		t.Fatalf("expected %d chores got %d", MaxChores, n)
	}
}

func TestCycleAgainstServer(t *testing.T) {
	f := farm.New(farm.Options{
		ID:        "farmhand-test",
		Scheduler: clock.NewManual(time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)),
	})
	t.Cleanup(f.Close)
	srv := &api.Server{Farm: f}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	done, err := Cycle(context.Background(), NewObserver(ts.URL), NewActor(ts.URL), crops.Default())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if done != MaxChores {
		t.Fatalf("expected %d plantings got %d", MaxChores, done)
	}
	growing := 0
	for _, p := range f.View().Plots {
		if p.State == farm.Growing {
			growing++
		}
	}
	if growing != MaxChores {
		t.Fatalf("expected %d growing plots got %d", MaxChores, growing)
	}
}
