package persistence

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/valley-farm/internal/clock"
	"github.com/talgya/valley-farm/internal/farm"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "farm.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndLoadFarm(t *testing.T) {
	db := openTestDB(t)
	clk := clock.NewManual(time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC))
	f := farm.New(farm.Options{ID: "valley-1", Scheduler: clk})
	defer f.Close()
	if _, err := f.Plant(1, 1, "rice"); err != nil {
		t.Fatalf("plant: %v", err)
	}
	if err := f.InstallAsset(2, 2, "trees"); err != nil {
		t.Fatalf("install: %v", err)
	}

	events := []farm.Event{{Kind: farm.EventPlanted, Plot: "1-1", Message: "Planted rice!", At: clk.Now(), Revision: 1}}
	if err := db.SaveFarmState(f, 42, events); err != nil {
		t.Fatalf("save: %v", err)
	}

	snap, tick, err := db.LoadFarm("valley-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tick != 42 || snap.ID != "valley-1" || snap.Plots["1-1"].Crop != "rice" || !snap.Plots["2-2"].Assets["trees"] {
		t.Fatalf("unexpected snapshot tick=%d %+v", tick, snap)
	}
	if snap.Resources != f.Resources() {
		t.Fatalf("resources mismatch")
	}

	id, err := db.LatestFarmID()
	if err != nil || id != "valley-1" {
		t.Fatalf("latest: %q %v", id, err)
	}
	if v, err := db.GetMeta("last_farm"); err != nil || v != "valley-1" {
		t.Fatalf("meta: %q %v", v, err)
	}

	got, err := db.RecentEvents("valley-1", 10)
	if err != nil || len(got) != 1 || got[0].Kind != farm.EventPlanted || !got[0].At.Equal(clk.Now()) {
		t.Fatalf("events: %+v %v", got, err)
	}
}

func TestSaveReplacesFarm(t *testing.T) {
	db := openTestDB(t)
	f := farm.New(farm.Options{ID: "f", Scheduler: clock.NewManual(time.Unix(1000, 0))})
	defer f.Close()

	if err := db.SaveFarm(f.Snapshot(), 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := f.BuySeeds(3); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := db.SaveFarm(f.Snapshot(), 2); err != nil {
		t.Fatalf("save: %v", err)
	}
	recs, err := db.ListFarms()
	if err != nil || len(recs) != 1 || recs[0].Tick != 2 || recs[0].Coins != f.Resources().Coins {
		t.Fatalf("list: %+v %v", recs, err)
	}
}

func TestLoadMissingFarm(t *testing.T) {
	db := openTestDB(t)
	if _, _, err := db.LoadFarm("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	if _, err := db.LatestFarmID(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestRecentEventsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	at := time.Unix(5000, 0)
	var events []farm.Event
	for i := 1; i <= 5; i++ {
		events = append(events, farm.Event{Kind: farm.EventNews, Message: "n", At: at, Revision: uint64(i)})
	}
	if err := db.SaveEvents("f", events); err != nil {
		t.Fatalf("save events: %v", err)
	}
	got, err := db.RecentEvents("f", 3)
	if err != nil || len(got) != 3 || got[0].Revision != 5 || got[2].Revision != 3 {
		t.Fatalf("unexpected events %+v %v", got, err)
	}
	if other, _ := db.RecentEvents("g", 3); len(other) != 0 {
		t.Fatalf("events leaked across farms")
	}
}

func TestEventBufferDrainAndBound(t *testing.T) {
	var buf EventBuffer
	for i := 0; i < maxBuffered+5; i++ {
		buf.Add(farm.Event{Kind: farm.EventNews, Revision: uint64(i)})
	}
	got := buf.Drain()
	if len(got) != maxBuffered || got[0].Revision != 5 {
		t.Fatalf("expected %d events starting at 5, got %d starting at %d", maxBuffered, len(got), got[0].Revision)
	}
	if len(buf.Drain()) != 0 {
		t.Fatalf("drain should clear the buffer")
	}
}

func TestLatestFarmPrefersLastSaved(t *testing.T) {
	db := openTestDB(t)
	older := farm.New(farm.Options{ID: "older", Scheduler: clock.NewManual(time.Unix(1000, 0))})
	defer older.Close()
	newer := farm.New(farm.Options{ID: "newer", Scheduler: clock.NewManual(time.Unix(2000, 0))})
	defer newer.Close()

	if err := db.SaveFarmState(older, 1, nil); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if err := db.SaveFarm(newer.Snapshot(), 1); err != nil {
		t.Fatalf("save newer: %v", err)
	}
	if id, err := db.LatestFarmID(); err != nil || id != "older" {
		t.Fatalf("expected last saved farm older, got %q %v", id, err)
	}

	if err := db.SaveMeta(metaLastFarm, "deleted"); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if id, err := db.LatestFarmID(); err != nil || id != "newer" {
		t.Fatalf("expected fallback to newest save, got %q %v", id, err)
	}

	recs, err := db.ListFarms()
	if err != nil || len(recs) != 2 || recs[0].ID != "newer" || recs[0].Snapshot != "" {
		t.Fatalf("list: %+v %v", recs, err)
	}
}
