// Command farmsim runs the valley farm service: the farm state engine, its
// background layers (decay, autosave, weather, prices) and the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/valley-farm/internal/advisor"
	"github.com/talgya/valley-farm/internal/api"
	"github.com/talgya/valley-farm/internal/config"
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/engine"
	"github.com/talgya/valley-farm/internal/farm"
	"github.com/talgya/valley-farm/internal/llm"
	"github.com/talgya/valley-farm/internal/persistence"
	"github.com/talgya/valley-farm/internal/pricing"
	"github.com/talgya/valley-farm/internal/weather"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(cfg.Logger())

	slog.Info("Valley Farm — sustainable farming simulation")

	// ── Database ──────────────────────────────────────────────────────
	if err := ensureDataDir(cfg.DBPath); err != nil {
		slog.Error("failed to create data directory", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Collaborators ────────────────────────────────────────────────
	table := crops.Default()
	hub := api.NewHub(api.DefaultMaxStreams)
	events := &persistence.EventBuffer{}

	opts := farm.Options{
		ID:             cfg.FarmID,
		Soil:           cfg.SoilType,
		Rows:           cfg.GridRows,
		Cols:           cfg.GridCols,
		Crops:          table,
		FallbackPrices: pricing.NewFallback(table, time.Now().UnixNano()),
		OnEvent: func(ev farm.Event) {
			events.Add(ev)
			hub.Publish(ev)
		},
	}
	if pc := pricing.NewClient(cfg.PriceServiceURL); pc != nil {
		opts.Prices = pc
		slog.Info("price service enabled", "url", cfg.PriceServiceURL)
	} else {
		slog.Warn("PRICE_SERVICE_URL not set — using fallback prices")
	}

	// The language model answers the farm's own mentor questions and the
	// reference /api/mentor endpoint. A remote mentor service is used only
	// when no model is configured.
	var modelMentor advisor.Service
	if m := llm.NewMentor(llm.NewClient(cfg.AnthropicAPIKey)); m != nil {
		modelMentor = m
		opts.Mentor = m
		slog.Info("LLM mentor enabled (Haiku)")
	} else if mc := advisor.NewClient(cfg.MentorServiceURL); mc != nil {
		opts.Mentor = mc
		slog.Info("mentor service enabled", "url", cfg.MentorServiceURL)
	} else {
		slog.Warn("no mentor configured — advice will use the fallback tip")
	}

	// ── Load or Create Farm ──────────────────────────────────────────
	f, startTick := loadFarm(db, cfg, opts)
	defer f.Close()

	// ── Engine ───────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = cfg.TickInterval
	eng.SetTick(startTick)
	save := func() error {
		return db.SaveFarmState(f, eng.Tick(), events.Drain())
	}
	if startTick == 0 {
		if err := save(); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	wireLayers(ctx, eng, f, weatherSource(cfg), save)

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("ADMIN_KEY not set — admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Farm:        f,
		Eng:         eng,
		Crops:       table,
		Mentor:      modelMentor,
		DB:          db,
		Hub:         hub,
		Port:        cfg.Port,
		AdminKey:    cfg.AdminKey,
		CORSOrigins: cfg.CORSOrigins,
		Save:        save,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	res := f.Resources()
	fmt.Printf("\nFarm %s is alive: %dx%d plots, %d seeds, ₹%d, %d water.\n",
		f.ID(), cfg.GridRows, cfg.GridCols, res.Seeds, res.Coins, res.Water)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d\n", startTick)
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)
	slog.Info("received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := save(); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Simulation stopped. Farm state saved.")
}

// ensureDataDir creates the directory holding the database file.
func ensureDataDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// loadFarm restores FARM_ID (or the most recently saved farm) or creates a
// new one. A saved farm that cannot be read is logged and treated as absent.
func loadFarm(db *persistence.DB, cfg config.Config, opts farm.Options) (*farm.Farm, uint64) {
	id := cfg.FarmID
	if id == "" {
		latest, err := db.LatestFarmID()
		if err != nil && !errors.Is(err, persistence.ErrNotFound) {
			slog.Error("failed to find latest farm", "error", err)
		}
		id = latest
	}
	if id != "" {
		snap, tick, err := db.LoadFarm(id)
		if err == nil {
			slog.Info("found saved farm, restoring...", "id", id, "tick", tick)
			f, err := farm.Restore(opts, snap)
			if err == nil {
				return f, tick
			}
			slog.Error("failed to restore farm, starting fresh", "id", id, "error", err)
		} else if !errors.Is(err, persistence.ErrNotFound) {
			slog.Error("failed to load farm, starting fresh", "id", id, "error", err)
		}
	}
	slog.Info("no saved farm found, creating new farm...")
	return farm.New(opts), 0
}

// wireLayers attaches the farm's periodic systems to the engine. Weather and
// price fetches call external services, so they run detached under ctx and
// never hold up decay or autosave.
func wireLayers(ctx context.Context, eng *engine.Engine, f *farm.Farm, source weather.Source, save func() error) {
	eng.OnDecay = func(uint64) { f.DecayTick() }
	eng.OnSave = func(uint64) {
		if err := save(); err != nil {
			slog.Error("autosave failed", "error", err)
		}
	}
	if source != nil {
		eng.OnWeather = engine.Detach(ctx, "weather", func(ctx context.Context, _ uint64) {
			ctx, cancel := context.WithTimeout(ctx, weatherTimeout)
			defer cancel()
			w, err := source.Current(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("weather update failed", "error", err)
				}
				return
			}
			if err := f.SetWeather(string(w)); err != nil {
				slog.Warn("weather rejected", "weather", w, "error", err)
			}
		})
	}
	eng.OnPrices = engine.Detach(ctx, "prices", func(ctx context.Context, _ uint64) {
		if _, err := f.RefreshPrices(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("scheduled price refresh failed", "error", err)
		}
	})
}

const weatherTimeout = 15 * time.Second

// weatherSource picks the weather driver. Manual mode has none.
func weatherSource(cfg config.Config) weather.Source {
	switch cfg.WeatherMode {
	case config.WeatherSimulated:
		slog.Info("weather: simulated")
		return weather.NewRoller(time.Now().UnixNano())
	case config.WeatherLive:
		if c := weather.NewClient(cfg.OpenWeatherKey, cfg.WeatherLocation); c != nil {
			slog.Info("weather: live", "location", cfg.WeatherLocation)
			return c
		}
		slog.Warn("OPENWEATHER_API_KEY not set — weather stays manual")
	}
	return nil
}
