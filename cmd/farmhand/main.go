// Command farmhand runs the autonomous farm helper. It observes the farm,
// decides on routine chores and performs them via the action API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/valley-farm/internal/config"
	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/farmhand"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(cfg.Logger())

	slog.Info("farmhand starting",
		"api_url", cfg.FarmAPIURL,
		"interval", cfg.FarmhandInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observer := farmhand.NewObserver(cfg.FarmAPIURL)
	actor := farmhand.NewActor(cfg.FarmAPIURL)
	table := crops.Default()

	slog.Info("waiting for farmsim API...")
	if !waitForAPI(ctx, observer) {
		os.Exit(1)
	}

	runCycle(ctx, observer, actor, table)

	ticker := time.NewTicker(cfg.FarmhandInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCycle(ctx, observer, actor, table)
		case <-ctx.Done():
			slog.Info("shutting down")
			fmt.Println("Farmhand stopped.")
			return
		}
	}
}

func runCycle(ctx context.Context, o *farmhand.Observer, a *farmhand.Actor, table *crops.Table) {
	done, err := farmhand.Cycle(ctx, o, a, table)
	if err != nil {
		slog.Error("farmhand cycle failed", "error", err, "done", done)
		return
	}
	slog.Info("farmhand cycle complete", "done", done)
}

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Gives up after 5 minutes.
func waitForAPI(ctx context.Context, o *farmhand.Observer) bool {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		if o.Ready(ctx) {
			slog.Info("farmsim API is ready")
			return true
		}
		if time.Now().After(deadline) {
			slog.Error("farmsim API did not become ready within 5 minutes")
			return false
		}
		slog.Info("farmsim not ready, retrying...", "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
