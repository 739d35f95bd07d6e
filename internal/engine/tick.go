// Package engine provides the tick-based loop that drives the farm's
// periodic systems: passive parameter decay, weather, price refresh and autosave.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Layer periods in ticks.
const (
	TicksPerDecay   = 4
	TicksPerSave    = 10
	TicksPerWeather = 20
	TicksPerPrices  = 30
)

// Engine drives the farm forward.
type Engine struct {
	Interval time.Duration // Base tick interval (default 1 second)

	// Callbacks for each tick layer, populated during setup.
	OnTick    func(tick uint64) // Every tick
	OnDecay   func(tick uint64) // Every 4 ticks
	OnSave    func(tick uint64) // Every 10 ticks
	OnWeather func(tick uint64) // Every 20 ticks
	OnPrices  func(tick uint64) // Every 30 ticks

	mu      sync.Mutex
	tick    uint64
	speed   float64
	running bool
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval: time.Second,
		speed:    1.0,
	}
}

// Tick returns the current tick counter (monotonic, never resets).
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// SetTick resumes the counter from a saved value.
func (e *Engine) SetTick(t uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tick = t
}

// Speed returns the tick rate multiplier: 1.0 = real-time, 0 = paused.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the tick rate multiplier. Negative values pause.
func (e *Engine) SetSpeed(s float64) {
	if s < 0 {
		s = 0
	}
	e.mu.Lock()
	e.speed = s
	e.mu.Unlock()
	slog.Info("engine speed changed", "speed", s)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run starts the loop. Blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	slog.Info("farm engine started", "tick", e.Tick(), "speed", e.Speed(), "interval", e.Interval)

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		slog.Info("farm engine stopped", "tick", e.Tick())
	}()

	for {
		speed := e.Speed()
		if speed <= 0 {
			// Paused; check again shortly.
			if !sleep(ctx, 100*time.Millisecond) {
				return
			}
			continue
		}

		start := time.Now()
		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed := time.Since(start); elapsed < target {
			if !sleep(ctx, target-elapsed) {
				return
			}
		} else if ctx.Err() != nil {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Step advances the engine by one tick and runs every layer that falls due.
func (e *Engine) Step() {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if tick%TicksPerDecay == 0 && e.OnDecay != nil {
		e.OnDecay(tick)
	}
	if tick%TicksPerSave == 0 && e.OnSave != nil {
		e.OnSave(tick)
	}
	if tick%TicksPerWeather == 0 && e.OnWeather != nil {
		e.OnWeather(tick)
	}
	if tick%TicksPerPrices == 0 && e.OnPrices != nil {
		e.OnPrices(tick)
	}
}
