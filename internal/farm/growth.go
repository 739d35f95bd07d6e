package farm

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/valley-farm/internal/clock"
	"github.com/talgya/valley-farm/internal/crops"
)

// growthClock is the pending stage timer of one plot. The epoch ties a timer
// callback to the planting that scheduled it, so a callback that lost a race
// with cancellation does nothing.
type growthClock struct {
	timer clock.Timer
	epoch uint64
}

// startGrowthLocked replaces any clock on k with a new one.
func (f *Farm) startGrowthLocked(k PlotKey) {
	f.stopGrowthLocked(k)
	if f.closed {
		return
	}
	p := f.plots[k]
	if p == nil || p.Crop == "" || p.Ready {
		return
	}
	f.epoch++
	gc := &growthClock{epoch: f.epoch}
	f.clocks[k] = gc
	f.scheduleStageLocked(k, gc)
}

func (f *Farm) scheduleStageLocked(k PlotKey, gc *growthClock) {
	interval := f.stageInterval(f.plots[k].Crop)
	epoch := gc.epoch
	gc.timer = f.sched.AfterFunc(interval, func() { f.onStageTimer(k, epoch) })
}

// defaultGrowth applies to crops missing from the rule table.
const defaultGrowth = 15 * time.Second

func (f *Farm) stageInterval(id crops.ID) time.Duration {
	if r, ok := f.table.Rule(id); ok {
		return r.StageInterval()
	}
	return defaultGrowth / crops.Stages
}

// stopGrowthLocked cancels and forgets the clock on k.
func (f *Farm) stopGrowthLocked(k PlotKey) {
	gc, ok := f.clocks[k]
	if !ok {
		return
	}
	if gc.timer != nil {
		gc.timer.Stop()
	}
	delete(f.clocks, k)
}

func (f *Farm) onStageTimer(k PlotKey, epoch uint64) {
	f.mu.Lock()
	defer f.unlock()

	gc, ok := f.clocks[k]
	if !ok || gc.epoch != epoch || f.closed {
		return
	}
	p := f.plots[k]
	if p == nil || p.Crop == "" || p.Ready {
		delete(f.clocks, k)
		return
	}

	if p.advance() {
		delete(f.clocks, k)
		f.touch(EventReady, k.String(), fmt.Sprintf("Your %s is ready to harvest!", p.Crop))
		slog.Debug("crop ready", "farm", f.id, "plot", k.String(), "crop", p.Crop)
		return
	}
	f.touch(EventGrew, k.String(), fmt.Sprintf("%s grew to stage %d.", p.Crop, p.Stage))
	f.scheduleStageLocked(k, gc)
}

// nudgeLocked advances growth one stage after watering or fertilizing.
// Reaching maturity this way stops the clock.
func (f *Farm) nudgeLocked(k PlotKey, p *Plot) bool {
	if p.Crop == "" || p.Ready {
		return false
	}
	if p.advance() {
		f.stopGrowthLocked(k)
		return true
	}
	return false
}
