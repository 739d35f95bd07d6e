package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Detach wraps a slow layer so it runs off the tick goroutine with at most
// one run in flight. A tick that comes due while the previous run is still
// busy is skipped. Runs receive ctx and are not started once it is done.
func Detach(ctx context.Context, name string, fn func(ctx context.Context, tick uint64)) func(uint64) {
	var busy atomic.Bool
	return func(tick uint64) {
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			slog.Debug("layer still running, skipped", "layer", name, "tick", tick)
			return
		}
		go func() {
			defer busy.Store(false)
			fn(ctx, tick)
		}()
	}
}
