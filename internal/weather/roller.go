package weather

import (
	"context"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/valley-farm/internal/agronomy"
)

// Roller bands on the normalized noise value.
const (
	droughtBelow = 0.2
	floodAbove   = 0.8
	hailAbove    = 0.92
)

// Roller produces a smooth simulated weather series. Each roll walks one step
// through 2D simplex noise, so adverse spells last several rolls.
type Roller struct {
	noise opensimplex.Noise

	mu   sync.Mutex
	step int
}

// NewRoller creates a roller whose series is fixed by seed.
func NewRoller(seed int64) *Roller {
	return &Roller{noise: opensimplex.NewNormalized(seed)}
}

// Current returns the next weather in the series.
func (r *Roller) Current(context.Context) (agronomy.Weather, error) {
	return r.Next(), nil
}

// Next advances the series by one step.
func (r *Roller) Next() agronomy.Weather {
	r.mu.Lock()
	step := r.step
	r.step++
	r.mu.Unlock()
	return band(r.noise.Eval2(float64(step)*0.35, 0.5))
}

func band(n float64) agronomy.Weather {
	switch {
	case n >= hailAbove:
		return agronomy.Hail
	case n >= floodAbove:
		return agronomy.Flood
	case n < droughtBelow:
		return agronomy.Drought
	}
	return agronomy.Normal
}
