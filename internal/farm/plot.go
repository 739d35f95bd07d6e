package farm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/valley-farm/internal/assets"
	"github.com/talgya/valley-farm/internal/crops"
)

// PlotKey addresses a grid cell. Rows and columns are 1-indexed.
type PlotKey struct {
	Row int
	Col int
}

// String formats the key as "row-col".
func (k PlotKey) String() string {
	return fmt.Sprintf("%d-%d", k.Row, k.Col)
}

// ParsePlotKey parses "row-col".
func ParsePlotKey(s string) (PlotKey, error) {
	r, c, ok := strings.Cut(s, "-")
	if !ok {
		return PlotKey{}, fmt.Errorf("plot key %q: want row-col", s)
	}
	row, err := strconv.Atoi(r)
	if err != nil {
		return PlotKey{}, fmt.Errorf("plot key %q: %w", s, err)
	}
	col, err := strconv.Atoi(c)
	if err != nil {
		return PlotKey{}, fmt.Errorf("plot key %q: %w", s, err)
	}
	return PlotKey{Row: row, Col: col}, nil
}

// Neighbors returns the four orthogonally adjacent keys.
func (k PlotKey) Neighbors() [4]PlotKey {
	return [4]PlotKey{
		{k.Row - 1, k.Col},
		{k.Row + 1, k.Col},
		{k.Row, k.Col - 1},
		{k.Row, k.Col + 1},
	}
}

// Lifecycle is a plot's state machine position.
type Lifecycle string

const (
	Empty   Lifecycle = "empty"
	Growing Lifecycle = "growing"
	Ready   Lifecycle = "ready"
)

// Plot is the agronomic state of one grid cell.
type Plot struct {
	Crop            crops.ID
	Stage           int
	PlantedAt       time.Time
	Watered         bool
	Ready           bool
	Assets          assets.Set
	PlantingPenalty float64
}

// State derives the lifecycle position.
func (p *Plot) State() Lifecycle {
	switch {
	case p.Crop == "":
		return Empty
	case p.Ready:
		return Ready
	default:
		return Growing
	}
}

// clear resets the crop fields, keeping installed assets.
func (p *Plot) clear() {
	p.Crop = ""
	p.Stage = 0
	p.PlantedAt = time.Time{}
	p.Watered = false
	p.Ready = false
	p.PlantingPenalty = 0
}

// advance moves growth forward one stage and reports whether the plot became ready.
func (p *Plot) advance() bool {
	if p.Crop == "" || p.Ready {
		return false
	}
	p.Stage = min(crops.Stages, max(1, p.Stage)+1)
	if p.Stage >= crops.Stages {
		p.Ready = true
		return true
	}
	return false
}
