package farm

import (
	"fmt"

	"github.com/talgya/valley-farm/internal/assets"
	"github.com/talgya/valley-farm/internal/economy"
)

// InstallAsset places one unit of an asset on a plot, consuming stock and coins.
func (f *Farm) InstallAsset(row, col int, key string) error {
	const op = "install"
	f.mu.Lock()
	defer f.unlock()

	k := PlotKey{row, col}
	if err := f.checkKey(op, k); err != nil {
		return err
	}
	kind, err := assets.Parse(key)
	if err != nil {
		return f.reject(op, ErrInvalidInput, fmt.Sprintf("Unknown asset %q.", key))
	}
	if f.peek(k).Assets.Has(kind) {
		return f.reject(op, ErrInvalidState, fmt.Sprintf("This plot already has %s installed.", kind))
	}
	if f.stock[kind] <= 0 {
		return f.reject(op, ErrInsufficientResource, fmt.Sprintf("No more %s units available to install.", kind))
	}
	cost := kind.Spec().Cost
	if err := f.res.Debit(economy.Cost{Resource: economy.Coins, Amount: cost}); err != nil {
		return f.reject(op, ErrInsufficientResource, fmt.Sprintf("Not enough coins to install %s.", kind))
	}

	f.stock.Take(kind)
	p := f.plot(k)
	p.Assets = p.Assets.With(kind)
	f.recountAssets()
	f.touch(EventInstalled, k.String(), fmt.Sprintf("Installed %s.", kind))
	return nil
}

// RemoveAsset takes an installed asset off a plot and returns it to stock.
// Coins are not refunded.
func (f *Farm) RemoveAsset(row, col int, key string) error {
	const op = "remove"
	f.mu.Lock()
	defer f.unlock()

	k := PlotKey{row, col}
	if err := f.checkKey(op, k); err != nil {
		return err
	}
	kind, err := assets.Parse(key)
	if err != nil {
		return f.reject(op, ErrInvalidInput, fmt.Sprintf("Unknown asset %q.", key))
	}
	if !f.peek(k).Assets.Has(kind) {
		return f.reject(op, ErrInvalidState, fmt.Sprintf("No %s installed on this plot.", kind))
	}
	f.removeLocked(k, kind)
	return nil
}

// RemoveOneAsset removes the highest-priority installed asset from a plot.
func (f *Farm) RemoveOneAsset(row, col int) (assets.Kind, error) {
	const op = "remove"
	f.mu.Lock()
	defer f.unlock()

	k := PlotKey{row, col}
	if err := f.checkKey(op, k); err != nil {
		return 0, err
	}
	installed := f.peek(k).Assets
	for _, kind := range assets.RemovalPriority {
		if installed.Has(kind) {
			f.removeLocked(k, kind)
			return kind, nil
		}
	}
	return 0, f.reject(op, ErrInvalidState, "No removable assets on this plot.")
}

func (f *Farm) removeLocked(k PlotKey, kind assets.Kind) {
	p := f.plot(k)
	p.Assets = p.Assets.Without(kind)
	f.stock.Return(kind)
	f.recountAssets()
	f.touch(EventRemoved, k.String(), fmt.Sprintf("Removed %s.", kind))
}
