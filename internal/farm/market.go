package farm

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/valley-farm/internal/crops"
	"github.com/talgya/valley-farm/internal/economy"
)

// SaleResult describes a completed sale.
type SaleResult struct {
	Receipt string          `json:"receipt"`
	Channel economy.Channel `json:"channel,omitempty"`
	Crop    crops.ID        `json:"crop,omitempty"`
	Kg      int             `json:"kg"`
	Coins   int             `json:"coins"`
	Meters  economy.Meters  `json:"meters"`
}

// SellAll converts the whole inventory to coins at current or fallback prices.
// It is not gated by farm parameters.
func (f *Farm) SellAll() (SaleResult, error) {
	const op = "sell-all"
	f.mu.Lock()
	defer f.unlock()

	if len(f.inventory.IDs()) == 0 {
		return SaleResult{}, f.reject(op, ErrInvalidState, "Nothing to sell.")
	}
	total, kg := 0.0, 0
	for _, id := range f.inventory.IDs() {
		qty := f.inventory[id]
		total += float64(qty) * economy.PriceOf(f.priceMap, f.table, id)
		kg += qty
	}
	coins := int(math.Round(total))
	if coins <= 0 {
		return SaleResult{}, f.reject(op, ErrInvalidState, "No marketable produce.")
	}

	f.inventory = economy.Inventory{}
	f.res.Credit(economy.Coins, coins)
	f.addNews(economy.SaleNews(coins))
	f.touch(EventSold, "", fmt.Sprintf("Sold all inventory for ₹%d.", coins))
	return SaleResult{Receipt: uuid.NewString(), Kg: kg, Coins: coins, Meters: f.meters}, nil
}

// Sell sells qty kg of one crop through a market channel. The sale is refused
// when farm parameters or market meters are below the marketplace thresholds.
func (f *Farm) Sell(crop string, qty int, channel string) (SaleResult, error) {
	const op = "sell"
	f.mu.Lock()
	defer f.unlock()

	id, err := f.table.Lookup(crop)
	if err != nil {
		return SaleResult{}, f.reject(op, ErrInvalidInput, lookupReason(err))
	}
	if qty < 1 {
		return SaleResult{}, f.reject(op, ErrInvalidInput, "Quantity must be at least 1.")
	}
	ch, err := economy.ParseChannel(channel)
	if err != nil {
		return SaleResult{}, f.reject(op, ErrInvalidInput, "Choose a sell channel: local-market, middleman or government.")
	}
	if f.inventory[id] < qty {
		return SaleResult{}, f.reject(op, ErrInsufficientResource, fmt.Sprintf("Not enough %s to sell!", id))
	}
	if err := economy.CheckSellGate(f.params, f.meters); err != nil {
		var ge *economy.GateError
		reason := "Sale denied: Farm parameters too low."
		if errors.As(err, &ge) {
			reason = "Sale denied: " + strings.Join(ge.Reasons, "; ") + "."
		}
		return SaleResult{}, f.reject(op, ErrUnsuitableConditions, reason)
	}

	var rulePtr *crops.Rule
	if rule, ok := f.table.Rule(id); ok {
		rulePtr = &rule
	}
	coins := economy.ChannelQuote(rulePtr, ch, f.meters, qty)
	if err := f.inventory.Remove(id, qty); err != nil {
		return SaleResult{}, f.reject(op, ErrInsufficientResource, err.Error())
	}
	f.res.Credit(economy.Coins, coins)
	f.meters.AfterSale(ch, qty)

	f.touch(EventSold, "", fmt.Sprintf("Sold %d %s via %s for %d coins.", qty, id, ch.Label(), coins))
	return SaleResult{Receipt: uuid.NewString(), Channel: ch, Crop: id, Kg: qty, Coins: coins, Meters: f.meters}, nil
}

// StoreResult describes a storage move.
type StoreResult struct {
	Bin   economy.Bin      `json:"bin"`
	Moved map[crops.ID]int `json:"moved"`
	Total int              `json:"total"`
	Used  int              `json:"used"`
	Cap   int              `json:"capacity"`
}

// StoreCereals moves cereals from inventory into the silo.
func (f *Farm) StoreCereals() (StoreResult, error) {
	return f.store("store-cereals", economy.Silo, f.table.IsCereal, "cereals", "silo")
}

// StoreProduce moves non-cereal produce from inventory into the barn.
func (f *Farm) StoreProduce() (StoreResult, error) {
	return f.store("store-produce", economy.Barn, func(id crops.ID) bool { return !f.table.IsCereal(id) }, "produce", "barn")
}

func (f *Farm) store(op string, bin economy.Bin, accept func(crops.ID) bool, what, where string) (StoreResult, error) {
	f.mu.Lock()
	defer f.unlock()

	contents := f.storage.Bin(bin)
	capacity := f.capacities.Of(bin)
	moved := economy.StoreAll(f.inventory, contents, capacity, accept)
	total := 0
	for _, q := range moved {
		total += q
	}
	if total == 0 {
		return StoreResult{}, f.reject(op, ErrInvalidState, fmt.Sprintf("No %s stored (check capacity or inventory).", what))
	}
	f.addNews(economy.StorageNews(bin, total))
	f.touch(EventStored, "", fmt.Sprintf("Stored %d kg of %s in the %s.", total, what, where))
	return StoreResult{Bin: bin, Moved: moved, Total: total, Used: contents.Total(), Cap: capacity}, nil
}

// ApplyGovernmentSupport credits the support grant when the farm is struggling.
func (f *Farm) ApplyGovernmentSupport() (economy.Resources, error) {
	const op = "support"
	f.mu.Lock()
	defer f.unlock()

	if !f.res.NeedsSupport() {
		return f.res, f.reject(op, ErrInvalidState, "You are currently above the threshold for support.")
	}
	f.res.ApplySupport()
	f.touch(EventSupport, "", fmt.Sprintf("Government support credited: ₹%d, +%d seeds, +%d water.",
		economy.SupportCoins, economy.SupportSeeds, economy.SupportWater))
	return f.res, nil
}

// BuySeeds purchases qty seeds at the shop price.
func (f *Farm) BuySeeds(qty int) (economy.Resources, error) {
	const op = "buy-seeds"
	f.mu.Lock()
	defer f.unlock()

	if qty < 1 {
		return f.res, f.reject(op, ErrInvalidInput, "Quantity must be at least 1.")
	}
	cost := qty * economy.SeedPrice
	if err := f.res.Debit(economy.Cost{Resource: economy.Coins, Amount: cost}); err != nil {
		return f.res, f.reject(op, ErrInsufficientResource, fmt.Sprintf("Not enough coins to buy %d seeds.", qty))
	}
	f.res.Credit(economy.Seeds, qty)
	f.touch(EventSettings, "", fmt.Sprintf("Bought %d seeds for %d coins.", qty, cost))
	return f.res, nil
}
