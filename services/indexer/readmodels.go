package indexer

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsc-eco/vsc-launchpad/launchpad"
)

// tradeHistoryLimit caps the per-market trade ring.
const tradeHistoryLimit = 200

// MarketInfo is the queryable projection of one market. Amounts are
// decimal strings in base units; LastPrice is in whole reserve-asset
// units per whole token.
type MarketInfo struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Token       string `json:"token"`
	Reserve     string `json:"reserve"`
	State       string `json:"state"`
	CurveSupply string `json:"curve_supply"`
	Threshold   string `json:"graduation_threshold"`
	FeeBps      uint64 `json:"fee_bps"`
	Pair        string `json:"pair,omitempty"`
	LastPrice   string `json:"last_price"`
	TradeCount  uint64 `json:"trade_count"`
}

// TradeInfo is one settled trade as served over the API.
type TradeInfo struct {
	TradeID     string    `json:"trade_id"`
	Trader      string    `json:"trader"`
	Direction   string    `json:"direction"`
	TokenAmount string    `json:"token_amount"`
	AssetAmount string    `json:"asset_amount"`
	Fee         string    `json:"fee"`
	Price       string    `json:"price"`
	At          time.Time `json:"at"`
}

// MarketReadModel folds launchpad events into per-market projections.
type MarketReadModel struct {
	mu            sync.RWMutex
	assetDecimals int32
	markets       map[string]MarketInfo
	trades        map[string][]TradeInfo
}

func NewMarketReadModel(assetDecimals uint8) *MarketReadModel {
	return &MarketReadModel{
		assetDecimals: int32(assetDecimals),
		markets:       make(map[string]MarketInfo),
		trades:        make(map[string][]TradeInfo),
	}
}

func (rm *MarketReadModel) HandleEvent(ev launchpad.Event) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	switch ev.Type {
	case launchpad.EventMarketLaunched:
		var args launchpad.LaunchedArgs
		if err := json.Unmarshal(ev.Args, &args); err != nil {
			return fmt.Errorf("launched args: %w", err)
		}
		rm.markets[ev.Market] = MarketInfo{
			Symbol:      args.Symbol,
			Name:        args.Name,
			Token:       args.Token,
			Reserve:     args.Reserve,
			State:       "active",
			CurveSupply: args.CurveSupply,
			Threshold:   args.Threshold,
			FeeBps:      args.FeeBps,
			LastPrice:   "0",
		}

	case launchpad.EventTradeExecuted:
		var args launchpad.TradeArgs
		if err := json.Unmarshal(ev.Args, &args); err != nil {
			return fmt.Errorf("trade args: %w", err)
		}
		price := rm.displayPrice(args.SpotPrice)
		ring := append(rm.trades[ev.Market], TradeInfo{
			TradeID:     args.TradeID,
			Trader:      args.Trader,
			Direction:   args.Direction,
			TokenAmount: args.TokenAmount,
			AssetAmount: args.AssetAmount,
			Fee:         args.Fee,
			Price:       price,
			At:          ev.At,
		})
		if len(ring) > tradeHistoryLimit {
			ring = ring[len(ring)-tradeHistoryLimit:]
		}
		rm.trades[ev.Market] = ring
		if m, ok := rm.markets[ev.Market]; ok {
			m.LastPrice = price
			m.TradeCount++
			rm.markets[ev.Market] = m
		}

	case launchpad.EventMarketGraduated:
		var args launchpad.GraduatedArgs
		if err := json.Unmarshal(ev.Args, &args); err != nil {
			return fmt.Errorf("graduated args: %w", err)
		}
		if m, ok := rm.markets[ev.Market]; ok {
			m.State = "graduated"
			m.Pair = args.Pair
			rm.markets[ev.Market] = m
		}

	case launchpad.EventFeeUpdated:
		var args launchpad.FeeUpdatedArgs
		if err := json.Unmarshal(ev.Args, &args); err != nil {
			return fmt.Errorf("fee args: %w", err)
		}
		if m, ok := rm.markets[ev.Market]; ok {
			m.FeeBps = args.FeeBps
			rm.markets[ev.Market] = m
		}
	}
	return nil
}

// displayPrice converts a PricePrecision-scaled spot price (reserve
// base units per whole token) into whole reserve-asset units.
func (rm *MarketReadModel) displayPrice(spot string) string {
	d, err := decimal.NewFromString(spot)
	if err != nil {
		return "0"
	}
	return d.Shift(-rm.assetDecimals).String()
}

// Markets lists indexed markets in symbol order.
func (rm *MarketReadModel) Markets() []MarketInfo {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]MarketInfo, 0, len(rm.markets))
	for _, m := range rm.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Market looks up one market's projection.
func (rm *MarketReadModel) Market(symbol string) (MarketInfo, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	m, ok := rm.markets[symbol]
	return m, ok
}

// Trades returns the retained trade history, oldest first.
func (rm *MarketReadModel) Trades(symbol string) []TradeInfo {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	ring := rm.trades[symbol]
	out := make([]TradeInfo, len(ring))
	copy(out, ring)
	return out
}
