package indexer

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsc-eco/vsc-launchpad/launchpad"
)

var eventTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func event(t *testing.T, typ launchpad.EventType, market string, args any) launchpad.Event {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return launchpad.Event{
		ID:     uuid.New(),
		Type:   typ,
		Market: market,
		At:     eventTime,
		Args:   raw,
	}
}

func launchedEvent(t *testing.T, symbol string) launchpad.Event {
	return event(t, launchpad.EventMarketLaunched, symbol, launchpad.LaunchedArgs{
		Name:        symbol + " token",
		Symbol:      symbol,
		Token:       symbol,
		Reserve:     "usdh",
		CurveSupply: "1000000000000000000000000",
		Threshold:   "100000000000",
		FeeBps:      100,
	})
}

func tradeEvent(t *testing.T, symbol, direction, spot string) launchpad.Event {
	return event(t, launchpad.EventTradeExecuted, symbol, launchpad.TradeArgs{
		TradeID:     uuid.NewString(),
		Trader:      "user:trader",
		Direction:   direction,
		TokenAmount: "1000000000000000000000",
		AssetAmount: "3031516010",
		Fee:         "30015010",
		SpotPrice:   spot,
	})
}

func TestMarketReadModel_Lifecycle(t *testing.T) {
	rm := NewMarketReadModel(6)

	require.NoError(t, rm.HandleEvent(launchedEvent(t, "stonk")))
	m, ok := rm.Market("stonk")
	require.True(t, ok)
	assert.Equal(t, "active", m.State)
	assert.Equal(t, uint64(100), m.FeeBps)
	assert.Equal(t, "0", m.LastPrice)
	assert.Empty(t, m.Pair)

	require.NoError(t, rm.HandleEvent(tradeEvent(t, "stonk", "buy", "3006009")))
	m, _ = rm.Market("stonk")
	assert.Equal(t, uint64(1), m.TradeCount)
	assert.Equal(t, "3.006009", m.LastPrice) // 6-decimal reserve asset

	trades := rm.Trades("stonk")
	require.Len(t, trades, 1)
	assert.Equal(t, "buy", trades[0].Direction)
	assert.Equal(t, "3.006009", trades[0].Price)
	assert.Equal(t, eventTime, trades[0].At)

	require.NoError(t, rm.HandleEvent(event(t, launchpad.EventFeeUpdated, "stonk",
		launchpad.FeeUpdatedArgs{FeeBps: 50})))
	m, _ = rm.Market("stonk")
	assert.Equal(t, uint64(50), m.FeeBps)

	require.NoError(t, rm.HandleEvent(event(t, launchpad.EventMarketGraduated, "stonk",
		launchpad.GraduatedArgs{
			Pair:           "pool:stonk-usdh",
			TokenDeposited: "1",
			AssetDeposited: "1",
			Liquidity:      "1",
		})))
	m, _ = rm.Market("stonk")
	assert.Equal(t, "graduated", m.State)
	assert.Equal(t, "pool:stonk-usdh", m.Pair)
}

func TestMarketReadModel_MarketsSorted(t *testing.T) {
	rm := NewMarketReadModel(6)
	for _, sym := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, rm.HandleEvent(launchedEvent(t, sym)))
	}
	list := rm.Markets()
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Symbol)
	assert.Equal(t, "mid", list[1].Symbol)
	assert.Equal(t, "zeta", list[2].Symbol)
}

func TestMarketReadModel_TradeRingCapped(t *testing.T) {
	rm := NewMarketReadModel(6)
	require.NoError(t, rm.HandleEvent(launchedEvent(t, "stonk")))

	for i := 0; i < tradeHistoryLimit+25; i++ {
		require.NoError(t, rm.HandleEvent(tradeEvent(t, "stonk", "buy", fmt.Sprintf("%d", 3_000_000+i))))
	}
	trades := rm.Trades("stonk")
	assert.Len(t, trades, tradeHistoryLimit)
	// oldest entries rolled off; the count keeps the full tally
	m, _ := rm.Market("stonk")
	assert.Equal(t, uint64(tradeHistoryLimit+25), m.TradeCount)
	assert.Equal(t, "3.000224", trades[len(trades)-1].Price)
}

func TestMarketReadModel_MalformedArgs(t *testing.T) {
	rm := NewMarketReadModel(6)
	err := rm.HandleEvent(launchpad.Event{
		Type:   launchpad.EventMarketLaunched,
		Market: "stonk",
		Args:   json.RawMessage(`{not json`),
	})
	assert.Error(t, err)
	_, ok := rm.Market("stonk")
	assert.False(t, ok)
}

func TestMarketReadModel_UnknownMarketEventsIgnored(t *testing.T) {
	rm := NewMarketReadModel(6)
	// a trade for a market never launched still records history but
	// cannot update a projection
	require.NoError(t, rm.HandleEvent(tradeEvent(t, "ghost", "buy", "1")))
	_, ok := rm.Market("ghost")
	assert.False(t, ok)
}
