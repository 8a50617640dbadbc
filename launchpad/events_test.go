package launchpad

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestEvents_LifecycleStream(t *testing.T) {
	f := newFixture(t)
	sub := f.lp.Bus().Subscribe()

	m := f.launch(t, "stonk", testParams())
	f.fundTrader(t, m, u("1000000000000"))
	rcpt, err := m.Buy(context.Background(), trader, tokens(100_000), u("1000000000000"), deadline())
	require.NoError(t, err)
	require.True(t, rcpt.Graduated)

	evs := drain(sub)
	require.Len(t, evs, 3)

	assert.Equal(t, EventMarketLaunched, evs[0].Type)
	assert.Equal(t, "stonk", evs[0].Market)
	var launched LaunchedArgs
	require.NoError(t, json.Unmarshal(evs[0].Args, &launched))
	assert.Equal(t, "stonk", launched.Symbol)
	assert.Equal(t, testParams().CurveSupply.Dec(), launched.CurveSupply)

	// graduation commits inside the trade, so its event precedes the
	// trade's own
	assert.Equal(t, EventMarketGraduated, evs[1].Type)
	var grad GraduatedArgs
	require.NoError(t, json.Unmarshal(evs[1].Args, &grad))
	assert.Equal(t, string(m.PairAddress()), grad.Pair)

	assert.Equal(t, EventTradeExecuted, evs[2].Type)
	var tr TradeArgs
	require.NoError(t, json.Unmarshal(evs[2].Args, &tr))
	assert.Equal(t, rcpt.TradeID.String(), tr.TradeID)
	assert.Equal(t, "buy", tr.Direction)
	assert.Equal(t, rcpt.AssetAmount.Dec(), tr.AssetAmount)
}

func TestEvents_FeeUpdate(t *testing.T) {
	f := newFixture(t)
	m := f.launch(t, "stonk", testParams())

	sub := f.lp.Bus().Subscribe()
	require.NoError(t, m.SetFeeBps(f.lp.Admin(), 75))

	evs := drain(sub)
	require.Len(t, evs, 1)
	assert.Equal(t, EventFeeUpdated, evs[0].Type)
	var args FeeUpdatedArgs
	require.NoError(t, json.Unmarshal(evs[0].Args, &args))
	assert.Equal(t, uint64(75), args.FeeBps)
}

func TestEventBus_SlowSubscriberDropsNotBlocks(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()

	for i := 0; i < subscriberBuffer+50; i++ {
		bus.Publish(Event{ID: uuid.New(), Type: EventTradeExecuted})
	}
	// the buffer's worth arrived, the overflow was dropped
	assert.Len(t, drain(sub), subscriberBuffer)
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	bus.Close()

	_, open := <-sub
	assert.False(t, open)

	// publish and a second close are no-ops afterwards
	bus.Publish(Event{ID: uuid.New()})
	bus.Close()

	// new subscriptions come back already closed
	sub2 := bus.Subscribe()
	_, open = <-sub2
	assert.False(t, open)
}
