package launchpad

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMarketLaunched  EventType = "market_launched"
	EventTradeExecuted   EventType = "trade_executed"
	EventMarketGraduated EventType = "market_graduated"
	EventFeeUpdated      EventType = "fee_updated"
)

// Event is the record emitted after every committed state change,
// consumed by the indexer read models and websocket feed.
type Event struct {
	ID     uuid.UUID       `json:"id"`
	Type   EventType       `json:"type"`
	Market string          `json:"market"`
	At     time.Time       `json:"at"`
	Args   json.RawMessage `json:"args"`
}

// LaunchedArgs carries launch parameters. Amounts are decimal strings
// in base units.
type LaunchedArgs struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Token       string `json:"token"`
	Reserve     string `json:"reserve"`
	CurveSupply string `json:"curve_supply"`
	Threshold   string `json:"threshold"`
	FeeBps      uint64 `json:"fee_bps"`
}

type TradeArgs struct {
	TradeID     string `json:"trade_id"`
	Trader      string `json:"trader"`
	Direction   string `json:"direction"`
	TokenAmount string `json:"token_amount"`
	AssetAmount string `json:"asset_amount"`
	Fee         string `json:"fee"`
	SpotPrice   string `json:"spot_price"`
}

type GraduatedArgs struct {
	Pair           string `json:"pair"`
	TokenDeposited string `json:"token_deposited"`
	AssetDeposited string `json:"asset_deposited"`
	Liquidity      string `json:"liquidity"`
}

type FeeUpdatedArgs struct {
	FeeBps uint64 `json:"fee_bps"`
}

// EventBus fans events out to subscribers. Publishing never blocks: a
// subscriber that falls behind its buffer misses events rather than
// stalling trades.
type EventBus struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

const subscriberBuffer = 256

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

func (b *EventBus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
