package launchpad

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/vsc-eco/vsc-launchpad/ledger"
)

// Admin is the capability required for administrative operations.
// Only the launchpad that minted it can vouch for it; holders pass it
// explicitly instead of relying on ambient identity.
type Admin struct {
	_ [0]func() // not comparable by value
}

// Config wires a Launchpad to its collaborators.
type Config struct {
	Ledger       *ledger.Ledger
	Factory      PairFactory
	Router       LiquidityRouter
	ReserveAsset ledger.Asset
	Treasury     ledger.Address
	// LaunchFee is charged in the reserve asset when a market launches.
	// Nil or zero disables it.
	LaunchFee *uint256.Int
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Launchpad launches markets and owns the admin capability and event
// bus shared by all of them.
type Launchpad struct {
	mu        sync.RWMutex
	book      *ledger.Ledger
	factory   PairFactory
	router    LiquidityRouter
	reserve   ledger.Asset
	treasury  ledger.Address
	launchFee *uint256.Int
	addr      ledger.Address
	admin     *Admin
	bus       *EventBus
	log       *zap.Logger
	now       func() time.Time
	markets   map[string]*Market
}

func New(cfg Config) (*Launchpad, error) {
	if cfg.Ledger == nil || cfg.Factory == nil || cfg.Router == nil {
		return nil, fmt.Errorf("launchpad: missing collaborators: %w", ErrInvalidParams)
	}
	if cfg.ReserveAsset == "" || cfg.Treasury == "" {
		return nil, fmt.Errorf("launchpad: reserve asset and treasury required: %w", ErrInvalidParams)
	}
	if _, err := cfg.Ledger.Decimals(cfg.ReserveAsset); err != nil {
		return nil, fmt.Errorf("launchpad: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	fee := cfg.LaunchFee
	if fee == nil {
		fee = uint256.NewInt(0)
	}
	return &Launchpad{
		book:      cfg.Ledger,
		factory:   cfg.Factory,
		router:    cfg.Router,
		reserve:   cfg.ReserveAsset,
		treasury:  cfg.Treasury,
		launchFee: new(uint256.Int).Set(fee),
		addr:      ledger.Address("launchpad:factory"),
		admin:     &Admin{},
		bus:       NewEventBus(),
		log:       log,
		now:       now,
		markets:   make(map[string]*Market),
	}, nil
}

// Admin returns the capability for fee administration.
func (lp *Launchpad) Admin() *Admin { return lp.admin }

// Bus is the event stream consumed by indexers.
func (lp *Launchpad) Bus() *EventBus { return lp.bus }

// Address is the spender a creator approves to cover the launch fee.
func (lp *Launchpad) Address() ledger.Address { return lp.addr }

// Launch mints a new curve token, seeds a market with its full supply
// and opens it for trading. The creator pays the launch fee in the
// reserve asset via prior approval of lp.Address().
func (lp *Launchpad) Launch(creator ledger.Address, name, symbol string, params MarketParams) (*Market, error) {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" || name == "" {
		return nil, fmt.Errorf("launch: name and symbol required: %w", ErrInvalidParams)
	}
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", symbol, err)
	}
	p := params.withDefaults()

	lp.mu.Lock()
	defer lp.mu.Unlock()
	if _, ok := lp.markets[symbol]; ok {
		return nil, fmt.Errorf("launch %s: %w", symbol, ErrMarketExists)
	}

	token := ledger.Asset(symbol)
	if err := lp.book.Register(token, TokenDecimals); err != nil {
		return nil, fmt.Errorf("launch %s: %w", symbol, err)
	}

	if !lp.launchFee.IsZero() {
		if err := lp.book.TransferFrom(lp.reserve, creator, lp.addr, lp.treasury, lp.launchFee); err != nil {
			return nil, fmt.Errorf("launch %s: fee: %w", symbol, err)
		}
	}

	m := &Market{
		name:            name,
		symbol:          symbol,
		token:           token,
		reserve:         lp.reserve,
		addr:            ledger.Address("market:" + symbol),
		invariantK:      new(uint256.Int).Set(p.InvariantK),
		assetRate:       new(uint256.Int).Set(p.AssetRate),
		threshold:       new(uint256.Int).Set(p.GraduationThreshold),
		minTokenReserve: p.MinTokenReserve,
		minAssetReserve: p.MinAssetReserve,
		feeBps:          p.FeeBps,
		treasury:        lp.treasury,
		state:           StateActive,
		book:            lp.book,
		factory:         lp.factory,
		router:          lp.router,
		admin:           lp.admin,
		bus:             lp.bus,
		log:             lp.log,
		now:             lp.now,
	}
	if err := lp.book.Mint(token, m.addr, p.CurveSupply); err != nil {
		return nil, fmt.Errorf("launch %s: %w", symbol, err)
	}
	lp.markets[symbol] = m

	lp.log.Info("market launched",
		zap.String("market", symbol),
		zap.String("creator", creator.String()),
		zap.String("curve_supply", p.CurveSupply.Dec()),
		zap.String("threshold", p.GraduationThreshold.Dec()),
		zap.Uint64("fee_bps", p.FeeBps),
	)
	m.emit(EventMarketLaunched, LaunchedArgs{
		Name:        name,
		Symbol:      symbol,
		Token:       string(token),
		Reserve:     string(lp.reserve),
		CurveSupply: p.CurveSupply.Dec(),
		Threshold:   p.GraduationThreshold.Dec(),
		FeeBps:      p.FeeBps,
	})
	return m, nil
}

// Market looks up a launched market by symbol.
func (lp *Launchpad) Market(symbol string) (*Market, error) {
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	m, ok := lp.markets[strings.ToLower(symbol)]
	if !ok {
		return nil, fmt.Errorf("market %s: %w", symbol, ErrUnknownMarket)
	}
	return m, nil
}

// Markets lists launched markets in symbol order.
func (lp *Launchpad) Markets() []*Market {
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	out := make([]*Market, 0, len(lp.markets))
	for _, m := range lp.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].symbol < out[j].symbol })
	return out
}
