// Package launchpad implements the token-launch platform core: markets
// that trade against a bonding curve until their reserve crosses a
// graduation threshold, then migrate one-way into a constant-product
// AMM pool.
package launchpad

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/vsc-eco/vsc-launchpad/curve"
	"github.com/vsc-eco/vsc-launchpad/ledger"
)

// State is the market lifecycle state. Active transitions to Graduated
// exactly once and never back.
type State uint8

const (
	StateActive State = iota
	StateGraduated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateGraduated:
		return "graduated"
	default:
		return "unknown"
	}
}

// PairFactory and LiquidityRouter are the AMM collaborator surface the
// graduation coordinator consumes. *amm.Factory and *amm.Router satisfy
// them; tests substitute failing fakes to exercise rollback.
type PairFactory interface {
	GetPair(a, b ledger.Asset) (ledger.Address, bool)
	CreatePair(a, b ledger.Asset) (ledger.Address, error)
}

type LiquidityRouter interface {
	Address() ledger.Address
	AddLiquidity(
		from ledger.Address,
		assetA, assetB ledger.Asset,
		amountADesired, amountBDesired, amountAMin, amountBMin *uint256.Int,
		to ledger.Address,
		deadline time.Time,
	) (*uint256.Int, *uint256.Int, *uint256.Int, error)
	GetAmountIn(amountOut *uint256.Int, assetIn, assetOut ledger.Asset) (*uint256.Int, error)
	SwapExactTokensForTokens(
		from ledger.Address,
		amountIn, amountOutMin *uint256.Int,
		path []ledger.Asset,
		to ledger.Address,
		deadline time.Time,
	) (*uint256.Int, error)
}

// Market is one launched token's curve market. All mutation is
// serialized through mu: a trade, including any graduation it
// triggers, is one indivisible unit and a failed trade leaves the
// market's accounts unchanged.
type Market struct {
	mu sync.Mutex

	name    string
	symbol  string
	token   ledger.Asset
	reserve ledger.Asset
	addr    ledger.Address

	invariantK      *uint256.Int
	assetRate       *uint256.Int
	threshold       *uint256.Int
	minTokenReserve *uint256.Int
	minAssetReserve *uint256.Int
	feeBps          uint64
	treasury        ledger.Address

	state    State
	pairAddr ledger.Address

	book    *ledger.Ledger
	factory PairFactory
	router  LiquidityRouter
	admin   *Admin
	bus     *EventBus
	log     *zap.Logger
	now     func() time.Time
}

// TradeReceipt reports a settled trade. AssetAmount is the total the
// trader paid on a buy (cost plus fee) or received on a sell (proceeds
// net of fee).
type TradeReceipt struct {
	TradeID     uuid.UUID
	Market      string
	Direction   string
	TokenAmount *uint256.Int
	AssetAmount *uint256.Int
	Fee         *uint256.Int
	Graduated   bool
}

func (m *Market) Name() string             { return m.name }
func (m *Market) Symbol() string           { return m.symbol }
func (m *Market) Token() ledger.Asset      { return m.token }
func (m *Market) Reserve() ledger.Asset    { return m.reserve }
func (m *Market) Address() ledger.Address  { return m.addr }
func (m *Market) Treasury() ledger.Address { return m.treasury }

func (m *Market) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PairAddress is the AMM pool the market graduated into; empty while
// the market is active.
func (m *Market) PairAddress() ledger.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairAddr
}

func (m *Market) FeeBps() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feeBps
}

func (m *Market) GraduationThreshold() *uint256.Int {
	return new(uint256.Int).Set(m.threshold)
}

// TokenReserve is the curve's remaining token inventory. Taking the
// market lock means a reader never observes the partial balances of an
// in-flight settlement.
func (m *Market) TokenReserve() *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenReserve()
}

func (m *Market) tokenReserve() *uint256.Int {
	return m.book.BalanceOf(m.token, m.addr)
}

// AssetReserve is the reserve-asset balance backing the curve. Fees are
// paid to the treasury as they accrue and never appear here, so this is
// also the figure compared against the graduation threshold.
func (m *Market) AssetReserve() *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assetReserve()
}

func (m *Market) assetReserve() *uint256.Int {
	return m.book.BalanceOf(m.reserve, m.addr)
}

// SpotPrice is the instantaneous curve price, scaled by
// curve.PricePrecision. Display only.
func (m *Market) SpotPrice() (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spotPrice()
}

func (m *Market) spotPrice() (*uint256.Int, error) {
	return curve.SpotPrice(m.tokenReserve(), m.invariantK, m.assetRate)
}

// QuoteBuy quotes cost, fee and total for buying tokenAmount, without
// touching state.
func (m *Market) QuoteBuy(tokenAmount *uint256.Int) (cost, fee, total *uint256.Int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteBuy(tokenAmount)
}

func (m *Market) quoteBuy(tokenAmount *uint256.Int) (cost, fee, total *uint256.Int, err error) {
	cost, err = curve.PurchaseCost(m.tokenReserve(), tokenAmount, m.invariantK, m.assetRate)
	if err != nil {
		return nil, nil, nil, err
	}
	fee = feeOn(cost, m.feeBps)
	total = new(uint256.Int).Add(cost, fee)
	return cost, fee, total, nil
}

// QuoteSell quotes proceeds, fee and net for selling tokenAmount.
func (m *Market) QuoteSell(tokenAmount *uint256.Int) (proceeds, fee, net *uint256.Int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quoteSell(tokenAmount)
}

func (m *Market) quoteSell(tokenAmount *uint256.Int) (proceeds, fee, net *uint256.Int, err error) {
	proceeds, err = curve.SaleProceeds(m.tokenReserve(), tokenAmount, m.invariantK, m.assetRate)
	if err != nil {
		return nil, nil, nil, err
	}
	fee = feeOn(proceeds, m.feeBps)
	net = new(uint256.Int).Sub(proceeds, fee)
	return proceeds, fee, net, nil
}

// Buy purchases an exact tokenAmount from the curve, spending at most
// maxAssetIn of the reserve asset (cost plus fee); the trader must have
// approved the market for at least that much. If the settled reserve
// crosses the graduation threshold the market graduates inside the
// same atomic unit.
func (m *Market) Buy(ctx context.Context, trader ledger.Address, tokenAmount, maxAssetIn *uint256.Int, deadline time.Time) (*TradeReceipt, error) {
	_ = ctx // trades never suspend; ctx kept for API parity

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.now().After(deadline) {
		return nil, fmt.Errorf("buy %s: %w", m.symbol, ErrDeadlineExpired)
	}
	if m.state != StateActive {
		return nil, fmt.Errorf("buy %s: %w", m.symbol, ErrMarketGraduated)
	}
	if tokenAmount == nil || tokenAmount.IsZero() {
		return nil, fmt.Errorf("buy %s: %w", m.symbol, ErrInvalidAmount)
	}
	inventory := m.tokenReserve()
	if !tokenAmount.Lt(inventory) {
		return nil, fmt.Errorf("buy %s: %s exceeds curve inventory %s: %w", m.symbol, tokenAmount, inventory, ErrInvalidAmount)
	}

	cost, fee, total, err := m.quoteBuy(tokenAmount)
	if err != nil {
		return nil, fmt.Errorf("buy %s: %w", m.symbol, err)
	}
	if maxAssetIn == nil || maxAssetIn.Lt(total) {
		return nil, fmt.Errorf("buy %s: total %s over bound: %w", m.symbol, total, ErrSlippageExceeded)
	}

	postInventory := new(uint256.Int).Sub(inventory, tokenAmount)
	if postInventory.Lt(m.minTokenReserve) {
		return nil, fmt.Errorf("buy %s: %w", m.symbol, ErrInsufficientTokenReserve)
	}
	postReserve := new(uint256.Int).Add(m.assetReserve(), cost)
	if postReserve.Lt(m.minAssetReserve) {
		return nil, fmt.Errorf("buy %s: %w", m.symbol, ErrInsufficientAssetReserve)
	}

	// settle: all transfers and any graduation commit together or not
	// at all. Only `total` is pulled, so the trader keeps the
	// difference to maxAssetIn without an explicit refund.
	j := m.book.Begin()
	if err := j.TransferFrom(m.reserve, trader, m.addr, m.addr, cost); err != nil {
		return nil, fmt.Errorf("buy %s: %w", m.symbol, err)
	}
	if !fee.IsZero() {
		if err := j.TransferFrom(m.reserve, trader, m.addr, m.treasury, fee); err != nil {
			j.Revert()
			return nil, fmt.Errorf("buy %s: %w", m.symbol, err)
		}
	}
	if err := j.Transfer(m.token, m.addr, trader, tokenAmount); err != nil {
		j.Revert()
		return nil, fmt.Errorf("buy %s: %w", m.symbol, err)
	}

	graduated := false
	if !m.assetReserve().Lt(m.threshold) {
		if err := m.graduate(j); err != nil {
			j.Revert()
			m.state = StateActive
			m.pairAddr = ""
			return nil, fmt.Errorf("buy %s: %w", m.symbol, err)
		}
		graduated = true
	}
	j.Commit()

	receipt := &TradeReceipt{
		TradeID:     uuid.New(),
		Market:      m.symbol,
		Direction:   "buy",
		TokenAmount: new(uint256.Int).Set(tokenAmount),
		AssetAmount: total,
		Fee:         fee,
		Graduated:   graduated,
	}
	m.log.Info("buy settled",
		zap.String("market", m.symbol),
		zap.String("trader", trader.String()),
		zap.String("tokens", tokenAmount.Dec()),
		zap.String("cost", cost.Dec()),
		zap.String("fee", fee.Dec()),
		zap.Bool("graduated", graduated),
	)
	m.emitTrade(receipt, trader)
	return receipt, nil
}

// Sell returns tokenAmount to the curve for reserve asset, requiring at
// least minAssetOut net of fee. Sells never trigger graduation:
// graduation is reserve-growth-driven and sells shrink the reserve.
func (m *Market) Sell(ctx context.Context, trader ledger.Address, tokenAmount, minAssetOut *uint256.Int, deadline time.Time) (*TradeReceipt, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.now().After(deadline) {
		return nil, fmt.Errorf("sell %s: %w", m.symbol, ErrDeadlineExpired)
	}
	if m.state != StateActive {
		return nil, fmt.Errorf("sell %s: %w", m.symbol, ErrMarketGraduated)
	}
	if tokenAmount == nil || tokenAmount.IsZero() {
		return nil, fmt.Errorf("sell %s: %w", m.symbol, ErrInvalidAmount)
	}

	proceeds, fee, net, err := m.quoteSell(tokenAmount)
	if err != nil {
		return nil, fmt.Errorf("sell %s: %w", m.symbol, err)
	}
	if minAssetOut != nil && net.Lt(minAssetOut) {
		return nil, fmt.Errorf("sell %s: net %s under bound %s: %w", m.symbol, net, minAssetOut, ErrSlippageExceeded)
	}

	reserveBal := m.assetReserve()
	if reserveBal.Lt(proceeds) {
		return nil, fmt.Errorf("sell %s: %w", m.symbol, ErrInsufficientAssetReserve)
	}
	postReserve := new(uint256.Int).Sub(reserveBal, proceeds)
	if postReserve.Lt(m.minAssetReserve) {
		return nil, fmt.Errorf("sell %s: %w", m.symbol, ErrInsufficientAssetReserve)
	}

	j := m.book.Begin()
	if err := j.TransferFrom(m.token, trader, m.addr, m.addr, tokenAmount); err != nil {
		return nil, fmt.Errorf("sell %s: %w", m.symbol, err)
	}
	if err := j.Transfer(m.reserve, m.addr, trader, net); err != nil {
		j.Revert()
		return nil, fmt.Errorf("sell %s: %w", m.symbol, err)
	}
	if !fee.IsZero() {
		if err := j.Transfer(m.reserve, m.addr, m.treasury, fee); err != nil {
			j.Revert()
			return nil, fmt.Errorf("sell %s: %w", m.symbol, err)
		}
	}
	j.Commit()

	receipt := &TradeReceipt{
		TradeID:     uuid.New(),
		Market:      m.symbol,
		Direction:   "sell",
		TokenAmount: new(uint256.Int).Set(tokenAmount),
		AssetAmount: net,
		Fee:         fee,
		Graduated:   false,
	}
	m.log.Info("sell settled",
		zap.String("market", m.symbol),
		zap.String("trader", trader.String()),
		zap.String("tokens", tokenAmount.Dec()),
		zap.String("net", net.Dec()),
		zap.String("fee", fee.Dec()),
	)
	m.emitTrade(receipt, trader)
	return receipt, nil
}

// SetFeeBps adjusts the trade fee. Requires the launchpad's admin
// capability and an active market.
func (m *Market) SetFeeBps(admin *Admin, feeBps uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if admin == nil || admin != m.admin {
		return fmt.Errorf("set fee %s: %w", m.symbol, ErrNotAdmin)
	}
	if m.state != StateActive {
		return fmt.Errorf("set fee %s: %w", m.symbol, ErrMarketGraduated)
	}
	if feeBps > FeeDenominator {
		return fmt.Errorf("set fee %s: %d bps out of range: %w", m.symbol, feeBps, ErrInvalidParams)
	}
	m.feeBps = feeBps
	m.emit(EventFeeUpdated, FeeUpdatedArgs{FeeBps: feeBps})
	return nil
}

func feeOn(amount *uint256.Int, feeBps uint64) *uint256.Int {
	if feeBps == 0 {
		return uint256.NewInt(0)
	}
	// 512-bit intermediate; fee <= amount for feeBps <= FeeDenominator,
	// so the quotient never overflows
	fee, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(feeBps), uint256.NewInt(FeeDenominator))
	return fee
}

func (m *Market) emitTrade(r *TradeReceipt, trader ledger.Address) {
	spot := "0"
	if p, err := m.spotPrice(); err == nil {
		spot = p.Dec()
	}
	m.emit(EventTradeExecuted, TradeArgs{
		TradeID:     r.TradeID.String(),
		Trader:      trader.String(),
		Direction:   r.Direction,
		TokenAmount: r.TokenAmount.Dec(),
		AssetAmount: r.AssetAmount.Dec(),
		Fee:         r.Fee.Dec(),
		SpotPrice:   spot,
	})
}

func (m *Market) emit(t EventType, args any) {
	if m.bus == nil {
		return
	}
	raw, err := json.Marshal(args)
	if err != nil {
		m.log.Warn("event marshal failed", zap.String("type", string(t)), zap.Error(err))
		return
	}
	m.bus.Publish(Event{
		ID:     uuid.New(),
		Type:   t,
		Market: m.symbol,
		At:     m.now(),
		Args:   raw,
	})
}
