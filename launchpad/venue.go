package launchpad

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/vsc-eco/vsc-launchpad/ledger"
)

// TradeVenue abstracts where a token currently trades. Buys are
// exact-output (the trader names the token amount and an asset
// ceiling), sells exact-input with an asset floor, matching the curve
// API, so front ends keep one call shape across graduation.
type TradeVenue interface {
	Buy(ctx context.Context, trader ledger.Address, tokenAmount, maxAssetIn *uint256.Int, deadline time.Time) (*TradeReceipt, error)
	Sell(ctx context.Context, trader ledger.Address, tokenAmount, minAssetOut *uint256.Int, deadline time.Time) (*TradeReceipt, error)
}

// VenueFor selects the venue by market state: the curve while Active,
// the AMM pool once Graduated.
func VenueFor(m *Market) TradeVenue {
	if m.State() == StateGraduated {
		return &PoolVenue{m: m}
	}
	return &CurveVenue{m: m}
}

// CurveVenue trades on the bonding curve.
type CurveVenue struct {
	m *Market
}

func (v *CurveVenue) Buy(ctx context.Context, trader ledger.Address, tokenAmount, maxAssetIn *uint256.Int, deadline time.Time) (*TradeReceipt, error) {
	return v.m.Buy(ctx, trader, tokenAmount, maxAssetIn, deadline)
}

func (v *CurveVenue) Sell(ctx context.Context, trader ledger.Address, tokenAmount, minAssetOut *uint256.Int, deadline time.Time) (*TradeReceipt, error) {
	return v.m.Sell(ctx, trader, tokenAmount, minAssetOut, deadline)
}

// PoolVenue trades a graduated market's token through the AMM router.
// The trader approves the router, not the market.
type PoolVenue struct {
	m *Market
}

func (v *PoolVenue) Buy(ctx context.Context, trader ledger.Address, tokenAmount, maxAssetIn *uint256.Int, deadline time.Time) (*TradeReceipt, error) {
	_ = ctx
	m := v.m
	if m.now().After(deadline) {
		return nil, fmt.Errorf("pool buy %s: %w", m.symbol, ErrDeadlineExpired)
	}
	if tokenAmount == nil || tokenAmount.IsZero() {
		return nil, fmt.Errorf("pool buy %s: %w", m.symbol, ErrInvalidAmount)
	}
	amountIn, err := m.router.GetAmountIn(tokenAmount, m.reserve, m.token)
	if err != nil {
		return nil, fmt.Errorf("pool buy %s: %w: %w", m.symbol, ErrExternalCallFailed, err)
	}
	if maxAssetIn == nil || maxAssetIn.Lt(amountIn) {
		return nil, fmt.Errorf("pool buy %s: need %s over bound: %w", m.symbol, amountIn, ErrSlippageExceeded)
	}
	got, err := m.router.SwapExactTokensForTokens(
		trader, amountIn, tokenAmount,
		[]ledger.Asset{m.reserve, m.token},
		trader, deadline,
	)
	if err != nil {
		return nil, fmt.Errorf("pool buy %s: %w: %w", m.symbol, ErrExternalCallFailed, err)
	}
	return &TradeReceipt{
		TradeID:     uuid.New(),
		Market:      m.symbol,
		Direction:   "buy",
		TokenAmount: got,
		AssetAmount: amountIn,
		Fee:         uint256.NewInt(0),
		Graduated:   true,
	}, nil
}

func (v *PoolVenue) Sell(ctx context.Context, trader ledger.Address, tokenAmount, minAssetOut *uint256.Int, deadline time.Time) (*TradeReceipt, error) {
	_ = ctx
	m := v.m
	if m.now().After(deadline) {
		return nil, fmt.Errorf("pool sell %s: %w", m.symbol, ErrDeadlineExpired)
	}
	if tokenAmount == nil || tokenAmount.IsZero() {
		return nil, fmt.Errorf("pool sell %s: %w", m.symbol, ErrInvalidAmount)
	}
	min := minAssetOut
	if min == nil {
		min = uint256.NewInt(0)
	}
	out, err := m.router.SwapExactTokensForTokens(
		trader, tokenAmount, min,
		[]ledger.Asset{m.token, m.reserve},
		trader, deadline,
	)
	if err != nil {
		return nil, fmt.Errorf("pool sell %s: %w: %w", m.symbol, ErrExternalCallFailed, err)
	}
	return &TradeReceipt{
		TradeID:     uuid.New(),
		Market:      m.symbol,
		Direction:   "sell",
		TokenAmount: new(uint256.Int).Set(tokenAmount),
		AssetAmount: out,
		Fee:         uint256.NewInt(0),
		Graduated:   true,
	}, nil
}
