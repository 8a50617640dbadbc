package launchpad

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graduateMarket drives a fresh market across its threshold.
func graduateMarket(t *testing.T, f *fixture) *Market {
	t.Helper()
	m := f.launch(t, "stonk", testParams())
	f.fundTrader(t, m, u("1000000000000"))
	rcpt, err := m.Buy(context.Background(), trader, tokens(100_000), u("1000000000000"), deadline())
	require.NoError(t, err)
	require.True(t, rcpt.Graduated)
	return m
}

func TestVenueFor(t *testing.T) {
	f := newFixture(t)
	m := f.launch(t, "active", testParams())
	_, ok := VenueFor(m).(*CurveVenue)
	assert.True(t, ok)

	f2 := newFixture(t)
	g := graduateMarket(t, f2)
	_, ok = VenueFor(g).(*PoolVenue)
	assert.True(t, ok)
}

func TestCurveVenue_DelegatesToMarket(t *testing.T) {
	f := newFixture(t)
	m := f.launch(t, "stonk", testParams())
	f.fundTrader(t, m, u("1000000000000"))
	ctx := context.Background()

	rcpt, err := VenueFor(m).Buy(ctx, trader, tokens(1000), u("1000000000000"), deadline())
	require.NoError(t, err)
	assert.Equal(t, "buy", rcpt.Direction)
	assert.Equal(t, tokens(1000).Dec(), f.book.BalanceOf(m.Token(), trader).Dec())

	require.NoError(t, f.book.Approve(m.Token(), trader, m.Address(), tokens(1000)))
	rcpt, err = VenueFor(m).Sell(ctx, trader, tokens(1000), uint256.NewInt(0), deadline())
	require.NoError(t, err)
	assert.Equal(t, "sell", rcpt.Direction)
}

func TestPoolVenue_Buy(t *testing.T) {
	f := newFixture(t)
	m := graduateMarket(t, f)
	ctx := context.Background()

	// post-graduation the router is the spender, not the market
	budget := u("100000000000")
	require.NoError(t, f.book.Mint(usdh, trader, budget))
	require.NoError(t, f.book.Approve(usdh, trader, f.router.Address(), budget))

	quotedIn, err := f.router.GetAmountIn(tokens(100), usdh, m.Token())
	require.NoError(t, err)

	usdhBefore := f.book.BalanceOf(usdh, trader)
	tokenBefore := f.book.BalanceOf(m.Token(), trader)

	rcpt, err := VenueFor(m).Buy(ctx, trader, tokens(100), budget, deadline())
	require.NoError(t, err)
	assert.Equal(t, "buy", rcpt.Direction)
	assert.True(t, rcpt.Graduated)
	assert.Equal(t, quotedIn.Dec(), rcpt.AssetAmount.Dec())

	spent := new(uint256.Int).Sub(usdhBefore, f.book.BalanceOf(usdh, trader))
	assert.Equal(t, quotedIn.Dec(), spent.Dec())
	got := new(uint256.Int).Sub(f.book.BalanceOf(m.Token(), trader), tokenBefore)
	assert.Equal(t, rcpt.TokenAmount.Dec(), got.Dec())
	// exact-output via quoted input lands at or above the ask
	assert.False(t, got.Lt(tokens(100)))
}

func TestPoolVenue_BuySlippage(t *testing.T) {
	f := newFixture(t)
	m := graduateMarket(t, f)

	quotedIn, err := f.router.GetAmountIn(tokens(100), usdh, m.Token())
	require.NoError(t, err)
	tooLow := new(uint256.Int).Sub(quotedIn, uint256.NewInt(1))

	_, err = VenueFor(m).Buy(context.Background(), trader, tokens(100), tooLow, deadline())
	assert.ErrorIs(t, err, ErrSlippageExceeded)
	_, err = VenueFor(m).Buy(context.Background(), trader, uint256.NewInt(0), quotedIn, deadline())
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPoolVenue_Sell(t *testing.T) {
	f := newFixture(t)
	m := graduateMarket(t, f)
	ctx := context.Background()

	// the trader holds 100k tokens from the graduating buy
	require.NoError(t, f.book.Approve(m.Token(), trader, f.router.Address(), tokens(1000)))

	usdhBefore := f.book.BalanceOf(usdh, trader)
	rcpt, err := VenueFor(m).Sell(ctx, trader, tokens(1000), uint256.NewInt(1), deadline())
	require.NoError(t, err)
	assert.Equal(t, "sell", rcpt.Direction)

	gained := new(uint256.Int).Sub(f.book.BalanceOf(usdh, trader), usdhBefore)
	assert.Equal(t, rcpt.AssetAmount.Dec(), gained.Dec())
	assert.False(t, gained.IsZero())

	// an unmeetable floor surfaces the router's slippage failure
	require.NoError(t, f.book.Approve(m.Token(), trader, f.router.Address(), tokens(1000)))
	_, err = VenueFor(m).Sell(ctx, trader, tokens(1000), u("1000000000000000"), deadline())
	assert.ErrorIs(t, err, ErrExternalCallFailed)
}
