package amm

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsc-eco/vsc-launchpad/ledger"
)

const (
	usdh  = ledger.Asset("usdh")
	stonk = ledger.Asset("stonk")
	hbd   = ledger.Asset("hbd")

	alice = ledger.Address("user:alice")
	bob   = ledger.Address("user:bob")
)

var farFuture = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func newDex(t *testing.T) (*ledger.Ledger, *Factory, *Router) {
	t.Helper()
	book := ledger.New()
	require.NoError(t, book.Register(usdh, 6))
	require.NoError(t, book.Register(stonk, 18))
	require.NoError(t, book.Register(hbd, 3))
	f := NewFactory(book)
	r := NewRouter(book, f)
	return book, f, r
}

func fund(t *testing.T, book *ledger.Ledger, who ledger.Address, asset ledger.Asset, amount uint64) {
	t.Helper()
	require.NoError(t, book.Mint(asset, who, uint256.NewInt(amount)))
	require.NoError(t, book.Approve(asset, who, "amm:router", uint256.NewInt(amount)))
}

func TestFactory(t *testing.T) {
	_, f, _ := newDex(t)

	_, ok := f.GetPair(usdh, stonk)
	assert.False(t, ok)

	addr, err := f.CreatePair(usdh, stonk)
	require.NoError(t, err)
	assert.Equal(t, ledger.Address("pool:stonk-usdh"), addr) // sorted order

	// lookup works in both argument orders
	got, ok := f.GetPair(stonk, usdh)
	assert.True(t, ok)
	assert.Equal(t, addr, got)
	got, ok = f.GetPair(usdh, stonk)
	assert.True(t, ok)
	assert.Equal(t, addr, got)

	p, ok := f.PairAt(addr)
	require.True(t, ok)
	assert.Equal(t, stonk, p.Asset0())
	assert.Equal(t, usdh, p.Asset1())
	assert.Equal(t, uint64(DefaultFeeBps), p.FeeBps())

	_, err = f.CreatePair(stonk, usdh)
	assert.ErrorIs(t, err, ErrPairExists)
	_, err = f.CreatePair(usdh, usdh)
	assert.ErrorIs(t, err, ErrIdenticalAssets)
}

func TestAddLiquidity_FirstDeposit(t *testing.T) {
	book, f, r := newDex(t)
	_, err := f.CreatePair(usdh, stonk)
	require.NoError(t, err)
	fund(t, book, alice, usdh, 100_000)
	fund(t, book, alice, stonk, 200_000)

	a, b, liq, err := r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(100_000), uint256.NewInt(200_000),
		uint256.NewInt(100_000), uint256.NewInt(200_000),
		alice, farFuture)
	require.NoError(t, err)

	// fresh pool takes the desired amounts verbatim and mints the
	// geometric mean: sqrt(100000*200000) = 141421
	assert.Equal(t, "100000", a.Dec())
	assert.Equal(t, "200000", b.Dec())
	assert.Equal(t, "141421", liq.Dec())

	pair, _ := f.Pair(usdh, stonk)
	r0, r1 := pair.Reserves()
	assert.Equal(t, "200000", r0.Dec()) // asset0 = stonk
	assert.Equal(t, "100000", r1.Dec())
	assert.Equal(t, "141421", pair.BalanceOfLP(alice).Dec())
	assert.Equal(t, "141421", pair.TotalSupply().Dec())
	assert.True(t, book.BalanceOf(usdh, alice).IsZero())
}

func TestAddLiquidity_Proportional(t *testing.T) {
	book, f, r := newDex(t)
	_, err := f.CreatePair(usdh, stonk)
	require.NoError(t, err)
	fund(t, book, alice, usdh, 200_000)
	fund(t, book, alice, stonk, 400_000)

	_, _, _, err = r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(100_000), uint256.NewInt(200_000),
		uint256.NewInt(0), uint256.NewInt(0),
		alice, farFuture)
	require.NoError(t, err)

	// pool ratio is 1:2, so a 50k/150k desired deposit is trimmed to
	// 50k/100k
	a, b, liq, err := r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(50_000), uint256.NewInt(150_000),
		uint256.NewInt(0), uint256.NewInt(0),
		alice, farFuture)
	require.NoError(t, err)
	assert.Equal(t, "50000", a.Dec())
	assert.Equal(t, "100000", b.Dec())
	// proportional mint: 141421 * 50000/100000 = 70710
	assert.Equal(t, "70710", liq.Dec())

	// a min bound above the trimmed amount rejects the deposit
	_, _, _, err = r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(10_000), uint256.NewInt(150_000),
		uint256.NewInt(0), uint256.NewInt(30_000),
		alice, farFuture)
	assert.ErrorIs(t, err, ErrInsufficientAmount)
}

func TestAddLiquidity_MissingPairAndDeadline(t *testing.T) {
	book, _, r := newDex(t)
	fund(t, book, alice, usdh, 1000)
	fund(t, book, alice, stonk, 1000)

	_, _, _, err := r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(1), uint256.NewInt(1),
		uint256.NewInt(0), uint256.NewInt(0),
		alice, farFuture)
	assert.ErrorIs(t, err, ErrPairMissing)

	r.SetClock(func() time.Time { return farFuture.Add(time.Second) })
	_, _, _, err = r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(1), uint256.NewInt(1),
		uint256.NewInt(0), uint256.NewInt(0),
		alice, farFuture)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestSwapExactTokensForTokens(t *testing.T) {
	book, f, r := newDex(t)
	_, err := f.CreatePair(usdh, stonk)
	require.NoError(t, err)
	fund(t, book, alice, usdh, 100_000)
	fund(t, book, alice, stonk, 200_000)
	_, _, _, err = r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(100_000), uint256.NewInt(200_000),
		uint256.NewInt(0), uint256.NewInt(0),
		alice, farFuture)
	require.NoError(t, err)

	fund(t, book, bob, usdh, 10_000)

	// expected: inEff = 10000*9970/10000 = 9970
	//           out   = 200000 - (100000*200000)/(100000+9970) = 18133
	out, err := r.SwapExactTokensForTokens(bob,
		uint256.NewInt(10_000), uint256.NewInt(18_000),
		[]ledger.Asset{usdh, stonk}, bob, farFuture)
	require.NoError(t, err)
	assert.Equal(t, "18133", out.Dec())
	assert.Equal(t, "18133", book.BalanceOf(stonk, bob).Dec())
	assert.True(t, book.BalanceOf(usdh, bob).IsZero())

	// the full input, fee included, sits in the pool account
	pair, _ := f.Pair(usdh, stonk)
	r0, r1 := pair.Reserves()
	assert.Equal(t, "181867", r0.Dec()) // stonk
	assert.Equal(t, "110000", r1.Dec()) // usdh
}

func TestSwap_SlippageBound(t *testing.T) {
	book, f, r := newDex(t)
	_, err := f.CreatePair(usdh, stonk)
	require.NoError(t, err)
	fund(t, book, alice, usdh, 100_000)
	fund(t, book, alice, stonk, 200_000)
	_, _, _, err = r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(100_000), uint256.NewInt(200_000),
		uint256.NewInt(0), uint256.NewInt(0),
		alice, farFuture)
	require.NoError(t, err)

	fund(t, book, bob, usdh, 10_000)
	_, err = r.SwapExactTokensForTokens(bob,
		uint256.NewInt(10_000), uint256.NewInt(18_134),
		[]ledger.Asset{usdh, stonk}, bob, farFuture)
	assert.ErrorIs(t, err, ErrSlippage)

	// the rejected swap moved nothing
	assert.Equal(t, "10000", book.BalanceOf(usdh, bob).Dec())
	assert.True(t, book.BalanceOf(stonk, bob).IsZero())
}

func TestSwap_MultiHop(t *testing.T) {
	book, f, r := newDex(t)
	for _, pair := range [][2]ledger.Asset{{usdh, stonk}, {stonk, hbd}} {
		_, err := f.CreatePair(pair[0], pair[1])
		require.NoError(t, err)
	}
	fund(t, book, alice, usdh, 1_000_000)
	fund(t, book, alice, stonk, 2_000_000)
	fund(t, book, alice, hbd, 1_000_000)

	_, _, _, err := r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(500_000), uint256.NewInt(1_000_000),
		uint256.NewInt(0), uint256.NewInt(0), alice, farFuture)
	require.NoError(t, err)
	_, _, _, err = r.AddLiquidity(alice, stonk, hbd,
		uint256.NewInt(1_000_000), uint256.NewInt(1_000_000),
		uint256.NewInt(0), uint256.NewInt(0), alice, farFuture)
	require.NoError(t, err)

	fund(t, book, bob, usdh, 10_000)
	path := []ledger.Asset{usdh, stonk, hbd}

	quote, err := r.GetAmountsOut(uint256.NewInt(10_000), path)
	require.NoError(t, err)
	require.Len(t, quote, 3)

	out, err := r.SwapExactTokensForTokens(bob,
		uint256.NewInt(10_000), quote[2], path, bob, farFuture)
	require.NoError(t, err)
	assert.Equal(t, quote[2].Dec(), out.Dec())
	assert.Equal(t, quote[2].Dec(), book.BalanceOf(hbd, bob).Dec())
	// the intermediate leg never touches bob
	assert.True(t, book.BalanceOf(stonk, bob).IsZero())
}

func TestRemoveLiquidity(t *testing.T) {
	book, f, r := newDex(t)
	_, err := f.CreatePair(usdh, stonk)
	require.NoError(t, err)
	fund(t, book, alice, usdh, 100_000)
	fund(t, book, alice, stonk, 200_000)
	_, _, liq, err := r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(100_000), uint256.NewInt(200_000),
		uint256.NewInt(0), uint256.NewInt(0),
		alice, farFuture)
	require.NoError(t, err)

	burn := new(uint256.Int).Div(liq, uint256.NewInt(5)) // 20%
	outA, outB, err := r.RemoveLiquidity(alice, usdh, stonk, burn, alice, farFuture)
	require.NoError(t, err)

	// proportional within flooring: 100000*28284/141421, 200000*28284/141421
	assert.Equal(t, "19999", outA.Dec())
	assert.Equal(t, "39999", outB.Dec())
	assert.Equal(t, outA.Dec(), book.BalanceOf(usdh, alice).Dec())
	assert.Equal(t, outB.Dec(), book.BalanceOf(stonk, alice).Dec())

	pair, _ := f.Pair(usdh, stonk)
	assert.Equal(t, new(uint256.Int).Sub(liq, burn).Dec(), pair.TotalSupply().Dec())

	// burning more than held fails
	_, _, err = r.RemoveLiquidity(bob, usdh, stonk, uint256.NewInt(1), bob, farFuture)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestGetAmountIn_CoversExactOutput(t *testing.T) {
	book, f, r := newDex(t)
	_, err := f.CreatePair(usdh, stonk)
	require.NoError(t, err)
	fund(t, book, alice, usdh, 100_000)
	fund(t, book, alice, stonk, 200_000)
	_, _, _, err = r.AddLiquidity(alice, usdh, stonk,
		uint256.NewInt(100_000), uint256.NewInt(200_000),
		uint256.NewInt(0), uint256.NewInt(0),
		alice, farFuture)
	require.NoError(t, err)

	want := uint256.NewInt(5_000)
	in, err := r.GetAmountIn(want, usdh, stonk)
	require.NoError(t, err)

	// swapping the quoted input must deliver at least the exact output
	out, err := r.GetAmountOut(in, usdh, stonk)
	require.NoError(t, err)
	assert.False(t, out.Lt(want), "in %s yields %s, want >= %s", in.Dec(), out.Dec(), want.Dec())

	_, err = r.GetAmountIn(uint256.NewInt(200_000), usdh, stonk)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestMathHelpers(t *testing.T) {
	assert.Equal(t, "0", sqrt(uint256.NewInt(0)).Dec())
	assert.Equal(t, "1", sqrt(uint256.NewInt(1)).Dec())
	assert.Equal(t, "2", sqrt(uint256.NewInt(4)).Dec())
	assert.Equal(t, "3", sqrt(uint256.NewInt(15)).Dec()) // floors
	assert.Equal(t, "1000000000", sqrt(uint256.MustFromDecimal("1000000000000000000")).Dec())

	_, err := getAmountOut(uint256.NewInt(0), uint256.NewInt(10), uint256.NewInt(10), 0)
	assert.ErrorIs(t, err, ErrInsufficientAmount)
	_, err = getAmountOut(uint256.NewInt(1), uint256.NewInt(0), uint256.NewInt(10), 0)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}
