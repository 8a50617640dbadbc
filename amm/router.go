package amm

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/vsc-eco/vsc-launchpad/ledger"
)

// Router is the public entry point for liquidity provision and swaps.
// Callers grant the router an allowance and the router pulls their
// funds into the pool accounts; pool-to-pool and pool-to-user legs the
// router moves directly, as the package owns the pool accounts.
type Router struct {
	book    *ledger.Ledger
	factory *Factory
	addr    ledger.Address
	now     func() time.Time
}

func NewRouter(book *ledger.Ledger, factory *Factory) *Router {
	return &Router{
		book:    book,
		factory: factory,
		addr:    ledger.Address("amm:router"),
		now:     time.Now,
	}
}

// Address is the spender callers approve before the router can pull
// their funds.
func (r *Router) Address() ledger.Address { return r.addr }

// SetClock overrides the router's deadline clock. Tests only.
func (r *Router) SetClock(now func() time.Time) { r.now = now }

func (r *Router) checkDeadline(deadline time.Time) error {
	if r.now().After(deadline) {
		return fmt.Errorf("router: %w", ErrExpired)
	}
	return nil
}

// AddLiquidity deposits both assets into the pair's pool and mints LP
// shares to `to`. On a fresh pool the desired amounts are used as-is;
// on a funded pool the deposit is trimmed to the pool ratio and
// checked against the min bounds.
func (r *Router) AddLiquidity(
	from ledger.Address,
	assetA, assetB ledger.Asset,
	amountADesired, amountBDesired *uint256.Int,
	amountAMin, amountBMin *uint256.Int,
	to ledger.Address,
	deadline time.Time,
) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	if err := r.checkDeadline(deadline); err != nil {
		return nil, nil, nil, err
	}
	pair, ok := r.factory.Pair(assetA, assetB)
	if !ok {
		return nil, nil, nil, fmt.Errorf("add liquidity %s/%s: %w", assetA, assetB, ErrPairMissing)
	}

	reserveA := r.book.BalanceOf(assetA, pair.addr)
	reserveB := r.book.BalanceOf(assetB, pair.addr)

	amountA, amountB, err := optimalAmounts(amountADesired, amountBDesired, amountAMin, amountBMin, reserveA, reserveB)
	if err != nil {
		return nil, nil, nil, err
	}

	// the deposit and the LP mint land together or not at all
	j := r.book.Begin()
	if err := j.TransferFrom(assetA, from, r.addr, pair.addr, amountA); err != nil {
		return nil, nil, nil, err
	}
	if err := j.TransferFrom(assetB, from, r.addr, pair.addr, amountB); err != nil {
		j.Revert()
		return nil, nil, nil, err
	}

	// mint against the pre-deposit reserves in pair order
	amt0, amt1 := amountA, amountB
	pre0, pre1 := reserveA, reserveB
	if pair.asset0 != assetA {
		amt0, amt1 = amountB, amountA
		pre0, pre1 = reserveB, reserveA
	}
	liquidity, err := pair.mint(to, amt0, amt1, pre0, pre1)
	if err != nil {
		j.Revert()
		return nil, nil, nil, err
	}
	j.Commit()
	return amountA, amountB, liquidity, nil
}

// RemoveLiquidity burns LP shares held by `from` and pays the
// proportional reserves to `to`.
func (r *Router) RemoveLiquidity(
	from ledger.Address,
	assetA, assetB ledger.Asset,
	liquidity *uint256.Int,
	to ledger.Address,
	deadline time.Time,
) (*uint256.Int, *uint256.Int, error) {
	if err := r.checkDeadline(deadline); err != nil {
		return nil, nil, err
	}
	pair, ok := r.factory.Pair(assetA, assetB)
	if !ok {
		return nil, nil, fmt.Errorf("remove liquidity %s/%s: %w", assetA, assetB, ErrPairMissing)
	}
	out0, out1, err := pair.burn(from, to, liquidity)
	if err != nil {
		return nil, nil, err
	}
	if pair.asset0 != assetA {
		out0, out1 = out1, out0
	}
	return out0, out1, nil
}

// GetAmountOut quotes a single-hop swap against current reserves.
func (r *Router) GetAmountOut(amountIn *uint256.Int, assetIn, assetOut ledger.Asset) (*uint256.Int, error) {
	pair, ok := r.factory.Pair(assetIn, assetOut)
	if !ok {
		return nil, fmt.Errorf("quote %s->%s: %w", assetIn, assetOut, ErrPairMissing)
	}
	reserveIn := r.book.BalanceOf(assetIn, pair.addr)
	reserveOut := r.book.BalanceOf(assetOut, pair.addr)
	return getAmountOut(amountIn, reserveIn, reserveOut, pair.feeBps)
}

// GetAmountIn quotes the input needed for an exact output.
func (r *Router) GetAmountIn(amountOut *uint256.Int, assetIn, assetOut ledger.Asset) (*uint256.Int, error) {
	pair, ok := r.factory.Pair(assetIn, assetOut)
	if !ok {
		return nil, fmt.Errorf("quote %s->%s: %w", assetIn, assetOut, ErrPairMissing)
	}
	reserveIn := r.book.BalanceOf(assetIn, pair.addr)
	reserveOut := r.book.BalanceOf(assetOut, pair.addr)
	return getAmountIn(amountOut, reserveIn, reserveOut, pair.feeBps)
}

// GetAmountsOut quotes a multi-hop path.
func (r *Router) GetAmountsOut(amountIn *uint256.Int, path []ledger.Asset) ([]*uint256.Int, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("quote path: %w", ErrPairMissing)
	}
	amounts := make([]*uint256.Int, len(path))
	amounts[0] = new(uint256.Int).Set(amountIn)
	for i := 0; i < len(path)-1; i++ {
		out, err := r.GetAmountOut(amounts[i], path[i], path[i+1])
		if err != nil {
			return nil, err
		}
		amounts[i+1] = out
	}
	return amounts, nil
}

// SwapExactTokensForTokens swaps an exact input along path, requiring
// at least amountOutMin of the final asset delivered to `to`.
func (r *Router) SwapExactTokensForTokens(
	from ledger.Address,
	amountIn, amountOutMin *uint256.Int,
	path []ledger.Asset,
	to ledger.Address,
	deadline time.Time,
) (*uint256.Int, error) {
	if err := r.checkDeadline(deadline); err != nil {
		return nil, err
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("swap path: %w", ErrPairMissing)
	}

	amounts := make([]*uint256.Int, len(path))
	amounts[0] = new(uint256.Int).Set(amountIn)
	pairs := make([]*Pair, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		pair, ok := r.factory.Pair(path[i], path[i+1])
		if !ok {
			return nil, fmt.Errorf("swap %s->%s: %w", path[i], path[i+1], ErrPairMissing)
		}
		pairs[i] = pair
		reserveIn := r.book.BalanceOf(path[i], pair.addr)
		reserveOut := r.book.BalanceOf(path[i+1], pair.addr)
		out, err := getAmountOut(amounts[i], reserveIn, reserveOut, pair.feeBps)
		if err != nil {
			return nil, err
		}
		amounts[i+1] = out
	}
	final := amounts[len(amounts)-1]
	if final.Lt(amountOutMin) {
		return nil, fmt.Errorf("swap: got %s want >= %s: %w", final, amountOutMin, ErrSlippage)
	}

	// settle: pull user input into the first pool, then hop. A failed
	// hop unwinds the earlier legs.
	j := r.book.Begin()
	if err := j.TransferFrom(path[0], from, r.addr, pairs[0].addr, amounts[0]); err != nil {
		return nil, err
	}
	for i := 0; i < len(pairs)-1; i++ {
		if err := j.Transfer(path[i+1], pairs[i].addr, pairs[i+1].addr, amounts[i+1]); err != nil {
			j.Revert()
			return nil, err
		}
	}
	last := len(pairs) - 1
	if err := j.Transfer(path[last+1], pairs[last].addr, to, final); err != nil {
		j.Revert()
		return nil, err
	}
	j.Commit()
	return final, nil
}

// optimalAmounts trims a two-sided deposit to the pool ratio, or
// accepts the desired amounts verbatim into an empty pool.
func optimalAmounts(aDesired, bDesired, aMin, bMin, reserveA, reserveB *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if reserveA.IsZero() && reserveB.IsZero() {
		return new(uint256.Int).Set(aDesired), new(uint256.Int).Set(bDesired), nil
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, nil, fmt.Errorf("optimal amounts: %w", ErrInsufficientLiquidity)
	}
	bOptimal, overflow := new(uint256.Int).MulOverflow(aDesired, reserveB)
	if overflow {
		return nil, nil, fmt.Errorf("optimal amounts: %w", ErrOverflow)
	}
	bOptimal.Div(bOptimal, reserveA)
	if !bDesired.Lt(bOptimal) {
		if bOptimal.Lt(bMin) {
			return nil, nil, fmt.Errorf("optimal amounts: %w", ErrInsufficientAmount)
		}
		return new(uint256.Int).Set(aDesired), bOptimal, nil
	}
	aOptimal, overflow := new(uint256.Int).MulOverflow(bDesired, reserveA)
	if overflow {
		return nil, nil, fmt.Errorf("optimal amounts: %w", ErrOverflow)
	}
	aOptimal.Div(aOptimal, reserveB)
	if aDesired.Lt(aOptimal) || aOptimal.Lt(aMin) {
		return nil, nil, fmt.Errorf("optimal amounts: %w", ErrInsufficientAmount)
	}
	return aOptimal, new(uint256.Int).Set(bDesired), nil
}
