// Package amm is the constant-product pool the launchpad migrates
// graduated markets into. Pools hold their reserves as ordinary ledger
// accounts; LP shares are tracked inside the pair.
package amm

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/vsc-eco/vsc-launchpad/ledger"
)

// Pair is one constant-product pool for a sorted asset pair.
type Pair struct {
	mu     sync.Mutex
	asset0 ledger.Asset
	asset1 ledger.Asset
	addr   ledger.Address
	feeBps uint64
	book   *ledger.Ledger

	totalLP *uint256.Int
	lp      map[ledger.Address]*uint256.Int
}

func (p *Pair) Asset0() ledger.Asset    { return p.asset0 }
func (p *Pair) Asset1() ledger.Asset    { return p.asset1 }
func (p *Pair) Address() ledger.Address { return p.addr }
func (p *Pair) FeeBps() uint64          { return p.feeBps }
func (p *Pair) TotalSupply() *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(uint256.Int).Set(p.totalLP)
}

// Reserves reads both pool balances from the ledger.
func (p *Pair) Reserves() (*uint256.Int, *uint256.Int) {
	return p.book.BalanceOf(p.asset0, p.addr), p.book.BalanceOf(p.asset1, p.addr)
}

// BalanceOfLP reports a provider's LP share.
func (p *Pair) BalanceOfLP(provider ledger.Address) *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	bal, ok := p.lp[provider]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(bal)
}

// mint credits LP shares for a deposit the router has already moved
// into the pool account. First deposit mints the geometric mean of the
// amounts; later deposits mint the smaller proportional share.
func (p *Pair) mint(to ledger.Address, amt0, amt1, preReserve0, preReserve1 *uint256.Int) (*uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var minted *uint256.Int
	if p.totalLP.IsZero() {
		prod, overflow := new(uint256.Int).MulOverflow(amt0, amt1)
		if overflow {
			return nil, fmt.Errorf("mint lp: %w", ErrOverflow)
		}
		minted = sqrt(prod)
	} else {
		if preReserve0.IsZero() || preReserve1.IsZero() {
			return nil, fmt.Errorf("mint lp: %w", ErrInsufficientLiquidity)
		}
		m0, overflow := new(uint256.Int).MulOverflow(amt0, p.totalLP)
		if overflow {
			return nil, fmt.Errorf("mint lp: %w", ErrOverflow)
		}
		m0.Div(m0, preReserve0)
		m1, overflow := new(uint256.Int).MulOverflow(amt1, p.totalLP)
		if overflow {
			return nil, fmt.Errorf("mint lp: %w", ErrOverflow)
		}
		m1.Div(m1, preReserve1)
		minted = min256(m0, m1)
	}
	if minted.IsZero() {
		return nil, fmt.Errorf("mint lp: %w", ErrInsufficientLiquidity)
	}

	bal, ok := p.lp[to]
	if !ok {
		bal = uint256.NewInt(0)
		p.lp[to] = bal
	}
	bal.Add(bal, minted)
	p.totalLP.Add(p.totalLP, minted)
	return new(uint256.Int).Set(minted), nil
}

// burn redeems LP shares for the proportional slice of both reserves
// and pays them out of the pool account.
func (p *Pair) burn(provider, to ledger.Address, liquidity *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bal, ok := p.lp[provider]
	if !ok || bal.Lt(liquidity) || liquidity.IsZero() || p.totalLP.IsZero() {
		return nil, nil, fmt.Errorf("burn lp: %w", ErrInsufficientLiquidity)
	}
	r0, r1 := p.book.BalanceOf(p.asset0, p.addr), p.book.BalanceOf(p.asset1, p.addr)

	out0, overflow := new(uint256.Int).MulOverflow(r0, liquidity)
	if overflow {
		return nil, nil, fmt.Errorf("burn lp: %w", ErrOverflow)
	}
	out0.Div(out0, p.totalLP)
	out1, overflow := new(uint256.Int).MulOverflow(r1, liquidity)
	if overflow {
		return nil, nil, fmt.Errorf("burn lp: %w", ErrOverflow)
	}
	out1.Div(out1, p.totalLP)

	// book-keep first; a failed payout restores the shares
	bal.Sub(bal, liquidity)
	p.totalLP.Sub(p.totalLP, liquidity)
	unwind := func() {
		bal.Add(bal, liquidity)
		p.totalLP.Add(p.totalLP, liquidity)
	}

	j := p.book.Begin()
	if !out0.IsZero() {
		if err := j.Transfer(p.asset0, p.addr, to, out0); err != nil {
			unwind()
			return nil, nil, err
		}
	}
	if !out1.IsZero() {
		if err := j.Transfer(p.asset1, p.addr, to, out1); err != nil {
			j.Revert()
			unwind()
			return nil, nil, err
		}
	}
	j.Commit()
	return out0, out1, nil
}
