package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

const bpsDenominator = 10_000

// sqrt returns floor(sqrt(x)) by Newton iteration.
func sqrt(x *uint256.Int) *uint256.Int {
	if x.IsZero() {
		return uint256.NewInt(0)
	}
	z := new(uint256.Int).Set(x)
	y := new(uint256.Int).Add(z, uint256.NewInt(1))
	y.Rsh(y, 1)
	for y.Lt(z) {
		z.Set(y)
		t := new(uint256.Int).Div(x, y)
		y.Add(y, t)
		y.Rsh(y, 1)
	}
	return z
}

func min256(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

// getAmountOut computes the constant-product output for a given input:
// out = reserveOut - k/(reserveIn + inEff), with the bps fee shaved off
// the input before it enters the invariant.
func getAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, fmt.Errorf("amount out: %w", ErrInsufficientAmount)
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, fmt.Errorf("amount out: %w", ErrInsufficientLiquidity)
	}
	inEff, overflow := new(uint256.Int).MulOverflow(amountIn, uint256.NewInt(bpsDenominator-feeBps))
	if overflow {
		return nil, fmt.Errorf("amount out: %w", ErrOverflow)
	}
	inEff.Div(inEff, uint256.NewInt(bpsDenominator))
	if inEff.IsZero() {
		inEff = uint256.NewInt(1)
	}
	k, overflow := new(uint256.Int).MulOverflow(reserveIn, reserveOut)
	if overflow {
		return nil, fmt.Errorf("amount out: %w", ErrOverflow)
	}
	newIn := new(uint256.Int).Add(reserveIn, inEff)
	out := new(uint256.Int).Sub(reserveOut, new(uint256.Int).Div(k, newIn))
	if out.IsZero() || !out.Lt(reserveOut) {
		return nil, fmt.Errorf("amount out: %w", ErrInsufficientLiquidity)
	}
	return out, nil
}

// getAmountIn computes the input required for an exact output:
// in = reserveIn*out*10000 / ((reserveOut-out)*(10000-fee)) + 1.
func getAmountIn(amountOut, reserveIn, reserveOut *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if amountOut == nil || amountOut.IsZero() {
		return nil, fmt.Errorf("amount in: %w", ErrInsufficientAmount)
	}
	if reserveIn.IsZero() || !amountOut.Lt(reserveOut) {
		return nil, fmt.Errorf("amount in: %w", ErrInsufficientLiquidity)
	}
	num, overflow := new(uint256.Int).MulOverflow(reserveIn, amountOut)
	if overflow {
		return nil, fmt.Errorf("amount in: %w", ErrOverflow)
	}
	num, overflow = num.MulOverflow(num, uint256.NewInt(bpsDenominator))
	if overflow {
		return nil, fmt.Errorf("amount in: %w", ErrOverflow)
	}
	den := new(uint256.Int).Sub(reserveOut, amountOut)
	den, overflow = den.MulOverflow(den, uint256.NewInt(bpsDenominator-feeBps))
	if overflow {
		return nil, fmt.Errorf("amount in: %w", ErrOverflow)
	}
	if den.IsZero() {
		return nil, fmt.Errorf("amount in: %w", ErrInsufficientLiquidity)
	}
	in := num.Div(num, den)
	return in.Add(in, uint256.NewInt(1)), nil
}
