// Package curve implements the bonding-curve pricing engine. Prices
// follow an inverse-supply relationship: the curve is seeded with the
// full token inventory and sells it down, so the unit price rises as
// tokens leave the curve and falls as they come back.
//
// All math is unsigned 256-bit integer arithmetic. Division floors,
// which biases every quote slightly in the curve's favor; callers must
// not reorder the operations below, trade economics depend on the
// exact rounding sequence.
package curve

import (
	"fmt"

	"github.com/holiman/uint256"
)

// BasisScale normalizes the invariant constant against the asset rate.
const BasisScale = 10_000

// PricePrecision is the fixed-point scale of intermediate prices.
var PricePrecision = uint256.MustFromDecimal("1000000000000000000") // 1e18

// normalizedK computes k = invariantK * BasisScale / assetRate.
func normalizedK(invariantK, assetRate *uint256.Int) (*uint256.Int, error) {
	if assetRate == nil || assetRate.IsZero() {
		return nil, fmt.Errorf("normalize invariant: %w", ErrZeroAssetRate)
	}
	k, overflow := new(uint256.Int).MulOverflow(invariantK, uint256.NewInt(BasisScale))
	if overflow {
		return nil, fmt.Errorf("normalize invariant: %w", ErrOverflow)
	}
	return k.Div(k, assetRate), nil
}

// scaledPrice computes k * PricePrecision / supply.
func scaledPrice(k, supply *uint256.Int) (*uint256.Int, error) {
	if supply.IsZero() {
		return nil, fmt.Errorf("price at zero supply: %w", ErrZeroSupply)
	}
	p, overflow := new(uint256.Int).MulOverflow(k, PricePrecision)
	if overflow {
		return nil, fmt.Errorf("scale price: %w", ErrOverflow)
	}
	return p.Div(p, supply), nil
}

// trapezoid returns avg(priceA, priceB) * amount / PricePrecision,
// the area under the price curve approximated by its endpoints.
func trapezoid(priceA, priceB, amount *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(priceA, priceB)
	if overflow {
		return nil, fmt.Errorf("average price: %w", ErrOverflow)
	}
	avg := sum.Div(sum, uint256.NewInt(2))
	v, overflow := new(uint256.Int).MulOverflow(avg, amount)
	if overflow {
		return nil, fmt.Errorf("integrate: %w", ErrOverflow)
	}
	return v.Div(v, PricePrecision), nil
}

// PurchaseCost quotes the reserve-asset cost of buying amount tokens
// out of a curve currently holding supplyHeld tokens. The buy must
// leave the curve with a strictly positive inventory: amount ==
// supplyHeld would put the post-trade price at a division by zero.
func PurchaseCost(supplyHeld, amount, invariantK, assetRate *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("purchase cost: %w", ErrZeroAmount)
	}
	if supplyHeld == nil || supplyHeld.IsZero() {
		return nil, fmt.Errorf("purchase cost: %w", ErrZeroSupply)
	}
	if !amount.Lt(supplyHeld) {
		return nil, fmt.Errorf("purchase cost: buy %s of %s held: %w", amount, supplyHeld, ErrAmountExceedsSupply)
	}
	k, err := normalizedK(invariantK, assetRate)
	if err != nil {
		return nil, err
	}
	before, err := scaledPrice(k, supplyHeld)
	if err != nil {
		return nil, err
	}
	after, err := scaledPrice(k, new(uint256.Int).Sub(supplyHeld, amount))
	if err != nil {
		return nil, err
	}
	return trapezoid(before, after, amount)
}

// SaleProceeds quotes the reserve-asset proceeds of selling amount
// tokens back into a curve currently holding supplyHeld tokens. The
// post-trade supply is the larger (cheaper) endpoint.
func SaleProceeds(supplyHeld, amount, invariantK, assetRate *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, fmt.Errorf("sale proceeds: %w", ErrZeroAmount)
	}
	if supplyHeld == nil || supplyHeld.IsZero() {
		return nil, fmt.Errorf("sale proceeds: %w", ErrZeroSupply)
	}
	k, err := normalizedK(invariantK, assetRate)
	if err != nil {
		return nil, err
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supplyHeld, amount)
	if overflow {
		return nil, fmt.Errorf("sale proceeds: %w", ErrOverflow)
	}
	before, err := scaledPrice(k, supplyHeld)
	if err != nil {
		return nil, err
	}
	after, err := scaledPrice(k, newSupply)
	if err != nil {
		return nil, err
	}
	return trapezoid(before, after, amount)
}

// SpotPrice is the instantaneous price at the current held supply,
// scaled by PricePrecision. Display and telemetry only; trades quote
// through PurchaseCost / SaleProceeds.
func SpotPrice(supplyHeld, invariantK, assetRate *uint256.Int) (*uint256.Int, error) {
	if supplyHeld == nil || supplyHeld.IsZero() {
		return nil, fmt.Errorf("spot price: %w", ErrZeroSupply)
	}
	k, err := normalizedK(invariantK, assetRate)
	if err != nil {
		return nil, err
	}
	return scaledPrice(k, supplyHeld)
}
