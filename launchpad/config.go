package launchpad

import (
	"fmt"

	"github.com/holiman/uint256"
)

// TokenDecimals is the precision curve tokens are minted with.
const TokenDecimals = 18

// FeeDenominator converts basis points to proportions.
const FeeDenominator = 10_000

// Default reserve floors. Floors are per-market parameters; these are
// only the values used when a launch leaves them unset.
var (
	// one whole token must always remain on the curve
	DefaultMinTokenReserve = uint256.MustFromDecimal("1000000000000000000")
	DefaultMinAssetReserve = uint256.NewInt(0)
)

// MarketParams fixes a market's economics at launch. All fields except
// FeeBps are immutable afterward.
type MarketParams struct {
	// InvariantK parameterizes the inverse-supply pricing curve.
	InvariantK *uint256.Int
	// AssetRate is the scaling divisor normalizing InvariantK against the
	// reserve asset's precision.
	AssetRate *uint256.Int
	// GraduationThreshold is the market reserve balance (fees excluded,
	// they are paid out as they accrue) at which the market migrates to
	// the AMM.
	GraduationThreshold *uint256.Int
	// FeeBps is the proportional trade fee, 0..10000. Adjustable through
	// the admin capability until graduation.
	FeeBps uint64
	// CurveSupply is the token inventory minted to the curve at launch.
	CurveSupply *uint256.Int
	// MinTokenReserve / MinAssetReserve reject trades that would leave
	// the market with degenerate liquidity. Nil selects the defaults.
	MinTokenReserve *uint256.Int
	MinAssetReserve *uint256.Int
}

func (p *MarketParams) withDefaults() MarketParams {
	out := *p
	if out.MinTokenReserve == nil {
		out.MinTokenReserve = new(uint256.Int).Set(DefaultMinTokenReserve)
	}
	if out.MinAssetReserve == nil {
		out.MinAssetReserve = new(uint256.Int).Set(DefaultMinAssetReserve)
	}
	return out
}

func (p *MarketParams) validate() error {
	if p.InvariantK == nil || p.InvariantK.IsZero() {
		return fmt.Errorf("invariant constant must be positive: %w", ErrInvalidParams)
	}
	if p.AssetRate == nil || p.AssetRate.IsZero() {
		return fmt.Errorf("asset rate must be positive: %w", ErrInvalidParams)
	}
	if p.GraduationThreshold == nil || p.GraduationThreshold.IsZero() {
		return fmt.Errorf("graduation threshold must be positive: %w", ErrInvalidParams)
	}
	if p.FeeBps > FeeDenominator {
		return fmt.Errorf("fee %d bps out of range: %w", p.FeeBps, ErrInvalidParams)
	}
	if p.CurveSupply == nil || p.CurveSupply.IsZero() {
		return fmt.Errorf("curve supply must be positive: %w", ErrInvalidParams)
	}
	if p.MinTokenReserve != nil && !p.MinTokenReserve.Lt(p.CurveSupply) {
		return fmt.Errorf("token floor must be below curve supply: %w", ErrInvalidParams)
	}
	return nil
}
