package launchpad

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/vsc-eco/vsc-launchpad/ledger"
)

// graduationDeadline bounds the AMM's own staleness guard on the
// one-time liquidity deposit.
const graduationDeadline = 15 * time.Minute

// graduate migrates the market's reserves into the AMM pool. Callers
// must hold m.mu and pass the journal scoping the settlement: on error
// they revert the journal and reset the state flip performed here.
//
// The state is set to Graduated before any external call so that no
// reentrant trade can slip in while the migration runs; the rollback on
// failure is the compensating half of that two-phase commit.
func (m *Market) graduate(j *ledger.Journal) error {
	if m.state == StateGraduated {
		return nil
	}
	m.state = StateGraduated

	tokenBal := m.tokenReserve()
	assetBal := m.assetReserve()

	pairAddr, ok := m.factory.GetPair(m.token, m.reserve)
	if !ok {
		created, err := m.factory.CreatePair(m.token, m.reserve)
		if err != nil {
			return fmt.Errorf("create pair: %w: %w", ErrExternalCallFailed, err)
		}
		pairAddr = created
	}

	// full balances as both desired and minimum: the deposit is a
	// one-time internal transfer, not an adversarial trade
	if err := j.Approve(m.token, m.addr, m.router.Address(), tokenBal); err != nil {
		return fmt.Errorf("approve router: %w: %w", ErrExternalCallFailed, err)
	}
	if err := j.Approve(m.reserve, m.addr, m.router.Address(), assetBal); err != nil {
		return fmt.Errorf("approve router: %w: %w", ErrExternalCallFailed, err)
	}
	_, _, liquidity, err := m.router.AddLiquidity(
		m.addr,
		m.token, m.reserve,
		tokenBal, assetBal,
		tokenBal, assetBal,
		m.addr,
		m.now().Add(graduationDeadline),
	)
	if err != nil {
		return fmt.Errorf("seed pool: %w: %w", ErrExternalCallFailed, err)
	}

	// Residual dust from the AMM's rounding stays in the market account
	// permanently; it is at most one base unit per side.
	m.pairAddr = pairAddr

	m.log.Info("market graduated",
		zap.String("market", m.symbol),
		zap.String("pair", pairAddr.String()),
		zap.String("token_deposited", tokenBal.Dec()),
		zap.String("asset_deposited", assetBal.Dec()),
		zap.String("liquidity", liquidity.Dec()),
	)
	m.emit(EventMarketGraduated, GraduatedArgs{
		Pair:           pairAddr.String(),
		TokenDeposited: tokenBal.Dec(),
		AssetDeposited: assetBal.Dec(),
		Liquidity:      liquidity.Dec(),
	})
	return nil
}

// TriggerGraduation graduates the market if its reserve has reached the
// threshold. Calling it on an already graduated market is a no-op: the
// one-shot transition never repeats and never regresses.
func (m *Market) TriggerGraduation(ctx context.Context) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateGraduated {
		return nil
	}
	if m.assetReserve().Lt(m.threshold) {
		return fmt.Errorf("graduate %s: reserve %s of %s: %w",
			m.symbol, m.assetReserve(), m.threshold, ErrBelowThreshold)
	}

	j := m.book.Begin()
	if err := m.graduate(j); err != nil {
		j.Revert()
		m.state = StateActive
		m.pairAddr = ""
		return fmt.Errorf("graduate %s: %w", m.symbol, err)
	}
	j.Commit()
	return nil
}

// Dust reports the residual balances left on the market account after
// graduation. Telemetry only; within one base unit per side for a
// fresh pool.
func (m *Market) Dust() (*uint256.Int, *uint256.Int) {
	return m.TokenReserve(), m.AssetReserve()
}
