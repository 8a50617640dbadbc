package main

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/vsc-eco/vsc-launchpad/amm"
	"github.com/vsc-eco/vsc-launchpad/launchpad"
	"github.com/vsc-eco/vsc-launchpad/ledger"
	"github.com/vsc-eco/vsc-launchpad/schemas"
)

const reserveAsset = ledger.Asset("usdh")

// session is one in-memory launchpad universe: ledger, AMM and
// launchpad wired together, driven by parsed instructions. Traders are
// self-funding: the demo mints what an instruction commits to spend.
type session struct {
	book    *ledger.Ledger
	factory *amm.Factory
	router  *amm.Router
	lp      *launchpad.Launchpad
	log     *zap.Logger
}

func newSession(log *zap.Logger) (*session, error) {
	book := ledger.New()
	if err := book.Register(reserveAsset, 6); err != nil {
		return nil, err
	}
	factory := amm.NewFactory(book)
	router := amm.NewRouter(book, factory)

	lp, err := launchpad.New(launchpad.Config{
		Ledger:       book,
		Factory:      factory,
		Router:       router,
		ReserveAsset: reserveAsset,
		Treasury:     ledger.Address("treasury:fees"),
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}
	return &session{book: book, factory: factory, router: router, lp: lp, log: log}, nil
}

func (s *session) run(ctx context.Context, insts []schemas.Instruction) error {
	for i, inst := range insts {
		var err error
		switch it := inst.(type) {
		case schemas.LaunchInstruction:
			err = s.runLaunch(it)
		case schemas.TradeInstruction:
			err = s.runTrade(ctx, it)
		default:
			err = fmt.Errorf("unsupported instruction type %q", inst.Type())
		}
		if err != nil {
			return fmt.Errorf("instruction %d (%s): %w", i, inst.Type(), err)
		}
	}
	return nil
}

func (s *session) runLaunch(inst schemas.LaunchInstruction) error {
	params, err := launchParams(inst)
	if err != nil {
		return err
	}
	m, err := s.lp.Launch(ledger.Address(inst.Creator), inst.Name, inst.Symbol, params)
	if err != nil {
		return err
	}
	s.log.Info("launched",
		zap.String("market", m.Symbol()),
		zap.String("threshold", m.GraduationThreshold().Dec()),
	)
	return nil
}

func (s *session) runTrade(ctx context.Context, inst schemas.TradeInstruction) error {
	m, err := s.lp.Market(inst.Market)
	if err != nil {
		return err
	}
	tokenAmount, err := schemas.Amount(inst.TokenAmount)
	if err != nil {
		return err
	}
	bound, err := schemas.Amount(inst.AssetBound)
	if err != nil {
		return err
	}
	trader := ledger.Address(inst.Trader)

	ttl := time.Minute
	if inst.DeadlineSec != nil {
		ttl = time.Duration(*inst.DeadlineSec) * time.Second
	}
	deadline := time.Now().Add(ttl)

	// the trader approves whoever settles the trade: the market while
	// the curve is live, the router once the token trades in the pool
	spender := m.Address()
	if m.State() == launchpad.StateGraduated {
		spender = s.router.Address()
	}

	var rcpt *launchpad.TradeReceipt
	switch inst.Type() {
	case schemas.TypeBuy:
		if err := s.book.Mint(reserveAsset, trader, bound); err != nil {
			return err
		}
		if err := s.book.Approve(reserveAsset, trader, spender, bound); err != nil {
			return err
		}
		rcpt, err = launchpad.VenueFor(m).Buy(ctx, trader, tokenAmount, bound, deadline)
	case schemas.TypeSell:
		if err := s.book.Approve(m.Token(), trader, spender, tokenAmount); err != nil {
			return err
		}
		rcpt, err = launchpad.VenueFor(m).Sell(ctx, trader, tokenAmount, bound, deadline)
	}
	if err != nil {
		return err
	}

	s.log.Info("trade settled",
		zap.String("market", rcpt.Market),
		zap.String("direction", rcpt.Direction),
		zap.String("tokens", rcpt.TokenAmount.Dec()),
		zap.String("asset", rcpt.AssetAmount.Dec()),
		zap.Bool("graduated", rcpt.Graduated),
	)
	return nil
}

func launchParams(inst schemas.LaunchInstruction) (launchpad.MarketParams, error) {
	var (
		params launchpad.MarketParams
		err    error
	)
	fields := []struct {
		dst  **uint256.Int
		name string
		val  string
	}{
		{&params.InvariantK, "invariant_k", inst.InvariantK},
		{&params.AssetRate, "asset_rate", inst.AssetRate},
		{&params.GraduationThreshold, "graduation_threshold", inst.Threshold},
		{&params.CurveSupply, "curve_supply", inst.CurveSupply},
	}
	for _, f := range fields {
		if *f.dst, err = schemas.Amount(f.val); err != nil {
			return params, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	if inst.FeeBps != nil {
		params.FeeBps = *inst.FeeBps
	}
	return params, nil
}
