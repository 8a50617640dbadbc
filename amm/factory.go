package amm

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/vsc-eco/vsc-launchpad/ledger"
)

// DefaultFeeBps is the pool trading fee applied to swap input.
const DefaultFeeBps = 30 // 0.30%

// Factory creates and looks up pairs. Pair accounts live on the ledger
// under "pool:<asset0>-<asset1>" with assets in sorted order.
type Factory struct {
	mu     sync.RWMutex
	book   *ledger.Ledger
	feeBps uint64
	pairs  map[string]*Pair
	byAddr map[ledger.Address]*Pair
}

func NewFactory(book *ledger.Ledger) *Factory {
	return &Factory{
		book:   book,
		feeBps: DefaultFeeBps,
		pairs:  make(map[string]*Pair),
		byAddr: make(map[ledger.Address]*Pair),
	}
}

func sortAssets(a, b ledger.Asset) (ledger.Asset, ledger.Asset) {
	if b < a {
		return b, a
	}
	return a, b
}

func pairKey(a, b ledger.Asset) string {
	a0, a1 := sortAssets(a, b)
	return string(a0) + "|" + string(a1)
}

// GetPair returns the pool account address for an asset pair, if one
// exists. Argument order does not matter.
func (f *Factory) GetPair(a, b ledger.Asset) (ledger.Address, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.pairs[pairKey(a, b)]
	if !ok {
		return "", false
	}
	return p.addr, true
}

// CreatePair creates the pool for an asset pair with empty reserves.
func (f *Factory) CreatePair(a, b ledger.Asset) (ledger.Address, error) {
	if a == b {
		return "", fmt.Errorf("create pair %s/%s: %w", a, b, ErrIdenticalAssets)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(a, b)
	if _, ok := f.pairs[key]; ok {
		return "", fmt.Errorf("create pair %s/%s: %w", a, b, ErrPairExists)
	}
	a0, a1 := sortAssets(a, b)
	p := &Pair{
		asset0:  a0,
		asset1:  a1,
		addr:    ledger.Address("pool:" + string(a0) + "-" + string(a1)),
		feeBps:  f.feeBps,
		book:    f.book,
		totalLP: uint256.NewInt(0),
		lp:      make(map[ledger.Address]*uint256.Int),
	}
	f.pairs[key] = p
	f.byAddr[p.addr] = p
	return p.addr, nil
}

// Pair resolves a pool by either asset order.
func (f *Factory) Pair(a, b ledger.Asset) (*Pair, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.pairs[pairKey(a, b)]
	return p, ok
}

// PairAt resolves a pool by its ledger account address.
func (f *Factory) PairAt(addr ledger.Address) (*Pair, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.byAddr[addr]
	return p, ok
}
