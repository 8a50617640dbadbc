// Package ledger provides the in-memory fungible-asset ledger the
// launchpad and AMM settle against. It plays the role of the host
// chain's balance store: every balance mutation is serialized through
// one lock, and callers that need all-or-nothing semantics across
// several transfers journal their mutations and revert them on failure.
package ledger

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
)

// Asset identifies a fungible asset by symbol, e.g. "usdh" or "stonk".
type Asset string

// Address identifies an account. Conventional prefixes mirror account
// kinds: "user:", "market:", "pool:", "amm:", "treasury:".
type Address string

func (a Address) String() string { return string(a) }

type assetInfo struct {
	decimals uint8
}

// Ledger tracks balances and allowances for registered assets.
type Ledger struct {
	mu         sync.RWMutex
	assets     map[Asset]assetInfo
	balances   map[Asset]map[Address]*uint256.Int
	allowances map[Asset]map[Address]map[Address]*uint256.Int
}

func New() *Ledger {
	return &Ledger{
		assets:     make(map[Asset]assetInfo),
		balances:   make(map[Asset]map[Address]*uint256.Int),
		allowances: make(map[Asset]map[Address]map[Address]*uint256.Int),
	}
}

// Register creates a new asset with zero supply.
func (l *Ledger) Register(asset Asset, decimals uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.assets[asset]; ok {
		return fmt.Errorf("register %s: %w", asset, ErrAssetExists)
	}
	l.assets[asset] = assetInfo{decimals: decimals}
	l.balances[asset] = make(map[Address]*uint256.Int)
	l.allowances[asset] = make(map[Address]map[Address]*uint256.Int)
	return nil
}

// Decimals reports the display precision an asset was registered with.
func (l *Ledger) Decimals(asset Asset) (uint8, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	info, ok := l.assets[asset]
	if !ok {
		return 0, fmt.Errorf("decimals %s: %w", asset, ErrUnknownAsset)
	}
	return info.decimals, nil
}

// Mint credits new supply to an account.
func (l *Ledger) Mint(asset Asset, to Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	book, ok := l.balances[asset]
	if !ok {
		return fmt.Errorf("mint %s: %w", asset, ErrUnknownAsset)
	}
	credit(book, to, amount)
	return nil
}

// Burn destroys supply held by an account.
func (l *Ledger) Burn(asset Asset, from Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	book, ok := l.balances[asset]
	if !ok {
		return fmt.Errorf("burn %s: %w", asset, ErrUnknownAsset)
	}
	return debit(book, from, amount, asset)
}

// BalanceOf returns a copy of the holder's balance; zero for unknown
// holders of a known asset.
func (l *Ledger) BalanceOf(asset Asset, holder Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	book, ok := l.balances[asset]
	if !ok {
		return uint256.NewInt(0)
	}
	bal, ok := book[holder]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(bal)
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(asset Asset, from, to Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	book, ok := l.balances[asset]
	if !ok {
		return fmt.Errorf("transfer %s: %w", asset, ErrUnknownAsset)
	}
	if err := debit(book, from, amount, asset); err != nil {
		return err
	}
	credit(book, to, amount)
	return nil
}

// Approve grants spender the right to pull up to amount from owner.
// The grant replaces any previous allowance.
func (l *Ledger) Approve(asset Asset, owner, spender Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	grants, ok := l.allowances[asset]
	if !ok {
		return fmt.Errorf("approve %s: %w", asset, ErrUnknownAsset)
	}
	byOwner, ok := grants[owner]
	if !ok {
		byOwner = make(map[Address]*uint256.Int)
		grants[owner] = byOwner
	}
	byOwner[spender] = new(uint256.Int).Set(amount)
	return nil
}

// Allowance reports the remaining grant from owner to spender.
func (l *Ledger) Allowance(asset Asset, owner, spender Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	grants, ok := l.allowances[asset]
	if !ok {
		return uint256.NewInt(0)
	}
	byOwner, ok := grants[owner]
	if !ok {
		return uint256.NewInt(0)
	}
	a, ok := byOwner[spender]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(a)
}

// TransferFrom moves amount from owner to `to`, spending the allowance
// owner granted to spender (pull-payment).
func (l *Ledger) TransferFrom(asset Asset, owner, spender, to Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	book, ok := l.balances[asset]
	if !ok {
		return fmt.Errorf("transferFrom %s: %w", asset, ErrUnknownAsset)
	}
	grant := l.allowanceLocked(asset, owner, spender)
	if grant.Lt(amount) {
		return fmt.Errorf("transferFrom %s %s->%s: %w", asset, owner, to, ErrInsufficientAllowance)
	}
	if err := debit(book, owner, amount, asset); err != nil {
		return err
	}
	credit(book, to, amount)
	l.allowances[asset][owner][spender] = grant.Sub(grant, amount)
	return nil
}

func (l *Ledger) allowanceLocked(asset Asset, owner, spender Address) *uint256.Int {
	byOwner, ok := l.allowances[asset][owner]
	if !ok {
		return uint256.NewInt(0)
	}
	a, ok := byOwner[spender]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(a)
}

func credit(book map[Address]*uint256.Int, to Address, amount *uint256.Int) {
	bal, ok := book[to]
	if !ok {
		bal = uint256.NewInt(0)
		book[to] = bal
	}
	bal.Add(bal, amount)
}

func debit(book map[Address]*uint256.Int, from Address, amount *uint256.Int, asset Asset) error {
	bal, ok := book[from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("debit %s from %s: %w", asset, from, ErrInsufficientBalance)
	}
	bal.Sub(bal, amount)
	return nil
}
