package ledger

import "github.com/holiman/uint256"

// Journal scopes a multi-step settlement to the mutations performed
// through it. Each mutation records its inverse; Revert applies the
// inverses newest-first, undoing this settlement without touching
// balances that other operations committed in the meantime.
//
// The inverses assume the journaled effects are still in place when
// Revert runs. Callers guarantee that by holding their own lock over
// the accounts they settle against; shared sinks like the treasury
// only ever gain funds from a settlement, so reversing this journal's
// credit cannot take another settlement's funds.
type Journal struct {
	l    *Ledger
	undo []func(l *Ledger)
	done bool
}

// Begin opens a journal over the ledger. Journals from concurrent
// settlements are independent of each other.
func (l *Ledger) Begin() *Journal {
	return &Journal{l: l}
}

// Commit keeps every journaled mutation. The journal is spent.
func (j *Journal) Commit() {
	j.done = true
	j.undo = nil
}

// Revert undoes every journaled mutation, most recent first. The
// journal is spent; reverting twice is a no-op.
func (j *Journal) Revert() {
	if j.done {
		return
	}
	j.done = true
	j.l.mu.Lock()
	defer j.l.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i](j.l)
	}
	j.undo = nil
}

// Register creates an asset; reverting removes it again.
func (j *Journal) Register(asset Asset, decimals uint8) error {
	if err := j.l.Register(asset, decimals); err != nil {
		return err
	}
	j.undo = append(j.undo, func(l *Ledger) {
		delete(l.assets, asset)
		delete(l.balances, asset)
		delete(l.allowances, asset)
	})
	return nil
}

// Mint credits supply; reverting takes it back.
func (j *Journal) Mint(asset Asset, to Address, amount *uint256.Int) error {
	if err := j.l.Mint(asset, to, amount); err != nil {
		return err
	}
	amt := new(uint256.Int).Set(amount)
	j.undo = append(j.undo, func(l *Ledger) {
		l.takeBack(asset, to, amt)
	})
	return nil
}

// Burn destroys supply; reverting restores it.
func (j *Journal) Burn(asset Asset, from Address, amount *uint256.Int) error {
	if err := j.l.Burn(asset, from, amount); err != nil {
		return err
	}
	amt := new(uint256.Int).Set(amount)
	j.undo = append(j.undo, func(l *Ledger) {
		l.giveBack(asset, from, amt)
	})
	return nil
}

// Transfer moves funds; reverting moves them back.
func (j *Journal) Transfer(asset Asset, from, to Address, amount *uint256.Int) error {
	if err := j.l.Transfer(asset, from, to, amount); err != nil {
		return err
	}
	amt := new(uint256.Int).Set(amount)
	j.undo = append(j.undo, func(l *Ledger) {
		l.takeBack(asset, to, amt)
		l.giveBack(asset, from, amt)
	})
	return nil
}

// TransferFrom pulls funds against an allowance; reverting returns the
// funds and re-credits the spent allowance.
func (j *Journal) TransferFrom(asset Asset, owner, spender, to Address, amount *uint256.Int) error {
	if err := j.l.TransferFrom(asset, owner, spender, to, amount); err != nil {
		return err
	}
	amt := new(uint256.Int).Set(amount)
	j.undo = append(j.undo, func(l *Ledger) {
		l.takeBack(asset, to, amt)
		l.giveBack(asset, owner, amt)
		l.creditAllowance(asset, owner, spender, amt)
	})
	return nil
}

// Approve sets an allowance; reverting restores the prior grant.
func (j *Journal) Approve(asset Asset, owner, spender Address, amount *uint256.Int) error {
	prior := j.l.Allowance(asset, owner, spender)
	if err := j.l.Approve(asset, owner, spender, amount); err != nil {
		return err
	}
	j.undo = append(j.undo, func(l *Ledger) {
		l.setAllowance(asset, owner, spender, prior)
	})
	return nil
}

// Inverse primitives, called with l.mu held. Balance inverses clamp at
// zero rather than fail: the journaled effects are still present unless
// a concurrent settlement already committed a spend of them.

func (l *Ledger) giveBack(asset Asset, holder Address, amount *uint256.Int) {
	book, ok := l.balances[asset]
	if !ok {
		return
	}
	credit(book, holder, amount)
}

func (l *Ledger) takeBack(asset Asset, holder Address, amount *uint256.Int) {
	book, ok := l.balances[asset]
	if !ok {
		return
	}
	bal, ok := book[holder]
	if !ok {
		return
	}
	if bal.Lt(amount) {
		bal.Clear()
		return
	}
	bal.Sub(bal, amount)
}

func (l *Ledger) setAllowance(asset Asset, owner, spender Address, amount *uint256.Int) {
	grants, ok := l.allowances[asset]
	if !ok {
		return
	}
	byOwner, ok := grants[owner]
	if !ok {
		byOwner = make(map[Address]*uint256.Int)
		grants[owner] = byOwner
	}
	byOwner[spender] = new(uint256.Int).Set(amount)
}

func (l *Ledger) creditAllowance(asset Asset, owner, spender Address, amount *uint256.Int) {
	grants, ok := l.allowances[asset]
	if !ok {
		return
	}
	byOwner, ok := grants[owner]
	if !ok {
		byOwner = make(map[Address]*uint256.Int)
		grants[owner] = byOwner
	}
	a, ok := byOwner[spender]
	if !ok {
		a = uint256.NewInt(0)
		byOwner[spender] = a
	}
	a.Add(a, amount)
}
