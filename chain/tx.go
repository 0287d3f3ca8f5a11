package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"nftify-back-onchain/model"
)

type snapshot struct {
	journal int
	logs    int
}

// Tx is the execution context of one transaction. Contracts record every
// state write through Journal so the host can undo it, and emit logs through
// Emit. A Tx is only valid inside the Transact callback that created it.
type Tx struct {
	chain   *Chain
	origin  common.Address
	to      *common.Address
	value   *uint256.Int
	hash    common.Hash
	journal []func()
	logs    []*types.Log
	snaps   []snapshot
}

// Origin is the account that signed the transaction.
func (tx *Tx) Origin() common.Address { return tx.origin }

// Value is the native amount attached to the transaction.
func (tx *Tx) Value() *uint256.Int { return new(uint256.Int).Set(tx.value) }

// Hash identifies the transaction.
func (tx *Tx) Hash() common.Hash { return tx.hash }

// Code returns the contract deployed at addr, or nil.
func (tx *Tx) Code(addr common.Address) any { return tx.chain.code[addr] }

// Balance returns the native balance of addr.
func (tx *Tx) Balance(addr common.Address) *uint256.Int {
	return new(uint256.Int).Set(tx.chain.balance(addr))
}

// Journal records undo, run if the enclosing snapshot is reverted.
func (tx *Tx) Journal(undo func()) {
	tx.journal = append(tx.journal, undo)
}

// Emit appends a log. Address, topics and data are set by the caller; block
// fields are stamped when the transaction is sealed.
func (tx *Tx) Emit(l *types.Log) {
	tx.logs = append(tx.logs, l)
}

// Snapshot returns an identifier for the current state.
func (tx *Tx) Snapshot() int {
	tx.snaps = append(tx.snaps, snapshot{journal: len(tx.journal), logs: len(tx.logs)})
	return len(tx.snaps) - 1
}

// RevertToSnapshot undoes every write and log made since Snapshot returned id.
// Snapshots taken after id are invalidated.
func (tx *Tx) RevertToSnapshot(id int) {
	s := tx.snaps[id]
	for i := len(tx.journal) - 1; i >= s.journal; i-- {
		tx.journal[i]()
	}
	tx.journal = tx.journal[:s.journal]
	tx.logs = tx.logs[:s.logs]
	tx.snaps = tx.snaps[:id]
}

// Transfer moves native value from one account to another. If the recipient
// is a ValueReceiver its hook runs after the balances move, inside the same
// transaction; a hook error undoes the transfer and is returned.
func (tx *Tx) Transfer(from, to common.Address, amount *uint256.Int) error {
	c := tx.chain
	src := c.balance(from)
	if src.Lt(amount) {
		return fmt.Errorf("transfer from %s: %w", from.Hex(), model.ErrInsufficientBalance)
	}
	dst := c.balance(to)
	if from != to {
		if _, overflow := new(uint256.Int).AddOverflow(dst, amount); overflow {
			return fmt.Errorf("transfer to %s: %w", to.Hex(), model.ErrOverflow)
		}
	}

	snap := tx.Snapshot()
	tx.setBalance(from, new(uint256.Int).Sub(src, amount))
	tx.setBalance(to, new(uint256.Int).Add(c.balance(to), amount))

	if r, ok := c.code[to].(ValueReceiver); ok {
		if err := r.ReceiveValue(tx, from, new(uint256.Int).Set(amount)); err != nil {
			tx.RevertToSnapshot(snap)
			return err
		}
	}
	return nil
}

func (tx *Tx) setBalance(addr common.Address, v *uint256.Int) {
	c := tx.chain
	prev, had := c.balances[addr]
	c.balances[addr] = v
	tx.Journal(func() {
		if had {
			c.balances[addr] = prev
		} else {
			delete(c.balances, addr)
		}
	})
}

func (tx *Tx) execute(fn func(tx *Tx) error) error {
	if !tx.value.IsZero() {
		if err := tx.Transfer(tx.origin, *tx.to, tx.value); err != nil {
			return err
		}
	}
	return fn(tx)
}
