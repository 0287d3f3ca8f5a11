package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftify-back-onchain/chain"
)

// GetProceeds returns what seller can withdraw. Unknown sellers have zero.
func (m *Marketplace) GetProceeds(seller common.Address) *big.Int {
	if p, ok := m.proceeds[seller]; ok {
		return p.ToBig()
	}
	return new(big.Int)
}

// Withdraw pays out all of caller's proceeds. The balance is zeroed before
// value leaves the marketplace, so a reentrant Withdraw from the recipient
// finds nothing left. If the payout fails the zeroing is undone.
func (m *Marketplace) Withdraw(tx *chain.Tx, caller common.Address) (*big.Int, error) {
	amount, ok := m.proceeds[caller]
	if !ok || amount.IsZero() {
		return nil, errNoProceeds
	}

	snap := tx.Snapshot()
	m.setProceeds(tx, caller, new(uint256.Int))
	if err := tx.Transfer(m.address, caller, amount); err != nil {
		tx.RevertToSnapshot(snap)
		return nil, errTransferFailed.Because(err)
	}
	return amount.ToBig(), nil
}

// credit adds amount to seller's proceeds. It is only reachable from BuyItem.
func (m *Marketplace) credit(tx *chain.Tx, seller common.Address, amount *uint256.Int) error {
	cur, ok := m.proceeds[seller]
	if !ok {
		cur = new(uint256.Int)
	}
	sum, overflow := new(uint256.Int).AddOverflow(cur, amount)
	if overflow {
		return errProceedsOverflow
	}
	m.setProceeds(tx, seller, sum)
	return nil
}

func (m *Marketplace) setProceeds(tx *chain.Tx, seller common.Address, v *uint256.Int) {
	prev, had := m.proceeds[seller]
	if v.IsZero() {
		delete(m.proceeds, seller)
	} else {
		m.proceeds[seller] = v
	}
	tx.Journal(func() {
		if had {
			m.proceeds[seller] = prev
		} else {
			delete(m.proceeds, seller)
		}
	})
}
