package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftify-back-onchain/chain"
)

// BuyItem sells the listed token to buyer. paid is the value buyer attached
// to the transaction, already held by the marketplace account. The seller is
// credited the whole of paid, not listing.Price, so after an overpayment the
// seller's proceeds exceed the price carried by the ItemBought event.
//
// Bookkeeping is finished before the collection is asked to move the token:
// the seller is credited and the listing deleted first, so a buyer contract
// reentering from its receive hook cannot buy the same listing again.
func (m *Marketplace) BuyItem(tx *chain.Tx, nftAddr common.Address, tokenID uint64, paid *big.Int, buyer common.Address) error {
	key := listingKey{nftAddr, tokenID}
	listing, ok := m.listings[key]
	if !ok {
		return errNotListed
	}
	if paid == nil || paid.Cmp(listing.Price) < 0 {
		return errNotEnoughPaid
	}
	amount, overflow := uint256.FromBig(paid)
	if overflow {
		return errProceedsOverflow
	}
	nft, err := m.collection(tx, nftAddr)
	if err != nil {
		return err
	}

	snap := tx.Snapshot()
	if err := m.credit(tx, listing.Seller, amount); err != nil {
		tx.RevertToSnapshot(snap)
		return err
	}
	m.deleteListing(tx, key)
	if err := nft.TransferFrom(tx, listing.Seller, buyer, tokenID, m.address); err != nil {
		tx.RevertToSnapshot(snap)
		return err
	}
	if err := m.emitItemBought(tx, buyer, nftAddr, tokenID, listing.Price); err != nil {
		tx.RevertToSnapshot(snap)
		return err
	}
	return nil
}
