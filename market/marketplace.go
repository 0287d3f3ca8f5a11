// Package market implements the NFTify marketplace: the listing store, the
// pull-payment proceeds ledger, and the purchase flow that ties them to a
// collection transfer.
package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftify-back-onchain/chain"
	"nftify-back-onchain/model"
)

var (
	errUnknownCollection = model.Revert(model.ErrNotFound, "NFTify: unknown collection")
	errNotOwner          = model.Revert(model.ErrUnauthorized, "ERC721: you are not the owner of this item")
	errAlreadyListed     = model.Revert(model.ErrAlreadyListed, "NFTify: this item is already listed")
	errNotListed         = model.Revert(model.ErrNotListed, "NFTify: this item is not listed")
	errZeroPrice         = model.Revert(model.ErrInvalidPrice, "NFTify: price must be above zero")
	errNoAccess          = model.Revert(model.ErrNotApproved, "ERC721: NFTify don't have access to this item")
	errNotEnoughPaid     = model.Revert(model.ErrInsufficientPayment, "NFTify: you didn't pay enough ETH")
	errNoProceeds        = model.Revert(model.ErrNothingToWithdraw, "NFTify: you don't have any earnings")
	errTransferFailed    = model.Revert(model.ErrTransferFailed, "NFTify: transfer failed")
	errProceedsOverflow  = model.Revert(model.ErrOverflow, "NFTify: proceeds overflow")
)

// NFT is the collection surface the marketplace relies on.
type NFT interface {
	OwnerOf(tokenID uint64) (common.Address, error)
	IsApprovedForMarketplace(tokenID uint64, owner, marketplace common.Address) bool
	TransferFrom(tx *chain.Tx, from, to common.Address, tokenID uint64, caller common.Address) error
}

type listingKey struct {
	nft     common.Address
	tokenID uint64
}

// Marketplace holds every listing and every seller's withdrawable proceeds.
type Marketplace struct {
	address  common.Address
	listings map[listingKey]model.Listing
	proceeds map[common.Address]*uint256.Int
}

// New creates an undeployed marketplace.
func New() *Marketplace {
	return &Marketplace{
		listings: make(map[listingKey]model.Listing),
		proceeds: make(map[common.Address]*uint256.Int),
	}
}

// Bind records the address the marketplace was deployed at.
func (m *Marketplace) Bind(addr common.Address) { m.address = addr }

// Address returns the deployed address of the marketplace.
func (m *Marketplace) Address() common.Address { return m.address }

// ListItem offers tokenID of nftAddr for sale at price. The caller must own
// the token and the marketplace must be approved to move it.
func (m *Marketplace) ListItem(tx *chain.Tx, nftAddr common.Address, tokenID uint64, price *big.Int, caller common.Address) error {
	nft, err := m.collection(tx, nftAddr)
	if err != nil {
		return err
	}
	owner, err := nft.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if caller != owner {
		return errNotOwner
	}
	key := listingKey{nftAddr, tokenID}
	if _, ok := m.listings[key]; ok {
		return errAlreadyListed
	}
	if !validPrice(price) {
		return errZeroPrice
	}
	if !nft.IsApprovedForMarketplace(tokenID, owner, m.address) {
		return errNoAccess
	}

	m.setListing(tx, key, model.Listing{Price: new(big.Int).Set(price), Seller: caller})
	return m.emitItemListed(tx, caller, nftAddr, tokenID, price)
}

// CancelListing withdraws the offer for tokenID. Only the current owner may
// cancel.
func (m *Marketplace) CancelListing(tx *chain.Tx, nftAddr common.Address, tokenID uint64, caller common.Address) error {
	key, err := m.ownedListing(tx, nftAddr, tokenID, caller)
	if err != nil {
		return err
	}
	m.deleteListing(tx, key)
	return m.emitItemCanceled(tx, caller, nftAddr, tokenID)
}

// UpdateListing changes the price of an active listing. The update is
// announced as a fresh ItemListed event.
func (m *Marketplace) UpdateListing(tx *chain.Tx, nftAddr common.Address, tokenID uint64, newPrice *big.Int, caller common.Address) error {
	key, err := m.ownedListing(tx, nftAddr, tokenID, caller)
	if err != nil {
		return err
	}
	if !validPrice(newPrice) {
		return errZeroPrice
	}
	listing := m.listings[key]
	m.setListing(tx, key, model.Listing{Price: new(big.Int).Set(newPrice), Seller: listing.Seller})
	return m.emitItemListed(tx, caller, nftAddr, tokenID, newPrice)
}

// GetListing returns the active listing for the token, or the zero sentinel.
func (m *Marketplace) GetListing(nftAddr common.Address, tokenID uint64) model.Listing {
	l, ok := m.listings[listingKey{nftAddr, tokenID}]
	if !ok {
		return model.Listing{Price: new(big.Int)}
	}
	return model.Listing{Price: new(big.Int).Set(l.Price), Seller: l.Seller}
}

// ownedListing checks that caller owns the token and that it is listed.
func (m *Marketplace) ownedListing(tx *chain.Tx, nftAddr common.Address, tokenID uint64, caller common.Address) (listingKey, error) {
	key := listingKey{nftAddr, tokenID}
	nft, err := m.collection(tx, nftAddr)
	if err != nil {
		return key, err
	}
	owner, err := nft.OwnerOf(tokenID)
	if err != nil {
		return key, err
	}
	if caller != owner {
		return key, errNotOwner
	}
	if _, ok := m.listings[key]; !ok {
		return key, errNotListed
	}
	return key, nil
}

func (m *Marketplace) collection(tx *chain.Tx, addr common.Address) (NFT, error) {
	nft, ok := tx.Code(addr).(NFT)
	if !ok {
		return nil, errUnknownCollection
	}
	return nft, nil
}

func (m *Marketplace) setListing(tx *chain.Tx, key listingKey, l model.Listing) {
	prev, had := m.listings[key]
	m.listings[key] = l
	tx.Journal(func() {
		if had {
			m.listings[key] = prev
		} else {
			delete(m.listings, key)
		}
	})
}

func (m *Marketplace) deleteListing(tx *chain.Tx, key listingKey) {
	prev, had := m.listings[key]
	if !had {
		return
	}
	delete(m.listings, key)
	tx.Journal(func() { m.listings[key] = prev })
}

// validPrice accepts strictly positive prices that fit in a uint256.
func validPrice(p *big.Int) bool {
	if p == nil || p.Sign() <= 0 {
		return false
	}
	_, overflow := uint256.FromBig(p)
	return !overflow
}
