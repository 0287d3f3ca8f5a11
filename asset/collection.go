// Package asset implements BasicNft collections: sequential minting, per
// token ownership, and transfer approvals.
package asset

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"

	"nftify-back-onchain/chain"
	"nftify-back-onchain/model"
)

const ipfsScheme = "ipfs://"

var (
	errZeroMint        = model.Revert(model.ErrZeroAddress, "ERC721: mint to the zero address")
	errZeroTransfer    = model.Revert(model.ErrZeroAddress, "ERC721: transfer to the zero address")
	errInvalidToken    = model.Revert(model.ErrNotFound, "ERC721: invalid token ID")
	errTokenNotExisted = model.Revert(model.ErrNotFound, "BasicNft__TokenNotExisted")
	errApproveCaller   = model.Revert(model.ErrUnauthorized, "ERC721: approve caller is not token owner")
	errNotOwnerOrAppr  = model.Revert(model.ErrUnauthorized, "ERC721: caller is not token owner or approved")
	errIncorrectOwner  = model.Revert(model.ErrUnauthorized, "ERC721: transfer from incorrect owner")
	errBadReceiver     = model.Revert(model.ErrTransferFailed, "ERC721: transfer to non ERC721Receiver implementer")
)

// Receiver is implemented by contracts that accept assets through a safe
// transfer. Returning an error rejects the asset.
type Receiver interface {
	OnAssetReceived(tx *chain.Tx, operator, from common.Address, tokenID uint64) error
}

// Collection is one BasicNft contract. All tokens share the collection's
// token URI.
type Collection struct {
	address  common.Address
	name     string
	symbol   string
	tokenURI string

	counter           uint64
	owners            map[uint64]common.Address
	balances          map[common.Address]uint64
	tokenApprovals    map[uint64]common.Address
	operatorApprovals map[common.Address]map[common.Address]bool
}

// NewCollection creates an undeployed collection. tokenURI must be an
// ipfs:// URI naming a valid CID.
func NewCollection(name, symbol, tokenURI string) (*Collection, error) {
	if err := validateTokenURI(tokenURI); err != nil {
		return nil, err
	}
	return &Collection{
		name:              name,
		symbol:            symbol,
		tokenURI:          tokenURI,
		owners:            make(map[uint64]common.Address),
		balances:          make(map[common.Address]uint64),
		tokenApprovals:    make(map[uint64]common.Address),
		operatorApprovals: make(map[common.Address]map[common.Address]bool),
	}, nil
}

func validateTokenURI(uri string) error {
	if !strings.HasPrefix(uri, ipfsScheme) {
		return fmt.Errorf("token URI %q: want %s scheme", uri, ipfsScheme)
	}
	if _, err := cid.Decode(strings.TrimPrefix(uri, ipfsScheme)); err != nil {
		return fmt.Errorf("token URI %q: %w", uri, err)
	}
	return nil
}

// Bind records the address the collection was deployed at.
func (c *Collection) Bind(addr common.Address) { c.address = addr }

// Address returns the deployed address of the collection.
func (c *Collection) Address() common.Address { return c.address }

func (c *Collection) Name() string { return c.name }
func (c *Collection) Symbol() string { return c.symbol }

// TokenCounter is the identifier the next Mint will assign.
func (c *Collection) TokenCounter() uint64 { return c.counter }

// Mint assigns the next sequential token to caller.
func (c *Collection) Mint(tx *chain.Tx, caller common.Address) (uint64, error) {
	if caller == (common.Address{}) {
		return 0, errZeroMint
	}
	id := c.counter
	c.counter++
	tx.Journal(func() { c.counter-- })

	c.setOwner(tx, id, caller)
	c.addBalance(tx, caller, 1)

	if err := c.emitTransfer(tx, common.Address{}, caller, id); err != nil {
		return 0, err
	}
	return id, nil
}

// OwnerOf returns the owner of a minted token.
func (c *Collection) OwnerOf(tokenID uint64) (common.Address, error) {
	owner, ok := c.owners[tokenID]
	if !ok {
		return common.Address{}, errInvalidToken
	}
	return owner, nil
}

// TokenURI returns the metadata URI of a minted token.
func (c *Collection) TokenURI(tokenID uint64) (string, error) {
	if _, ok := c.owners[tokenID]; !ok {
		return "", errTokenNotExisted
	}
	return c.tokenURI, nil
}

// BalanceOf returns how many tokens owner holds.
func (c *Collection) BalanceOf(owner common.Address) uint64 {
	return c.balances[owner]
}

// GetApproved returns the per-token approved operator, or the zero address.
func (c *Collection) GetApproved(tokenID uint64) (common.Address, error) {
	if _, ok := c.owners[tokenID]; !ok {
		return common.Address{}, errInvalidToken
	}
	return c.tokenApprovals[tokenID], nil
}

// IsApprovedForAll reports whether operator may move every token of owner.
func (c *Collection) IsApprovedForAll(owner, operator common.Address) bool {
	return c.operatorApprovals[owner][operator]
}

// IsApprovedForMarketplace reports whether marketplace may move tokenID on
// behalf of owner.
func (c *Collection) IsApprovedForMarketplace(tokenID uint64, owner, marketplace common.Address) bool {
	if approved, ok := c.tokenApprovals[tokenID]; ok && approved == marketplace {
		return true
	}
	return c.IsApprovedForAll(owner, marketplace)
}

// Approve sets the per-token approved operator. Only the owner may call it.
func (c *Collection) Approve(tx *chain.Tx, tokenID uint64, operator, caller common.Address) error {
	owner, err := c.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if caller != owner {
		return errApproveCaller
	}
	c.setApproval(tx, tokenID, operator)
	return chain.EmitEvent(tx, c.address, ABI.Events["Approval"], []common.Hash{
		chain.AddressTopic(owner), chain.AddressTopic(operator), chain.Uint64Topic(tokenID),
	})
}

// SetApprovalForAll grants or revokes operator rights over all of caller's tokens.
func (c *Collection) SetApprovalForAll(tx *chain.Tx, operator common.Address, approved bool, caller common.Address) error {
	ops, ok := c.operatorApprovals[caller]
	if !ok {
		ops = make(map[common.Address]bool)
		c.operatorApprovals[caller] = ops
	}
	prev, had := ops[operator]
	ops[operator] = approved
	tx.Journal(func() {
		if had {
			ops[operator] = prev
		} else {
			delete(ops, operator)
		}
	})
	return chain.EmitEvent(tx, c.address, ABI.Events["ApprovalForAll"], []common.Hash{
		chain.AddressTopic(caller), chain.AddressTopic(operator),
	}, approved)
}

// TransferFrom moves tokenID from its owner to to. caller must be the owner,
// the approved operator of the token, or an operator of the owner. When to
// has Receiver code it is notified after the move and may reject it.
func (c *Collection) TransferFrom(tx *chain.Tx, from, to common.Address, tokenID uint64, caller common.Address) error {
	owner, err := c.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if !c.mayTransfer(from, caller, tokenID) {
		return errNotOwnerOrAppr
	}
	if owner != from {
		return errIncorrectOwner
	}
	if to == (common.Address{}) {
		return errZeroTransfer
	}

	snap := tx.Snapshot()
	c.clearApproval(tx, tokenID)
	c.addBalance(tx, from, -1)
	c.addBalance(tx, to, 1)
	c.setOwner(tx, tokenID, to)
	if err := c.emitTransfer(tx, from, to, tokenID); err != nil {
		tx.RevertToSnapshot(snap)
		return err
	}

	if r, ok := tx.Code(to).(Receiver); ok {
		if err := r.OnAssetReceived(tx, caller, from, tokenID); err != nil {
			tx.RevertToSnapshot(snap)
			return errBadReceiver.Because(err)
		}
	}
	return nil
}

func (c *Collection) mayTransfer(from, caller common.Address, tokenID uint64) bool {
	if caller == (common.Address{}) {
		return false
	}
	if caller == from || c.IsApprovedForAll(from, caller) {
		return true
	}
	approved, ok := c.tokenApprovals[tokenID]
	return ok && approved == caller
}

func (c *Collection) emitTransfer(tx *chain.Tx, from, to common.Address, tokenID uint64) error {
	return chain.EmitEvent(tx, c.address, ABI.Events["Transfer"], []common.Hash{
		chain.AddressTopic(from), chain.AddressTopic(to), chain.Uint64Topic(tokenID),
	})
}

func (c *Collection) setOwner(tx *chain.Tx, tokenID uint64, owner common.Address) {
	prev, had := c.owners[tokenID]
	c.owners[tokenID] = owner
	tx.Journal(func() {
		if had {
			c.owners[tokenID] = prev
		} else {
			delete(c.owners, tokenID)
		}
	})
}

func (c *Collection) addBalance(tx *chain.Tx, owner common.Address, delta int) {
	prev := c.balances[owner]
	c.balances[owner] = uint64(int64(prev) + int64(delta))
	tx.Journal(func() { c.balances[owner] = prev })
}

func (c *Collection) setApproval(tx *chain.Tx, tokenID uint64, operator common.Address) {
	prev, had := c.tokenApprovals[tokenID]
	c.tokenApprovals[tokenID] = operator
	tx.Journal(func() {
		if had {
			c.tokenApprovals[tokenID] = prev
		} else {
			delete(c.tokenApprovals, tokenID)
		}
	})
}

func (c *Collection) clearApproval(tx *chain.Tx, tokenID uint64) {
	prev, had := c.tokenApprovals[tokenID]
	if !had {
		return
	}
	delete(c.tokenApprovals, tokenID)
	tx.Journal(func() { c.tokenApprovals[tokenID] = prev })
}

func tokenArg(v any) (uint64, error) {
	b, ok := v.(*big.Int)
	if !ok || !b.IsUint64() {
		return 0, errInvalidToken
	}
	return b.Uint64(), nil
}
