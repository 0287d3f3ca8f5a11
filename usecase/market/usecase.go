package usecase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"nftify-back-onchain/asset"
	"nftify-back-onchain/chain"
	"nftify-back-onchain/market"
	"nftify-back-onchain/model"
)

var errNoCollection = model.Revert(model.ErrNotFound, "NFTify: unknown collection")

// MarketUsecase submits marketplace and collection transactions on behalf of
// a caller. Every method runs as one host transaction and returns its receipt;
// the receipt is also returned, with failed status, when the transaction reverts.
type MarketUsecase interface {
	Mint(ctx context.Context, nftAddr, caller common.Address) (uint64, *types.Receipt, error)
	Approve(ctx context.Context, nftAddr common.Address, tokenID uint64, operator, caller common.Address) (*types.Receipt, error)
	SetApprovalForAll(ctx context.Context, nftAddr, operator common.Address, approved bool, caller common.Address) (*types.Receipt, error)

	ListItem(ctx context.Context, nftAddr common.Address, tokenID uint64, price *big.Int, caller common.Address) (*types.Receipt, error)
	UpdateListing(ctx context.Context, nftAddr common.Address, tokenID uint64, newPrice *big.Int, caller common.Address) (*types.Receipt, error)
	CancelListing(ctx context.Context, nftAddr common.Address, tokenID uint64, caller common.Address) (*types.Receipt, error)
	BuyItem(ctx context.Context, nftAddr common.Address, tokenID uint64, value *big.Int, buyer common.Address) (*types.Receipt, error)
	Withdraw(ctx context.Context, caller common.Address) (*big.Int, *types.Receipt, error)

	// Collections lists the deployed collection addresses.
	Collections() []common.Address
}

type marketUsecase struct {
	chain       *chain.Chain
	market      *market.Marketplace
	collections []common.Address
}

func NewMarketUsecase(c *chain.Chain, m *market.Marketplace, collections ...common.Address) *marketUsecase {
	return &marketUsecase{chain: c, market: m, collections: collections}
}

func (uc *marketUsecase) Collections() []common.Address {
	return append([]common.Address(nil), uc.collections...)
}

func collectionAt(tx *chain.Tx, addr common.Address) (*asset.Collection, error) {
	nft, ok := tx.Code(addr).(*asset.Collection)
	if !ok {
		return nil, errNoCollection
	}
	return nft, nil
}

// onCollection runs fn against the collection at nftAddr, addressed to it.
func (uc *marketUsecase) onCollection(ctx context.Context, nftAddr, caller common.Address, fn func(tx *chain.Tx, nft *asset.Collection) error) (*types.Receipt, error) {
	return uc.chain.Transact(ctx, chain.TxOpts{From: caller, To: &nftAddr}, func(tx *chain.Tx) error {
		nft, err := collectionAt(tx, nftAddr)
		if err != nil {
			return err
		}
		return fn(tx, nft)
	})
}

// onMarket runs fn as a call to the marketplace carrying value.
func (uc *marketUsecase) onMarket(ctx context.Context, caller common.Address, value *big.Int, fn func(tx *chain.Tx) error) (*types.Receipt, error) {
	to := uc.market.Address()
	return uc.chain.Transact(ctx, chain.TxOpts{From: caller, To: &to, Value: value}, fn)
}

func (uc *marketUsecase) Mint(ctx context.Context, nftAddr, caller common.Address) (uint64, *types.Receipt, error) {
	var id uint64
	receipt, err := uc.onCollection(ctx, nftAddr, caller, func(tx *chain.Tx, nft *asset.Collection) (err error) {
		id, err = nft.Mint(tx, caller)
		return err
	})
	if err != nil {
		return 0, receipt, err
	}
	log.Info("Token minted", "nft", nftAddr, "token", id, "owner", caller, "tx", receipt.TxHash)
	return id, receipt, nil
}

func (uc *marketUsecase) Approve(ctx context.Context, nftAddr common.Address, tokenID uint64, operator, caller common.Address) (*types.Receipt, error) {
	return uc.onCollection(ctx, nftAddr, caller, func(tx *chain.Tx, nft *asset.Collection) error {
		return nft.Approve(tx, tokenID, operator, caller)
	})
}

func (uc *marketUsecase) SetApprovalForAll(ctx context.Context, nftAddr, operator common.Address, approved bool, caller common.Address) (*types.Receipt, error) {
	return uc.onCollection(ctx, nftAddr, caller, func(tx *chain.Tx, nft *asset.Collection) error {
		return nft.SetApprovalForAll(tx, operator, approved, caller)
	})
}

func (uc *marketUsecase) ListItem(ctx context.Context, nftAddr common.Address, tokenID uint64, price *big.Int, caller common.Address) (*types.Receipt, error) {
	receipt, err := uc.onMarket(ctx, caller, nil, func(tx *chain.Tx) error {
		return uc.market.ListItem(tx, nftAddr, tokenID, price, caller)
	})
	if err == nil {
		log.Info("Item listed", "nft", nftAddr, "token", tokenID, "price", model.FormatEther(price), "seller", caller)
	}
	return receipt, err
}

func (uc *marketUsecase) UpdateListing(ctx context.Context, nftAddr common.Address, tokenID uint64, newPrice *big.Int, caller common.Address) (*types.Receipt, error) {
	return uc.onMarket(ctx, caller, nil, func(tx *chain.Tx) error {
		return uc.market.UpdateListing(tx, nftAddr, tokenID, newPrice, caller)
	})
}

func (uc *marketUsecase) CancelListing(ctx context.Context, nftAddr common.Address, tokenID uint64, caller common.Address) (*types.Receipt, error) {
	return uc.onMarket(ctx, caller, nil, func(tx *chain.Tx) error {
		return uc.market.CancelListing(tx, nftAddr, tokenID, caller)
	})
}

// BuyItem attaches value to the purchase. The marketplace sees exactly what
// the host moved into its account.
func (uc *marketUsecase) BuyItem(ctx context.Context, nftAddr common.Address, tokenID uint64, value *big.Int, buyer common.Address) (*types.Receipt, error) {
	receipt, err := uc.onMarket(ctx, buyer, value, func(tx *chain.Tx) error {
		return uc.market.BuyItem(tx, nftAddr, tokenID, tx.Value().ToBig(), buyer)
	})
	if err == nil {
		log.Info("Item bought", "nft", nftAddr, "token", tokenID, "buyer", buyer, "paid", model.FormatEther(value))
	}
	return receipt, err
}

func (uc *marketUsecase) Withdraw(ctx context.Context, caller common.Address) (*big.Int, *types.Receipt, error) {
	var amount *big.Int
	receipt, err := uc.onMarket(ctx, caller, nil, func(tx *chain.Tx) (err error) {
		amount, err = uc.market.Withdraw(tx, caller)
		return err
	})
	if err != nil {
		return nil, receipt, err
	}
	log.Info("Proceeds withdrawn", "seller", caller, "amount", model.FormatEther(amount))
	return amount, receipt, nil
}

// Deployment is the set of contracts a local chain starts with.
type Deployment struct {
	Marketplace *market.Marketplace
	Collections []*asset.Collection
}

// Deploy installs the marketplace and the two dev collections, then funds
// every account with balance.
func Deploy(c *chain.Chain, deployer common.Address, tokenURI string, accounts []common.Address, balance *big.Int) (*Deployment, error) {
	d := &Deployment{Marketplace: market.New()}
	c.Deploy(deployer, d.Marketplace)

	for _, name := range []string{"BasicNft", "BasicNftTwo"} {
		nft, err := asset.NewCollection("Dogie", "DOG", tokenURI)
		if err != nil {
			return nil, fmt.Errorf("deploy %s: %w", name, err)
		}
		addr := c.Deploy(deployer, nft)
		log.Info("Collection deployed", "contract", name, "address", addr)
		d.Collections = append(d.Collections, nft)
	}

	for _, acct := range accounts {
		if err := c.Fund(acct, balance); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Addresses returns the collection addresses in deployment order.
func (d *Deployment) Addresses() []common.Address {
	out := make([]common.Address, len(d.Collections))
	for i, nft := range d.Collections {
		out[i] = nft.Address()
	}
	return out
}
