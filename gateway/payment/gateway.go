package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"nftify-back-onchain/gateway/contract"
	"nftify-back-onchain/model"
)

// ErrPaymentMismatch means the transaction exists but is not the purchase
// being confirmed.
var ErrPaymentMismatch = errors.New("transaction does not match the purchase")

// ===============================================
// Interface
// ===============================================

type BlockchainGateway interface {
	// GetMarketplaceAddress returns the marketplace purchases are paid to.
	GetMarketplaceAddress() string

	// CheckPurchase verifies that txHash is a successful buyItem of tokenID
	// of nftAddr that paid at least the listing price.
	CheckPurchase(ctx context.Context, txHash string, nftAddr common.Address, tokenID uint64) (*Purchase, error)
}

// Purchase is what the chain says about one buyItem transaction.
type Purchase struct {
	Status      model.PurchaseStatus
	Buyer       common.Address
	Price       *big.Int
	Paid        *big.Int
	BlockNumber uint64
}

// ===============================================
// Implementation: EthGateway
// ===============================================

type EthGateway struct {
	client      ethereum.TransactionReader
	marketplace common.Address
}

// NewEthGateway accepts any transaction reader: an ethclient.Client or the
// local chain.
func NewEthGateway(client ethereum.TransactionReader, marketplaceAddr string) *EthGateway {
	return &EthGateway{
		client:      client,
		marketplace: common.HexToAddress(marketplaceAddr),
	}
}

func (g *EthGateway) GetMarketplaceAddress() string {
	return g.marketplace.Hex()
}

func (g *EthGateway) CheckPurchase(ctx context.Context, txHash string, nftAddr common.Address, tokenID uint64) (*Purchase, error) {
	// 1. Parse the hash
	txHashObj := common.HexToHash(txHash)
	if txHashObj == (common.Hash{}) {
		return nil, fmt.Errorf("invalid transaction hash format: %w", ErrPaymentMismatch)
	}

	// 2. The transaction must exist and be mined
	tx, isPending, err := g.client.TransactionByHash(ctx, txHashObj)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("transaction %s: %w", txHash, model.ErrNotFound)
		}
		log.Warn("Transaction lookup failed", "tx", txHash, "err", err)
		return nil, fmt.Errorf("transaction %s: %w", txHash, err)
	}
	if isPending {
		return &Purchase{Status: model.StatusPending}, nil
	}

	// 3. The receipt must be successful
	receipt, err := g.client.TransactionReceipt(ctx, txHashObj)
	if err != nil {
		return nil, fmt.Errorf("receipt of %s: %w", txHash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction reverted on chain: %w", ErrPaymentMismatch)
	}

	// 4. It must be addressed to the marketplace
	if tx.To() == nil || *tx.To() != g.marketplace {
		return nil, fmt.Errorf("transaction not sent to marketplace %s: %w", g.marketplace.Hex(), ErrPaymentMismatch)
	}

	// 5. It must have bought this token
	bought := g.findItemBought(receipt, nftAddr, tokenID)
	if bought == nil {
		return nil, fmt.Errorf("no ItemBought for %s #%d: %w", nftAddr.Hex(), tokenID, ErrPaymentMismatch)
	}

	// 6. Paid value covers the listing price
	if bought.Price == nil || tx.Value().Cmp(bought.Price) < 0 {
		log.Warn("Insufficient payment", "tx", txHash, "paid", tx.Value(), "price", bought.Price)
		return nil, fmt.Errorf("paid %s: %w", tx.Value(), model.ErrInsufficientPayment)
	}

	log.Info("Purchase verified", "tx", txHash, "nft", nftAddr, "token", tokenID, "buyer", bought.Buyer)
	return &Purchase{
		Status:      model.StatusPaid,
		Buyer:       common.HexToAddress(bought.Buyer),
		Price:       bought.Price,
		Paid:        tx.Value(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

func (g *EthGateway) findItemBought(receipt *types.Receipt, nftAddr common.Address, tokenID uint64) *model.MarketEvent {
	for _, l := range receipt.Logs {
		if l.Address != g.marketplace {
			continue
		}
		ev := contract.ParseLog(*l)
		if ev == nil || ev.Type != model.EventItemBought {
			continue
		}
		if common.HexToAddress(ev.NftAddress) == nftAddr && ev.TokenId == tokenID {
			return ev
		}
	}
	return nil
}
