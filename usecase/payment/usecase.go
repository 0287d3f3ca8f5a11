package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"nftify-back-onchain/gateway/payment"
	"nftify-back-onchain/model"
)

// PaymentUsecase confirms marketplace purchases for the main backend.
type PaymentUsecase interface {
	// ConfirmPurchase checks txHash against the chain and returns the order it settles.
	ConfirmPurchase(ctx context.Context, txHash string, nftAddr common.Address, tokenID uint64) (*model.PurchaseOrder, error)
}

type paymentUsecase struct {
	bcGateway gateway.BlockchainGateway
	now       func() time.Time
}

func NewPaymentUsecase(bc gateway.BlockchainGateway) *paymentUsecase {
	return &paymentUsecase{
		bcGateway: bc,
		now:       time.Now,
	}
}

func (uc *paymentUsecase) ConfirmPurchase(ctx context.Context, txHash string, nftAddr common.Address, tokenID uint64) (*model.PurchaseOrder, error) {
	if txHash == "" {
		return nil, fmt.Errorf("tx_hash is required: %w", model.ErrInvalidArgument)
	}

	order := &model.PurchaseOrder{
		OrderID:    "ORDER-" + uuid.NewString(),
		NftAddress: nftAddr.Hex(),
		TokenId:    tokenID,
		Market:     uc.bcGateway.GetMarketplaceAddress(),
		Status:     model.StatusPending,
		TxHash:     txHash,
		CreatedAt:  uc.now(),
	}

	purchase, err := uc.bcGateway.CheckPurchase(ctx, txHash, nftAddr, tokenID)
	if err != nil {
		return nil, err
	}
	order.Status = purchase.Status
	if purchase.Status != model.StatusPaid {
		return order, nil
	}

	order.Buyer = purchase.Buyer.Hex()
	order.PriceWei = purchase.Price.String()
	order.PriceETH = model.FormatEther(purchase.Price)
	order.PaidWei = purchase.Paid.String()
	return order, nil
}
