package usecase

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gateway "nftify-back-onchain/gateway/payment"
	"nftify-back-onchain/model"
)

type stubGateway struct {
	purchase *gateway.Purchase
	err      error
	calls    int
}

func (s *stubGateway) GetMarketplaceAddress() string {
	return "0x5FbDB2315678afecb367f032d93F642f64180aa3"
}

func (s *stubGateway) CheckPurchase(ctx context.Context, txHash string, nftAddr common.Address, tokenID uint64) (*gateway.Purchase, error) {
	s.calls++
	return s.purchase, s.err
}

func TestConfirmPurchasePaid(t *testing.T) {
	buyer := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	gw := &stubGateway{purchase: &gateway.Purchase{
		Status: model.StatusPaid,
		Buyer:  buyer,
		Price:  big.NewInt(1e17),
		Paid:   big.NewInt(2e17),
	}}
	uc := NewPaymentUsecase(gw)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	nft := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	order, err := uc.ConfirmPurchase(context.Background(), "0xabc", nft, 7)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderID, "ORDER-"))
	assert.Equal(t, model.StatusPaid, order.Status)
	assert.Equal(t, buyer.Hex(), order.Buyer)
	assert.Equal(t, "100000000000000000", order.PriceWei)
	assert.Equal(t, "0.1", order.PriceETH)
	assert.Equal(t, "200000000000000000", order.PaidWei)
	assert.Equal(t, nft.Hex(), order.NftAddress)
	assert.Equal(t, uint64(7), order.TokenId)
	assert.Equal(t, fixed, order.CreatedAt)
}

func TestConfirmPurchasePending(t *testing.T) {
	uc := NewPaymentUsecase(&stubGateway{purchase: &gateway.Purchase{Status: model.StatusPending}})
	order, err := uc.ConfirmPurchase(context.Background(), "0xabc", common.Address{}, 0)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, order.Status)
	assert.Empty(t, order.Buyer)
}

func TestConfirmPurchaseErrors(t *testing.T) {
	gw := &stubGateway{err: gateway.ErrPaymentMismatch}
	uc := NewPaymentUsecase(gw)

	_, err := uc.ConfirmPurchase(context.Background(), "", common.Address{}, 0)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Equal(t, 0, gw.calls)

	_, err = uc.ConfirmPurchase(context.Background(), "0xabc", common.Address{}, 0)
	assert.ErrorIs(t, err, gateway.ErrPaymentMismatch)
}
