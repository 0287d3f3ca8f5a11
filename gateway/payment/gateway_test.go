package gateway_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nftify-back-onchain/chain"
	"nftify-back-onchain/config"
	gateway "nftify-back-onchain/gateway/payment"
	"nftify-back-onchain/model"
	marketUsecase "nftify-back-onchain/usecase/market"
)

var (
	seller = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	buyer  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	price  = big.NewInt(1e17)
)

func setup(t *testing.T) (*gateway.EthGateway, marketUsecase.MarketUsecase, common.Address, common.Address) {
	t.Helper()
	ctx := context.Background()
	c := chain.New()
	dep, err := marketUsecase.Deploy(c, seller, config.DefaultTokenURI, []common.Address{seller, buyer}, big.NewInt(1e18))
	require.NoError(t, err)
	uc := marketUsecase.NewMarketUsecase(c, dep.Marketplace, dep.Addresses()...)
	nfts := dep.Addresses()

	for _, nft := range nfts {
		id, _, err := uc.Mint(ctx, nft, seller)
		require.NoError(t, err)
		_, err = uc.Approve(ctx, nft, id, dep.Marketplace.Address(), seller)
		require.NoError(t, err)
		_, err = uc.ListItem(ctx, nft, id, price, seller)
		require.NoError(t, err)
	}
	return gateway.NewEthGateway(c, dep.Marketplace.Address().Hex()), uc, nfts[0], nfts[1]
}

func TestCheckPurchase(t *testing.T) {
	ctx := context.Background()
	gw, uc, nft, _ := setup(t)

	paid := new(big.Int).Add(price, big.NewInt(5))
	receipt, err := uc.BuyItem(ctx, nft, 0, paid, buyer)
	require.NoError(t, err)

	p, err := gw.CheckPurchase(ctx, receipt.TxHash.Hex(), nft, 0)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, p.Status)
	assert.Equal(t, buyer, p.Buyer)
	assert.Equal(t, 0, price.Cmp(p.Price))
	assert.Equal(t, 0, paid.Cmp(p.Paid))
	assert.Equal(t, receipt.BlockNumber.Uint64(), p.BlockNumber)
}

func TestCheckPurchaseWrongToken(t *testing.T) {
	ctx := context.Background()
	gw, uc, nft, other := setup(t)

	receipt, err := uc.BuyItem(ctx, nft, 0, price, buyer)
	require.NoError(t, err)

	_, err = gw.CheckPurchase(ctx, receipt.TxHash.Hex(), other, 0)
	assert.ErrorIs(t, err, gateway.ErrPaymentMismatch)
	_, err = gw.CheckPurchase(ctx, receipt.TxHash.Hex(), nft, 1)
	assert.ErrorIs(t, err, gateway.ErrPaymentMismatch)
}

func TestCheckPurchaseReverted(t *testing.T) {
	ctx := context.Background()
	gw, uc, nft, _ := setup(t)

	receipt, err := uc.BuyItem(ctx, nft, 0, big.NewInt(1), buyer)
	require.Error(t, err)
	_, err = gw.CheckPurchase(ctx, receipt.TxHash.Hex(), nft, 0)
	assert.ErrorIs(t, err, gateway.ErrPaymentMismatch)
}

func TestCheckPurchaseNotMarketplace(t *testing.T) {
	ctx := context.Background()
	gw, uc, nft, _ := setup(t)

	receipt, err := uc.SetApprovalForAll(ctx, nft, buyer, true, seller)
	require.NoError(t, err)
	_, err = gw.CheckPurchase(ctx, receipt.TxHash.Hex(), nft, 0)
	assert.ErrorIs(t, err, gateway.ErrPaymentMismatch)
}

func TestCheckPurchaseUnknownTx(t *testing.T) {
	gw, _, nft, _ := setup(t)
	_, err := gw.CheckPurchase(context.Background(), common.Hash{0x09}.Hex(), nft, 0)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = gw.CheckPurchase(context.Background(), "", nft, 0)
	assert.ErrorIs(t, err, gateway.ErrPaymentMismatch)
}
