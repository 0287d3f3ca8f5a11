package contract_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nftify-back-onchain/chain"
	"nftify-back-onchain/config"
	"nftify-back-onchain/gateway/contract"
	"nftify-back-onchain/model"
	marketUsecase "nftify-back-onchain/usecase/market"
)

var (
	seller = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	buyer  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	price  = big.NewInt(1e17)
)

type env struct {
	chain *chain.Chain
	dep   *marketUsecase.Deployment
	uc    marketUsecase.MarketUsecase
	gw    *contract.NFTifyContractGateway
	nft   common.Address
}

func setup(t *testing.T) *env {
	t.Helper()
	c := chain.New()
	dep, err := marketUsecase.Deploy(c, seller, config.DefaultTokenURI, []common.Address{seller, buyer}, big.NewInt(1e18))
	require.NoError(t, err)
	gw, err := contract.NewNFTifyContractGateway(context.Background(), c, dep.Marketplace.Address().Hex())
	require.NoError(t, err)
	return &env{
		chain: c,
		dep:   dep,
		uc:    marketUsecase.NewMarketUsecase(c, dep.Marketplace, dep.Addresses()...),
		gw:    gw,
		nft:   dep.Collections[0].Address(),
	}
}

// listToken mints token 0 to the seller, approves the marketplace and lists it.
func (e *env) listToken(t *testing.T) uint64 {
	t.Helper()
	ctx := context.Background()
	id, _, err := e.uc.Mint(ctx, e.nft, seller)
	require.NoError(t, err)
	_, err = e.uc.Approve(ctx, e.nft, id, e.dep.Marketplace.Address(), seller)
	require.NoError(t, err)
	_, err = e.uc.ListItem(ctx, e.nft, id, price, seller)
	require.NoError(t, err)
	return id
}

func TestNewGatewayRejectsBadAddress(t *testing.T) {
	_, err := contract.NewNFTifyContractGateway(context.Background(), chain.New(), "nope")
	assert.Error(t, err)
}

func TestReads(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	l, err := e.gw.GetListing(ctx, e.nft, 0)
	require.NoError(t, err)
	assert.False(t, l.Active())

	id := e.listToken(t)
	l, err = e.gw.GetListing(ctx, e.nft, id)
	require.NoError(t, err)
	assert.Equal(t, seller, l.Seller)
	assert.Equal(t, 0, price.Cmp(l.Price))

	tok, err := e.gw.GetToken(ctx, e.nft, id)
	require.NoError(t, err)
	assert.Equal(t, seller.Hex(), tok.Owner)
	assert.Equal(t, e.dep.Marketplace.Address().Hex(), tok.Approved)
	assert.Equal(t, config.DefaultTokenURI, tok.TokenURI)

	_, err = e.gw.GetToken(ctx, e.nft, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = e.uc.BuyItem(ctx, e.nft, id, price, buyer)
	require.NoError(t, err)
	proceeds, err := e.gw.GetProceeds(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, 0, price.Cmp(proceeds))

	bal, err := e.gw.GetBalance(ctx, e.dep.Marketplace.Address())
	require.NoError(t, err)
	assert.Equal(t, 0, price.Cmp(bal))
}

func TestScanPastEvents(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	id := e.listToken(t)
	_, err := e.uc.BuyItem(ctx, e.nft, id, price, buyer)
	require.NoError(t, err)

	events, err := e.gw.ScanPastEvents(ctx, 0, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, model.EventItemListed, events[0].Type)
	assert.Equal(t, seller.Hex(), events[0].Seller)
	assert.Equal(t, e.nft.Hex(), events[0].NftAddress)
	assert.Equal(t, 0, price.Cmp(events[0].Price))

	assert.Equal(t, model.EventItemBought, events[1].Type)
	assert.Equal(t, buyer.Hex(), events[1].Buyer)
	assert.Equal(t, id, events[1].TokenId)

	to := events[0].BlockNo
	events, err = e.gw.ScanPastEvents(ctx, 0, &to)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = e.gw.ScanPastEvents(ctx, 5, &to)
	assert.Error(t, err)
}

func TestSubscribeEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := setup(t)

	events, err := e.gw.SubscribeEvents(ctx)
	require.NoError(t, err)

	id := e.listToken(t)
	_, err = e.uc.CancelListing(ctx, e.nft, id, seller)
	require.NoError(t, err)

	var got []model.EventType
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %v", got)
		}
	}
	assert.Equal(t, []model.EventType{model.EventItemListed, model.EventItemCanceled}, got)

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestVerifyTransaction(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.listToken(t)

	receipt, err := e.uc.BuyItem(ctx, e.nft, 0, big.NewInt(1), buyer)
	require.Error(t, err)
	v, err := e.gw.VerifyTransaction(ctx, receipt.TxHash.Hex())
	require.NoError(t, err)
	assert.Equal(t, "failed", v.Status)
	assert.True(t, v.IsContractCall)

	receipt, err = e.uc.BuyItem(ctx, e.nft, 0, price, buyer)
	require.NoError(t, err)
	v, err = e.gw.VerifyTransaction(ctx, receipt.TxHash.Hex())
	require.NoError(t, err)
	assert.Equal(t, "success", v.Status)
	assert.True(t, v.Success)
	assert.Equal(t, receipt.BlockNumber.Uint64(), v.BlockNumber)

	_, err = e.gw.VerifyTransaction(ctx, common.Hash{0x01}.Hex())
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = e.gw.VerifyTransaction(ctx, "zz")
	assert.Error(t, err)
}
