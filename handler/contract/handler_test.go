package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nftify-back-onchain/chain"
	"nftify-back-onchain/config"
	"nftify-back-onchain/gateway/contract"
	handler "nftify-back-onchain/handler/contract"
	"nftify-back-onchain/model"
	contractUsecase "nftify-back-onchain/usecase/contract"
	marketUsecase "nftify-back-onchain/usecase/market"
)

var seller = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

func setup(t *testing.T) (*handler.ContractHandler, string, common.Hash) {
	t.Helper()
	ctx := context.Background()
	c := chain.New()
	dep, err := marketUsecase.Deploy(c, seller, config.DefaultTokenURI, []common.Address{seller}, big.NewInt(1e18))
	require.NoError(t, err)
	uc := marketUsecase.NewMarketUsecase(c, dep.Marketplace, dep.Addresses()...)
	nft := dep.Collections[0].Address()

	id, _, err := uc.Mint(ctx, nft, seller)
	require.NoError(t, err)
	_, err = uc.Approve(ctx, nft, id, dep.Marketplace.Address(), seller)
	require.NoError(t, err)
	receipt, err := uc.ListItem(ctx, nft, id, big.NewInt(1e17), seller)
	require.NoError(t, err)

	gw, err := contract.NewNFTifyContractGateway(ctx, c, dep.Marketplace.Address().Hex())
	require.NoError(t, err)
	return handler.NewContractHandler(contractUsecase.NewContractUsecase(gw, "")), dep.Marketplace.Address().Hex(), receipt.TxHash
}

func TestHandleContractInfo(t *testing.T) {
	h, marketplace, _ := setup(t)

	rec := httptest.NewRecorder()
	h.HandleContractInfo(rec, httptest.NewRequest(http.MethodGet, "/api/v1/contract/info", nil))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, marketplace, body["marketplace"])
}

func TestHandleVerifyTransaction(t *testing.T) {
	h, _, hash := setup(t)

	verify := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.HandleVerifyTransaction(rec, httptest.NewRequest(http.MethodPost, "/api/v1/contract/verify-tx", bytes.NewBufferString(body)))
		return rec
	}

	rec := verify(`{"tx_hash":"` + hash.Hex() + `"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var v model.TxVerification
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	assert.Equal(t, "success", v.Status)
	assert.True(t, v.Success)
	assert.True(t, v.IsContractCall)

	assert.Equal(t, http.StatusBadRequest, verify(`{`).Code)
	assert.Equal(t, http.StatusBadRequest, verify(`{}`).Code)
	assert.Equal(t, http.StatusNotFound, verify(`{"tx_hash":"`+common.HexToHash("0xbeef").Hex()+`"}`).Code)
}

func TestHandlePastEvents(t *testing.T) {
	h, _, _ := setup(t)

	get := func(query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.HandlePastEvents(rec, httptest.NewRequest(http.MethodGet, "/api/v1/contract/events"+query, nil))
		return rec
	}

	rec := get("")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count  int                  `json:"count"`
		Events []*model.MarketEvent `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, model.EventItemListed, body.Events[0].Type)
	assert.Equal(t, seller.Hex(), body.Events[0].Seller)

	assert.Equal(t, http.StatusBadRequest, get("?from=x").Code)
	assert.Equal(t, http.StatusBadRequest, get("?to=-1").Code)
	assert.NotEqual(t, http.StatusOK, get("?from=5&to=1").Code)
}
