package usecase

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nftify-back-onchain/model"
)

// fakeGateway feeds a fixed channel of events.
type fakeGateway struct {
	events chan *model.MarketEvent
}

func (f *fakeGateway) GetListing(ctx context.Context, nftAddr common.Address, tokenID uint64) (model.Listing, error) {
	return model.Listing{Price: new(big.Int)}, nil
}
func (f *fakeGateway) GetProceeds(ctx context.Context, seller common.Address) (*big.Int, error) {
	return new(big.Int), nil
}
func (f *fakeGateway) GetToken(ctx context.Context, nftAddr common.Address, tokenID uint64) (*model.TokenInfo, error) {
	return &model.TokenInfo{}, nil
}
func (f *fakeGateway) GetBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return new(big.Int), nil
}
func (f *fakeGateway) SubscribeEvents(ctx context.Context) (<-chan *model.MarketEvent, error) {
	return f.events, nil
}
func (f *fakeGateway) ScanPastEvents(ctx context.Context, fromBlock uint64, toBlock *uint64) ([]*model.MarketEvent, error) {
	return nil, nil
}
func (f *fakeGateway) GetContractAddress() string { return "0x5FbDB2315678afecb367f032d93F642f64180aa3" }
func (f *fakeGateway) VerifyTransaction(ctx context.Context, txHash string) (*model.TxVerification, error) {
	return &model.TxVerification{TxHash: txHash}, nil
}

type received struct {
	path string
	body map[string]interface{}
}

func TestEventRelay(t *testing.T) {
	hits := make(chan received, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		hits <- received{path: r.URL.Path, body: body}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	gw := &fakeGateway{events: make(chan *model.MarketEvent, 4)}
	uc := NewContractUsecase(gw, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, uc.StartEventListener(ctx))

	gw.events <- &model.MarketEvent{Type: model.EventItemListed, NftAddress: "0xnft", TokenId: 3, Seller: "0xseller", Price: big.NewInt(1e17)}
	gw.events <- &model.MarketEvent{Type: model.EventItemBought, NftAddress: "0xnft", TokenId: 3, Buyer: "0xbuyer", Price: big.NewInt(1e17)}
	gw.events <- &model.MarketEvent{Type: model.EventItemCanceled, NftAddress: "0xnft", TokenId: 4, Seller: "0xseller"}
	close(gw.events)

	want := []struct {
		path, party, who string
	}{
		{"/api/v1/blockchain/item-listed", "seller", "0xseller"},
		{"/api/v1/blockchain/item-bought", "buyer", "0xbuyer"},
		{"/api/v1/blockchain/item-canceled", "seller", "0xseller"},
	}
	for _, w := range want {
		select {
		case got := <-hits:
			assert.Equal(t, w.path, got.path)
			assert.Equal(t, w.who, got.body[w.party])
			assert.Equal(t, "0xnft", got.body["nft_address"])
		case <-time.After(2 * time.Second):
			t.Fatalf("no request for %s", w.path)
		}
	}
}

func TestEndpointForPrice(t *testing.T) {
	path, payload, ok := endpointFor(&model.MarketEvent{Type: model.EventItemListed, Price: big.NewInt(1e17)})
	require.True(t, ok)
	assert.Equal(t, "/api/v1/blockchain/item-listed", path)
	assert.Equal(t, "100000000000000000", payload["price_wei"])
	assert.Equal(t, "0.1", payload["price_eth"])

	_, payload, ok = endpointFor(&model.MarketEvent{Type: model.EventItemCanceled})
	require.True(t, ok)
	assert.NotContains(t, payload, "price_wei")

	_, _, ok = endpointFor(&model.MarketEvent{Type: "Other"})
	assert.False(t, ok)
}

func TestNotifyBackendStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	uc := NewContractUsecase(&fakeGateway{}, srv.URL)
	err := uc.notifyBackend(context.Background(), "/x", map[string]string{"a": "b"})
	assert.Error(t, err)
}
