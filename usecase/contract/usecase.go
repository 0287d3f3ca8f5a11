package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"nftify-back-onchain/gateway/contract"
	"nftify-back-onchain/model"
)

// ContractUsecase exposes marketplace reads and relays marketplace events.
type ContractUsecase interface {
	// StartEventListener subscribes to marketplace events and relays each one
	// to the backend until ctx is done.
	StartEventListener(ctx context.Context) error

	GetListing(ctx context.Context, nftAddr common.Address, tokenID uint64) (model.Listing, error)
	GetProceeds(ctx context.Context, seller common.Address) (*big.Int, error)
	GetToken(ctx context.Context, nftAddr common.Address, tokenID uint64) (*model.TokenInfo, error)
	GetBalance(ctx context.Context, account common.Address) (*big.Int, error)

	// PastEvents decodes marketplace events in a block range.
	PastEvents(ctx context.Context, fromBlock uint64, toBlock *uint64) ([]*model.MarketEvent, error)

	// VerifyTransaction checks a transaction on chain.
	VerifyTransaction(ctx context.Context, txHash string) (*model.TxVerification, error)

	ContractAddress() string
}

type contractUsecase struct {
	gateway        contract.ContractGateway
	backendBaseURL string
	httpClient     *http.Client
}

// NewContractUsecase builds the usecase. With an empty backendBaseURL events
// are logged but not relayed.
func NewContractUsecase(gw contract.ContractGateway, backendBaseURL string) *contractUsecase {
	return &contractUsecase{
		gateway:        gw,
		backendBaseURL: backendBaseURL,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (uc *contractUsecase) StartEventListener(ctx context.Context) error {
	eventChan, err := uc.gateway.SubscribeEvents(ctx)
	if err != nil {
		return err
	}

	go func() {
		for event := range eventChan {
			uc.handleEvent(ctx, event)
		}
		log.Info("Contract event listener stopped")
	}()

	log.Info("Contract event listener started", "marketplace", uc.gateway.GetContractAddress())
	return nil
}

// endpointFor maps an event to its backend webhook path and payload.
func endpointFor(event *model.MarketEvent) (string, map[string]interface{}, bool) {
	payload := map[string]interface{}{
		"nft_address":  event.NftAddress,
		"token_id":     event.TokenId,
		"tx_hash":      event.TxHash,
		"block_number": event.BlockNo,
	}
	if event.Price != nil {
		payload["price_wei"] = event.Price.String()
		payload["price_eth"] = model.FormatEther(event.Price)
	}

	switch event.Type {
	case model.EventItemListed:
		payload["seller"] = event.Seller
		return "/api/v1/blockchain/item-listed", payload, true
	case model.EventItemCanceled:
		payload["seller"] = event.Seller
		return "/api/v1/blockchain/item-canceled", payload, true
	case model.EventItemBought:
		payload["buyer"] = event.Buyer
		return "/api/v1/blockchain/item-bought", payload, true
	default:
		return "", nil, false
	}
}

func (uc *contractUsecase) handleEvent(ctx context.Context, event *model.MarketEvent) {
	log.Info("Marketplace event", "type", event.Type, "nft", event.NftAddress, "token", event.TokenId, "tx", event.TxHash)

	endpoint, payload, ok := endpointFor(event)
	if !ok {
		log.Warn("Unknown event type", "type", event.Type)
		return
	}
	if uc.backendBaseURL == "" {
		return
	}

	if err := uc.notifyBackend(ctx, endpoint, payload); err != nil {
		log.Error("Failed to notify backend", "event", event.Type, "endpoint", endpoint, "err", err)
		return
	}
	log.Debug("Notified backend", "event", event.Type, "endpoint", endpoint)
}

func (uc *contractUsecase) notifyBackend(ctx context.Context, endpoint string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uc.backendBaseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := uc.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

func (uc *contractUsecase) GetListing(ctx context.Context, nftAddr common.Address, tokenID uint64) (model.Listing, error) {
	return uc.gateway.GetListing(ctx, nftAddr, tokenID)
}

func (uc *contractUsecase) GetProceeds(ctx context.Context, seller common.Address) (*big.Int, error) {
	return uc.gateway.GetProceeds(ctx, seller)
}

func (uc *contractUsecase) GetToken(ctx context.Context, nftAddr common.Address, tokenID uint64) (*model.TokenInfo, error) {
	return uc.gateway.GetToken(ctx, nftAddr, tokenID)
}

func (uc *contractUsecase) GetBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return uc.gateway.GetBalance(ctx, account)
}

func (uc *contractUsecase) PastEvents(ctx context.Context, fromBlock uint64, toBlock *uint64) ([]*model.MarketEvent, error) {
	return uc.gateway.ScanPastEvents(ctx, fromBlock, toBlock)
}

func (uc *contractUsecase) VerifyTransaction(ctx context.Context, txHash string) (*model.TxVerification, error) {
	return uc.gateway.VerifyTransaction(ctx, txHash)
}

func (uc *contractUsecase) ContractAddress() string {
	return uc.gateway.GetContractAddress()
}
