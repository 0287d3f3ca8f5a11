package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"nftify-back-onchain/asset"
	"nftify-back-onchain/market"
	"nftify-back-onchain/model"
)

// Backend is the node surface the gateway needs. Both *ethclient.Client and
// the in-process *chain.Chain implement it.
type Backend interface {
	ethereum.ContractCaller
	ethereum.LogFilterer
	ethereum.TransactionReader
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// ContractGateway reads NFTify marketplace state and events.
type ContractGateway interface {
	// GetListing returns the listing for a token, or the zero sentinel.
	GetListing(ctx context.Context, nftAddr common.Address, tokenID uint64) (model.Listing, error)

	// GetProceeds returns the withdrawable balance of seller.
	GetProceeds(ctx context.Context, seller common.Address) (*big.Int, error)

	// GetToken returns owner, approval and URI of a minted token.
	GetToken(ctx context.Context, nftAddr common.Address, tokenID uint64) (*model.TokenInfo, error)

	// GetBalance returns the native balance of account.
	GetBalance(ctx context.Context, account common.Address) (*big.Int, error)

	// SubscribeEvents streams marketplace events as they are mined.
	SubscribeEvents(ctx context.Context) (<-chan *model.MarketEvent, error)

	// ScanPastEvents decodes marketplace events in [fromBlock, toBlock].
	// A nil toBlock scans to the head.
	ScanPastEvents(ctx context.Context, fromBlock uint64, toBlock *uint64) ([]*model.MarketEvent, error)

	// GetContractAddress returns the marketplace address.
	GetContractAddress() string

	// VerifyTransaction reports the mined status of a transaction.
	VerifyTransaction(ctx context.Context, txHash string) (*model.TxVerification, error)
}

// NFTifyContractGateway talks to one deployed NFTify marketplace.
type NFTifyContractGateway struct {
	client          Backend
	contractAddress common.Address
	contractABI     abi.ABI
}

// NewNFTifyContractGateway checks that the backend is reachable and returns
// a gateway bound to the marketplace at contractAddr.
func NewNFTifyContractGateway(ctx context.Context, client Backend, contractAddr string) (*NFTifyContractGateway, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid marketplace address %q", contractAddr)
	}
	g := &NFTifyContractGateway{
		client:          client,
		contractAddress: common.HexToAddress(contractAddr),
		contractABI:     market.ABI,
	}
	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	log.Info("Contract gateway ready", "marketplace", g.contractAddress, "head", header.Number)
	return g, nil
}

func (g *NFTifyContractGateway) GetContractAddress() string {
	return g.contractAddress.Hex()
}

func (g *NFTifyContractGateway) call(ctx context.Context, to common.Address, a abi.ABI, method string, args ...any) ([]any, error) {
	input, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	values, err := a.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func (g *NFTifyContractGateway) GetListing(ctx context.Context, nftAddr common.Address, tokenID uint64) (model.Listing, error) {
	to := g.contractAddress
	input, err := g.contractABI.Pack("getListing", nftAddr, new(big.Int).SetUint64(tokenID))
	if err != nil {
		return model.Listing{}, fmt.Errorf("pack getListing: %w", err)
	}
	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return model.Listing{}, fmt.Errorf("getListing: %w", err)
	}
	return market.UnpackListing(out)
}

func (g *NFTifyContractGateway) GetProceeds(ctx context.Context, seller common.Address) (*big.Int, error) {
	values, err := g.call(ctx, g.contractAddress, g.contractABI, "getProceeds", seller)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(values[0], new(big.Int)).(*big.Int), nil
}

func (g *NFTifyContractGateway) GetToken(ctx context.Context, nftAddr common.Address, tokenID uint64) (*model.TokenInfo, error) {
	id := new(big.Int).SetUint64(tokenID)
	owner, err := g.call(ctx, nftAddr, asset.ABI, "ownerOf", id)
	if err != nil {
		return nil, err
	}
	approved, err := g.call(ctx, nftAddr, asset.ABI, "getApproved", id)
	if err != nil {
		return nil, err
	}
	uri, err := g.call(ctx, nftAddr, asset.ABI, "tokenURI", id)
	if err != nil {
		return nil, err
	}
	return &model.TokenInfo{
		NftAddress: nftAddr.Hex(),
		TokenId:    tokenID,
		Owner:      owner[0].(common.Address).Hex(),
		Approved:   approved[0].(common.Address).Hex(),
		TokenURI:   uri[0].(string),
	}, nil
}

func (g *NFTifyContractGateway) GetBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := g.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", account.Hex(), err)
	}
	return bal, nil
}

// SubscribeEvents follows new marketplace logs until ctx is done or the
// subscription fails. The returned channel is closed when it stops.
func (g *NFTifyContractGateway) SubscribeEvents(ctx context.Context) (<-chan *model.MarketEvent, error) {
	eventChan := make(chan *model.MarketEvent, 100)

	query := ethereum.FilterQuery{
		Addresses: []common.Address{g.contractAddress},
	}
	logs := make(chan types.Log)
	sub, err := g.client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", g.contractAddress.Hex(), err)
	}
	log.Info("Subscribed to marketplace events", "marketplace", g.contractAddress)

	go func() {
		defer close(eventChan)
		defer sub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				log.Debug("Event subscription stopped", "reason", ctx.Err())
				return
			case err := <-sub.Err():
				if err != nil {
					log.Error("Event subscription failed", "err", err)
				}
				return
			case vLog := <-logs:
				event := ParseLog(vLog)
				if event == nil {
					continue
				}
				select {
				case eventChan <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return eventChan, nil
}

func (g *NFTifyContractGateway) ScanPastEvents(ctx context.Context, fromBlock uint64, toBlock *uint64) ([]*model.MarketEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{g.contractAddress},
	}
	if toBlock != nil {
		if *toBlock < fromBlock {
			return nil, fmt.Errorf("invalid block range %d..%d", fromBlock, *toBlock)
		}
		query.ToBlock = new(big.Int).SetUint64(*toBlock)
	}

	logs, err := g.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter logs: %w", err)
	}
	events := make([]*model.MarketEvent, 0, len(logs))
	for _, vLog := range logs {
		if vLog.Address != g.contractAddress {
			continue
		}
		if event := ParseLog(vLog); event != nil {
			events = append(events, event)
		}
	}
	log.Debug("Scanned past events", "from", fromBlock, "logs", len(logs), "events", len(events))
	return events, nil
}

// VerifyTransaction looks txHash up and reports whether it was mined
// successfully and whether it targeted the marketplace.
func (g *NFTifyContractGateway) VerifyTransaction(ctx context.Context, txHash string) (*model.TxVerification, error) {
	txHashObj := common.HexToHash(txHash)
	if txHashObj == (common.Hash{}) {
		return nil, errors.New("invalid transaction hash format")
	}

	tx, isPending, err := g.client.TransactionByHash(ctx, txHashObj)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("transaction %s: %w", txHash, model.ErrNotFound)
		}
		return nil, fmt.Errorf("transaction %s: %w", txHash, err)
	}

	if isPending {
		return &model.TxVerification{
			TxHash:  txHash,
			Status:  "pending",
			Success: false,
		}, nil
	}

	receipt, err := g.client.TransactionReceipt(ctx, txHashObj)
	if err != nil {
		return nil, fmt.Errorf("receipt of %s: %w", txHash, err)
	}

	verification := &model.TxVerification{
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Success:     receipt.Status == types.ReceiptStatusSuccessful,
	}
	if verification.Success {
		verification.Status = "success"
	} else {
		verification.Status = "failed"
	}
	if tx.To() != nil && *tx.To() == g.contractAddress {
		verification.IsContractCall = true
	}
	return verification, nil
}
