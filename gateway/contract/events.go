package contract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"nftify-back-onchain/market"
	"nftify-back-onchain/model"
)

// ParseLog decodes a marketplace log. It returns nil for logs that are not
// NFTify events.
func ParseLog(vLog types.Log) *model.MarketEvent {
	if len(vLog.Topics) == 0 {
		return nil
	}

	switch vLog.Topics[0] {
	case market.ABI.Events["ItemListed"].ID:
		return parseItemListed(vLog)
	case market.ABI.Events["ItemCanceled"].ID:
		return parseItemCanceled(vLog)
	case market.ABI.Events["ItemBought"].ID:
		return parseItemBought(vLog)
	default:
		log.Debug("Skipping unknown event", "sig", vLog.Topics[0], "tx", vLog.TxHash)
		return nil
	}
}

func newEvent(typ model.EventType, vLog types.Log) *model.MarketEvent {
	return &model.MarketEvent{
		Type:     typ,
		TxHash:   vLog.TxHash.Hex(),
		BlockNo:  vLog.BlockNumber,
		LogIndex: vLog.Index,
	}
}

func topicAddress(h common.Hash) string { return common.BytesToAddress(h.Bytes()).Hex() }

func topicUint64(h common.Hash) uint64 { return new(big.Int).SetBytes(h.Bytes()).Uint64() }

// indexed: seller, nftAddress, tokenId
func parseItemListed(vLog types.Log) *model.MarketEvent {
	if len(vLog.Topics) < 4 {
		return nil
	}
	event := newEvent(model.EventItemListed, vLog)
	event.Seller = topicAddress(vLog.Topics[1])
	event.NftAddress = topicAddress(vLog.Topics[2])
	event.TokenId = topicUint64(vLog.Topics[3])
	event.Price = unpackPrice("ItemListed", vLog)
	return event
}

// indexed: seller, nftAddress, tokenId
func parseItemCanceled(vLog types.Log) *model.MarketEvent {
	if len(vLog.Topics) < 4 {
		return nil
	}
	event := newEvent(model.EventItemCanceled, vLog)
	event.Seller = topicAddress(vLog.Topics[1])
	event.NftAddress = topicAddress(vLog.Topics[2])
	event.TokenId = topicUint64(vLog.Topics[3])
	return event
}

// indexed: buyer, nftAddress, tokenId
func parseItemBought(vLog types.Log) *model.MarketEvent {
	if len(vLog.Topics) < 4 {
		return nil
	}
	event := newEvent(model.EventItemBought, vLog)
	event.Buyer = topicAddress(vLog.Topics[1])
	event.NftAddress = topicAddress(vLog.Topics[2])
	event.TokenId = topicUint64(vLog.Topics[3])
	event.Price = unpackPrice("ItemBought", vLog)
	return event
}

func unpackPrice(name string, vLog types.Log) *big.Int {
	data := make(map[string]interface{})
	if err := market.ABI.UnpackIntoMap(data, name, vLog.Data); err != nil {
		log.Warn("Failed to unpack event data", "event", name, "tx", vLog.TxHash, "err", err)
		return nil
	}
	price, _ := data["price"].(*big.Int)
	return price
}
