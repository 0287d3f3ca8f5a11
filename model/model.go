package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Listing is an active sale offer. The zero value (null seller, zero price)
// marks a key with no active listing.
type Listing struct {
	Price  *big.Int       `json:"price"`
	Seller common.Address `json:"seller"`
}

// Active reports whether the listing is a live offer rather than the sentinel.
func (l Listing) Active() bool {
	return l.Seller != (common.Address{}) && l.Price != nil && l.Price.Sign() > 0
}

// ===============================================
// Marketplace events
// ===============================================

// EventType is the kind of marketplace event.
type EventType string

const (
	EventItemListed   EventType = "ItemListed"
	EventItemCanceled EventType = "ItemCanceled"
	EventItemBought   EventType = "ItemBought"
)

// MarketEvent is a decoded marketplace log.
type MarketEvent struct {
	Type       EventType `json:"type"`
	TxHash     string    `json:"tx_hash"`
	BlockNo    uint64    `json:"block_number"`
	LogIndex   uint      `json:"log_index"`
	NftAddress string    `json:"nft_address"`
	TokenId    uint64    `json:"token_id"`
	Price      *big.Int  `json:"price,omitempty"`
	Seller     string    `json:"seller,omitempty"`
	Buyer      string    `json:"buyer,omitempty"`
}

// TokenInfo is the public state of one minted asset.
type TokenInfo struct {
	NftAddress string `json:"nft_address"`
	TokenId    uint64 `json:"token_id"`
	Owner      string `json:"owner"`
	Approved   string `json:"approved"`
	TokenURI   string `json:"token_uri"`
}

// TxVerification is the result of looking a transaction up on the chain.
type TxVerification struct {
	TxHash         string `json:"tx_hash"`
	Status         string `json:"status"` // "pending", "success", "failed"
	BlockNumber    uint64 `json:"block_number,omitempty"`
	GasUsed        uint64 `json:"gas_used,omitempty"`
	Success        bool   `json:"success"`
	IsContractCall bool   `json:"is_contract_call"`
}

// ===============================================
// Purchase confirmation
// ===============================================

// PurchaseStatus is the state of a purchase confirmation.
type PurchaseStatus string

const (
	StatusPending PurchaseStatus = "PENDING"
	StatusPaid    PurchaseStatus = "PAID"
	StatusError   PurchaseStatus = "PAYMENT_ERROR"
)

// PurchaseOrder summarizes a buyItem transaction once checked against the chain.
type PurchaseOrder struct {
	OrderID    string         `json:"order_id"`
	NftAddress string         `json:"nft_address"`
	TokenId    uint64         `json:"token_id"`
	Buyer      string         `json:"buyer"`
	PriceWei   string         `json:"price_wei"`
	PriceETH   string         `json:"price_eth"`
	PaidWei    string         `json:"paid_wei"`
	Market     string         `json:"marketplace"`
	Status     PurchaseStatus `json:"status"`
	TxHash     string         `json:"tx_hash"`
	CreatedAt  time.Time      `json:"created_at"`
}
