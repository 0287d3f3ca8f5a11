package handler

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/mux"

	"nftify-back-onchain/handler/middleware"
	"nftify-back-onchain/model"
	contractUsecase "nftify-back-onchain/usecase/contract"
	marketUsecase "nftify-back-onchain/usecase/market"
)

type MarketHandler struct {
	marketUC   marketUsecase.MarketUsecase // nil when the chain is read-only
	contractUC contractUsecase.ContractUsecase
}

func NewMarketHandler(muc marketUsecase.MarketUsecase, cuc contractUsecase.ContractUsecase) *MarketHandler {
	return &MarketHandler{marketUC: muc, contractUC: cuc}
}

// Routes registers the marketplace API under r. Write routes are only
// registered when a MarketUsecase is available.
func (h *MarketHandler) Routes(r *mux.Router) {
	r.HandleFunc("/info", h.HandleInfo).Methods("GET")
	r.HandleFunc("/collections/{nft}/tokens/{tokenId}", h.HandleGetToken).Methods("GET")
	r.HandleFunc("/listings/{nft}/{tokenId}", h.HandleGetListing).Methods("GET")
	r.HandleFunc("/proceeds/{seller}", h.HandleGetProceeds).Methods("GET")
	r.HandleFunc("/balances/{account}", h.HandleGetBalance).Methods("GET")

	if h.marketUC == nil {
		return
	}
	r.HandleFunc("/collections/{nft}/mint", h.HandleMint).Methods("POST")
	r.HandleFunc("/collections/{nft}/tokens/{tokenId}/approve", h.HandleApprove).Methods("POST")
	r.HandleFunc("/collections/{nft}/approval-for-all", h.HandleSetApprovalForAll).Methods("POST")
	r.HandleFunc("/listings", h.HandleListItem).Methods("POST")
	r.HandleFunc("/listings/{nft}/{tokenId}", h.HandleUpdateListing).Methods("PUT")
	r.HandleFunc("/listings/{nft}/{tokenId}", h.HandleCancelListing).Methods("DELETE")
	r.HandleFunc("/listings/{nft}/{tokenId}/buy", h.HandleBuyItem).Methods("POST")
	r.HandleFunc("/withdraw", h.HandleWithdraw).Methods("POST")
}

// ===============================================
// Request and response bodies
// ===============================================

type ApproveRequest struct {
	Operator string `json:"operator"`
}

type ApprovalForAllRequest struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

type ListItemRequest struct {
	NftAddress string `json:"nft_address"`
	TokenId    uint64 `json:"token_id"`
	PriceWei   string `json:"price_wei"`
}

type UpdateListingRequest struct {
	PriceWei string `json:"price_wei"`
}

type BuyItemRequest struct {
	ValueWei string `json:"value_wei"`
}

type TxResponse struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	Status      uint64 `json:"status"`
}

type ListingResponse struct {
	NftAddress string `json:"nft_address"`
	TokenId    uint64 `json:"token_id"`
	Seller     string `json:"seller"`
	PriceWei   string `json:"price_wei"`
	PriceETH   string `json:"price_eth"`
	Active     bool   `json:"active"`
}

type AmountResponse struct {
	Account   string `json:"account"`
	AmountWei string `json:"amount_wei"`
	AmountETH string `json:"amount_eth"`
}

// ===============================================
// Parsing helpers
// ===============================================

func addressVar(r *http.Request, name string) (common.Address, error) {
	v := mux.Vars(r)[name]
	if !common.IsHexAddress(v) {
		return common.Address{}, middleware.BadRequest("invalid address " + name)
	}
	return common.HexToAddress(v), nil
}

func tokenVar(r *http.Request) (common.Address, uint64, error) {
	nft, err := addressVar(r, "nft")
	if err != nil {
		return nft, 0, err
	}
	id, err := strconv.ParseUint(mux.Vars(r)["tokenId"], 10, 64)
	if err != nil {
		return nft, 0, middleware.BadRequest("invalid token ID")
	}
	return nft, id, nil
}

func weiField(name, v string) (*big.Int, error) {
	if v == "" {
		return nil, middleware.BadRequest(name + " is required")
	}
	wei, err := model.ParseWei(v)
	if err != nil {
		return nil, middleware.BadRequest(err.Error())
	}
	if wei.Sign() < 0 {
		return nil, middleware.BadRequest(name + " must not be negative")
	}
	return wei, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return middleware.BadRequest("invalid request body")
	}
	return nil
}

func txResponse(receipt *types.Receipt) TxResponse {
	return TxResponse{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Status:      receipt.Status,
	}
}

// writeTx answers a submitted transaction. A reverted transaction still
// carries its hash so the caller can look the receipt up.
func writeTx(w http.ResponseWriter, receipt *types.Receipt, err error, extra map[string]any) {
	if err != nil {
		body := map[string]any{"error": model.ReasonOf(err)}
		if receipt != nil {
			body["tx_hash"] = receipt.TxHash.Hex()
		}
		middleware.WriteJSON(w, middleware.StatusOf(err), body)
		return
	}
	if extra == nil {
		middleware.WriteJSON(w, http.StatusOK, txResponse(receipt))
		return
	}
	extra["tx_hash"] = receipt.TxHash.Hex()
	extra["block_number"] = receipt.BlockNumber.Uint64()
	extra["status"] = receipt.Status
	middleware.WriteJSON(w, http.StatusOK, extra)
}

// ===============================================
// Reads
// ===============================================

// HandleInfo returns the marketplace and collection addresses.
func (h *MarketHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"marketplace": h.contractUC.ContractAddress(),
		"writable":    h.marketUC != nil,
	}
	if h.marketUC != nil {
		var collections []string
		for _, c := range h.marketUC.Collections() {
			collections = append(collections, c.Hex())
		}
		info["collections"] = collections
	}
	middleware.WriteJSON(w, http.StatusOK, info)
}

func (h *MarketHandler) HandleGetToken(w http.ResponseWriter, r *http.Request) {
	nft, id, err := tokenVar(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	tok, err := h.contractUC.GetToken(r.Context(), nft, id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tok)
}

// HandleGetListing returns the listing, or the inactive sentinel.
func (h *MarketHandler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	nft, id, err := tokenVar(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	l, err := h.contractUC.GetListing(r.Context(), nft, id)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, ListingResponse{
		NftAddress: nft.Hex(),
		TokenId:    id,
		Seller:     l.Seller.Hex(),
		PriceWei:   l.Price.String(),
		PriceETH:   model.FormatEther(l.Price),
		Active:     l.Active(),
	})
}

func (h *MarketHandler) HandleGetProceeds(w http.ResponseWriter, r *http.Request) {
	seller, err := addressVar(r, "seller")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	amount, err := h.contractUC.GetProceeds(r.Context(), seller)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, AmountResponse{
		Account:   seller.Hex(),
		AmountWei: amount.String(),
		AmountETH: model.FormatEther(amount),
	})
}

func (h *MarketHandler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	account, err := addressVar(r, "account")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	bal, err := h.contractUC.GetBalance(r.Context(), account)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, AmountResponse{
		Account:   account.Hex(),
		AmountWei: bal.String(),
		AmountETH: model.FormatEther(bal),
	})
}

// ===============================================
// Writes
// ===============================================

func (h *MarketHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.Caller(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	nft, err := addressVar(r, "nft")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	id, receipt, err := h.marketUC.Mint(r.Context(), nft, caller)
	writeTx(w, receipt, err, map[string]any{"token_id": id})
}

func (h *MarketHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.Caller(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	nft, id, err := tokenVar(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var req ApproveRequest
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if !common.IsHexAddress(req.Operator) {
		middleware.WriteError(w, middleware.BadRequest("invalid operator"))
		return
	}
	receipt, err := h.marketUC.Approve(r.Context(), nft, id, common.HexToAddress(req.Operator), caller)
	writeTx(w, receipt, err, nil)
}

func (h *MarketHandler) HandleSetApprovalForAll(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.Caller(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	nft, err := addressVar(r, "nft")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var req ApprovalForAllRequest
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if !common.IsHexAddress(req.Operator) {
		middleware.WriteError(w, middleware.BadRequest("invalid operator"))
		return
	}
	receipt, err := h.marketUC.SetApprovalForAll(r.Context(), nft, common.HexToAddress(req.Operator), req.Approved, caller)
	writeTx(w, receipt, err, nil)
}

func (h *MarketHandler) HandleListItem(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.Caller(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var req ListItemRequest
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if !common.IsHexAddress(req.NftAddress) {
		middleware.WriteError(w, middleware.BadRequest("invalid nft_address"))
		return
	}
	price, err := weiField("price_wei", req.PriceWei)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	receipt, err := h.marketUC.ListItem(r.Context(), common.HexToAddress(req.NftAddress), req.TokenId, price, caller)
	writeTx(w, receipt, err, nil)
}

func (h *MarketHandler) HandleUpdateListing(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.Caller(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	nft, id, err := tokenVar(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var req UpdateListingRequest
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	price, err := weiField("price_wei", req.PriceWei)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	receipt, err := h.marketUC.UpdateListing(r.Context(), nft, id, price, caller)
	writeTx(w, receipt, err, nil)
}

func (h *MarketHandler) HandleCancelListing(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.Caller(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	nft, id, err := tokenVar(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	receipt, err := h.marketUC.CancelListing(r.Context(), nft, id, caller)
	writeTx(w, receipt, err, nil)
}

func (h *MarketHandler) HandleBuyItem(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.Caller(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	nft, id, err := tokenVar(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	var req BuyItemRequest
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}
	value, err := weiField("value_wei", req.ValueWei)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	receipt, err := h.marketUC.BuyItem(r.Context(), nft, id, value, caller)
	writeTx(w, receipt, err, nil)
}

func (h *MarketHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.Caller(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	amount, receipt, err := h.marketUC.Withdraw(r.Context(), caller)
	var extra map[string]any
	if err == nil {
		extra = map[string]any{
			"amount_wei": amount.String(),
			"amount_eth": model.FormatEther(amount),
		}
	}
	writeTx(w, receipt, err, extra)
}
