package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"nftify-back-onchain/handler/middleware"
	"nftify-back-onchain/usecase/payment"
)

type PaymentHandler struct {
	paymentUC usecase.PaymentUsecase
}

func NewPaymentHandler(uc usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{paymentUC: uc}
}

// ConfirmPurchaseRequest is the body of a purchase confirmation.
type ConfirmPurchaseRequest struct {
	TxHash     string `json:"tx_hash"`
	NftAddress string `json:"nft_address"`
	TokenId    uint64 `json:"token_id"`
}

// HandleConfirmPurchase verifies a buyItem transaction and returns the order.
func (h *PaymentHandler) HandleConfirmPurchase(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, middleware.BadRequest("invalid request body"))
		return
	}
	if req.TxHash == "" {
		middleware.WriteError(w, middleware.BadRequest("tx_hash is required"))
		return
	}
	if !common.IsHexAddress(req.NftAddress) {
		middleware.WriteError(w, middleware.BadRequest("invalid nft_address"))
		return
	}

	order, err := h.paymentUC.ConfirmPurchase(r.Context(), req.TxHash, common.HexToAddress(req.NftAddress), req.TokenId)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}
