package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"nftify-back-onchain/handler/middleware"
	"nftify-back-onchain/usecase/contract"
)

type ContractHandler struct {
	contractUC usecase.ContractUsecase
}

func NewContractHandler(uc usecase.ContractUsecase) *ContractHandler {
	return &ContractHandler{contractUC: uc}
}

// VerifyTxRequest is the body of a transaction verification.
type VerifyTxRequest struct {
	TxHash string `json:"tx_hash"`
}

// HandleVerifyTransaction reports the mined status of a transaction.
func (h *ContractHandler) HandleVerifyTransaction(w http.ResponseWriter, r *http.Request) {
	var req VerifyTxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, middleware.BadRequest("invalid request body"))
		return
	}

	if req.TxHash == "" {
		middleware.WriteError(w, middleware.BadRequest("tx_hash is required"))
		return
	}

	verification, err := h.contractUC.VerifyTransaction(r.Context(), req.TxHash)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verification)
}

// HandleContractInfo returns the marketplace address.
func (h *ContractHandler) HandleContractInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]string{
		"marketplace": h.contractUC.ContractAddress(),
		"message":     "Contract API is running",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// HandlePastEvents scans marketplace events between the from and to query
// parameters. Missing from means genesis, missing to means head.
func (h *ContractHandler) HandlePastEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var from uint64
	if v := q.Get("from"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			middleware.WriteError(w, middleware.BadRequest("invalid from block"))
			return
		}
		from = n
	}
	var to *uint64
	if v := q.Get("to"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			middleware.WriteError(w, middleware.BadRequest("invalid to block"))
			return
		}
		to = &n
	}

	events, err := h.contractUC.PastEvents(r.Context(), from, to)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}
