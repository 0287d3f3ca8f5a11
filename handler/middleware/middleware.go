// Package middleware holds the HTTP plumbing shared by every handler:
// request IDs, caller identity and error responses.
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	gateway "nftify-back-onchain/gateway/payment"
	"nftify-back-onchain/model"
)

const (
	RequestIDHeader = "X-Request-ID"
	CallerHeader    = "X-Caller-Address"
)

// ErrBadRequest marks malformed input.
var ErrBadRequest = errors.New("bad request")

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestID tags every request with an ID, echoed in the response, and logs
// its outcome.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Debug("HTTP request", "id", id, "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(start))
	})
}

// Caller returns the identity named by the X-Caller-Address header.
func Caller(r *http.Request) (common.Address, error) {
	v := r.Header.Get(CallerHeader)
	if !common.IsHexAddress(v) {
		return common.Address{}, BadRequest("missing or invalid " + CallerHeader + " header")
	}
	return common.HexToAddress(v), nil
}

// BadRequest wraps msg as an ErrBadRequest.
func BadRequest(msg string) error {
	return &badRequest{msg}
}

type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }
func (e *badRequest) Unwrap() error { return ErrBadRequest }

// StatusOf maps an error to the HTTP status that describes it.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrNotApproved):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyListed), errors.Is(err, model.ErrNotListed), errors.Is(err, model.ErrNothingToWithdraw):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidPrice), errors.Is(err, model.ErrZeroAddress),
		errors.Is(err, model.ErrInvalidArgument), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientPayment), errors.Is(err, model.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, gateway.ErrPaymentMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to encode response", "err", err)
	}
}

// WriteError answers with {"error": ...} and the status mapped from err.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", "err", err)
	}
	WriteJSON(w, status, map[string]string{"error": model.ReasonOf(err)})
}
