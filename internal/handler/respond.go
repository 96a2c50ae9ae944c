package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/promokit/promo-pricing/internal/domain/order"
	"github.com/promokit/promo-pricing/internal/domain/promotion"
	"github.com/promokit/promo-pricing/internal/domain/voucher"
)

// errorResponse is the JSON body for every error status.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// badRequestError marks client input the handlers rejected before reaching a
// domain service.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Unrecognized errors are
// logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, status, errorResponse{Code: status, Message: "internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Code: status, Message: err.Error()})
}

func statusOf(err error) int {
	var (
		badReq   *badRequestError
		dupErr   *order.DuplicateCodesError
		codeErr  *order.InvalidCodeError
		minOrder *voucher.MinimumOrderError
	)
	switch {
	case errors.As(err, &badReq),
		errors.As(err, &dupErr),
		errors.As(err, &codeErr),
		errors.As(err, &minOrder),
		errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest
	case errors.Is(err, voucher.ErrCodeExists),
		errors.Is(err, promotion.ErrCodeExists):
		return http.StatusConflict
	case errors.Is(err, voucher.ErrNotFound),
		errors.Is(err, promotion.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
