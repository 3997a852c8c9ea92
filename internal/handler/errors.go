package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/supernova-store/internal/domain/cart"
	"github.com/xenking/supernova-store/internal/domain/catalog"
	"github.com/xenking/supernova-store/internal/domain/checkout"
	"github.com/xenking/supernova-store/internal/domain/pricing"
	"github.com/xenking/supernova-store/internal/session"
)

// requestError reports a malformed request.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// mapError converts domain errors to an HTTP status and a user-facing
// message. Unknown errors become 500 with a generic message.
func mapError(err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, reqErr.Error()
	}

	var valErr *checkout.ValidationError
	if errors.As(err, &valErr) {
		return http.StatusBadRequest, valErr.Error()
	}

	var qtyErr *cart.InvalidQuantityError
	if errors.As(err, &qtyErr) {
		return http.StatusBadRequest, qtyErr.Error()
	}

	if errors.Is(err, pricing.ErrNegativeRate) || errors.Is(err, pricing.ErrUnknownRate) {
		return http.StatusBadRequest, err.Error()
	}

	var stockErr *catalog.InsufficientStockError
	if errors.As(err, &stockErr) {
		return http.StatusConflict, stockErr.Error()
	}

	if errors.Is(err, checkout.ErrNotAwaitingCustomer) {
		return http.StatusConflict, checkout.ErrNotAwaitingCustomer.Error()
	}

	if errors.Is(err, catalog.ErrUnknownItem) {
		return http.StatusNotFound, "item not found"
	}

	if errors.Is(err, session.ErrNoReceipt) {
		return http.StatusNotFound, "no receipt has been issued"
	}

	return http.StatusInternalServerError, "internal error"
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeError(w, status, msg)
}
