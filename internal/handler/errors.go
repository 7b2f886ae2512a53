package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pricing-catalog/internal/domain/product"
)

// errorStatus maps a catalog error to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, product.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, product.ErrDuplicateProduct):
		return http.StatusConflict
	case errors.Is(err, product.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a {"code","message"} body. Server side failures
// are logged and their details are not exposed to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()

	switch status {
	case http.StatusInternalServerError:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal server error"
	case http.StatusServiceUnavailable:
		zctx.From(r.Context()).Warn("Store unavailable", zap.Error(err))
		msg = "service temporarily unavailable"
		w.Header().Set("Retry-After", "1")
	}

	writeErrorBody(w, status, msg)
}
