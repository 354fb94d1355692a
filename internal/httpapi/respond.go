package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/addisrent/addisrent/internal/escrow"
	"github.com/addisrent/addisrent/internal/middleware"
	"github.com/addisrent/addisrent/internal/review"
	"github.com/addisrent/addisrent/internal/store"
	"github.com/addisrent/addisrent/internal/trust"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "request_failed", "path", r.URL.Path, "error", err)
	}
	respondJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":       code,
			"message":    err.Error(),
			"request_id": middleware.GetRequestID(r.Context()),
		},
	})
}

// errorStatus maps service sentinels to HTTP statuses. Unknown errors
// are internal.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, escrow.ErrValidation),
		errors.Is(err, trust.ErrUnknownEvent):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, escrow.ErrInsufficientBalance):
		return http.StatusBadRequest, "insufficient_balance"
	case errors.Is(err, review.ErrNotAuthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, escrow.ErrEscrowNotFound),
		errors.Is(err, review.ErrReviewNotFound),
		errors.Is(err, review.ErrReportNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, escrow.ErrInvalidState),
		errors.Is(err, review.ErrDuplicateReview),
		errors.Is(err, review.ErrAlreadyResponded),
		errors.Is(err, review.ErrAlreadyResolved),
		errors.Is(err, trust.ErrAlreadyVerified):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, escrow.ErrProviderNotSupported):
		return http.StatusNotImplemented, "provider_not_supported"
	case errors.Is(err, escrow.ErrProviderFailed):
		return http.StatusBadGateway, "provider_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeValid decodes a JSON body into req and runs struct validation.
func decodeValid(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"code":       "invalid_body",
				"message":    "invalid request body",
				"request_id": middleware.GetRequestID(r.Context()),
			},
		})
		return false
	}
	if err := validate.Struct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"code":       "validation_failed",
				"message":    err.Error(),
				"request_id": middleware.GetRequestID(r.Context()),
			},
		})
		return false
	}
	return true
}
