package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emotion-market/point-ledger/internal/api_gateway/middleware"
	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/catalog"
	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
)

type errorMapping struct {
	status int
	code   string
}

// mapError translates the domain error taxonomy into HTTP terms. The boolean is
// false for errors the caller cannot act on.
func mapError(err error) (errorMapping, bool) {
	switch {
	case errors.Is(err, purchase.ErrInvalidRating):
		return errorMapping{http.StatusBadRequest, "INVALID_RATING"}, true
	case errors.Is(err, account.ErrInvalidAmount):
		return errorMapping{http.StatusBadRequest, "INVALID_AMOUNT"}, true
	case errors.Is(err, shared.ErrInvalidInput):
		return errorMapping{http.StatusBadRequest, "INVALID_INPUT"}, true

	case errors.Is(err, account.ErrAccountNotFound{}):
		return errorMapping{http.StatusNotFound, "ACCOUNT_NOT_FOUND"}, true
	case errors.Is(err, catalog.ErrItemNotFound{}):
		return errorMapping{http.StatusNotFound, "ITEM_NOT_FOUND"}, true
	case errors.Is(err, submission.ErrSubmissionNotFound{}):
		return errorMapping{http.StatusNotFound, "SUBMISSION_NOT_FOUND"}, true
	case errors.Is(err, purchase.ErrPurchaseNotFound{}):
		return errorMapping{http.StatusNotFound, "PURCHASE_NOT_FOUND"}, true

	case errors.Is(err, purchase.ErrAccessDenied):
		return errorMapping{http.StatusForbidden, "ACCESS_DENIED"}, true

	case errors.Is(err, account.ErrAccountExists{}):
		return errorMapping{http.StatusConflict, "ACCOUNT_EXISTS"}, true
	case errors.Is(err, submission.ErrQuotaExceeded):
		return errorMapping{http.StatusConflict, "QUOTA_EXCEEDED"}, true
	case errors.Is(err, purchase.ErrDuplicatePurchase):
		return errorMapping{http.StatusConflict, "DUPLICATE_PURCHASE"}, true
	case errors.Is(err, submission.ErrInvalidTransition{}),
		errors.Is(err, purchase.ErrInvalidTransition{}):
		return errorMapping{http.StatusConflict, "INVALID_TRANSITION"}, true

	case errors.Is(err, account.ErrInsufficientBalance):
		return errorMapping{http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE"}, true
	}
	return errorMapping{}, false
}

// RespondError writes err as an error envelope. Unmapped errors are logged and
// reported as 500 without their text.
func RespondError(c *gin.Context, logger *slog.Logger, err error) {
	if m, ok := mapError(err); ok {
		RespondWithError(c, m.status, m.code, err.Error())
		return
	}

	_ = c.Error(err)
	logger.Error("Request failed",
		"error", err,
		"path", c.FullPath(),
		"correlation_id", middleware.GetCorrelationID(c),
	)
	RespondInternalError(c)
}
