package service

import (
	"errors"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/catalog"
	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
)

// isBusinessError reports whether err is a policy or lookup failure the caller
// can act on, as opposed to a storage fault.
func isBusinessError(err error) bool {
	switch {
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, submission.ErrQuotaExceeded),
		errors.Is(err, submission.ErrSubmissionNotFound{}),
		errors.Is(err, submission.ErrInvalidTransition{}),
		errors.Is(err, account.ErrAccountNotFound{}),
		errors.Is(err, account.ErrAccountExists{}),
		errors.Is(err, account.ErrInsufficientBalance),
		errors.Is(err, account.ErrInvalidAmount),
		errors.Is(err, catalog.ErrItemNotFound{}),
		errors.Is(err, purchase.ErrPurchaseNotFound{}),
		errors.Is(err, purchase.ErrInvalidTransition{}),
		errors.Is(err, purchase.ErrDuplicatePurchase),
		errors.Is(err, purchase.ErrAccessDenied),
		errors.Is(err, purchase.ErrInvalidRating):
		return true
	}
	return false
}
