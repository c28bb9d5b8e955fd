package service

import (
	"context"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Posting describes one balance change. Amount is always positive: the caller
// picks Credit or Debit.
type Posting struct {
	AccountID     uuid.UUID
	Amount        int64
	Category      ledger.Category
	Description   string
	RefID         *uuid.UUID
	RefKind       ledger.RefKind
	CorrelationID string
}

// LedgerStore is the only writer of balances. Both calls must run inside tx:
// the balance update, the ledger entry and its outbox message commit together.
type LedgerStore interface {
	Credit(ctx context.Context, tx pgx.Tx, posting Posting) (*ledger.Entry, *account.Account, error)
	Debit(ctx context.Context, tx pgx.Tx, posting Posting) (*ledger.Entry, *account.Account, error)
}

// QuotaGuard counts today's approved submissions against submission.DailyLimit.
// A nil tx reads outside any transaction.
type QuotaGuard interface {
	Remaining(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int, error)
	CanSubmit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (bool, error)
}

type SubmitRequest struct {
	submission.Draft
	CorrelationID string
}

type SubmitResult struct {
	Submission *submission.Submission
	Balance    int64
	Remaining  int
}

type ReviewRequest struct {
	SubmissionID  uuid.UUID
	Reviewer      string
	Reason        string
	CorrelationID string
}

type ReviewResult struct {
	Submission *submission.Submission
	// Clawback is nil when the review had no ledger effect.
	Clawback *ledger.Entry
	Balance  int64
}

type SubmissionService interface {
	Submit(ctx context.Context, request *SubmitRequest) (*SubmitResult, error)
	Reject(ctx context.Context, request *ReviewRequest) (*ReviewResult, error)
	Approve(ctx context.Context, request *ReviewRequest) (*ReviewResult, error)
	Get(ctx context.Context, id uuid.UUID) (*submission.Submission, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, page shared.Page) ([]*submission.Submission, int64, error)
	ListPending(ctx context.Context, page shared.Page) ([]*submission.Submission, int64, error)
	Remaining(ctx context.Context, accountID uuid.UUID) (int, error)
}

type PurchaseRequest struct {
	AccountID     uuid.UUID
	ItemID        uuid.UUID
	Note          string
	CorrelationID string
}

type PurchaseResult struct {
	Purchase *purchase.Purchase
	Balance  int64
}

type ReviewPurchaseRequest struct {
	AccountID  uuid.UUID
	PurchaseID uuid.UUID
	Rating     int
	Comment    string
}

type RefundRequest struct {
	PurchaseID    uuid.UUID
	CorrelationID string
}

type PurchaseService interface {
	Purchase(ctx context.Context, request *PurchaseRequest) (*PurchaseResult, error)
	Access(ctx context.Context, accountID, purchaseID uuid.UUID) (*purchase.Purchase, error)
	Review(ctx context.Context, request *ReviewPurchaseRequest) (*purchase.Purchase, error)
	Expire(ctx context.Context, purchaseID uuid.UUID) (*purchase.Purchase, error)
	Refund(ctx context.Context, request *RefundRequest) (*PurchaseResult, error)
	SweepExpired(ctx context.Context) (int64, error)
	Get(ctx context.Context, accountID, purchaseID uuid.UUID) (*purchase.Purchase, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, activeOnly bool, page shared.Page) ([]*purchase.Purchase, int64, error)
	ExpiringWithin(ctx context.Context, accountID uuid.UUID, window time.Duration) ([]*purchase.Purchase, error)
	Stats(ctx context.Context, accountID uuid.UUID) (purchase.Stats, error)
}

type AdjustRequest struct {
	AccountID     uuid.UUID
	Delta         int64
	Reason        string
	CorrelationID string
}

type AccountService interface {
	Open(ctx context.Context, accountID uuid.UUID, correlationID string) (*account.Account, error)
	Get(ctx context.Context, accountID uuid.UUID) (*account.Account, error)
	Adjust(ctx context.Context, request *AdjustRequest) (*ledger.Entry, *account.Account, error)
}

type Summary struct {
	AccountID      uuid.UUID `json:"account_id"`
	Balance        int64     `json:"balance"`
	TotalEarned    int64     `json:"total_earned"`
	TotalSpent     int64     `json:"total_spent"`
	RemainingToday int       `json:"remaining_submissions_today"`
	DailyLimit     int       `json:"daily_submission_limit"`
}

type DayBucket struct {
	Date   string `json:"date"`
	Earned int64  `json:"earned"`
	Spent  int64  `json:"spent"`
	Net    int64  `json:"net"`
}

type Statistics struct {
	From              time.Time                 `json:"from"`
	To                time.Time                 `json:"to"`
	TotalEarned       int64                     `json:"total_earned"`
	TotalSpent        int64                     `json:"total_spent"`
	NetGain           int64                     `json:"net_gain"`
	EntryCount        int                       `json:"entry_count"`
	Daily             []DayBucket               `json:"daily"`
	EarningBreakdown  map[ledger.Category]int64 `json:"earning_breakdown"`
	SpendingBreakdown map[ledger.Category]int64 `json:"spending_breakdown"`
}

type Reconciliation struct {
	AccountID     uuid.UUID `json:"account_id"`
	StoredBalance int64     `json:"stored_balance"`
	LedgerSum     int64     `json:"ledger_sum"`
	LatestBalance *int64    `json:"latest_balance_after,omitempty"`
	EntryCount    int64     `json:"entry_count"`
	Consistent    bool      `json:"consistent"`
}

type QueryService interface {
	Summary(ctx context.Context, accountID uuid.UUID) (*Summary, error)
	History(ctx context.Context, accountID uuid.UUID, filter ledger.Filter, page shared.Page) ([]*ledger.Entry, int64, error)
	Statistics(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*Statistics, error)
	Reconcile(ctx context.Context, accountID uuid.UUID) (*Reconciliation, error)
}
