package handler

import (
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/domain/reward"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
)

// PaginationParams are the query parameters of list endpoints.
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// AccountResponse is an account in API responses.
type AccountResponse struct {
	ID        string `json:"id"`
	Balance   int64  `json:"balance"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		Balance:   acc.Balance,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

// LedgerEntryResponse is one ledger line.
type LedgerEntryResponse struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	Amount       int64  `json:"amount"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	RefID        string `json:"ref_id,omitempty"`
	RefKind      string `json:"ref_kind,omitempty"`
	BalanceAfter int64  `json:"balance_after"`
	CreatedAt    string `json:"created_at"`
}

func mapEntryToResponse(entry *ledger.Entry) LedgerEntryResponse {
	response := LedgerEntryResponse{
		ID:           entry.ID.String(),
		AccountID:    entry.AccountID.String(),
		Amount:       entry.Amount,
		Category:     string(entry.Category),
		Description:  entry.Description,
		RefKind:      string(entry.RefKind),
		BalanceAfter: entry.BalanceAfter,
		CreatedAt:    entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.RefID != nil {
		response.RefID = entry.RefID.String()
	}
	return response
}

// HistoryParams filter the ledger history.
type HistoryParams struct {
	PaginationParams
	Category string `form:"category"`
}

// StatisticsParams bound the statistics window. Both are RFC3339 timestamps.
type StatisticsParams struct {
	From time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	To   time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
}

// AdjustRequest is an operator balance correction.
type AdjustRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

// AdjustResponse reports the entry an adjustment wrote.
type AdjustResponse struct {
	Entry   LedgerEntryResponse `json:"entry"`
	Balance int64               `json:"balance"`
}

// SubmitRequest is a new emotion submission.
type SubmitRequest struct {
	EmotionType        string   `json:"emotion_type"`
	Intensity          int      `json:"intensity"`
	Body               string   `json:"body"`
	Location           string   `json:"location"`
	Tags               []string `json:"tags"`
	AllowResale        bool     `json:"allow_resale"`
	AllowDerivativeUse bool     `json:"allow_derivative_use"`
}

// SubmissionResponse is a submission in API responses.
type SubmissionResponse struct {
	ID                 string           `json:"id"`
	AccountID          string           `json:"account_id"`
	EmotionType        string           `json:"emotion_type"`
	Intensity          int              `json:"intensity"`
	Body               string           `json:"body"`
	Location           string           `json:"location,omitempty"`
	Tags               []string         `json:"tags,omitempty"`
	AllowResale        bool             `json:"allow_resale"`
	AllowDerivativeUse bool             `json:"allow_derivative_use"`
	PointsAwarded      int64            `json:"points_awarded"`
	Reward             reward.Breakdown `json:"reward"`
	Status             string           `json:"status"`
	ReviewedBy         string           `json:"reviewed_by,omitempty"`
	ReviewReason       string           `json:"review_reason,omitempty"`
	ReviewedAt         string           `json:"reviewed_at,omitempty"`
	CreatedAt          string           `json:"created_at"`
}

func mapSubmissionToResponse(s *submission.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:                 s.ID.String(),
		AccountID:          s.AccountID.String(),
		EmotionType:        string(s.EmotionType),
		Intensity:          s.Intensity,
		Body:               s.Body,
		Location:           string(s.Location),
		Tags:               s.Tags,
		AllowResale:        s.Permissions.AllowResale,
		AllowDerivativeUse: s.Permissions.AllowDerivativeUse,
		PointsAwarded:      s.PointsAwarded,
		Reward:             s.Reward,
		Status:             string(s.Status),
		ReviewedBy:         s.ReviewedBy,
		ReviewReason:       s.ReviewReason,
		CreatedAt:          s.CreatedAt.Format(time.RFC3339),
	}
	if s.ReviewedAt != nil {
		response.ReviewedAt = s.ReviewedAt.Format(time.RFC3339)
	}
	return response
}

// SubmitResponse is what a successful submission returns.
type SubmitResponse struct {
	Submission     SubmissionResponse `json:"submission"`
	PointsAwarded  int64              `json:"points_awarded"`
	Reward         reward.Breakdown   `json:"reward"`
	Balance        int64              `json:"balance"`
	RemainingToday int                `json:"remaining_submissions_today"`
}

// ReviewSubmissionRequest carries an operator decision.
type ReviewSubmissionRequest struct {
	Reason string `json:"reason"`
}

// ReviewSubmissionResponse reports a review and its ledger effect.
type ReviewSubmissionResponse struct {
	Submission SubmissionResponse   `json:"submission"`
	Clawback   *LedgerEntryResponse `json:"clawback,omitempty"`
	Balance    int64                `json:"balance"`
}

// RemainingResponse is the quota left today.
type RemainingResponse struct {
	Remaining  int `json:"remaining"`
	DailyLimit int `json:"daily_limit"`
}

// PurchaseRequest buys one catalog item.
type PurchaseRequest struct {
	ItemID string `json:"item_id" binding:"required,uuid"`
	Note   string `json:"note"`
}

// PurchaseResponse is a purchase in API responses.
type PurchaseResponse struct {
	ID             string `json:"id"`
	AccountID      string `json:"account_id"`
	ItemID         string `json:"item_id"`
	Price          int64  `json:"price"`
	Note           string `json:"note,omitempty"`
	Status         string `json:"status"`
	AccessCount    int    `json:"access_count"`
	LastAccessedAt string `json:"last_accessed_at,omitempty"`
	Rating         *int   `json:"rating,omitempty"`
	ReviewComment  string `json:"review_comment,omitempty"`
	ExpiresAt      string `json:"expires_at"`
	CreatedAt      string `json:"created_at"`
}

func mapPurchaseToResponse(p *purchase.Purchase) PurchaseResponse {
	response := PurchaseResponse{
		ID:            p.ID.String(),
		AccountID:     p.AccountID.String(),
		ItemID:        p.ItemID.String(),
		Price:         p.PointsSpent,
		Note:          p.Note,
		Status:        string(p.Status),
		AccessCount:   p.AccessCount,
		Rating:        p.Rating,
		ReviewComment: p.ReviewComment,
		ExpiresAt:     p.ExpiresAt.Format(time.RFC3339),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
	if p.LastAccessedAt != nil {
		response.LastAccessedAt = p.LastAccessedAt.Format(time.RFC3339)
	}
	return response
}

func mapPurchases(purchases []*purchase.Purchase) []PurchaseResponse {
	out := make([]PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, mapPurchaseToResponse(p))
	}
	return out
}

// PurchaseResultResponse is what a purchase or refund returns.
type PurchaseResultResponse struct {
	Purchase PurchaseResponse `json:"purchase"`
	Balance  int64            `json:"balance"`
}

// ListPurchasesParams filter the purchase listing.
type ListPurchasesParams struct {
	PaginationParams
	ActiveOnly bool `form:"active"`
}

// ExpiringParams is the look-ahead window in hours.
type ExpiringParams struct {
	Hours int `form:"hours,default=24" binding:"min=1,max=168"`
}

// ReviewPurchaseRequest rates a purchase.
type ReviewPurchaseRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SweepResponse reports a manual expiry sweep.
type SweepResponse struct {
	Expired int64 `json:"expired"`
}
