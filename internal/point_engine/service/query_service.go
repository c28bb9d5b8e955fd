package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/google/uuid"
)

// MaxStatisticsRange bounds a single Statistics request.
const MaxStatisticsRange = 366 * 24 * time.Hour

const dayLayout = "2006-01-02"

type QueryServiceImpl struct {
	accountRepo account.Repository
	ledgerRepo  ledger.Repository
	quotaGuard  QuotaGuard
	location    *time.Location
	logger      *slog.Logger
}

// NewQueryService builds the read side. Daily statistics are bucketed by the
// calendar days of loc; nil means UTC.
func NewQueryService(
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	quotaGuard QuotaGuard,
	loc *time.Location,
	logger *slog.Logger,
) QueryService {
	if loc == nil {
		loc = time.UTC
	}
	return &QueryServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		quotaGuard:  quotaGuard,
		location:    loc,
		logger:      logger,
	}
}

func (s *QueryServiceImpl) Summary(ctx context.Context, accountID uuid.UUID) (*Summary, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	totals, err := s.ledgerRepo.Totals(ctx, accountID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.quotaGuard.Remaining(ctx, nil, accountID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		AccountID:      acc.ID,
		Balance:        acc.Balance,
		TotalEarned:    totals.Earned,
		TotalSpent:     totals.Spent,
		RemainingToday: remaining,
		DailyLimit:     submission.DailyLimit,
	}, nil
}

// History pages through an account's entries, newest first.
func (s *QueryServiceImpl) History(ctx context.Context, accountID uuid.UUID, filter ledger.Filter, page shared.Page) ([]*ledger.Entry, int64, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, 0, shared.NewInvalidInput("category", "unknown ledger category "+string(filter.Category))
	}
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, 0, err
	}

	entries, err := s.ledgerRepo.ListByAccount(ctx, accountID, filter, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	total, err := s.ledgerRepo.CountByAccount(ctx, accountID, filter)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// Statistics aggregates entries with from <= created_at < to. Every calendar
// day touched by the range gets a bucket, including days without entries.
func (s *QueryServiceImpl) Statistics(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*Statistics, error) {
	if !to.After(from) {
		return nil, shared.NewInvalidInput("to", "must be after from")
	}
	if to.Sub(from) > MaxStatisticsRange {
		return nil, shared.NewInvalidInput("to", "range must not exceed 366 days")
	}
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	entries, err := s.ledgerRepo.ListByAccountInRange(ctx, accountID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		From:              from.UTC(),
		To:                to.UTC(),
		EntryCount:        len(entries),
		EarningBreakdown:  make(map[ledger.Category]int64),
		SpendingBreakdown: make(map[ledger.Category]int64),
	}

	buckets := s.emptyBuckets(from, to)
	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b.Date] = i
	}

	for _, e := range entries {
		i, ok := index[e.CreatedAt.In(s.location).Format(dayLayout)]
		if !ok {
			continue
		}
		if e.IsCredit() {
			stats.TotalEarned += e.Amount
			stats.EarningBreakdown[e.Category] += e.Amount
			buckets[i].Earned += e.Amount
		} else {
			stats.TotalSpent += -e.Amount
			stats.SpendingBreakdown[e.Category] += -e.Amount
			buckets[i].Spent += -e.Amount
		}
		buckets[i].Net += e.Amount
	}

	stats.NetGain = stats.TotalEarned - stats.TotalSpent
	stats.Daily = buckets

	return stats, nil
}

func (s *QueryServiceImpl) emptyBuckets(from, to time.Time) []DayBucket {
	local := from.In(s.location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)

	var buckets []DayBucket
	for day.Before(to) {
		buckets = append(buckets, DayBucket{Date: day.Format(dayLayout)})
		day = day.AddDate(0, 0, 1)
	}
	return buckets
}

// Reconcile checks that the stored balance equals both the sum of the log and
// the balance snapshot of the latest entry.
func (s *QueryServiceImpl) Reconcile(ctx context.Context, accountID uuid.UUID) (*Reconciliation, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	totals, err := s.ledgerRepo.Totals(ctx, accountID)
	if err != nil {
		return nil, err
	}

	latest, err := s.ledgerRepo.Latest(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result := &Reconciliation{
		AccountID:     accountID,
		StoredBalance: acc.Balance,
		LedgerSum:     totals.Net(),
		EntryCount:    totals.Count,
	}

	if latest == nil {
		result.Consistent = acc.Balance == 0 && totals.Count == 0
	} else {
		balanceAfter := latest.BalanceAfter
		result.LatestBalance = &balanceAfter
		result.Consistent = acc.Balance == totals.Net() && acc.Balance == balanceAfter
	}

	if !result.Consistent {
		s.logger.Error("Ledger reconciliation mismatch",
			"account_id", accountID.String(),
			"stored_balance", result.StoredBalance,
			"ledger_sum", result.LedgerSum,
		)
	}

	return result, nil
}
