package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/reward"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/emotion-market/point-ledger/internal/platform/metrics"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

type SubmissionServiceImpl struct {
	txRunner       persistence.TxRunner
	accountRepo    account.Repository
	submissionRepo submission.Repository
	ledgerStore    LedgerStore
	quotaGuard     QuotaGuard
	clock          clockwork.Clock
	logger         *slog.Logger
}

func NewSubmissionService(
	txRunner persistence.TxRunner,
	accountRepo account.Repository,
	submissionRepo submission.Repository,
	ledgerStore LedgerStore,
	quotaGuard QuotaGuard,
	clock clockwork.Clock,
	logger *slog.Logger,
) SubmissionService {
	return &SubmissionServiceImpl{
		txRunner:       txRunner,
		accountRepo:    accountRepo,
		submissionRepo: submissionRepo,
		ledgerStore:    ledgerStore,
		quotaGuard:     quotaGuard,
		clock:          clock,
		logger:         logger,
	}
}

// Submit validates the draft, checks the daily quota, computes the reward and
// commits the submission together with its ledger credit.
func (s *SubmissionServiceImpl) Submit(ctx context.Context, request *SubmitRequest) (*SubmitResult, error) {
	logger := s.logger.With("account_id", request.AccountID.String())
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	if err := request.Draft.Validate(); err != nil {
		metrics.Submissions.WithLabelValues(metrics.ResultRejected).Inc()
		logger.Info("Submission rejected by validation", "error", err)
		return nil, err
	}

	canSubmit, err := s.quotaGuard.CanSubmit(ctx, nil, request.AccountID)
	if err != nil {
		metrics.Submissions.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to check submission quota: %w", err)
	}
	if !canSubmit {
		metrics.Submissions.WithLabelValues(metrics.ResultRejected).Inc()
		logger.Info("Daily submission quota exhausted")
		return nil, submission.ErrQuotaExceeded
	}

	award := reward.Compute(request.Body, request.Permissions)

	var result SubmitResult
	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		// Holding the account row lock makes the quota recount below authoritative.
		if _, err := persistence.Bind(s.accountRepo, tx).LockForUpdate(ctx, request.AccountID); err != nil {
			return err
		}

		remaining, err := s.quotaGuard.Remaining(ctx, tx, request.AccountID)
		if err != nil {
			return err
		}
		if remaining <= 0 {
			return submission.ErrQuotaExceeded
		}

		created := submission.New(request.Draft, award, s.clock.Now().UTC())
		if err := persistence.Bind(s.submissionRepo, tx).Create(ctx, &created); err != nil {
			return err
		}

		ref := created.ID
		_, updated, err := s.ledgerStore.Credit(ctx, tx, Posting{
			AccountID:     request.AccountID,
			Amount:        created.PointsAwarded,
			Category:      ledger.CategorySubmissionReward,
			Description:   fmt.Sprintf("reward for %s submission", created.EmotionType),
			RefID:         &ref,
			RefKind:       ledger.RefKindSubmission,
			CorrelationID: request.CorrelationID,
		})
		if err != nil {
			return err
		}

		result = SubmitResult{
			Submission: &created,
			Balance:    updated.Balance,
			Remaining:  remaining - 1,
		}
		return nil
	})
	if err != nil {
		if isBusinessError(err) {
			metrics.Submissions.WithLabelValues(metrics.ResultRejected).Inc()
			logger.Info("Submission refused", "error", err)
			return nil, err
		}
		metrics.Submissions.WithLabelValues(metrics.ResultError).Inc()
		logger.Error("Failed to commit submission", "error", err)
		return nil, err
	}

	metrics.Submissions.WithLabelValues(metrics.ResultOK).Inc()
	metrics.RecordEntry(string(ledger.CategorySubmissionReward), result.Submission.PointsAwarded)
	logger.Info("Submission accepted",
		"submission_id", result.Submission.ID.String(),
		"points_awarded", result.Submission.PointsAwarded,
		"balance", result.Balance,
	)

	return &result, nil
}

// Reject reverses an approved submission and claws back its reward. The
// clawback may leave the balance negative when the reward was already spent.
func (s *SubmissionServiceImpl) Reject(ctx context.Context, request *ReviewRequest) (*ReviewResult, error) {
	logger := s.logger.With("submission_id", request.SubmissionID.String(), "reviewer", request.Reviewer)
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	var result ReviewResult
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		submissionRepoTx := persistence.Bind(s.submissionRepo, tx)

		current, err := submissionRepoTx.LockForUpdate(ctx, request.SubmissionID)
		if err != nil {
			return err
		}

		rejected, err := current.Reject(request.Reviewer, request.Reason, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if err := submissionRepoTx.UpdateReview(ctx, &rejected); err != nil {
			return err
		}

		ref := rejected.ID
		entry, updated, err := s.ledgerStore.Debit(ctx, tx, Posting{
			AccountID:     rejected.AccountID,
			Amount:        rejected.PointsAwarded,
			Category:      ledger.CategoryRewardClawback,
			Description:   "clawback: " + rejected.ReviewReason,
			RefID:         &ref,
			RefKind:       ledger.RefKindSubmission,
			CorrelationID: request.CorrelationID,
		})
		if err != nil {
			return err
		}

		result = ReviewResult{Submission: &rejected, Clawback: entry, Balance: updated.Balance}
		return nil
	})
	if err != nil {
		logger.Warn("Failed to reject submission", "error", err)
		return nil, err
	}

	metrics.RecordEntry(string(ledger.CategoryRewardClawback), result.Clawback.Amount)
	logger.Info("Submission rejected",
		"points_clawed_back", result.Submission.PointsAwarded,
		"balance", result.Balance,
	)

	return &result, nil
}

// Approve moves a pending submission to approved. The reward was credited at
// creation, so there is no ledger effect.
func (s *SubmissionServiceImpl) Approve(ctx context.Context, request *ReviewRequest) (*ReviewResult, error) {
	var result ReviewResult
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		submissionRepoTx := persistence.Bind(s.submissionRepo, tx)

		current, err := submissionRepoTx.LockForUpdate(ctx, request.SubmissionID)
		if err != nil {
			return err
		}

		approved, err := current.Approve(request.Reviewer, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if err := submissionRepoTx.UpdateReview(ctx, &approved); err != nil {
			return err
		}

		acc, err := persistence.Bind(s.accountRepo, tx).GetByID(ctx, approved.AccountID)
		if err != nil {
			return err
		}

		result = ReviewResult{Submission: &approved, Balance: acc.Balance}
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to approve submission", "submission_id", request.SubmissionID.String(), "error", err)
		return nil, err
	}

	return &result, nil
}

func (s *SubmissionServiceImpl) Get(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	return s.submissionRepo.GetByID(ctx, id)
}

func (s *SubmissionServiceImpl) ListByAccount(ctx context.Context, accountID uuid.UUID, page shared.Page) ([]*submission.Submission, int64, error) {
	list, err := s.submissionRepo.ListByAccount(ctx, accountID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	total, err := s.submissionRepo.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *SubmissionServiceImpl) ListPending(ctx context.Context, page shared.Page) ([]*submission.Submission, int64, error) {
	list, err := s.submissionRepo.ListByStatus(ctx, submission.StatusPending, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	total, err := s.submissionRepo.CountByStatus(ctx, submission.StatusPending)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *SubmissionServiceImpl) Remaining(ctx context.Context, accountID uuid.UUID) (int, error) {
	if _, err := s.accountRepo.GetByID(ctx, accountID); err != nil {
		return 0, err
	}
	return s.quotaGuard.Remaining(ctx, nil, accountID)
}
