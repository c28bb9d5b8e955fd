package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/platform/metrics"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

type AccountServiceImpl struct {
	txRunner    persistence.TxRunner
	accountRepo account.Repository
	ledgerStore LedgerStore
	clock       clockwork.Clock
	logger      *slog.Logger
}

func NewAccountService(
	txRunner persistence.TxRunner,
	accountRepo account.Repository,
	ledgerStore LedgerStore,
	clock clockwork.Clock,
	logger *slog.Logger,
) AccountService {
	return &AccountServiceImpl{
		txRunner:    txRunner,
		accountRepo: accountRepo,
		ledgerStore: ledgerStore,
		clock:       clock,
		logger:      logger,
	}
}

// Open creates the account and posts the signup grant as its first entry.
func (s *AccountServiceImpl) Open(ctx context.Context, accountID uuid.UUID, correlationID string) (*account.Account, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewInvalidInput("account_id", "must not be empty")
	}

	var opened *account.Account
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		created := account.New(accountID, s.clock.Now().UTC())
		if err := persistence.Bind(s.accountRepo, tx).Create(ctx, &created); err != nil {
			return err
		}

		_, updated, err := s.ledgerStore.Credit(ctx, tx, Posting{
			AccountID:     accountID,
			Amount:        account.SignupGrant,
			Category:      ledger.CategorySignupGrant,
			Description:   "signup grant",
			CorrelationID: correlationID,
		})
		if err != nil {
			return err
		}
		opened = updated
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to open account", "account_id", accountID.String(), "error", err)
		return nil, err
	}

	metrics.RecordEntry(string(ledger.CategorySignupGrant), account.SignupGrant)
	s.logger.Info("Account opened", "account_id", accountID.String(), "balance", opened.Balance)

	return opened, nil
}

func (s *AccountServiceImpl) Get(ctx context.Context, accountID uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, accountID)
}

// Adjust posts an operator correction. A negative delta may not overdraw the account.
func (s *AccountServiceImpl) Adjust(ctx context.Context, request *AdjustRequest) (*ledger.Entry, *account.Account, error) {
	if request.Delta == 0 {
		return nil, nil, shared.NewInvalidInput("delta", "must not be zero")
	}
	reason := strings.TrimSpace(request.Reason)
	if reason == "" {
		return nil, nil, shared.NewInvalidInput("reason", "must not be blank")
	}

	posting := Posting{
		AccountID:     request.AccountID,
		Amount:        request.Delta,
		Category:      ledger.CategoryAdminAdjustment,
		Description:   "adjustment: " + reason,
		CorrelationID: request.CorrelationID,
	}

	var (
		entry   *ledger.Entry
		updated *account.Account
	)
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		if request.Delta > 0 {
			entry, updated, err = s.ledgerStore.Credit(ctx, tx, posting)
		} else {
			posting.Amount = -request.Delta
			entry, updated, err = s.ledgerStore.Debit(ctx, tx, posting)
		}
		return err
	})
	if err != nil {
		s.logger.Warn("Failed to adjust balance", "account_id", request.AccountID.String(), "delta", request.Delta, "error", err)
		return nil, nil, err
	}

	metrics.RecordEntry(string(ledger.CategoryAdminAdjustment), entry.Amount)
	s.logger.Info("Balance adjusted",
		"account_id", request.AccountID.String(),
		"delta", request.Delta,
		"balance", updated.Balance,
	)

	return entry, updated, nil
}
