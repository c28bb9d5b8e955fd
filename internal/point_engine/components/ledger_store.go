package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/outbox"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/emotion-market/point-ledger/internal/point_engine/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

// LedgerStoreImpl implements the LedgerStore interface
type LedgerStoreImpl struct {
	accountRepo account.Repository
	ledgerRepo  ledger.Repository
	outboxRepo  outbox.Repository
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewLedgerStore creates a new LedgerStoreImpl
func NewLedgerStore(
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
	clock clockwork.Clock,
	logger *slog.Logger,
) service.LedgerStore {
	return &LedgerStoreImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		outboxRepo:  outboxRepo,
		clock:       clock,
		logger:      logger,
	}
}

func (m *LedgerStoreImpl) Credit(ctx context.Context, tx pgx.Tx, posting service.Posting) (*ledger.Entry, *account.Account, error) {
	return m.post(ctx, tx, posting, true)
}

// Debit fails with ErrInsufficientBalance unless the category allows overdraft.
func (m *LedgerStoreImpl) Debit(ctx context.Context, tx pgx.Tx, posting service.Posting) (*ledger.Entry, *account.Account, error) {
	return m.post(ctx, tx, posting, false)
}

// post locks the account, applies the change, and writes the entry plus its
// outbox message with the same tx.
func (m *LedgerStoreImpl) post(ctx context.Context, tx pgx.Tx, posting service.Posting, credit bool) (*ledger.Entry, *account.Account, error) {
	logger := m.logger.With("account_id", posting.AccountID.String(), "category", string(posting.Category))
	if posting.CorrelationID != "" {
		logger = logger.With("correlation_id", posting.CorrelationID)
	}

	if posting.Amount <= 0 {
		return nil, nil, account.ErrInvalidAmount
	}
	if !posting.Category.Valid() {
		return nil, nil, shared.NewInvalidInput("category", fmt.Sprintf("unknown ledger category %q", posting.Category))
	}

	accountRepoTx := persistence.Bind(m.accountRepo, tx)

	locked, err := accountRepoTx.LockForUpdate(ctx, posting.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			logger.Warn("Account not found for posting", "error", err)
			return nil, nil, err
		}
		logger.Error("Failed to lock account", "error", err)
		return nil, nil, fmt.Errorf("failed to lock account %s: %w", posting.AccountID, err)
	}

	now := m.clock.Now().UTC()
	amount := posting.Amount

	var updated account.Account
	switch {
	case credit:
		updated, err = locked.Credit(amount, now)
	case posting.Category.AllowsOverdraft():
		updated, err = locked.Clawback(amount, now)
		amount = -amount
	default:
		updated, err = locked.Debit(amount, now)
		amount = -amount
	}
	if err != nil {
		logger.Warn("Posting refused", "balance", locked.Balance, "amount", posting.Amount, "error", err)
		return nil, nil, err
	}

	if err := accountRepoTx.Update(ctx, &updated); err != nil {
		if errors.Is(err, account.ErrConcurrentModification{AccountID: updated.ID}) {
			logger.Warn("Concurrent modification on account update")
		} else {
			logger.Error("Failed to update account balance", "error", err)
		}
		return nil, nil, err
	}

	entry := &ledger.Entry{
		ID:            uuid.New(),
		AccountID:     posting.AccountID,
		Amount:        amount,
		Category:      posting.Category,
		Description:   posting.Description,
		RefID:         posting.RefID,
		RefKind:       posting.RefKind,
		BalanceAfter:  updated.Balance,
		CorrelationID: posting.CorrelationID,
		CreatedAt:     now,
	}
	if err := persistence.Bind(m.ledgerRepo, tx).Create(ctx, entry); err != nil {
		logger.Error("Failed to append ledger entry", "error", err)
		return nil, nil, err
	}

	message, err := outbox.NewMessage(entry)
	if err != nil {
		logger.Error("Failed to encode outbox payload", "entry_id", entry.ID.String(), "error", err)
		return nil, nil, fmt.Errorf("failed to encode outbox payload for entry %s: %w", entry.ID, err)
	}
	if err := persistence.Bind(m.outboxRepo, tx).Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message", "entry_id", entry.ID.String(), "error", err)
		return nil, nil, err
	}

	logger.Info("Ledger entry posted",
		"entry_id", entry.ID.String(),
		"amount", entry.Amount,
		"balance_after", entry.BalanceAfter,
	)

	return entry, &updated, nil
}
