package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `seq, id, account_id, amount, category, description, ref_id, ref_kind, balance_after, correlation_id, created_at`

// LedgerRepository is the append-only entry log in PostgreSQL.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, account_id, amount, category, description, ref_id, ref_kind, balance_after, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq
	`

	err := r.querier.QueryRow(ctx, query,
		entry.ID,
		entry.AccountID,
		entry.Amount,
		entry.Category,
		entry.Description,
		entry.RefID,
		entry.RefKind,
		entry.BalanceAfter,
		entry.CorrelationID,
		entry.CreatedAt,
	).Scan(&entry.Sequence)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateEntry{EntryID: entry.ID}
		}
		r.logger.Error("Failed to create ledger entry",
			"entry_id", entry.ID.String(),
			"account_id", entry.AccountID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "entry_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

func (r *LedgerRepository) Latest(ctx context.Context, accountID uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC, seq DESC LIMIT 1`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get latest ledger entry", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get latest ledger entry: %w", err)
	}

	return entry, nil
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, filter ledger.Filter, limit, offset int) ([]*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE account_id = $1 AND ($2 = '' OR category = $2) ORDER BY created_at DESC, seq DESC LIMIT $3 OFFSET $4`

	rows, err := r.querier.Query(ctx, query, accountID, string(filter.Category), limit, offset)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return r.collect(rows)
}

func (r *LedgerRepository) CountByAccount(ctx context.Context, accountID uuid.UUID, filter ledger.Filter) (int64, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1 AND ($2 = '' OR category = $2)`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID, string(filter.Category)).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

func (r *LedgerRepository) ListByAccountInRange(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE account_id = $1 AND created_at >= $2 AND created_at < $3 ORDER BY created_at ASC, seq ASC`

	rows, err := r.querier.Query(ctx, query, accountID, from, to)
	if err != nil {
		r.logger.Error("Failed to list ledger entries in range", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries in range: %w", err)
	}

	return r.collect(rows)
}

func (r *LedgerRepository) Totals(ctx context.Context, accountID uuid.UUID) (ledger.Totals, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
			COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0),
			COUNT(*)
		FROM ledger_entries
		WHERE account_id = $1
	`

	var totals ledger.Totals
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&totals.Earned, &totals.Spent, &totals.Count); err != nil {
		r.logger.Error("Failed to total ledger entries", "account_id", accountID.String(), "error", err)
		return ledger.Totals{}, fmt.Errorf("failed to total ledger entries: %w", err)
	}

	return totals, nil
}

func (r *LedgerRepository) collect(rows pgx.Rows) ([]*ledger.Entry, error) {
	defer rows.Close()

	entries := make([]*ledger.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var entry ledger.Entry
	err := row.Scan(
		&entry.Sequence,
		&entry.ID,
		&entry.AccountID,
		&entry.Amount,
		&entry.Category,
		&entry.Description,
		&entry.RefID,
		&entry.RefKind,
		&entry.BalanceAfter,
		&entry.CorrelationID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
