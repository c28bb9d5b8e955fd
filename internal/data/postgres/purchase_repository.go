package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const purchaseColumns = `id, account_id, item_id, points_spent, note, status, access_count, last_accessed_at,
	rating, review_comment, reviewed_at, expires_at, created_at, updated_at`

type PurchaseRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewPurchaseRepository(logger *slog.Logger, db *persistence.PostgresDB) purchase.Repository {
	return &PurchaseRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *PurchaseRepository) WithTx(tx pgx.Tx) purchase.Repository {
	return &PurchaseRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *PurchaseRepository) Create(ctx context.Context, p *purchase.Purchase) error {
	query := `
		INSERT INTO purchases (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.AccountID,
		p.ItemID,
		p.PointsSpent,
		p.Note,
		p.Status,
		p.AccessCount,
		p.LastAccessedAt,
		p.Rating,
		p.ReviewComment,
		p.ReviewedAt,
		p.ExpiresAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create purchase", "purchase_id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	return nil
}

func (r *PurchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	return r.getOne(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id, "get purchase")
}

func (r *PurchaseRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	return r.getOne(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1 FOR UPDATE`, id, "lock purchase")
}

func (r *PurchaseRepository) getOne(ctx context.Context, query string, id uuid.UUID, op string) (*purchase.Purchase, error) {
	p, err := scanPurchase(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, purchase.ErrPurchaseNotFound{PurchaseID: id}
		}
		r.logger.Error("Failed to "+op, "purchase_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return p, nil
}

func (r *PurchaseRepository) UpdateAccess(ctx context.Context, p *purchase.Purchase) error {
	query := `
		UPDATE purchases
		SET access_count = $1, last_accessed_at = $2, updated_at = $3
		WHERE id = $4 AND access_count <= $1
	`
	return r.exec(ctx, "update purchase access", p.ID, query, p.AccessCount, p.LastAccessedAt, p.UpdatedAt, p.ID)
}

func (r *PurchaseRepository) UpdateReview(ctx context.Context, p *purchase.Purchase) error {
	query := `
		UPDATE purchases
		SET rating = $1, review_comment = $2, reviewed_at = $3, updated_at = $4
		WHERE id = $5
	`
	return r.exec(ctx, "update purchase review", p.ID, query, p.Rating, p.ReviewComment, p.ReviewedAt, p.UpdatedAt, p.ID)
}

// UpdateStatus only leaves ACTIVE, so the statement is guarded on the current status.
func (r *PurchaseRepository) UpdateStatus(ctx context.Context, p *purchase.Purchase) error {
	query := `
		UPDATE purchases
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	return r.exec(ctx, "update purchase status", p.ID, query, p.Status, p.UpdatedAt, p.ID, purchase.StatusActive)
}

func (r *PurchaseRepository) exec(ctx context.Context, op string, id uuid.UUID, query string, args ...interface{}) error {
	result, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, "purchase_id", id.String(), "error", err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return purchase.ErrPurchaseNotFound{PurchaseID: id}
	}
	return nil
}

func (r *PurchaseRepository) ExistsSince(ctx context.Context, accountID, itemID uuid.UUID, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM purchases
			WHERE account_id = $1 AND item_id = $2 AND created_at > $3
		)
	`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, accountID, itemID, since).Scan(&exists); err != nil {
		r.logger.Error("Failed to check recent purchase",
			"account_id", accountID.String(),
			"item_id", itemID.String(),
			"error", err,
		)
		return false, fmt.Errorf("failed to check recent purchase: %w", err)
	}

	return exists, nil
}

func (r *PurchaseRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE purchases
		SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at < $2
	`

	result, err := r.querier.Exec(ctx, query, purchase.StatusExpired, now, purchase.StatusActive)
	if err != nil {
		r.logger.Error("Failed to expire purchases", "error", err)
		return 0, fmt.Errorf("failed to expire purchases: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *PurchaseRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, activeOnly bool, now time.Time, limit, offset int) ([]*purchase.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases
		WHERE account_id = $1 AND (NOT $2 OR (status = $3 AND expires_at >= $4))
		ORDER BY created_at DESC, id DESC LIMIT $5 OFFSET $6`

	rows, err := r.querier.Query(ctx, query, accountID, activeOnly, purchase.StatusActive, now, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list purchases", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	return r.collect(rows)
}

func (r *PurchaseRepository) CountByAccount(ctx context.Context, accountID uuid.UUID, activeOnly bool, now time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM purchases
		WHERE account_id = $1 AND (NOT $2 OR (status = $3 AND expires_at >= $4))`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID, activeOnly, purchase.StatusActive, now).Scan(&count); err != nil {
		r.logger.Error("Failed to count purchases", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	return count, nil
}

func (r *PurchaseRepository) ListExpiringBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*purchase.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases
		WHERE account_id = $1 AND status = $2 AND expires_at >= $3 AND expires_at <= $4
		ORDER BY expires_at ASC, id ASC`

	rows, err := r.querier.Query(ctx, query, accountID, purchase.StatusActive, from, to)
	if err != nil {
		r.logger.Error("Failed to list expiring purchases", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list expiring purchases: %w", err)
	}

	return r.collect(rows)
}

func (r *PurchaseRepository) Stats(ctx context.Context, accountID uuid.UUID, now time.Time) (purchase.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2 AND expires_at >= $3),
			COALESCE(SUM(points_spent), 0)
		FROM purchases
		WHERE account_id = $1
	`

	var stats purchase.Stats
	err := r.querier.QueryRow(ctx, query, accountID, purchase.StatusActive, now).
		Scan(&stats.TotalPurchases, &stats.ActivePurchases, &stats.PointsSpent)
	if err != nil {
		r.logger.Error("Failed to compute purchase stats", "account_id", accountID.String(), "error", err)
		return purchase.Stats{}, fmt.Errorf("failed to compute purchase stats: %w", err)
	}

	return stats, nil
}

func (r *PurchaseRepository) RatingStats(ctx context.Context, itemID uuid.UUID) (purchase.RatingStats, error) {
	query := `
		SELECT COALESCE(SUM(rating), 0), COUNT(rating)
		FROM purchases
		WHERE item_id = $1 AND rating IS NOT NULL
	`

	var stats purchase.RatingStats
	if err := r.querier.QueryRow(ctx, query, itemID).Scan(&stats.Sum, &stats.Count); err != nil {
		r.logger.Error("Failed to compute rating stats", "item_id", itemID.String(), "error", err)
		return purchase.RatingStats{}, fmt.Errorf("failed to compute rating stats: %w", err)
	}

	return stats, nil
}

func (r *PurchaseRepository) collect(rows pgx.Rows) ([]*purchase.Purchase, error) {
	defer rows.Close()

	purchases := make([]*purchase.Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			r.logger.Error("Failed to scan purchase", "error", err)
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over purchases", "error", err)
		return nil, fmt.Errorf("error iterating over purchases: %w", err)
	}

	return purchases, nil
}

func scanPurchase(row pgx.Row) (*purchase.Purchase, error) {
	var p purchase.Purchase
	err := row.Scan(
		&p.ID,
		&p.AccountID,
		&p.ItemID,
		&p.PointsSpent,
		&p.Note,
		&p.Status,
		&p.AccessCount,
		&p.LastAccessedAt,
		&p.Rating,
		&p.ReviewComment,
		&p.ReviewedAt,
		&p.ExpiresAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
