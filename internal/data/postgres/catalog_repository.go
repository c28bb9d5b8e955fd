package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/catalog"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CatalogRepository covers the catalog columns owned by the purchase workflow.
type CatalogRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewCatalogRepository(logger *slog.Logger, db *persistence.PostgresDB) catalog.Repository {
	return &CatalogRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CatalogRepository) WithTx(tx pgx.Tx) catalog.Repository {
	return &CatalogRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *CatalogRepository) Create(ctx context.Context, item *catalog.Item) error {
	query := `
		INSERT INTO catalog_items (id, name, description, price, is_active, purchase_count, average_rating, rating_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		item.ID,
		item.Name,
		item.Description,
		item.Price,
		item.IsActive,
		item.PurchaseCount,
		item.AverageRating.String(),
		item.RatingCount,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create catalog item", "item_id", item.ID.String(), "error", err)
		return fmt.Errorf("failed to create catalog item: %w", err)
	}

	return nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	query := `
		SELECT id, name, description, price, is_active, purchase_count, average_rating::text, rating_count, created_at, updated_at
		FROM catalog_items
		WHERE id = $1
	`

	var item catalog.Item
	var rating string
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.IsActive,
		&item.PurchaseCount,
		&rating,
		&item.RatingCount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrItemNotFound{ItemID: id}
		}
		r.logger.Error("Failed to get catalog item", "item_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}

	if item.AverageRating, err = decimal.NewFromString(rating); err != nil {
		return nil, fmt.Errorf("failed to parse average rating %q: %w", rating, err)
	}

	return &item, nil
}

func (r *CatalogRepository) IncrementPurchaseCount(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE catalog_items
		SET purchase_count = purchase_count + 1, updated_at = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to increment purchase count", "item_id", id.String(), "error", err)
		return fmt.Errorf("failed to increment purchase count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return catalog.ErrItemNotFound{ItemID: id}
	}

	return nil
}

func (r *CatalogRepository) UpdateRating(ctx context.Context, id uuid.UUID, average decimal.Decimal, count int64) error {
	query := `
		UPDATE catalog_items
		SET average_rating = $1::numeric, rating_count = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, average.StringFixed(2), count, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update item rating", "item_id", id.String(), "error", err)
		return fmt.Errorf("failed to update item rating: %w", err)
	}
	if result.RowsAffected() == 0 {
		return catalog.ErrItemNotFound{ItemID: id}
	}

	return nil
}
