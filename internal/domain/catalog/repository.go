package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository is the catalog surface used by the purchase workflow.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	IncrementPurchaseCount(ctx context.Context, id uuid.UUID) error
	UpdateRating(ctx context.Context, id uuid.UUID, average decimal.Decimal, count int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrItemNotFound covers both missing and inactive items.
type ErrItemNotFound struct {
	ItemID uuid.UUID
}

func (e ErrItemNotFound) Error() string {
	return "catalog item not found: " + e.ItemID.String()
}

func (e ErrItemNotFound) Is(target error) bool {
	t, ok := target.(ErrItemNotFound)
	if !ok {
		return false
	}
	return t.ItemID == uuid.Nil || t.ItemID == e.ItemID
}
