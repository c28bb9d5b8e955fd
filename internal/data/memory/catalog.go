package memory

import (
	"context"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type CatalogRepository struct {
	store *Store
}

func (r *CatalogRepository) WithTx(pgx.Tx) catalog.Repository { return r }

func (r *CatalogRepository) Create(_ context.Context, item *catalog.Item) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.data.items[item.ID] = *item
	return nil
}

func (r *CatalogRepository) GetByID(_ context.Context, id uuid.UUID) (*catalog.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.data.items[id]
	if !ok {
		return nil, catalog.ErrItemNotFound{ItemID: id}
	}
	return &item, nil
}

func (r *CatalogRepository) IncrementPurchaseCount(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(item *catalog.Item) {
		item.PurchaseCount++
	})
}

func (r *CatalogRepository) UpdateRating(_ context.Context, id uuid.UUID, average decimal.Decimal, count int64) error {
	return r.update(id, func(item *catalog.Item) {
		item.AverageRating = average.Round(2)
		item.RatingCount = count
	})
}

func (r *CatalogRepository) update(id uuid.UUID, apply func(*catalog.Item)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.data.items[id]
	if !ok {
		return catalog.ErrItemNotFound{ItemID: id}
	}
	apply(&item)
	item.UpdatedAt = time.Now().UTC()
	r.store.data.items[id] = item
	return nil
}

// DefaultCatalog mirrors the seed migration so the memory driver starts with the same items.
func DefaultCatalog(now time.Time) []catalog.Item {
	seed := []struct {
		id, name, description string
		price                 int64
		active                bool
	}{
		{"6f1d2c1e-3b0a-4c55-9a3e-0d6a1f0b7a01", "First Snow Morning", "Quiet joy of an untouched street.", 30, true},
		{"6f1d2c1e-3b0a-4c55-9a3e-0d6a1f0b7a02", "Last Train Home", "Relief mixed with tiredness.", 20, true},
		{"6f1d2c1e-3b0a-4c55-9a3e-0d6a1f0b7a03", "Exam Results", "Fear that turns into surprise.", 40, true},
		{"6f1d2c1e-3b0a-4c55-9a3e-0d6a1f0b7a04", "Retired Collection", "No longer offered.", 10, false},
	}

	items := make([]catalog.Item, 0, len(seed))
	for _, s := range seed {
		items = append(items, catalog.Item{
			ID:            uuid.MustParse(s.id),
			Name:          s.name,
			Description:   s.description,
			Price:         s.price,
			IsActive:      s.active,
			AverageRating: decimal.Zero,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return items
}

// SeedCatalog stores items, replacing any with the same id.
func (s *Store) SeedCatalog(items []catalog.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.data.items[item.ID] = item
	}
}
