package memory

import (
	"context"
	"sort"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PurchaseRepository struct {
	store *Store
}

func (r *PurchaseRepository) WithTx(pgx.Tx) purchase.Repository { return r }

func (r *PurchaseRepository) Create(_ context.Context, p *purchase.Purchase) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.data.purchases[p.ID] = *p
	return nil
}

func (r *PurchaseRepository) GetByID(_ context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.data.purchases[id]
	if !ok {
		return nil, purchase.ErrPurchaseNotFound{PurchaseID: id}
	}
	return &p, nil
}

func (r *PurchaseRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	return r.GetByID(ctx, id)
}

// UpdateAccess refuses to move access_count backwards.
func (r *PurchaseRepository) UpdateAccess(_ context.Context, p *purchase.Purchase) error {
	return r.update(p.ID, func(stored *purchase.Purchase) bool {
		if stored.AccessCount > p.AccessCount {
			return false
		}
		stored.AccessCount = p.AccessCount
		stored.LastAccessedAt = p.LastAccessedAt
		stored.UpdatedAt = p.UpdatedAt
		return true
	})
}

func (r *PurchaseRepository) UpdateReview(_ context.Context, p *purchase.Purchase) error {
	return r.update(p.ID, func(stored *purchase.Purchase) bool {
		stored.Rating = p.Rating
		stored.ReviewComment = p.ReviewComment
		stored.ReviewedAt = p.ReviewedAt
		stored.UpdatedAt = p.UpdatedAt
		return true
	})
}

// UpdateStatus only leaves ACTIVE.
func (r *PurchaseRepository) UpdateStatus(_ context.Context, p *purchase.Purchase) error {
	return r.update(p.ID, func(stored *purchase.Purchase) bool {
		if stored.Status != purchase.StatusActive {
			return false
		}
		stored.Status = p.Status
		stored.UpdatedAt = p.UpdatedAt
		return true
	})
}

func (r *PurchaseRepository) update(id uuid.UUID, apply func(*purchase.Purchase) bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.data.purchases[id]
	if !ok || !apply(&stored) {
		return purchase.ErrPurchaseNotFound{PurchaseID: id}
	}
	r.store.data.purchases[id] = stored
	return nil
}

func (r *PurchaseRepository) ExistsSince(_ context.Context, accountID, itemID uuid.UUID, since time.Time) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, p := range r.store.data.purchases {
		if p.AccountID == accountID && p.ItemID == itemID && p.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *PurchaseRepository) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for id, p := range r.store.data.purchases {
		if expired, changed := p.Expire(now); changed {
			r.store.data.purchases[id] = expired
			n++
		}
	}
	return n, nil
}

func (r *PurchaseRepository) ListByAccount(_ context.Context, accountID uuid.UUID, activeOnly bool, now time.Time, limit, offset int) ([]*purchase.Purchase, error) {
	list := r.filter(func(p purchase.Purchase) bool {
		return p.AccountID == accountID && (!activeOnly || p.CanAccess(now))
	})
	sort.Slice(list, func(i, j int) bool {
		return newestFirst(list[i].CreatedAt, list[j].CreatedAt, list[i].ID, list[j].ID)
	})
	from, to := paginate(len(list), limit, offset)
	return list[from:to], nil
}

func (r *PurchaseRepository) CountByAccount(_ context.Context, accountID uuid.UUID, activeOnly bool, now time.Time) (int64, error) {
	list := r.filter(func(p purchase.Purchase) bool {
		return p.AccountID == accountID && (!activeOnly || p.CanAccess(now))
	})
	return int64(len(list)), nil
}

func (r *PurchaseRepository) ListExpiringBetween(_ context.Context, accountID uuid.UUID, from, to time.Time) ([]*purchase.Purchase, error) {
	list := r.filter(func(p purchase.Purchase) bool {
		return p.AccountID == accountID && p.Status == purchase.StatusActive &&
			!p.ExpiresAt.Before(from) && !p.ExpiresAt.After(to)
	})
	sort.Slice(list, func(i, j int) bool {
		return oldestFirst(list[i].ExpiresAt, list[j].ExpiresAt, list[i].ID, list[j].ID)
	})
	return list, nil
}

func (r *PurchaseRepository) Stats(_ context.Context, accountID uuid.UUID, now time.Time) (purchase.Stats, error) {
	var stats purchase.Stats
	for _, p := range r.filter(func(p purchase.Purchase) bool { return p.AccountID == accountID }) {
		stats.TotalPurchases++
		stats.PointsSpent += p.PointsSpent
		if p.CanAccess(now) {
			stats.ActivePurchases++
		}
	}
	return stats, nil
}

func (r *PurchaseRepository) RatingStats(_ context.Context, itemID uuid.UUID) (purchase.RatingStats, error) {
	var stats purchase.RatingStats
	for _, p := range r.filter(func(p purchase.Purchase) bool { return p.ItemID == itemID && p.Rating != nil }) {
		stats.Sum += int64(*p.Rating)
		stats.Count++
	}
	return stats, nil
}

func (r *PurchaseRepository) filter(keep func(purchase.Purchase) bool) []*purchase.Purchase {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	list := make([]*purchase.Purchase, 0)
	for _, p := range r.store.data.purchases {
		if keep(p) {
			p := p
			list = append(list, &p)
		}
	}
	return list
}
