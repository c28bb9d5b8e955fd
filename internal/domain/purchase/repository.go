package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines purchase persistence operations. Rows are stored as written;
// callers apply Observed to present lazy expiry.
type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	GetByID(ctx context.Context, id uuid.UUID) (*Purchase, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Purchase, error)
	UpdateAccess(ctx context.Context, p *Purchase) error
	UpdateReview(ctx context.Context, p *Purchase) error
	UpdateStatus(ctx context.Context, p *Purchase) error

	// ExistsSince reports a purchase of itemID by accountID created after since, in any status.
	ExistsSince(ctx context.Context, accountID, itemID uuid.UUID, since time.Time) (bool, error)
	// ExpireDue marks every active purchase with expires_at < now as expired.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	// ListByAccount returns newest first. With activeOnly only purchases usable at now are returned.
	ListByAccount(ctx context.Context, accountID uuid.UUID, activeOnly bool, now time.Time, limit, offset int) ([]*Purchase, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID, activeOnly bool, now time.Time) (int64, error)
	// ListExpiringBetween returns active purchases with from <= expires_at <= to.
	ListExpiringBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*Purchase, error)
	Stats(ctx context.Context, accountID uuid.UUID, now time.Time) (Stats, error)
	RatingStats(ctx context.Context, itemID uuid.UUID) (RatingStats, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrPurchaseNotFound indicates missing purchase
type ErrPurchaseNotFound struct {
	PurchaseID uuid.UUID
}

func (e ErrPurchaseNotFound) Error() string {
	return "purchase not found: " + e.PurchaseID.String()
}

func (e ErrPurchaseNotFound) Is(target error) bool {
	t, ok := target.(ErrPurchaseNotFound)
	if !ok {
		return false
	}
	return t.PurchaseID == uuid.Nil || t.PurchaseID == e.PurchaseID
}

// ErrInvalidTransition is returned for a status change the current status does not allow.
type ErrInvalidTransition struct {
	PurchaseID uuid.UUID
	From       Status
	To         Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("purchase %s cannot move from %s to %s", e.PurchaseID, e.From, e.To)
}

func (e ErrInvalidTransition) Is(target error) bool {
	_, ok := target.(ErrInvalidTransition)
	return ok
}
