package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines submission persistence operations
type Repository interface {
	Create(ctx context.Context, s *Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Submission, error)
	// UpdateReview persists status and reviewer fields only. Reward fields are immutable.
	UpdateReview(ctx context.Context, s *Submission) error
	// CountApprovedBetween counts approved submissions with from <= created_at < to.
	CountApprovedBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Submission, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Submission, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrSubmissionNotFound indicates missing submission
type ErrSubmissionNotFound struct {
	SubmissionID uuid.UUID
}

func (e ErrSubmissionNotFound) Error() string {
	return "submission not found: " + e.SubmissionID.String()
}

func (e ErrSubmissionNotFound) Is(target error) bool {
	t, ok := target.(ErrSubmissionNotFound)
	if !ok {
		return false
	}
	return t.SubmissionID == uuid.Nil || t.SubmissionID == e.SubmissionID
}

// ErrInvalidTransition is returned for a review action the current status does not allow.
type ErrInvalidTransition struct {
	SubmissionID uuid.UUID
	From         Status
	To           Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("submission %s cannot move from %s to %s", e.SubmissionID, e.From, e.To)
}

func (e ErrInvalidTransition) Is(target error) bool {
	_, ok := target.(ErrInvalidTransition)
	return ok
}
