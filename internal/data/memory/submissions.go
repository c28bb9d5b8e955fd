package memory

import (
	"context"
	"sort"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubmissionRepository struct {
	store *Store
}

func (r *SubmissionRepository) WithTx(pgx.Tx) submission.Repository { return r }

func (r *SubmissionRepository) Create(_ context.Context, s *submission.Submission) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored := *s
	stored.Tags = append([]string(nil), s.Tags...)
	r.store.data.submissions[s.ID] = stored
	return nil
}

func (r *SubmissionRepository) GetByID(_ context.Context, id uuid.UUID) (*submission.Submission, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	s, ok := r.store.data.submissions[id]
	if !ok {
		return nil, submission.ErrSubmissionNotFound{SubmissionID: id}
	}
	return &s, nil
}

func (r *SubmissionRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	return r.GetByID(ctx, id)
}

func (r *SubmissionRepository) UpdateReview(_ context.Context, s *submission.Submission) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.data.submissions[s.ID]
	if !ok {
		return submission.ErrSubmissionNotFound{SubmissionID: s.ID}
	}
	stored.Status = s.Status
	stored.ReviewedBy = s.ReviewedBy
	stored.ReviewReason = s.ReviewReason
	stored.ReviewedAt = s.ReviewedAt
	stored.UpdatedAt = s.UpdatedAt
	r.store.data.submissions[s.ID] = stored
	return nil
}

func (r *SubmissionRepository) CountApprovedBetween(_ context.Context, accountID uuid.UUID, from, to time.Time) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, s := range r.store.data.submissions {
		if s.AccountID == accountID && s.Status == submission.StatusApproved &&
			!s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *SubmissionRepository) ListByAccount(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*submission.Submission, error) {
	list := r.filter(func(s submission.Submission) bool { return s.AccountID == accountID })
	sort.Slice(list, func(i, j int) bool {
		return newestFirst(list[i].CreatedAt, list[j].CreatedAt, list[i].ID, list[j].ID)
	})
	from, to := paginate(len(list), limit, offset)
	return list[from:to], nil
}

func (r *SubmissionRepository) CountByAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	return int64(len(r.filter(func(s submission.Submission) bool { return s.AccountID == accountID }))), nil
}

func (r *SubmissionRepository) ListByStatus(_ context.Context, status submission.Status, limit, offset int) ([]*submission.Submission, error) {
	list := r.filter(func(s submission.Submission) bool { return s.Status == status })
	sort.Slice(list, func(i, j int) bool {
		return oldestFirst(list[i].CreatedAt, list[j].CreatedAt, list[i].ID, list[j].ID)
	})
	from, to := paginate(len(list), limit, offset)
	return list[from:to], nil
}

func (r *SubmissionRepository) CountByStatus(_ context.Context, status submission.Status) (int64, error) {
	return int64(len(r.filter(func(s submission.Submission) bool { return s.Status == status }))), nil
}

func (r *SubmissionRepository) filter(keep func(submission.Submission) bool) []*submission.Submission {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	list := make([]*submission.Submission, 0)
	for _, s := range r.store.data.submissions {
		if keep(s) {
			s := s
			list = append(list, &s)
		}
	}
	return list
}
