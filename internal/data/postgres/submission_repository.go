package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const submissionColumns = `id, account_id, emotion_type, intensity, body, location, tags, points_awarded, reward_breakdown,
	allow_resale, allow_derivative_use, status, reviewed_by, review_reason, reviewed_at, created_at, updated_at`

type SubmissionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSubmissionRepository(logger *slog.Logger, db *persistence.PostgresDB) submission.Repository {
	return &SubmissionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *SubmissionRepository) WithTx(tx pgx.Tx) submission.Repository {
	return &SubmissionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *SubmissionRepository) Create(ctx context.Context, s *submission.Submission) error {
	breakdown, err := json.Marshal(s.Reward)
	if err != nil {
		return fmt.Errorf("failed to encode reward breakdown: %w", err)
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.querier.Exec(ctx, query,
		s.ID,
		s.AccountID,
		s.EmotionType,
		s.Intensity,
		s.Body,
		s.Location,
		s.Tags,
		s.PointsAwarded,
		breakdown,
		s.Permissions.AllowResale,
		s.Permissions.AllowDerivativeUse,
		s.Status,
		s.ReviewedBy,
		s.ReviewReason,
		s.ReviewedAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create submission", "submission_id", s.ID.String(), "error", err)
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	return r.getOne(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id, "get submission")
}

func (r *SubmissionRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	return r.getOne(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1 FOR UPDATE`, id, "lock submission")
}

func (r *SubmissionRepository) getOne(ctx context.Context, query string, id uuid.UUID, op string) (*submission.Submission, error) {
	s, err := scanSubmission(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, submission.ErrSubmissionNotFound{SubmissionID: id}
		}
		r.logger.Error("Failed to "+op, "submission_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return s, nil
}

func (r *SubmissionRepository) UpdateReview(ctx context.Context, s *submission.Submission) error {
	query := `
		UPDATE submissions
		SET status = $1, reviewed_by = $2, review_reason = $3, reviewed_at = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query, s.Status, s.ReviewedBy, s.ReviewReason, s.ReviewedAt, s.UpdatedAt, s.ID)
	if err != nil {
		r.logger.Error("Failed to update submission review", "submission_id", s.ID.String(), "error", err)
		return fmt.Errorf("failed to update submission review: %w", err)
	}
	if result.RowsAffected() == 0 {
		return submission.ErrSubmissionNotFound{SubmissionID: s.ID}
	}

	return nil
}

func (r *SubmissionRepository) CountApprovedBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM submissions
		WHERE account_id = $1 AND status = $2 AND created_at >= $3 AND created_at < $4
	`

	var count int
	if err := r.querier.QueryRow(ctx, query, accountID, submission.StatusApproved, from, to).Scan(&count); err != nil {
		r.logger.Error("Failed to count approved submissions", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count approved submissions: %w", err)
	}

	return count, nil
}

func (r *SubmissionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE account_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list submissions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	return r.collect(rows)
}

func (r *SubmissionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM submissions WHERE account_id = $1`, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count submissions", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

func (r *SubmissionRepository) ListByStatus(ctx context.Context, status submission.Status, limit, offset int) ([]*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE status = $1 ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`

	rows, err := r.querier.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list submissions by status", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to list submissions by status: %w", err)
	}

	return r.collect(rows)
}

func (r *SubmissionRepository) CountByStatus(ctx context.Context, status submission.Status) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM submissions WHERE status = $1`, status).Scan(&count); err != nil {
		r.logger.Error("Failed to count submissions by status", "status", string(status), "error", err)
		return 0, fmt.Errorf("failed to count submissions by status: %w", err)
	}
	return count, nil
}

func (r *SubmissionRepository) collect(rows pgx.Rows) ([]*submission.Submission, error) {
	defer rows.Close()

	submissions := make([]*submission.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			r.logger.Error("Failed to scan submission", "error", err)
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over submissions", "error", err)
		return nil, fmt.Errorf("error iterating over submissions: %w", err)
	}

	return submissions, nil
}

func scanSubmission(row pgx.Row) (*submission.Submission, error) {
	var s submission.Submission
	var breakdown []byte
	err := row.Scan(
		&s.ID,
		&s.AccountID,
		&s.EmotionType,
		&s.Intensity,
		&s.Body,
		&s.Location,
		&s.Tags,
		&s.PointsAwarded,
		&breakdown,
		&s.Permissions.AllowResale,
		&s.Permissions.AllowDerivativeUse,
		&s.Status,
		&s.ReviewedBy,
		&s.ReviewReason,
		&s.ReviewedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(breakdown, &s.Reward); err != nil {
		return nil, fmt.Errorf("failed to decode reward breakdown: %w", err)
	}
	return &s, nil
}
