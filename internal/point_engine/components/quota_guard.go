package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/emotion-market/point-ledger/internal/point_engine/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

// QuotaGuardImpl counts approved submissions inside the calendar day of location.
type QuotaGuardImpl struct {
	submissionRepo submission.Repository
	clock          clockwork.Clock
	location       *time.Location
	logger         *slog.Logger
}

func NewQuotaGuard(submissionRepo submission.Repository, clock clockwork.Clock, location *time.Location, logger *slog.Logger) service.QuotaGuard {
	if location == nil {
		location = time.UTC
	}
	return &QuotaGuardImpl{
		submissionRepo: submissionRepo,
		clock:          clock,
		location:       location,
		logger:         logger,
	}
}

func (g *QuotaGuardImpl) Remaining(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int, error) {
	from, to := DayBounds(g.clock.Now(), g.location)

	used, err := persistence.Bind(g.submissionRepo, tx).CountApprovedBetween(ctx, accountID, from, to)
	if err != nil {
		g.logger.Error("Failed to count today's submissions", "account_id", accountID.String(), "error", err)
		return 0, err
	}

	remaining := submission.DailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (g *QuotaGuardImpl) CanSubmit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (bool, error) {
	remaining, err := g.Remaining(ctx, tx, accountID)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

// DayBounds returns the UTC instants of the start of now's calendar day in loc
// and of the next day.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
