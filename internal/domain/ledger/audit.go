package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is a ledger entry as projected into the audit store.
type AuditRecord struct {
	Entry       `bson:",inline"`
	ProjectedAt time.Time `json:"projected_at" bson:"projected_at"`
}

// AuditRepository stores the read-only copy of the ledger built from published events.
// Create is idempotent per entry id: a replayed event yields ErrDuplicateEntry.
type AuditRepository interface {
	Create(ctx context.Context, record *AuditRecord) error
	GetByEntryID(ctx context.Context, entryID uuid.UUID) (*AuditRecord, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*AuditRecord, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}
