package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository is the append-only entry log. There is no update or delete.
type Repository interface {
	// Create inserts the entry and fills in its Sequence.
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// Latest returns the most recent entry of the account, or nil when it has none.
	Latest(ctx context.Context, accountID uuid.UUID) (*Entry, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, filter Filter, limit, offset int) ([]*Entry, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID, filter Filter) (int64, error)
	// ListByAccountInRange returns entries with from <= created_at < to, oldest first.
	ListByAccountInRange(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*Entry, error)
	Totals(ctx context.Context, accountID uuid.UUID) (Totals, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	return t.EntryID == uuid.Nil || e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates an entry id was recorded twice
type ErrDuplicateEntry struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	return t.EntryID == uuid.Nil || e.EntryID == t.EntryID
}
