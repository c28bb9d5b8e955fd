package memory

import (
	"context"
	"sort"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LedgerRepository struct {
	store *Store
}

func (r *LedgerRepository) WithTx(pgx.Tx) ledger.Repository { return r }

// Create appends the entry and assigns the next sequence number.
func (r *LedgerRepository) Create(_ context.Context, entry *ledger.Entry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.data.entries {
		if r.store.data.entries[i].ID == entry.ID {
			return ledger.ErrDuplicateEntry{EntryID: entry.ID}
		}
	}
	entry.Sequence = int64(len(r.store.data.entries) + 1)
	r.store.data.entries = append(r.store.data.entries, *entry)
	return nil
}

func (r *LedgerRepository) GetByID(_ context.Context, id uuid.UUID) (*ledger.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, e := range r.store.data.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, ledger.ErrEntryNotFound{EntryID: id}
}

func (r *LedgerRepository) Latest(_ context.Context, accountID uuid.UUID) (*ledger.Entry, error) {
	entries := r.newestFirst(accountID, ledger.Filter{})
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

func (r *LedgerRepository) ListByAccount(_ context.Context, accountID uuid.UUID, filter ledger.Filter, limit, offset int) ([]*ledger.Entry, error) {
	entries := r.newestFirst(accountID, filter)
	from, to := paginate(len(entries), limit, offset)
	return entries[from:to], nil
}

func (r *LedgerRepository) CountByAccount(_ context.Context, accountID uuid.UUID, filter ledger.Filter) (int64, error) {
	return int64(len(r.newestFirst(accountID, filter))), nil
}

func (r *LedgerRepository) ListByAccountInRange(_ context.Context, accountID uuid.UUID, from, to time.Time) ([]*ledger.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := make([]*ledger.Entry, 0)
	for _, e := range r.store.data.entries {
		if e.AccountID == accountID && !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			e := e
			entries = append(entries, &e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Sequence < entries[j].Sequence
	})
	return entries, nil
}

func (r *LedgerRepository) Totals(_ context.Context, accountID uuid.UUID) (ledger.Totals, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var totals ledger.Totals
	for _, e := range r.store.data.entries {
		if e.AccountID != accountID {
			continue
		}
		totals.Count++
		if e.Amount > 0 {
			totals.Earned += e.Amount
		} else {
			totals.Spent -= e.Amount
		}
	}
	return totals, nil
}

func (r *LedgerRepository) newestFirst(accountID uuid.UUID, filter ledger.Filter) []*ledger.Entry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := make([]*ledger.Entry, 0)
	for _, e := range r.store.data.entries {
		if e.AccountID != accountID {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		e := e
		entries = append(entries, &e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].Sequence > entries[j].Sequence
	})
	return entries
}
