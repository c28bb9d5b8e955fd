package memory

import (
	"context"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AccountRepository struct {
	store *Store
}

func (r *AccountRepository) WithTx(pgx.Tx) account.Repository { return r }

func (r *AccountRepository) Create(_ context.Context, acc *account.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.accounts[acc.ID]; ok {
		return account.ErrAccountExists{AccountID: acc.ID}
	}
	r.store.data.accounts[acc.ID] = *acc
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acc, ok := r.store.data.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &acc, nil
}

// Update applies the same Version-1 check as the SQL implementation.
func (r *AccountRepository) Update(_ context.Context, acc *account.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.data.accounts[acc.ID]
	if !ok || current.Version != acc.Version-1 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}
	r.store.data.accounts[acc.ID] = *acc
	return nil
}

// LockForUpdate is a plain read: transactions already run one at a time.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}
