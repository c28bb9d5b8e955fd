package memory

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/domain/reward"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func TestStore_ExecuteTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	acc := account.New(uuid.New(), t0)
	require.NoError(t, store.Accounts().Create(ctx, &acc))

	failure := errors.New("insert failed")
	err := store.ExecuteTx(ctx, func(tx pgx.Tx) error {
		credited, err := acc.Credit(50, t0)
		require.NoError(t, err)
		require.NoError(t, store.Accounts().WithTx(tx).Update(ctx, &credited))
		require.NoError(t, store.Ledger().WithTx(tx).Create(ctx, &ledger.Entry{
			ID: uuid.New(), AccountID: acc.ID, Amount: 50, BalanceAfter: 50, CreatedAt: t0,
		}))
		return failure
	})
	assert.ErrorIs(t, err, failure)

	got, err := store.Accounts().GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Balance)
	latest, err := store.Ledger().Latest(ctx, acc.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStore_ExecuteTx_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	id := uuid.New()

	assert.Panics(t, func() {
		_ = store.ExecuteTx(ctx, func(tx pgx.Tx) error {
			acc := account.New(id, t0)
			require.NoError(t, store.Accounts().WithTx(tx).Create(ctx, &acc))
			panic("boom")
		})
	})

	_, err := store.Accounts().GetByID(ctx, id)
	assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: id})
}

func TestStore_ExecuteTx_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().ExecuteTx(ctx, func(pgx.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAccountRepository_UpdateChecksVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Accounts()
	acc := account.New(uuid.New(), t0)
	require.NoError(t, repo.Create(ctx, &acc))

	first, err := acc.Credit(10, t0)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, &first))

	stale, err := acc.Credit(20, t0)
	require.NoError(t, err)
	assert.Equal(t, account.ErrConcurrentModification{AccountID: acc.ID}, repo.Update(ctx, &stale))

	dup := account.New(acc.ID, t0)
	assert.ErrorIs(t, repo.Create(ctx, &dup), account.ErrAccountExists{})
}

func TestLedgerRepository_OrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Ledger()
	accountID := uuid.New()

	entries := []ledger.Entry{
		{ID: uuid.New(), AccountID: accountID, Amount: 100, Category: ledger.CategorySignupGrant, BalanceAfter: 100, CreatedAt: t0},
		{ID: uuid.New(), AccountID: accountID, Amount: 25, Category: ledger.CategorySubmissionReward, BalanceAfter: 125, CreatedAt: t0},
		{ID: uuid.New(), AccountID: accountID, Amount: -30, Category: ledger.CategoryPurchaseDebit, BalanceAfter: 95, CreatedAt: t0.Add(time.Hour)},
		{ID: uuid.New(), AccountID: uuid.New(), Amount: 100, Category: ledger.CategorySignupGrant, BalanceAfter: 100, CreatedAt: t0},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
		assert.Equal(t, int64(i+1), entries[i].Sequence)
	}
	assert.ErrorIs(t, repo.Create(ctx, &entries[0]), ledger.ErrDuplicateEntry{})

	latest, err := repo.Latest(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(95), latest.BalanceAfter)

	page, err := repo.ListByAccount(ctx, accountID, ledger.Filter{}, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, entries[1].ID, page[0].ID, "same timestamp falls back to sequence")
	assert.Equal(t, entries[0].ID, page[1].ID)

	count, err := repo.CountByAccount(ctx, accountID, ledger.Filter{Category: ledger.CategorySignupGrant})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	inRange, err := repo.ListByAccountInRange(ctx, accountID, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	totals, err := repo.Totals(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Totals{Earned: 125, Spent: 30, Count: 3}, totals)
}

func TestPurchaseRepository_Windows(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Purchases()
	accountID, itemID := uuid.New(), uuid.New()

	p, err := purchase.New(accountID, itemID, 30, "", t0)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &p))

	exists, err := repo.ExistsSince(ctx, accountID, itemID, purchase.CooldownStart(t0.Add(3*24*time.Hour)))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsSince(ctx, accountID, itemID, purchase.CooldownStart(t0.Add(8*24*time.Hour)))
	require.NoError(t, err)
	assert.False(t, exists)

	active, err := repo.CountByAccount(ctx, accountID, true, p.ExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	n, err := repo.ExpireDue(ctx, p.ExpiresAt)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.ExpireDue(ctx, p.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	refunded, err := p.Refund(t0)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, &refunded), purchase.ErrPurchaseNotFound{})
}

func TestCatalog_Seed(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedCatalog(DefaultCatalog(t0))

	item, err := store.Catalog().GetByID(ctx, uuid.MustParse("6f1d2c1e-3b0a-4c55-9a3e-0d6a1f0b7a01"))
	require.NoError(t, err)
	assert.Equal(t, int64(30), item.Price)
	assert.True(t, item.Available())

	retired, err := store.Catalog().GetByID(ctx, uuid.MustParse("6f1d2c1e-3b0a-4c55-9a3e-0d6a1f0b7a04"))
	require.NoError(t, err)
	assert.False(t, retired.Available())
}

func TestStore_ExecuteTx_ConcurrentAccounts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	const accounts, creditsEach = 4, 50
	ids := make([]uuid.UUID, accounts)
	for i := range ids {
		acc := account.New(uuid.New(), t0)
		require.NoError(t, store.Accounts().Create(ctx, &acc))
		ids[i] = acc.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, accounts*creditsEach)
	for _, id := range ids {
		for n := 0; n < creditsEach; n++ {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				errs <- store.ExecuteTx(ctx, func(tx pgx.Tx) error {
					repo := store.Accounts().WithTx(tx)
					locked, err := repo.LockForUpdate(ctx, id)
					if err != nil {
						return err
					}
					credited, err := locked.Credit(1, t0)
					if err != nil {
						return err
					}
					return repo.Update(ctx, &credited)
				})
			}(id)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for _, id := range ids {
		got, err := store.Accounts().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(creditsEach), got.Balance)
	}
}

func sortedIDs(ids []uuid.UUID, descending bool) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool {
		c := bytes.Compare(out[i][:], out[j][:])
		if descending {
			return c > 0
		}
		return c < 0
	})
	return out
}

func TestListings_BreakTimestampTiesByID(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	accountID := uuid.New()

	var submissionIDs, purchaseIDs []uuid.UUID
	for i := 0; i < 6; i++ {
		s := submission.New(submission.Draft{AccountID: accountID, EmotionType: submission.EmotionPeace, Intensity: 3, Body: "same instant"}, reward.Breakdown{}, t0)
		s.Status = submission.StatusPending
		require.NoError(t, store.Submissions().Create(ctx, &s))
		submissionIDs = append(submissionIDs, s.ID)

		p, err := purchase.New(accountID, uuid.New(), 30, "", t0)
		require.NoError(t, err)
		require.NoError(t, store.Purchases().Create(ctx, &p))
		purchaseIDs = append(purchaseIDs, p.ID)
	}

	for run := 0; run < 5; run++ {
		newest, err := store.Submissions().ListByAccount(ctx, accountID, 10, 0)
		require.NoError(t, err)
		pending, err := store.Submissions().ListByStatus(ctx, submission.StatusPending, 10, 0)
		require.NoError(t, err)
		purchases, err := store.Purchases().ListByAccount(ctx, accountID, false, t0, 10, 0)
		require.NoError(t, err)
		expiring, err := store.Purchases().ListExpiringBetween(ctx, accountID, t0, t0.Add(8*24*time.Hour))
		require.NoError(t, err)

		assert.Equal(t, sortedIDs(submissionIDs, true), submissionIDsOf(newest))
		assert.Equal(t, sortedIDs(submissionIDs, false), submissionIDsOf(pending))
		assert.Equal(t, sortedIDs(purchaseIDs, true), purchaseIDsOf(purchases))
		assert.Equal(t, sortedIDs(purchaseIDs, false), purchaseIDsOf(expiring))
	}
}

func submissionIDsOf(list []*submission.Submission) []uuid.UUID {
	ids := make([]uuid.UUID, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return ids
}

func purchaseIDsOf(list []*purchase.Purchase) []uuid.UUID {
	ids := make([]uuid.UUID, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return ids
}
