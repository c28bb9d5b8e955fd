package service

import (
	"context"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/catalog"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// stubTxRunner runs fn without a transaction, so repositories are used unbound.
type stubTxRunner struct {
	calls int
}

func (r *stubTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	r.calls++
	return fn(nil)
}

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Create(ctx context.Context, acc *account.Account) error {
	return m.Called(ctx, acc).Error(0)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) Update(ctx context.Context, acc *account.Account) error {
	return m.Called(ctx, acc).Error(0)
}

func (m *MockAccountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	return m
}

type MockSubmissionRepo struct {
	mock.Mock
}

func (m *MockSubmissionRepo) Create(ctx context.Context, s *submission.Submission) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submission.Submission), args.Error(1)
}

func (m *MockSubmissionRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submission.Submission), args.Error(1)
}

func (m *MockSubmissionRepo) UpdateReview(ctx context.Context, s *submission.Submission) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSubmissionRepo) CountApprovedBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int, error) {
	args := m.Called(ctx, accountID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *MockSubmissionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*submission.Submission, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]*submission.Submission), args.Error(1)
}

func (m *MockSubmissionRepo) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubmissionRepo) ListByStatus(ctx context.Context, status submission.Status, limit, offset int) ([]*submission.Submission, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*submission.Submission), args.Error(1)
}

func (m *MockSubmissionRepo) CountByStatus(ctx context.Context, status submission.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubmissionRepo) WithTx(tx pgx.Tx) submission.Repository {
	return m
}

type MockPurchaseRepo struct {
	mock.Mock
}

func (m *MockPurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPurchaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchase.Purchase), args.Error(1)
}

func (m *MockPurchaseRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchase.Purchase), args.Error(1)
}

func (m *MockPurchaseRepo) UpdateAccess(ctx context.Context, p *purchase.Purchase) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPurchaseRepo) UpdateReview(ctx context.Context, p *purchase.Purchase) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPurchaseRepo) UpdateStatus(ctx context.Context, p *purchase.Purchase) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPurchaseRepo) ExistsSince(ctx context.Context, accountID, itemID uuid.UUID, since time.Time) (bool, error) {
	args := m.Called(ctx, accountID, itemID, since)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, activeOnly bool, now time.Time, limit, offset int) ([]*purchase.Purchase, error) {
	args := m.Called(ctx, accountID, activeOnly, now, limit, offset)
	return args.Get(0).([]*purchase.Purchase), args.Error(1)
}

func (m *MockPurchaseRepo) CountByAccount(ctx context.Context, accountID uuid.UUID, activeOnly bool, now time.Time) (int64, error) {
	args := m.Called(ctx, accountID, activeOnly, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseRepo) ListExpiringBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*purchase.Purchase, error) {
	args := m.Called(ctx, accountID, from, to)
	return args.Get(0).([]*purchase.Purchase), args.Error(1)
}

func (m *MockPurchaseRepo) Stats(ctx context.Context, accountID uuid.UUID, now time.Time) (purchase.Stats, error) {
	args := m.Called(ctx, accountID, now)
	return args.Get(0).(purchase.Stats), args.Error(1)
}

func (m *MockPurchaseRepo) RatingStats(ctx context.Context, itemID uuid.UUID) (purchase.RatingStats, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(purchase.RatingStats), args.Error(1)
}

func (m *MockPurchaseRepo) WithTx(tx pgx.Tx) purchase.Repository {
	return m
}

type MockCatalogRepo struct {
	mock.Mock
}

func (m *MockCatalogRepo) Create(ctx context.Context, item *catalog.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockCatalogRepo) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Item), args.Error(1)
}

func (m *MockCatalogRepo) IncrementPurchaseCount(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogRepo) UpdateRating(ctx context.Context, id uuid.UUID, average decimal.Decimal, count int64) error {
	return m.Called(ctx, id, average, count).Error(0)
}

func (m *MockCatalogRepo) WithTx(tx pgx.Tx) catalog.Repository {
	return m
}

type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) Credit(ctx context.Context, tx pgx.Tx, posting Posting) (*ledger.Entry, *account.Account, error) {
	args := m.Called(ctx, tx, posting)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*ledger.Entry), args.Get(1).(*account.Account), args.Error(2)
}

func (m *MockLedgerStore) Debit(ctx context.Context, tx pgx.Tx, posting Posting) (*ledger.Entry, *account.Account, error) {
	args := m.Called(ctx, tx, posting)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*ledger.Entry), args.Get(1).(*account.Account), args.Error(2)
}

type MockQuotaGuard struct {
	mock.Mock
}

func (m *MockQuotaGuard) Remaining(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockQuotaGuard) CanSubmit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, accountID)
	return args.Bool(0), args.Error(1)
}
