package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/emotion-market/point-ledger/internal/point_engine/service"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Open(ctx context.Context, accountID uuid.UUID, correlationID string) (*account.Account, error) {
	args := m.Called(ctx, accountID, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) Get(ctx context.Context, accountID uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) Adjust(ctx context.Context, request *service.AdjustRequest) (*ledger.Entry, *account.Account, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*ledger.Entry), args.Get(1).(*account.Account), args.Error(2)
}

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Summary(ctx context.Context, accountID uuid.UUID) (*service.Summary, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Summary), args.Error(1)
}

func (m *MockQueryService) History(ctx context.Context, accountID uuid.UUID, filter ledger.Filter, page shared.Page) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, accountID, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockQueryService) Statistics(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*service.Statistics, error) {
	args := m.Called(ctx, accountID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Statistics), args.Error(1)
}

func (m *MockQueryService) Reconcile(ctx context.Context, accountID uuid.UUID) (*service.Reconciliation, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Reconciliation), args.Error(1)
}

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Submit(ctx context.Context, request *service.SubmitRequest) (*service.SubmitResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitResult), args.Error(1)
}

func (m *MockSubmissionService) Reject(ctx context.Context, request *service.ReviewRequest) (*service.ReviewResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReviewResult), args.Error(1)
}

func (m *MockSubmissionService) Approve(ctx context.Context, request *service.ReviewRequest) (*service.ReviewResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReviewResult), args.Error(1)
}

func (m *MockSubmissionService) Get(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submission.Submission), args.Error(1)
}

func (m *MockSubmissionService) ListByAccount(ctx context.Context, accountID uuid.UUID, page shared.Page) ([]*submission.Submission, int64, error) {
	args := m.Called(ctx, accountID, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*submission.Submission), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubmissionService) ListPending(ctx context.Context, page shared.Page) ([]*submission.Submission, int64, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*submission.Submission), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubmissionService) Remaining(ctx context.Context, accountID uuid.UUID) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) Purchase(ctx context.Context, request *service.PurchaseRequest) (*service.PurchaseResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PurchaseResult), args.Error(1)
}

func (m *MockPurchaseService) Access(ctx context.Context, accountID, purchaseID uuid.UUID) (*purchase.Purchase, error) {
	args := m.Called(ctx, accountID, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchase.Purchase), args.Error(1)
}

func (m *MockPurchaseService) Review(ctx context.Context, request *service.ReviewPurchaseRequest) (*purchase.Purchase, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchase.Purchase), args.Error(1)
}

func (m *MockPurchaseService) Expire(ctx context.Context, purchaseID uuid.UUID) (*purchase.Purchase, error) {
	args := m.Called(ctx, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchase.Purchase), args.Error(1)
}

func (m *MockPurchaseService) Refund(ctx context.Context, request *service.RefundRequest) (*service.PurchaseResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PurchaseResult), args.Error(1)
}

func (m *MockPurchaseService) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseService) Get(ctx context.Context, accountID, purchaseID uuid.UUID) (*purchase.Purchase, error) {
	args := m.Called(ctx, accountID, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchase.Purchase), args.Error(1)
}

func (m *MockPurchaseService) ListByAccount(ctx context.Context, accountID uuid.UUID, activeOnly bool, page shared.Page) ([]*purchase.Purchase, int64, error) {
	args := m.Called(ctx, accountID, activeOnly, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*purchase.Purchase), args.Get(1).(int64), args.Error(2)
}

func (m *MockPurchaseService) ExpiringWithin(ctx context.Context, accountID uuid.UUID, window time.Duration) ([]*purchase.Purchase, error) {
	args := m.Called(ctx, accountID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*purchase.Purchase), args.Error(1)
}

func (m *MockPurchaseService) Stats(ctx context.Context, accountID uuid.UUID) (purchase.Stats, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(purchase.Stats), args.Error(1)
}
