package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/point_engine/service"
)

func TestAccountHandler_Open(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		accounts := new(MockAccountService)
		h := NewAccountHandler(testLogger, accounts, new(MockQueryService))
		caller := member()

		now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
		accounts.On("Open", mock.Anything, caller.AccountID, mock.AnythingOfType("string")).
			Return(&account.Account{ID: caller.AccountID, Balance: account.SignupGrant, CreatedAt: now, UpdatedAt: now}, nil)

		r := setupTestRouter(caller)
		r.POST("/accounts", h.Open)
		rr := doRequest(r, http.MethodPost, "/accounts", nil)

		assert.Equal(t, http.StatusCreated, rr.Code)
		var body AccountResponse
		decodeData(t, rr, &body)
		assert.Equal(t, caller.AccountID.String(), body.ID)
		assert.Equal(t, int64(100), body.Balance)
		assert.Equal(t, "2026-05-04T09:00:00Z", body.CreatedAt)
		accounts.AssertExpectations(t)
	})

	t.Run("AlreadyOpen", func(t *testing.T) {
		accounts := new(MockAccountService)
		h := NewAccountHandler(testLogger, accounts, new(MockQueryService))
		caller := member()
		accounts.On("Open", mock.Anything, caller.AccountID, mock.Anything).
			Return(nil, account.ErrAccountExists{AccountID: caller.AccountID})

		r := setupTestRouter(caller)
		r.POST("/accounts", h.Open)
		rr := doRequest(r, http.MethodPost, "/accounts", nil)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "ACCOUNT_EXISTS", decodeError(t, rr).Code)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		h := NewAccountHandler(testLogger, new(MockAccountService), new(MockQueryService))

		r := setupTestRouter(nil)
		r.POST("/accounts", h.Open)
		rr := doRequest(r, http.MethodPost, "/accounts", nil)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAccountHandler_Me(t *testing.T) {
	accounts := new(MockAccountService)
	h := NewAccountHandler(testLogger, accounts, new(MockQueryService))
	caller := member()
	accounts.On("Get", mock.Anything, caller.AccountID).Return(nil, account.ErrAccountNotFound{AccountID: caller.AccountID})

	r := setupTestRouter(caller)
	r.GET("/accounts/me", h.Me)
	rr := doRequest(r, http.MethodGet, "/accounts/me", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", decodeError(t, rr).Code)
}

func TestAccountHandler_History(t *testing.T) {
	t.Run("PaginatesAndFilters", func(t *testing.T) {
		queries := new(MockQueryService)
		h := NewAccountHandler(testLogger, new(MockAccountService), queries)
		caller := member()

		entries := []*ledger.Entry{
			{ID: uuid.New(), AccountID: caller.AccountID, Amount: 25, Category: ledger.CategorySubmissionReward, BalanceAfter: 125},
		}
		queries.On("History", mock.Anything, caller.AccountID,
			ledger.Filter{Category: ledger.CategorySubmissionReward}, shared.NewPage(2, 10)).
			Return(entries, int64(11), nil)

		r := setupTestRouter(caller)
		r.GET("/ledger", h.History)
		rr := doRequest(r, http.MethodGet, "/ledger?category=SUBMISSION_REWARD&page=2&per_page=10", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var body []LedgerEntryResponse
		response := decodeData(t, rr, &body)
		require.Len(t, body, 1)
		assert.Equal(t, int64(125), body[0].BalanceAfter)
		require.NotNil(t, response.Meta)
		assert.Equal(t, 2, response.Meta.Page)
		assert.Equal(t, 2, response.Meta.TotalPages)
		assert.Equal(t, 11, response.Meta.TotalItems)
		queries.AssertExpectations(t)
	})

	t.Run("RejectsOversizedPage", func(t *testing.T) {
		h := NewAccountHandler(testLogger, new(MockAccountService), new(MockQueryService))

		r := setupTestRouter(member())
		r.GET("/ledger", h.History)
		rr := doRequest(r, http.MethodGet, "/ledger?per_page=500", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAccountHandler_Statistics(t *testing.T) {
	t.Run("ParsesWindow", func(t *testing.T) {
		queries := new(MockQueryService)
		h := NewAccountHandler(testLogger, new(MockAccountService), queries)
		caller := member()

		from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC)
		queries.On("Statistics", mock.Anything, caller.AccountID,
			mock.MatchedBy(func(ts time.Time) bool { return ts.Equal(from) }),
			mock.MatchedBy(func(ts time.Time) bool { return ts.Equal(to) })).
			Return(&service.Statistics{From: from, To: to, TotalEarned: 150, TotalSpent: 30, NetGain: 120}, nil)

		r := setupTestRouter(caller)
		r.GET("/statistics", h.Statistics)
		rr := doRequest(r, http.MethodGet, "/statistics?from=2026-05-01T00:00:00Z&to=2026-05-08T00:00:00Z", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var body service.Statistics
		decodeData(t, rr, &body)
		assert.Equal(t, int64(120), body.NetGain)
		queries.AssertExpectations(t)
	})

	t.Run("MissingBounds", func(t *testing.T) {
		h := NewAccountHandler(testLogger, new(MockAccountService), new(MockQueryService))

		r := setupTestRouter(member())
		r.GET("/statistics", h.Statistics)
		rr := doRequest(r, http.MethodGet, "/statistics?from=2026-05-01T00:00:00Z", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAccountHandler_Adjust(t *testing.T) {
	t.Run("Debit", func(t *testing.T) {
		accounts := new(MockAccountService)
		h := NewAccountHandler(testLogger, accounts, new(MockQueryService))
		target := uuid.New()

		accounts.On("Adjust", mock.Anything, mock.MatchedBy(func(req *service.AdjustRequest) bool {
			return req.AccountID == target && req.Delta == -40 && req.Reason == "chargeback"
		})).Return(
			&ledger.Entry{ID: uuid.New(), AccountID: target, Amount: -40, Category: ledger.CategoryAdminAdjustment, BalanceAfter: 60},
			&account.Account{ID: target, Balance: 60},
			nil,
		)

		r := setupTestRouter(admin())
		r.POST("/accounts/:id/adjustments", h.Adjust)
		rr := doRequest(r, http.MethodPost, "/accounts/"+target.String()+"/adjustments", AdjustRequest{Delta: -40, Reason: "chargeback"})

		require.Equal(t, http.StatusCreated, rr.Code)
		var body AdjustResponse
		decodeData(t, rr, &body)
		assert.Equal(t, int64(60), body.Balance)
		assert.Equal(t, "ADMIN_ADJUSTMENT", body.Entry.Category)
		accounts.AssertExpectations(t)
	})

	t.Run("InvalidAccountID", func(t *testing.T) {
		h := NewAccountHandler(testLogger, new(MockAccountService), new(MockQueryService))

		r := setupTestRouter(admin())
		r.POST("/accounts/:id/adjustments", h.Adjust)
		rr := doRequest(r, http.MethodPost, "/accounts/not-a-uuid/adjustments", AdjustRequest{Delta: 5, Reason: "x"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		h := NewAccountHandler(testLogger, new(MockAccountService), new(MockQueryService))

		r := setupTestRouter(admin())
		r.POST("/accounts/:id/adjustments", h.Adjust)
		rr := doRequest(r, http.MethodPost, "/accounts/"+uuid.NewString()+"/adjustments", `{"delta":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAccountHandler_Reconcile(t *testing.T) {
	queries := new(MockQueryService)
	h := NewAccountHandler(testLogger, new(MockAccountService), queries)
	target := uuid.New()
	latest := int64(85)
	queries.On("Reconcile", mock.Anything, target).Return(&service.Reconciliation{
		AccountID: target, StoredBalance: 85, LedgerSum: 85, LatestBalance: &latest, EntryCount: 3, Consistent: true,
	}, nil)

	r := setupTestRouter(admin())
	r.GET("/accounts/:id/reconcile", h.Reconcile)
	rr := doRequest(r, http.MethodGet, "/accounts/"+target.String()+"/reconcile", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var body service.Reconciliation
	decodeData(t, rr, &body)
	assert.True(t, body.Consistent)
	assert.Equal(t, int64(3), body.EntryCount)
}
