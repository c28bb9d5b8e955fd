package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/catalog"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/platform/metrics"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

type PurchaseServiceImpl struct {
	txRunner     persistence.TxRunner
	accountRepo  account.Repository
	purchaseRepo purchase.Repository
	catalogRepo  catalog.Repository
	ledgerStore  LedgerStore
	clock        clockwork.Clock
	logger       *slog.Logger
}

func NewPurchaseService(
	txRunner persistence.TxRunner,
	accountRepo account.Repository,
	purchaseRepo purchase.Repository,
	catalogRepo catalog.Repository,
	ledgerStore LedgerStore,
	clock clockwork.Clock,
	logger *slog.Logger,
) PurchaseService {
	return &PurchaseServiceImpl{
		txRunner:     txRunner,
		accountRepo:  accountRepo,
		purchaseRepo: purchaseRepo,
		catalogRepo:  catalogRepo,
		ledgerStore:  ledgerStore,
		clock:        clock,
		logger:       logger,
	}
}

// Purchase debits the item price and records an active purchase in one
// transaction. A repeat purchase of the same item inside the cool-down window
// is refused whatever the status of the earlier purchase.
func (s *PurchaseServiceImpl) Purchase(ctx context.Context, request *PurchaseRequest) (*PurchaseResult, error) {
	logger := s.logger.With("account_id", request.AccountID.String(), "item_id", request.ItemID.String())
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	if err := purchase.ValidateNote(request.Note); err != nil {
		metrics.Purchases.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}

	item, err := s.catalogRepo.GetByID(ctx, request.ItemID)
	if err != nil {
		if errors.Is(err, catalog.ErrItemNotFound{}) {
			metrics.Purchases.WithLabelValues(metrics.ResultRejected).Inc()
		}
		return nil, err
	}
	if !item.Available() {
		metrics.Purchases.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, catalog.ErrItemNotFound{ItemID: item.ID}
	}

	now := s.clock.Now().UTC()

	exists, err := s.purchaseRepo.ExistsSince(ctx, request.AccountID, request.ItemID, purchase.CooldownStart(now))
	if err != nil {
		return nil, fmt.Errorf("failed to check purchase cool-down: %w", err)
	}
	if exists {
		metrics.Purchases.WithLabelValues(metrics.ResultRejected).Inc()
		logger.Info("Repeat purchase inside cool-down window")
		return nil, purchase.ErrDuplicatePurchase
	}

	acc, err := s.accountRepo.GetByID(ctx, request.AccountID)
	if err != nil {
		return nil, err
	}
	if !acc.CanAfford(item.Price) {
		metrics.Purchases.WithLabelValues(metrics.ResultRejected).Inc()
		logger.Info("Insufficient balance for purchase", "balance", acc.Balance, "price", item.Price)
		return nil, account.ErrInsufficientBalance
	}

	var result PurchaseResult
	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if _, err := persistence.Bind(s.accountRepo, tx).LockForUpdate(ctx, request.AccountID); err != nil {
			return err
		}

		purchaseRepoTx := persistence.Bind(s.purchaseRepo, tx)

		// Recheck under the account lock so two concurrent buys of one item cannot both pass.
		exists, err := purchaseRepoTx.ExistsSince(ctx, request.AccountID, request.ItemID, purchase.CooldownStart(now))
		if err != nil {
			return err
		}
		if exists {
			return purchase.ErrDuplicatePurchase
		}

		created, err := purchase.New(request.AccountID, request.ItemID, item.Price, request.Note, now)
		if err != nil {
			return err
		}

		ref := created.ID
		_, updated, err := s.ledgerStore.Debit(ctx, tx, Posting{
			AccountID:     request.AccountID,
			Amount:        item.Price,
			Category:      ledger.CategoryPurchaseDebit,
			Description:   "purchase: " + item.Name,
			RefID:         &ref,
			RefKind:       ledger.RefKindPurchase,
			CorrelationID: request.CorrelationID,
		})
		if err != nil {
			return err
		}

		if err := purchaseRepoTx.Create(ctx, &created); err != nil {
			return err
		}
		if err := persistence.Bind(s.catalogRepo, tx).IncrementPurchaseCount(ctx, item.ID); err != nil {
			return err
		}

		result = PurchaseResult{Purchase: &created, Balance: updated.Balance}
		return nil
	})
	if err != nil {
		if isBusinessError(err) {
			metrics.Purchases.WithLabelValues(metrics.ResultRejected).Inc()
			logger.Info("Purchase refused", "error", err)
			return nil, err
		}
		metrics.Purchases.WithLabelValues(metrics.ResultError).Inc()
		logger.Error("Failed to commit purchase", "error", err)
		return nil, err
	}

	metrics.Purchases.WithLabelValues(metrics.ResultOK).Inc()
	metrics.RecordEntry(string(ledger.CategoryPurchaseDebit), -item.Price)
	logger.Info("Purchase completed",
		"purchase_id", result.Purchase.ID.String(),
		"points_spent", item.Price,
		"balance", result.Balance,
	)

	return &result, nil
}

// Access records a use of the purchased content. A purchase found lapsed is
// persisted as EXPIRED before access is refused.
func (s *PurchaseServiceImpl) Access(ctx context.Context, accountID, purchaseID uuid.UUID) (*purchase.Purchase, error) {
	var accessed purchase.Purchase
	denied := false

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		purchaseRepoTx := persistence.Bind(s.purchaseRepo, tx)

		current, err := purchaseRepoTx.LockForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if current.AccountID != accountID {
			return purchase.ErrPurchaseNotFound{PurchaseID: purchaseID}
		}

		now := s.clock.Now().UTC()
		if expired, changed := current.Expire(now); changed {
			if err := purchaseRepoTx.UpdateStatus(ctx, &expired); err != nil {
				return err
			}
			denied = true
			return nil
		}

		accessed, err = current.Access(now)
		if err != nil {
			return err
		}
		return purchaseRepoTx.UpdateAccess(ctx, &accessed)
	})
	if err != nil {
		return nil, err
	}
	if denied {
		metrics.PurchasesExpired.Inc()
		s.logger.Info("Access refused on lapsed purchase", "purchase_id", purchaseID.String())
		return nil, purchase.ErrAccessDenied
	}

	return &accessed, nil
}

// Review rates a purchase and refreshes the item's rating aggregate.
func (s *PurchaseServiceImpl) Review(ctx context.Context, request *ReviewPurchaseRequest) (*purchase.Purchase, error) {
	var reviewed purchase.Purchase

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		purchaseRepoTx := persistence.Bind(s.purchaseRepo, tx)

		current, err := purchaseRepoTx.LockForUpdate(ctx, request.PurchaseID)
		if err != nil {
			return err
		}
		if current.AccountID != request.AccountID {
			return purchase.ErrPurchaseNotFound{PurchaseID: request.PurchaseID}
		}

		reviewed, err = current.Review(request.Rating, request.Comment, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if err := purchaseRepoTx.UpdateReview(ctx, &reviewed); err != nil {
			return err
		}

		stats, err := purchaseRepoTx.RatingStats(ctx, reviewed.ItemID)
		if err != nil {
			return err
		}
		return persistence.Bind(s.catalogRepo, tx).UpdateRating(ctx, reviewed.ItemID, catalog.AverageRating(stats.Sum, stats.Count), stats.Count)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Purchase reviewed", "purchase_id", reviewed.ID.String(), "rating", request.Rating)
	observed := reviewed.Observed(s.clock.Now().UTC())
	return &observed, nil
}

// Expire persists EXPIRED for a lapsed purchase. It is a no-op for anything else.
func (s *PurchaseServiceImpl) Expire(ctx context.Context, purchaseID uuid.UUID) (*purchase.Purchase, error) {
	var result purchase.Purchase
	changed := false

	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		purchaseRepoTx := persistence.Bind(s.purchaseRepo, tx)

		current, err := purchaseRepoTx.LockForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}

		result, changed = current.Expire(s.clock.Now().UTC())
		if !changed {
			return nil
		}
		return purchaseRepoTx.UpdateStatus(ctx, &result)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.PurchasesExpired.Inc()
	}

	return &result, nil
}

// Refund returns the points of a purchase that is still active.
func (s *PurchaseServiceImpl) Refund(ctx context.Context, request *RefundRequest) (*PurchaseResult, error) {
	logger := s.logger.With("purchase_id", request.PurchaseID.String())
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	var result PurchaseResult
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		purchaseRepoTx := persistence.Bind(s.purchaseRepo, tx)

		current, err := purchaseRepoTx.LockForUpdate(ctx, request.PurchaseID)
		if err != nil {
			return err
		}

		refunded, err := current.Refund(s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if err := purchaseRepoTx.UpdateStatus(ctx, &refunded); err != nil {
			return err
		}

		result.Purchase = &refunded
		if refunded.PointsSpent <= 0 {
			acc, err := persistence.Bind(s.accountRepo, tx).GetByID(ctx, refunded.AccountID)
			if err != nil {
				return err
			}
			result.Balance = acc.Balance
			return nil
		}

		ref := refunded.ID
		_, updated, err := s.ledgerStore.Credit(ctx, tx, Posting{
			AccountID:     refunded.AccountID,
			Amount:        refunded.PointsSpent,
			Category:      ledger.CategoryPurchaseRefund,
			Description:   "refund of purchase " + refunded.ID.String(),
			RefID:         &ref,
			RefKind:       ledger.RefKindPurchase,
			CorrelationID: request.CorrelationID,
		})
		if err != nil {
			return err
		}
		result.Balance = updated.Balance
		return nil
	})
	if err != nil {
		logger.Warn("Failed to refund purchase", "error", err)
		return nil, err
	}

	metrics.RecordEntry(string(ledger.CategoryPurchaseRefund), result.Purchase.PointsSpent)
	logger.Info("Purchase refunded", "points_refunded", result.Purchase.PointsSpent, "balance", result.Balance)

	return &result, nil
}

// SweepExpired persists EXPIRED for every lapsed purchase.
func (s *PurchaseServiceImpl) SweepExpired(ctx context.Context) (int64, error) {
	var expired int64
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		n, err := persistence.Bind(s.purchaseRepo, tx).ExpireDue(ctx, s.clock.Now().UTC())
		expired = n
		return err
	})
	if err != nil {
		s.logger.Error("Failed to sweep expired purchases", "error", err)
		return 0, err
	}

	if expired > 0 {
		metrics.PurchasesExpired.Add(float64(expired))
		s.logger.Info("Expired purchases swept", "count", expired)
	}
	return expired, nil
}

// Get returns the purchase as it must be seen now. Purchases of other accounts
// are reported as not found.
func (s *PurchaseServiceImpl) Get(ctx context.Context, accountID, purchaseID uuid.UUID) (*purchase.Purchase, error) {
	p, err := s.purchaseRepo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if p.AccountID != accountID {
		return nil, purchase.ErrPurchaseNotFound{PurchaseID: purchaseID}
	}
	observed := p.Observed(s.clock.Now().UTC())
	return &observed, nil
}

func (s *PurchaseServiceImpl) ListByAccount(ctx context.Context, accountID uuid.UUID, activeOnly bool, page shared.Page) ([]*purchase.Purchase, int64, error) {
	now := s.clock.Now().UTC()

	list, err := s.purchaseRepo.ListByAccount(ctx, accountID, activeOnly, now, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	total, err := s.purchaseRepo.CountByAccount(ctx, accountID, activeOnly, now)
	if err != nil {
		return nil, 0, err
	}

	return observeAll(list, now), total, nil
}

// ExpiringWithin lists active purchases whose access ends within window from now.
func (s *PurchaseServiceImpl) ExpiringWithin(ctx context.Context, accountID uuid.UUID, window time.Duration) ([]*purchase.Purchase, error) {
	if window <= 0 {
		return nil, shared.NewInvalidInput("window", "must be positive")
	}
	now := s.clock.Now().UTC()

	list, err := s.purchaseRepo.ListExpiringBetween(ctx, accountID, now, now.Add(window))
	if err != nil {
		return nil, err
	}
	return observeAll(list, now), nil
}

func (s *PurchaseServiceImpl) Stats(ctx context.Context, accountID uuid.UUID) (purchase.Stats, error) {
	return s.purchaseRepo.Stats(ctx, accountID, s.clock.Now().UTC())
}

func observeAll(list []*purchase.Purchase, now time.Time) []*purchase.Purchase {
	out := make([]*purchase.Purchase, 0, len(list))
	for _, p := range list {
		observed := p.Observed(now)
		out = append(out, &observed)
	}
	return out
}
