package components

import (
	"log/slog"
	"time"

	"github.com/emotion-market/point-ledger/internal/data/memory"
	"github.com/emotion-market/point-ledger/internal/data/postgres"
	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/catalog"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/outbox"
	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/emotion-market/point-ledger/internal/point_engine/service"
	"github.com/jonboulle/clockwork"
)

// Repositories groups the stores the point engine writes through.
type Repositories struct {
	Accounts    account.Repository
	Ledger      ledger.Repository
	Submissions submission.Repository
	Purchases   purchase.Repository
	Catalog     catalog.Repository
	Outbox      outbox.Repository
}

// PostgresRepositories builds repositories backed by db.
func PostgresRepositories(logger *slog.Logger, db *persistence.PostgresDB) Repositories {
	return Repositories{
		Accounts:    postgres.NewAccountRepository(logger, db),
		Ledger:      postgres.NewLedgerRepository(logger, db),
		Submissions: postgres.NewSubmissionRepository(logger, db),
		Purchases:   postgres.NewPurchaseRepository(logger, db),
		Catalog:     postgres.NewCatalogRepository(logger, db),
		Outbox:      postgres.NewOutboxRepository(logger, db),
	}
}

// MemoryRepositories builds repositories over an in-process store. Pair them
// with the same store as the TxRunner.
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Accounts:    store.Accounts(),
		Ledger:      store.Ledger(),
		Submissions: store.Submissions(),
		Purchases:   store.Purchases(),
		Catalog:     store.Catalog(),
		Outbox:      store.Outbox(),
	}
}

// Services is the full set of point engine operations.
type Services struct {
	Accounts    service.AccountService
	Submissions service.SubmissionService
	Purchases   service.PurchaseService
	Query       service.QueryService
}

// CreateServices wires the engine. loc is the zone of the quota day.
func CreateServices(
	txRunner persistence.TxRunner,
	repos Repositories,
	loc *time.Location,
	clock clockwork.Clock,
	logger *slog.Logger,
) Services {
	ledgerStore := NewLedgerStore(repos.Accounts, repos.Ledger, repos.Outbox, clock, logger.With("component", "ledger_store"))
	quotaGuard := NewQuotaGuard(repos.Submissions, clock, loc, logger.With("component", "quota_guard"))

	return Services{
		Accounts: service.NewAccountService(
			txRunner, repos.Accounts, ledgerStore, clock,
			logger.With("component", "account_service"),
		),
		Submissions: service.NewSubmissionService(
			txRunner, repos.Accounts, repos.Submissions, ledgerStore, quotaGuard, clock,
			logger.With("component", "submission_service"),
		),
		Purchases: service.NewPurchaseService(
			txRunner, repos.Accounts, repos.Purchases, repos.Catalog, ledgerStore, clock,
			logger.With("component", "purchase_service"),
		),
		Query: service.NewQueryService(
			repos.Accounts, repos.Ledger, quotaGuard, loc,
			logger.With("component", "query_service"),
		),
	}
}
