// Package memory is an in-process implementation of every repository and of the
// transaction runner. It backs STORAGE_DRIVER=memory and the workflow tests.
//
// Transactions are serialized: ExecuteTx holds a store-wide lock for the whole
// callback, snapshots the data first and restores the snapshot when the callback
// fails. Operations on different accounts therefore wait on each other, unlike
// the postgres backend where only the account row is locked. Reads outside a
// transaction are not isolated from a running one, so all writes are expected to
// go through ExecuteTx.
//
// Listings break timestamp ties by id so their order matches the postgres
// queries, which sort by (timestamp, id).
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/account"
	"github.com/emotion-market/point-ledger/internal/domain/catalog"
	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/domain/outbox"
	"github.com/emotion-market/point-ledger/internal/domain/purchase"
	"github.com/emotion-market/point-ledger/internal/domain/submission"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var _ persistence.TxRunner = (*Store)(nil)

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state
}

type state struct {
	accounts    map[uuid.UUID]account.Account
	entries     []ledger.Entry
	submissions map[uuid.UUID]submission.Submission
	purchases   map[uuid.UUID]purchase.Purchase
	items       map[uuid.UUID]catalog.Item
	outbox      []outbox.Message
}

func NewStore() *Store {
	return &Store{
		data: state{
			accounts:    make(map[uuid.UUID]account.Account),
			submissions: make(map[uuid.UUID]submission.Submission),
			purchases:   make(map[uuid.UUID]purchase.Purchase),
			items:       make(map[uuid.UUID]catalog.Item),
		},
	}
}

// ExecuteTx runs fn with a nil pgx.Tx. Repositories of this package ignore the
// transaction handle, so WithTx(nil) is safe.
func (s *Store) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(nil)
}

func (s *Store) restore(snapshot state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

func (st state) clone() state {
	c := state{
		accounts:    make(map[uuid.UUID]account.Account, len(st.accounts)),
		entries:     append([]ledger.Entry(nil), st.entries...),
		submissions: make(map[uuid.UUID]submission.Submission, len(st.submissions)),
		purchases:   make(map[uuid.UUID]purchase.Purchase, len(st.purchases)),
		items:       make(map[uuid.UUID]catalog.Item, len(st.items)),
		outbox:      append([]outbox.Message(nil), st.outbox...),
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.submissions {
		c.submissions[k] = v
	}
	for k, v := range st.purchases {
		c.purchases[k] = v
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	return c
}

func (s *Store) Accounts() account.Repository { return &AccountRepository{store: s} }
func (s *Store) Ledger() ledger.Repository { return &LedgerRepository{store: s} }
func (s *Store) Submissions() submission.Repository { return &SubmissionRepository{store: s} }
func (s *Store) Purchases() purchase.Repository { return &PurchaseRepository{store: s} }
func (s *Store) Catalog() catalog.Repository { return &CatalogRepository{store: s} }
func (s *Store) Outbox() outbox.Repository { return &OutboxRepository{store: s} }

// paginate returns the [offset, offset+limit) window of n items.
func paginate(n, limit, offset int) (int, int) {
	if offset >= n || limit <= 0 {
		return n, n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}

func newestFirst(a, b time.Time, aID, bID uuid.UUID) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return bytes.Compare(aID[:], bID[:]) > 0
}

func oldestFirst(a, b time.Time, aID, bID uuid.UUID) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return bytes.Compare(aID[:], bID[:]) < 0
}
