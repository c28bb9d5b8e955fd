package memory

import (
	"context"
	"time"

	"github.com/emotion-market/point-ledger/internal/domain/outbox"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

type OutboxRepository struct {
	store *Store
}

func (r *OutboxRepository) WithTx(pgx.Tx) outbox.Repository { return r }

func (r *OutboxRepository) Create(_ context.Context, message *outbox.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	message.ID = int64(len(r.store.data.outbox) + 1)
	r.store.data.outbox = append(r.store.data.outbox, *message)
	return nil
}

func (r *OutboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	messages := make([]*outbox.Message, 0)
	for _, m := range r.store.data.outbox {
		if len(messages) == limit {
			break
		}
		if m.Status == shared.OutboxStatusPending {
			m := m
			messages = append(messages, &m)
		}
	}
	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	return r.update(id, func(m *outbox.Message) {
		now := time.Now().UTC()
		m.Status = status
		m.LastAttemptAt = &now
	})
}

func (r *OutboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	return r.update(id, func(m *outbox.Message) {
		m.IncrementAttempts(time.Now().UTC())
	})
}

func (r *OutboxRepository) update(id int64, apply func(*outbox.Message)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if id < 1 || id > int64(len(r.store.data.outbox)) {
		return outbox.ErrMessageNotFound{ID: id}
	}
	apply(&r.store.data.outbox[id-1])
	return nil
}
