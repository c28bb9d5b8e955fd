package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emotion-market/point-ledger/internal/domain/ledger"
	"github.com/emotion-market/point-ledger/internal/platform/messaging/producers"
	"github.com/emotion-market/point-ledger/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// LedgerEventHandler projects published ledger entries into the audit store.
type LedgerEventHandler struct {
	auditRepo ledger.AuditRepository
	producer  producers.DeadLetterPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewLedgerEventHandler creates a new handler. producer may be nil when no DLQ is configured.
func NewLedgerEventHandler(
	logger *slog.Logger,
	auditRepo ledger.AuditRepository,
	producer producers.DeadLetterPublisher,
	clock clockwork.Clock,
) *LedgerEventHandler {
	return &LedgerEventHandler{
		auditRepo: auditRepo,
		producer:  producer,
		clock:     clock,
		logger:    logger,
	}
}

// HandleMessage returns nil when the offset may be committed: after a
// projection, a replay, or a successful DLQ hand-off.
func (h *LedgerEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var entry ledger.Entry
	if err := json.Unmarshal(value, &entry); err != nil {
		return h.deadLetter(ctx, key, value, fmt.Sprintf("undecodable ledger event: %s", err.Error()))
	}
	if entry.ID == uuid.Nil || entry.AccountID == uuid.Nil || !entry.Category.Valid() {
		return h.deadLetter(ctx, key, value, "ledger event is missing id, account or a known category")
	}

	logger := h.logger.With("entry_id", entry.ID.String(), "account_id", entry.AccountID.String())
	if entry.CorrelationID != "" {
		logger = logger.With("correlation_id", entry.CorrelationID)
	}

	record := &ledger.AuditRecord{Entry: entry, ProjectedAt: h.clock.Now().UTC()}
	if err := h.auditRepo.Create(ctx, record); err != nil {
		if errors.Is(err, ledger.ErrDuplicateEntry{}) {
			metrics.AuditProjected.WithLabelValues(metrics.ResultDuplicate).Inc()
			logger.Debug("Ledger event already projected")
			return nil
		}
		metrics.AuditProjected.WithLabelValues(metrics.ResultError).Inc()
		logger.Error("Failed to project ledger event", "error", err)
		return fmt.Errorf("projecting ledger entry %s failed: %w", entry.ID, err)
	}

	metrics.AuditProjected.WithLabelValues(metrics.ResultOK).Inc()
	logger.Info("Ledger event projected", "category", string(entry.Category), "amount", entry.Amount)
	return nil
}

func (h *LedgerEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string) error {
	h.logger.Error("Rejecting ledger event", "message_key", string(key), "reason", reason)

	if h.producer == nil {
		metrics.AuditProjected.WithLabelValues(metrics.ResultError).Inc()
		return errors.New(reason)
	}

	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		metrics.AuditProjected.WithLabelValues(metrics.ResultError).Inc()
		h.logger.Error("Failed to publish message to DLQ", "message_key", string(key), "error", err)
		return fmt.Errorf("%s (dlq: %w)", reason, err)
	}

	metrics.AuditProjected.WithLabelValues(metrics.ResultDLQ).Inc()
	return nil
}
