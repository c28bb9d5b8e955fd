package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emotion-market/point-ledger/internal/domain/outbox"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/platform/messaging/producers"
)

// ErrUndeliverable marks a message that can never be published. The poller
// does not retry it.
var ErrUndeliverable = errors.New("outbox message is undeliverable")

// EventPublisher delivers one outbox message to the event stream
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl publishes ledger entries to Kafka keyed by account.
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent writes the entry to the topic and marks the message PROCESSED.
// A payload that does not decode is marked FAILED_TO_PUBLISH immediately.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	entry, err := message.LedgerEntry()
	if err != nil {
		p.logger.Error("Failed to decode ledger entry from outbox payload",
			"outbox_id", message.ID, "entry_id", message.EntryID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to mark undecodable outbox message", "outbox_id", message.ID, "error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d: %v", ErrUndeliverable, message.ID, err)
	}

	logger := p.logger.With("outbox_id", message.ID, "entry_id", entry.ID.String())
	if entry.CorrelationID != "" {
		logger = logger.With("correlation_id", entry.CorrelationID)
	}

	if err := p.producer.Publish(ctx, entry.AccountID.String(), message.Payload); err != nil {
		logger.Error("Failed to publish ledger event", "error", err)
		return fmt.Errorf("failed to publish ledger event %s: %w", entry.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		// The event is out; a redelivery is absorbed by the idempotent audit projection.
		logger.Error("Ledger event published but outbox status update failed", "error", err)
		return fmt.Errorf("event %s published, but failed to mark outbox %d as PROCESSED: %w", entry.ID, message.ID, err)
	}

	logger.Debug("Ledger event published")
	return nil
}
