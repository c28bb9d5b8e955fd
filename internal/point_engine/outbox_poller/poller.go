package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emotion-market/point-ledger/internal/config"
	"github.com/emotion-market/point-ledger/internal/domain/outbox"
	"github.com/emotion-market/point-ledger/internal/domain/shared"
	"github.com/emotion-market/point-ledger/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
)

// Poller drains pending outbox messages to the event stream. Accounts are
// published in parallel on a worker pool; messages of one account are
// published in order by a single worker.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	pool             *ants.Pool
	clock            clockwork.Clock
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	poolSize int,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	clock clockwork.Clock,
	logger *slog.Logger,
) (*Poller, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox worker pool: %w", err)
	}

	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		pool:             pool,
		clock:            clock,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}, nil
}

// Start polls until ctx is canceled, then releases the worker pool.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
		"pool_size", p.pool.Cap(),
	)
	ticker := p.clock.NewTicker(p.pollInterval)
	defer ticker.Stop()
	defer p.pool.Release()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.Chan():
			if _, err := p.ProcessPending(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

// ProcessPending publishes one batch and returns how many messages went out.
func (p *Poller) ProcessPending(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		published int
	)
	for _, group := range groupByAccount(messages) {
		group := group
		wg.Add(1)
		task := func() {
			defer wg.Done()
			n := p.publishInOrder(ctx, group)
			mu.Lock()
			published += n
			mu.Unlock()
		}
		if err := p.pool.Submit(task); err != nil {
			p.logger.Warn("Worker pool rejected task, publishing inline", "error", err)
			task()
		}
	}
	wg.Wait()

	return published, nil
}

// publishInOrder stops at the first failure so a later entry of the account is
// never published ahead of an earlier one.
func (p *Poller) publishInOrder(ctx context.Context, group []*outbox.Message) int {
	published := 0
	for _, msg := range group {
		if err := p.publisher.PublishEvent(ctx, msg); err != nil {
			if errors.Is(err, ErrUndeliverable) {
				metrics.OutboxPublished.WithLabelValues(metrics.ResultFailed).Inc()
				continue
			}
			p.recordFailure(ctx, msg, err)
			return published
		}
		metrics.OutboxPublished.WithLabelValues(metrics.ResultOK).Inc()
		published++
	}
	return published
}

func (p *Poller) recordFailure(ctx context.Context, msg *outbox.Message, cause error) {
	logger := p.logger.With("outbox_id", msg.ID, "entry_id", msg.EntryID.String())

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		logger.Error("Failed to increment attempts for outbox message", "error", err)
		return
	}

	if msg.Attempts+1 >= p.maxRetryAttempts {
		logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
			"attempts_made", msg.Attempts+1, "error", cause,
		)
		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
			logger.Error("Failed to mark outbox message FAILED_TO_PUBLISH", "error", err)
			return
		}
		metrics.OutboxPublished.WithLabelValues(metrics.ResultFailed).Inc()
		return
	}

	metrics.OutboxPublished.WithLabelValues(metrics.ResultRetry).Inc()
}

// groupByAccount keeps the fetch order inside each group.
func groupByAccount(messages []*outbox.Message) [][]*outbox.Message {
	index := make(map[uuid.UUID]int)
	var groups [][]*outbox.Message
	for _, msg := range messages {
		i, ok := index[msg.AccountID]
		if !ok {
			i = len(groups)
			index[msg.AccountID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], msg)
	}
	return groups
}
