package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/emotion-market/point-ledger/internal/config"
	"github.com/jonboulle/clockwork"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Done() <-chan struct{}
	Close() error
}

// KafkaReader is the subset of kafka.Reader the consumer uses.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const fetchRetryDelay = time.Second

// KafkaConsumer reads the ledger event topic as a member of a consumer group.
// Offsets are committed only after the handler succeeds.
type KafkaConsumer struct {
	reader  KafkaReader
	clock   clockwork.Clock
	logger  *slog.Logger
	topic   string
	groupID string
	done    chan struct{}
}

func NewKafkaConsumer(logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := kafka.FirstOffset
	if cfg.StartOffset == kafka.LastOffset {
		startOffset = kafka.LastOffset
	}

	return newKafkaConsumer(
		kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.LedgerEventTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
		clockwork.NewRealClock(),
		logger,
		cfg.LedgerEventTopic,
		cfg.ConsumerGroup,
	)
}

func newKafkaConsumer(reader KafkaReader, clock clockwork.Clock, logger *slog.Logger, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader:  reader,
		clock:   clock,
		logger:  logger.With("topic", topic, "group_id", groupID),
		topic:   topic,
		groupID: groupID,
		done:    make(chan struct{}),
	}
}

// Subscribe starts the fetch loop in the background. It stops when ctx is canceled.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic")

	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Info("Context canceled, stopping consumer")
					return
				}
				c.logger.Error("Failed to fetch message from Kafka", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-c.clock.After(fetchRetryDelay):
				}
				continue
			}

			logger := c.logger.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
			logger.Debug("Received message from Kafka")

			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				logger.Error("Failed to process message, offset not committed", "error", err)
				continue
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Error("Failed to commit message after successful processing", "error", err)
			}
		}
	}()

	return nil
}

// Done is closed when the fetch loop has exited.
func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
