package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	topicProbeAttempts = 3
	topicProbeBackoff  = time.Second
)

// createKafkaTopicIfNotExists creates topicName unless the broker already
// reports partitions for it. Partition and replica counts default to 1.
func createKafkaTopicIfNotExists(conn *kafka.Conn, topicName string, numPartitions int, replicationFactor int, log *slog.Logger) error {
	logger := log.With("topic", topicName)

	var (
		partitions []kafka.Partition
		err        error
	)
	for attempt := 1; attempt <= topicProbeAttempts; attempt++ {
		partitions, err = conn.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			logger.Debug("Kafka topic already exists", "partitions", len(partitions))
			return nil
		}
		logger.Debug("Kafka topic not visible yet", "attempt", attempt, "error", err)
		time.Sleep(topicProbeBackoff * time.Duration(attempt))
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     max(numPartitions, 1),
		ReplicationFactor: max(replicationFactor, 1),
	}
	if err := conn.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}

	logger.Info("Created Kafka topic",
		"partitions", topicConfig.NumPartitions,
		"replication_factor", topicConfig.ReplicationFactor,
	)
	return nil
}
