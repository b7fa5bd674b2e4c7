package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/vitalis-app/rosnode-agent/internal/config"
	"github.com/vitalis-app/rosnode-agent/internal/models"
)

// messageWriter is the subset of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one message per snapshot, keyed by hostname.
// Each message carries the batch header and chart catalog so consumers can
// process messages independently.
type KafkaSink struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaSink creates a Kafka producer for the configured brokers and topic.
func NewKafkaSink(cfg config.KafkaConfig, logger *zap.Logger) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout.Duration,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaSink{writer: writer, logger: logger}
}

// Send writes the batch's snapshots as individual messages.
func (s *KafkaSink) Send(ctx context.Context, batch models.Batch) error {
	messages := make([]kafka.Message, 0, len(batch.Snapshots))
	for _, snap := range batch.Snapshots {
		single := batch
		single.Snapshots = []models.Snapshot{snap}
		value, err := json.Marshal(single)
		if err != nil {
			s.logger.Error("Failed to marshal snapshot", zap.Error(err))
			continue
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(batch.Host.Hostname),
			Value: value,
			Time:  snapshotTime(snap),
		})
	}

	if len(messages) == 0 {
		return nil
	}
	if err := s.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("write kafka messages: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the producer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func snapshotTime(snap models.Snapshot) time.Time {
	if snap.Timestamp.IsZero() {
		return time.Now()
	}
	return snap.Timestamp
}
