package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
)

const kafkaFlushTimeout = 5 * time.Second

// Kafka produces records keyed by their identity.
type Kafka struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
	done     chan struct{}
}

func NewKafka(brokers, topic string, logger *zap.Logger) (*Kafka, error) {
	if brokers == "" || topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	k := &Kafka{producer: p, topic: topic, logger: logger, done: make(chan struct{})}
	go k.reportDeliveries()
	return k, nil
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Publish(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(rec.RecordKey()),
		Value:          data,
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("produce: %w", err)
	}
	return nil
}

func (k *Kafka) reportDeliveries() {
	defer close(k.done)
	for ev := range k.producer.Events() {
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			k.logger.Warn("kafka delivery failed", zap.ByteString("key", m.Key), zap.Error(m.TopicPartition.Error))
		}
	}
}

func (k *Kafka) Close() error {
	remaining := k.producer.Flush(int(kafkaFlushTimeout / time.Millisecond))
	k.producer.Close()
	<-k.done
	if remaining > 0 {
		return fmt.Errorf("%d kafka messages not delivered", remaining)
	}
	return nil
}
