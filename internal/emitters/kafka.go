package emitters

import (
	"context"
	"deposit-verifier/internal/interfaces"
	"deposit-verifier/internal/logger"
	"deposit-verifier/internal/models"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
)

var _ interfaces.EventEmitter = (*KafkaEmitter)(nil)

// KafkaEmitter publishes deposit lifecycle events to Kafka, keyed by
// transaction hash so consumers see one partition per hash.
type KafkaEmitter struct {
	writer *kafka.Writer
	mu     sync.Mutex
}

// NewKafkaEmitter creates a new KafkaEmitter
func NewKafkaEmitter(brokerAddress, topic string) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerAddress),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (k *KafkaEmitter) EmitEvent(event models.DepositEvent) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(event.TxHash),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	logger.GetLogger().Info().
		Str("network", event.Network.String()).
		Str("txHash", event.TxHash).
		Str("status", event.Status.String()).
		Msg("Successfully emitted deposit event to Kafka")
	return nil
}

func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}
