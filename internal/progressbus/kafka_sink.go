package progressbus

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"agentmesh/internal/logger"
)

// KafkaSink is a best-effort fan-out of every published Event to a Kafka
// topic, for downstream consumers (analytics, billing) that live outside
// this system's scope. Grounded on the gateway's
// internal/messaging/kafka.Producer: async producer, snappy compression,
// bounded retry.
type KafkaSink struct {
	producer sarama.AsyncProducer
	topic    string
	log      *slog.Logger
}

// NewKafkaSink dials brokers and returns a Sink publishing to topic. The
// caller should call Close on shutdown.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = false
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	config.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("creating progress bus kafka producer: %w", err)
	}

	sink := &KafkaSink{
		producer: producer,
		topic:    topic,
		log:      logger.WithComponent("progressbus.kafka"),
	}
	go sink.drainErrors()
	return sink, nil
}

func (s *KafkaSink) drainErrors() {
	for err := range s.producer.Errors() {
		s.log.Warn("progress event publish failed", "error", err.Err)
	}
}

// Publish fire-and-forgets event onto the Kafka topic. Best-effort: a
// marshal or producer-input failure is logged, never returned, matching
// the bus's own best-effort delivery semantics (spec.md §4.6).
func (s *KafkaSink) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Warn("failed to marshal progress event for kafka sink", "error", err)
		return
	}

	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.ConversationID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	}
}

// Close releases the underlying producer.
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
