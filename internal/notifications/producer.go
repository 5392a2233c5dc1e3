package notifications

import (
	"context"
	"fmt"
	"time"

	"ticketing/internal/shared/config"
	"ticketing/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher delivers committed state changes. Publishing is best effort:
// callers log failures and never roll back on them.
type Publisher interface {
	Publish(ctx context.Context, event *TicketEvent) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka ticket event producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	ClientID         string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a producer configuration derived from the app config
func DefaultKafkaProducerConfig(cfg config.KafkaConfig) *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          cfg.Brokers,
		Topic:            cfg.Topic,
		ClientID:         cfg.ClientID,
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// SaramaConfig builds the sarama producer configuration
func (c *KafkaProducerConfig) SaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = c.ClientID
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = c.RequiredAcks
	saramaConfig.Producer.Compression = c.CompressionType
	saramaConfig.Producer.Retry.Max = c.RetryMax
	saramaConfig.Producer.Timeout = c.Timeout
	saramaConfig.Producer.Idempotent = c.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = c.MaxMessageBytes

	// idempotent producers require a single in-flight request
	if c.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

// KafkaPublisher publishes ticket events to Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewKafkaPublisher connects a sync producer to the configured brokers
func NewKafkaPublisher(cfg *KafkaProducerConfig) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, cfg.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.Topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: logger.GetDefault()}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *TicketEvent) error {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal ticket event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   createHeaders(event),
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send ticket event to Kafka: %w", err)
	}

	p.log.DebugContext(ctx, "ticket event published",
		"topic", p.topic, "partition", partition, "offset", offset,
		"type", string(event.Type), "ticket_id", event.TicketID)
	return nil
}

func createHeaders(event *TicketEvent) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("message_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("event_id"), Value: []byte(event.EventID)},
		{Key: []byte("producer"), Value: []byte("ticketing-service")},
		{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
	}
	if event.TicketID != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte("ticket_id"), Value: []byte(event.TicketID)})
	}
	return headers
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}

// LogPublisher writes events to the log when Kafka is disabled
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(l *logger.Logger) *LogPublisher {
	if l == nil {
		l = logger.GetDefault()
	}
	return &LogPublisher{log: l}
}

func (p *LogPublisher) Publish(ctx context.Context, event *TicketEvent) error {
	p.log.InfoContext(ctx, "ticket event",
		"type", string(event.Type), "ticket_id", event.TicketID,
		"event_id", event.EventID, "status", event.Status, "reason", event.Reason)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Emit publishes event and logs instead of failing; state is already committed
func Emit(ctx context.Context, pub Publisher, event *TicketEvent) {
	if pub == nil || event == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		logger.GetDefault().WarnContext(ctx, "failed to publish ticket event",
			"type", string(event.Type), "ticket_id", event.TicketID, "error", err)
	}
}
