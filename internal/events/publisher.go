package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// TransactionEvent is emitted after a transaction reaches a settlement
// decision (completed, processing handoff, or failure).
type TransactionEvent struct {
	EventType   string          `json:"event_type"`
	Reference   string          `json:"reference"`
	UserID      uint            `json:"user_id"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	ProviderRef string          `json:"provider_ref,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type Publisher interface {
	PublishTransaction(ctx context.Context, event TransactionEvent) error
	Close() error
}

// KafkaPublisher writes transaction events to a single topic keyed by
// reference so events for one transaction land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

func (p *KafkaPublisher) PublishTransaction(ctx context.Context, event TransactionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Reference),
		Value: data,
	})
	if err != nil {
		p.logger.Error("failed to publish transaction event",
			slog.String("reference", event.Reference),
			slog.String("event_type", event.EventType),
			slog.Any("error", err))
	}
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops all events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransaction(context.Context, TransactionEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
