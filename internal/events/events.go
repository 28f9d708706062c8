package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
)

const (
	TypeTransactionCreated = "transaction.created"
	TypeTransactionSettled = "transaction.settled"
)

// TransactionEvent is the payload published for every ledger state change.
type TransactionEvent struct {
	Type        string                   `json:"type"`
	Transaction models.Transaction       `json:"transaction"`
	Status      models.TransactionStatus `json:"status"`
	At          time.Time                `json:"at"`
}

func NewTransactionEvent(typ string, trx models.Transaction) TransactionEvent {
	return TransactionEvent{Type: typ, Transaction: trx, Status: trx.Status, At: trx.UpdatedAt}
}

type Publisher interface {
	Publish(ctx context.Context, ev TransactionEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TransactionEvent) error { return nil }
func (NopPublisher) Close() error { return nil }

// KafkaPublisher writes events keyed by transaction id so all events of one
// transaction land on the same partition.
type KafkaPublisher struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for tests.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

// NewKafkaPublisherWith injects a custom writer.
func NewKafkaPublisherWith(w kafkaMessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (k *KafkaPublisher) Publish(ctx context.Context, ev TransactionEvent) error {
	b, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Transaction.ID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	})
}

func (k *KafkaPublisher) Close() error {
	if c, ok := k.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// New returns a kafka publisher when brokers are set, otherwise a no-op one.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
