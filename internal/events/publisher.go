// Package events publishes bill lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mariyam933/fyp/internal/models"
	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	BillCreated = "bill.created"
	BillUpdated = "bill.updated"
	BillDeleted = "bill.deleted"
)

// BillEvent is the message value, JSON encoded.
type BillEvent struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	BillID     uint              `json:"billId"`
	CustomerID uint              `json:"customerId"`
	TotalBill  float64           `json:"totalBill"`
	Status     models.BillStatus `json:"status"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// NewBillEvent describes what just happened to bill.
func NewBillEvent(eventType string, bill *models.Bill) BillEvent {
	return BillEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		BillID:     bill.ID,
		CustomerID: bill.CustomerID,
		TotalBill:  bill.TotalBill,
		Status:     bill.Status,
		OccurredAt: time.Now().UTC(),
	}
}

// Writer defines the subset of kafka.Writer we need, so the publisher is testable.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is what handlers use to announce bill changes.
type Publisher interface {
	Publish(ctx context.Context, evt BillEvent) error
	Close() error
}

// KafkaPublisher writes events keyed by customer id, so one customer's
// events stay ordered on a partition.
type KafkaPublisher struct {
	writer Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w}
}

// NewKafkaPublisherWithWriter allows injecting a test writer.
func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt BillEvent) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal bill event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(evt.CustomerID), 10)),
		Value: b,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write bill event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop discards events. Used when Kafka is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, BillEvent) error { return nil }
func (Noop) Close() error                             { return nil }
