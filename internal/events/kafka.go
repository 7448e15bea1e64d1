package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const DefaultTopic = "order-events"

// OrderEventMessage сообщение о событии заказа в kafka.
type OrderEventMessage struct {
	EventID        string                   `json:"event_id"`
	Type           domain.OrderEventType    `json:"type"`
	OrderID        string                   `json:"order_id"`
	UserID         *string                  `json:"user_id"`
	Status         domain.OrderStatusType   `json:"status"`
	PreviousStatus domain.OrderStatusType   `json:"previous_status,omitempty"`
	PaymentMethod  domain.PaymentMethodType `json:"payment_method"`
	Total          int64                    `json:"total"`
	PickupDate     string                   `json:"pickup_date"`
	Timestamp      time.Time                `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher дублирует события заказов в топик kafka. Ключ сообщения ID заказа, поэтому события
// одного заказа попадают в одну партицию по порядку.
type KafkaPublisher struct {
	writer messageWriter
	l      *logrus.Entry
}

func NewKafkaPublisher(brokers, topic string, l *logrus.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	entry := l.WithFields(logrus.Fields{"component": "kafka_publisher", "topic": topic})
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				entry.WithError(err).WithField("messages", len(messages)).Error("failed to publish order events")
			}
		},
	}
	return &KafkaPublisher{writer: writer, l: entry}
}

// Handle обработчик для Bus.
func (p *KafkaPublisher) Handle(ctx context.Context, event domain.OrderEvent) {
	if err := p.publish(ctx, event); err != nil {
		p.l.WithError(err).WithField("event_id", event.ID).Error("failed to publish order event")
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event domain.OrderEvent) error {
	data, err := json.Marshal(OrderEventMessage{
		EventID:        event.ID,
		Type:           event.Type,
		OrderID:        event.Order.ID,
		UserID:         event.Order.UserID,
		Status:         event.Order.Status,
		PreviousStatus: event.PreviousStatus,
		PaymentMethod:  event.Order.PaymentMethod,
		Total:          event.Order.Total,
		PickupDate:     event.Order.PickupDate,
		Timestamp:      event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	if err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Order.ID),
		Value: data,
	}); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka writer: %w", err)
	}
	return nil
}
