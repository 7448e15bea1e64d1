package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderEvent() domain.OrderEvent {
	userID := "user-1"
	return domain.OrderEvent{
		ID:   "evt-1",
		Type: domain.OrderEventStatusChanged,
		Order: domain.Order{
			ID:            "order-1",
			UserID:        &userID,
			Status:        domain.OrderStatusReady,
			PaymentMethod: domain.PaymentMethodCredits,
			Total:         245,
			PickupDate:    "2026-11-02",
		},
		PreviousStatus: domain.OrderStatusProcessing,
		OccurredAt:     time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBus_DeliveryOrder(t *testing.T) {
	l, hook := test.NewNullLogger()
	bus := NewBus(l)

	var calls []string
	unsubscribeA := bus.Subscribe("a", func(context.Context, domain.OrderEvent) { calls = append(calls, "a") })
	bus.Subscribe("panics", func(context.Context, domain.OrderEvent) { panic("boom") })
	bus.Subscribe("b", func(context.Context, domain.OrderEvent) { calls = append(calls, "b") })

	bus.Publish(t.Context(), orderEvent())
	assert.Equal(t, []string{"a", "b"}, calls)

	// паника обработчика логируется.
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "panics", hook.LastEntry().Data["handler"])

	unsubscribeA()
	unsubscribeA()
	bus.Publish(t.Context(), orderEvent())
	assert.Equal(t, []string{"a", "b", "b"}, calls)
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Handle(t *testing.T) {
	l, hook := test.NewNullLogger()
	writer := &fakeWriter{}
	p := &KafkaPublisher{writer: writer, l: l.WithField("component", "kafka_publisher")}

	p.Handle(t.Context(), orderEvent())

	require.Len(t, writer.messages, 1)
	assert.Equal(t, "order-1", string(writer.messages[0].Key))

	var msg OrderEventMessage
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &msg))
	assert.Equal(t, domain.OrderEventStatusChanged, msg.Type)
	assert.Equal(t, domain.OrderStatusReady, msg.Status)
	assert.Equal(t, domain.OrderStatusProcessing, msg.PreviousStatus)
	assert.Equal(t, int64(245), msg.Total)
	assert.Empty(t, hook.AllEntries())

	writer.err = errors.New("broker down")
	p.Handle(t.Context(), orderEvent())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestOrderStream(t *testing.T) {
	l, _ := test.NewNullLogger()
	stream := NewOrderStream(2, l)

	fast, unsubscribeFast := stream.Subscribe()
	slow, unsubscribeSlow := stream.Subscribe()
	defer unsubscribeSlow()
	assert.Equal(t, 2, stream.Subscribers())

	for i := range 3 {
		event := orderEvent()
		event.ID = fmt.Sprintf("evt-%d", i)
		stream.HandleEvent(t.Context(), event)
		if i < 2 {
			// fast читает сразу, slow копит.
			got := <-fast.Events()
			assert.Equal(t, event.ID, got.ID)
		}
	}

	// третье событие не влезло в буфер slow.
	select {
	case <-slow.Resync():
	default:
		t.Fatal("lagging subscriber got no resync signal")
	}
	assert.Len(t, slow.Events(), 2)
	slow.Drain()
	assert.Empty(t, slow.Events())

	got := <-fast.Events()
	assert.Equal(t, "evt-2", got.ID)
	assert.Empty(t, fast.Resync())

	unsubscribeFast()
	unsubscribeFast()
	assert.Equal(t, 1, stream.Subscribers())
	stream.HandleEvent(t.Context(), orderEvent())
	assert.Empty(t, fast.Events())
}
