package notify

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	defaultQueueSize          = 100
	defaultWorkers       uint = 2
	defaultMaxAttempts   uint = 3
	defaultRetryInterval      = 2 * time.Second
	defaultSendTimeout        = 15 * time.Second
)

// OrderNotifier отправляет покупателю письма по событиям заказа: подтверждение при создании и уведомление
// о готовности при переходе в статус ready. События ставятся в очередь, отправка идет в Run.
type OrderNotifier struct {
	mailer        Mailer
	from          string
	queue         chan domain.OrderEvent
	workers       uint
	maxAttempts   uint
	retryInterval time.Duration
	l             *logrus.Entry
}

func NewOrderNotifier(mailer Mailer, from string, l *logrus.Logger) *OrderNotifier {
	return &OrderNotifier{
		mailer:        mailer,
		from:          from,
		queue:         make(chan domain.OrderEvent, defaultQueueSize),
		workers:       defaultWorkers,
		maxAttempts:   defaultMaxAttempts,
		retryInterval: defaultRetryInterval,
		l: l.WithFields(logrus.Fields{
			"component": "notify",
			"module":    "order_notifier",
		}),
	}
}

// SetWorkers устанавливает кол-во воркеров отправки.
func (n *OrderNotifier) SetWorkers(workers uint) *OrderNotifier {
	if workers > 0 {
		n.workers = workers
	}
	return n
}

// SetRetry устанавливает кол-во попыток отправки и базовый интервал между ними.
func (n *OrderNotifier) SetRetry(maxAttempts uint, interval time.Duration) *OrderNotifier {
	if maxAttempts > 0 {
		n.maxAttempts = maxAttempts
	}
	n.retryInterval = interval
	return n
}

// HandleEvent обработчик шины событий. Не блокирует издателя: при переполненной очереди событие
// отбрасывается с записью в лог.
func (n *OrderNotifier) HandleEvent(_ context.Context, event domain.OrderEvent) {
	if !wantsMail(event) {
		return
	}
	select {
	case n.queue <- event:
	default:
		n.l.WithFields(logrus.Fields{
			"event_id": event.ID,
			"order_id": event.Order.ID,
		}).Error("notification queue is full, dropping event")
	}
}

// Run запускает воркеров отправки и блокируется до отмены контекста.
func (n *OrderNotifier) Run(ctx context.Context) {
	n.l.WithField("workers", n.workers).Info("Starting")

	var wg sync.WaitGroup
	for i := range n.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.worker(ctx, i+1)
		}()
	}
	wg.Wait()
	n.l.Info("Got stop signal, exiting...")
}

func (n *OrderNotifier) worker(ctx context.Context, workerID uint) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.queue:
			l := n.l.WithFields(logrus.Fields{
				"worker":   workerID,
				"event_id": event.ID,
				"order_id": event.Order.ID,
			})
			if err := n.notify(ctx, event); err != nil {
				l.WithError(err).Error("failed to send notification")
				continue
			}
			l.Info("notification sent")
		}
	}
}

// notify собирает письмо по событию и отправляет его, повторяя при ошибке до maxAttempts раз.
func (n *OrderNotifier) notify(ctx context.Context, event domain.OrderEvent) error {
	var msg Message
	var err error
	switch event.Type {
	case domain.OrderEventCreated:
		msg, err = ConfirmationMessage(n.from, &event.Order)
	case domain.OrderEventStatusChanged:
		msg, err = ReadyMessage(n.from, &event.Order)
	default:
		return fmt.Errorf("unexpected event type %s", event.Type)
	}
	if err != nil {
		return err
	}

	var sendErr error
	for attempt := range n.maxAttempts {
		if attempt > 0 {
			backoff := n.retryInterval << (attempt - 1)
			delay := time.Duration(jitter(float64(backoff), 0.15, 0.15)) //nolint:mnd
			select {
			case <-ctx.Done():
				return errors.Join(sendErr, ctx.Err())
			case <-time.After(delay):
			}
		}
		sendCtx, cancel := context.WithTimeout(ctx, defaultSendTimeout)
		sendErr = n.mailer.Send(sendCtx, msg)
		cancel()
		if sendErr == nil {
			return nil
		}
	}
	return fmt.Errorf("after %d attempts: %w", n.maxAttempts, sendErr)
}

// wantsMail true для событий, о которых пишем покупателю: создание заказа и переход в ready.
func wantsMail(event domain.OrderEvent) bool {
	if event.Order.CustomerEmail == nil || *event.Order.CustomerEmail == "" {
		return false
	}
	switch event.Type {
	case domain.OrderEventCreated:
		return true
	case domain.OrderEventStatusChanged:
		return event.Order.Status == domain.OrderStatusReady && event.PreviousStatus != domain.OrderStatusReady
	default:
		return false
	}
}

// jitter возвращает число, рассыпавшееся относительно value на случайный процент в пределах
// [1-minPercent, 1+maxPercent].
//
// minPercent и maxPercent должны быть >= 0 (0.1 = 10%). Если указано иное, значение выставится в 0.15.
func jitter(value, minPercent, maxPercent float64) float64 {
	if minPercent < 0 || maxPercent < 0 {
		minPercent = 0.15
		maxPercent = 0.15
	}
	factor := 1 - minPercent + rand.Float64()*(minPercent+maxPercent) // nolint:gosec
	return value * factor
}
