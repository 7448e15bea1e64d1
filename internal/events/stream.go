package events

import (
	"context"
	"sync"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/sirupsen/logrus"
)

const DefaultStreamBuffer = 64

// Subscription очередь событий одного слушателя потока. Если слушатель не успевает и буфер
// переполнен, событие отбрасывается, а в Resync приходит сигнал: слушатель должен перечитать заказы целиком.
type Subscription struct {
	events chan domain.OrderEvent
	resync chan struct{}
}

func (s *Subscription) Events() <-chan domain.OrderEvent {
	return s.events
}

func (s *Subscription) Resync() <-chan struct{} {
	return s.resync
}

// Drain выбрасывает накопленные события. Вызывается перед перечитыванием после Resync.
func (s *Subscription) Drain() {
	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

// OrderStream раздает события заказов живым слушателям (SSE админки). Publish никогда не блокируется.
type OrderStream struct {
	buffer int
	l      *logrus.Entry

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewOrderStream(buffer int, l *logrus.Logger) *OrderStream {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &OrderStream{
		buffer: buffer,
		l:      l.WithField("component", "order_stream"),
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscribe добавляет слушателя. Вторая функция отписывает его, вызывать можно несколько раз.
func (s *OrderStream) Subscribe() (*Subscription, func()) {
	sub := &Subscription{
		events: make(chan domain.OrderEvent, s.buffer),
		resync: make(chan struct{}, 1),
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
		})
	}
}

// HandleEvent подписчик шины событий.
func (s *OrderStream) HandleEvent(_ context.Context, event domain.OrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		select {
		case sub.events <- event:
		default:
			s.l.WithField("event_id", event.ID).Warn("stream subscriber is lagging, requesting resync")
			select {
			case sub.resync <- struct{}{}:
			default:
			}
		}
	}
}

func (s *OrderStream) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
