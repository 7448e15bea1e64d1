package events

import (
	"context"
	"slices"
	"sync"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/sirupsen/logrus"
)

// Handler получает события заказов. Вызывается синхронно в горутине издателя, поэтому долгую работу
// обработчик должен переносить в свою очередь.
type Handler func(ctx context.Context, event domain.OrderEvent)

type handlerEntry struct {
	id      uint64
	name    string
	handler Handler
}

// Bus раздает события заказов подписчикам в порядке подписки.
type Bus struct {
	l *logrus.Entry

	mu       sync.RWMutex
	handlers []handlerEntry
	nextID   uint64
}

func NewBus(l *logrus.Logger) *Bus {
	return &Bus{
		l: l.WithField("component", "event_bus"),
	}
}

// Subscribe регистрирует обработчик. name используется в логах. Возвращает функцию отписки.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, handlerEntry{id: id, name: name, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.handlers = slices.DeleteFunc(b.handlers, func(e handlerEntry) bool { return e.id == id })
		})
	}
}

// Publish вызывает все обработчики. Паника обработчика логируется и не мешает остальным.
func (b *Bus) Publish(ctx context.Context, event domain.OrderEvent) {
	b.mu.RLock()
	handlers := slices.Clone(b.handlers)
	b.mu.RUnlock()

	for _, e := range handlers {
		b.deliver(ctx, e, event)
	}
}

func (b *Bus) deliver(ctx context.Context, e handlerEntry, event domain.OrderEvent) {
	defer func() {
		if p := recover(); p != nil {
			b.l.WithFields(logrus.Fields{
				"handler":  e.name,
				"event_id": event.ID,
				"panic":    p,
			}).Error("event handler panicked")
		}
	}()
	e.handler(ctx, event)
}
