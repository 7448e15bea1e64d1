package cart

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultIdleTTL = 30 * time.Minute

// Manager держит по одной корзине на ключ сессии (ID юзера).
type Manager struct {
	persister Persister
	idleTTL   time.Duration
	logger    *logrus.Logger
	l         *logrus.Entry

	mu    sync.Mutex
	carts map[string]*Aggregator
}

func NewManager(persister Persister, idleTTL time.Duration, l *logrus.Logger) *Manager {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Manager{
		persister: persister,
		idleTTL:   idleTTL,
		logger:    l,
		l:         l.WithField("component", "cart_manager"),
		carts:     make(map[string]*Aggregator),
	}
}

// Cart возвращает корзину сессии key. Новая корзина восстанавливается из Persister. Если восстановить не
// удалось, корзина начинается пустой.
func (m *Manager) Cart(ctx context.Context, key string) (*Aggregator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if agg, ok := m.carts[key]; ok {
		agg.touch()
		return agg, nil
	}

	agg := NewAggregator(key, m.persister, m.logger)
	if m.persister != nil {
		items, err := m.persister.Load(ctx, key)
		if err != nil {
			m.l.WithError(err).WithField("key", key).Warn("failed to restore cart")
		} else {
			agg.restore(items)
		}
	}
	m.carts[key] = agg
	return agg, nil
}

// Run периодически выгружает из памяти корзины без обращений дольше idleTTL. Содержимое остается в Persister.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.idleTTL / 2) //nolint:mnd
	defer ticker.Stop()

	m.l.Debug("starting cart eviction")
	for {
		select {
		case <-ctx.Done():
			m.l.Debug("stopping cart eviction")
			return
		case now := <-ticker.C:
			if n := m.evictIdle(now); n > 0 {
				m.l.WithField("evicted", n).Debug("evicted idle carts")
			}
		}
	}
}

func (m *Manager) evictIdle(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for key, agg := range m.carts {
		if agg.idle(now, m.idleTTL) {
			delete(m.carts, key)
			n++
		}
	}
	return n
}
