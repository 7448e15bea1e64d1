package cart

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Snapshot состояние корзины, которое получают наблюдатели.
type Snapshot struct {
	Items []domain.CartItem `json:"items"`
	Total int64             `json:"total"`
	Count int               `json:"count"`
}

// Observer вызывается синхронно после каждого изменения корзины. Observer не должен менять корзину.
type Observer func(Snapshot)

type subscription struct {
	id       uint64
	observer Observer
}

// Aggregator корзина одной сессии. Позиции хранятся в порядке добавления.
//
// deliverMu держится от изменения до конца уведомления, поэтому наблюдатели и persister видят
// состояния в том же порядке, в каком они возникли. takeMu сериализует оформление заказа.
type Aggregator struct {
	key       string
	persister Persister
	l         *logrus.Entry
	now       func() time.Time

	takeMu    sync.Mutex
	deliverMu sync.Mutex
	mu        sync.Mutex
	items     []domain.CartItem
	observers []subscription
	nextSubID uint64
	touched   time.Time
}

func NewAggregator(key string, persister Persister, l *logrus.Logger) *Aggregator {
	return &Aggregator{
		key:       key,
		persister: persister,
		l:         l.WithFields(logrus.Fields{"component": "cart", "key": key}),
		now:       time.Now,
		touched:   time.Now(),
	}
}

// AddItem добавляет позицию в конец корзины. ID и AddedAt назначаются корзиной.
func (a *Aggregator) AddItem(ctx context.Context, item domain.CartItem) (domain.CartItem, error) {
	item.ID = uuid.NewString()
	item.AddedAt = a.now()
	if err := domain.Validate(item); err != nil {
		return domain.CartItem{}, err //nolint:wrapcheck
	}
	item = cloneItem(item)

	a.mutate(ctx, func() bool {
		a.items = append(a.items, item)
		return true
	})
	return cloneItem(item), nil
}

// RemoveItem удаляет позицию по ID. Возвращает false, если такой позиции нет. В этом случае
// наблюдатели не вызываются.
func (a *Aggregator) RemoveItem(ctx context.Context, id string) bool {
	return a.RemoveItems(ctx, []string{id}) == 1
}

// RemoveItems удаляет позиции с указанными ID одним изменением и возвращает число удаленных.
// Если ничего не удалено, наблюдатели не вызываются.
func (a *Aggregator) RemoveItems(ctx context.Context, ids []string) int {
	var removed int
	a.mutate(ctx, func() bool {
		before := len(a.items)
		a.items = slices.DeleteFunc(a.items, func(item domain.CartItem) bool {
			return slices.Contains(ids, item.ID)
		})
		removed = before - len(a.items)
		return removed > 0
	})
	return removed
}

// Clear очищает корзину.
func (a *Aggregator) Clear(ctx context.Context) {
	a.mutate(ctx, func() bool {
		a.items = nil
		return true
	})
}

// Take передает submit снимок позиций и после успешного submit удаляет из корзины ровно эти позиции.
// Позиции, добавленные пока выполнялся submit, остаются в корзине. Вызовы Take одной корзины
// выполняются по очереди. Ошибка submit возвращается как есть, корзина не меняется.
func (a *Aggregator) Take(ctx context.Context, submit func(items []domain.CartItem) error) error {
	a.takeMu.Lock()
	defer a.takeMu.Unlock()

	items := a.Items()
	if err := submit(items); err != nil {
		return err
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	a.RemoveItems(ctx, ids)
	return nil
}

// Items копия позиций в порядке добавления.
func (a *Aggregator) Items() []domain.CartItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.itemsLocked()
}

func (a *Aggregator) Total() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return totalOf(a.items)
}

func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Subscribe регистрирует наблюдателя и сразу вызывает его с текущим состоянием.
// Возвращает функцию отписки.
func (a *Aggregator) Subscribe(observer Observer) func() {
	a.deliverMu.Lock()
	a.mu.Lock()
	a.nextSubID++
	id := a.nextSubID
	a.observers = append(a.observers, subscription{id: id, observer: observer})
	snap := a.snapshotLocked()
	a.mu.Unlock()

	observer(snap)
	a.deliverMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.observers = slices.DeleteFunc(a.observers, func(s subscription) bool { return s.id == id })
		})
	}
}

// idle true, если к корзине не обращались дольше ttl и на нее никто не подписан.
func (a *Aggregator) idle(now time.Time, ttl time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.observers) == 0 && now.Sub(a.touched) > ttl
}

// restore заполняет корзину сохраненными позициями без уведомления наблюдателей.
func (a *Aggregator) restore(items []domain.CartItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		a.items = append(a.items, cloneItem(item))
	}
}

func (a *Aggregator) touch() {
	a.mu.Lock()
	a.touched = a.now()
	a.mu.Unlock()
}

// mutate применяет change под блокировкой и, если change вернул true, сохраняет корзину и уведомляет
// наблюдателей до того, как начнется следующее изменение.
func (a *Aggregator) mutate(ctx context.Context, change func() bool) {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	a.mu.Lock()
	if !change() {
		a.mu.Unlock()
		return
	}
	snap, observers := a.changedLocked()
	a.mu.Unlock()

	a.afterChange(ctx, snap, observers)
}

func (a *Aggregator) changedLocked() (Snapshot, []Observer) {
	a.touched = a.now()
	observers := make([]Observer, len(a.observers))
	for i, s := range a.observers {
		observers[i] = s.observer
	}
	return a.snapshotLocked(), observers
}

// afterChange сохраняет корзину и уведомляет наблюдателей в порядке подписки.
// Ошибка сохранения только логируется.
func (a *Aggregator) afterChange(ctx context.Context, snap Snapshot, observers []Observer) {
	if a.persister != nil {
		var err error
		if len(snap.Items) == 0 {
			err = a.persister.Delete(ctx, a.key)
		} else {
			err = a.persister.Save(ctx, a.key, snap.Items)
		}
		if err != nil {
			a.l.WithError(err).Warn("failed to persist cart")
		}
	}
	for _, observer := range observers {
		observer(snap)
	}
}

func (a *Aggregator) snapshotLocked() Snapshot {
	return Snapshot{
		Items: a.itemsLocked(),
		Total: totalOf(a.items),
		Count: len(a.items),
	}
}

func (a *Aggregator) itemsLocked() []domain.CartItem {
	res := make([]domain.CartItem, len(a.items))
	for i, item := range a.items {
		res[i] = cloneItem(item)
	}
	return res
}

func totalOf(items []domain.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price
	}
	return total
}

func cloneItem(item domain.CartItem) domain.CartItem {
	item.Files = slices.Clone(item.Files)
	return item
}
