package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"
)

type AggregatorTestSuite struct {
	suite.Suite
	logger    *logrus.Logger
	hook      *test.Hook
	persister *MemoryPersister
	cart      *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}

func (s *AggregatorTestSuite) SetupTest() {
	s.logger, s.hook = test.NewNullLogger()
	s.persister = NewMemoryPersister()
	s.cart = NewAggregator("user-1", s.persister, s.logger)
}

func item(name string, price int64) domain.CartItem {
	return domain.CartItem{Type: domain.CartItemPrint, Name: name, Price: price}
}

func (s *AggregatorTestSuite) TestTotalAndOrder() {
	ctx := s.T().Context()
	for _, it := range []domain.CartItem{item("Lab report", 80), item("Poster", 120), item("Notes", 45)} {
		added, err := s.cart.AddItem(ctx, it)
		s.Require().NoError(err)
		s.NotEmpty(added.ID)
		s.False(added.AddedAt.IsZero())
	}

	s.Equal(int64(245), s.cart.Total())
	s.Equal(3, s.cart.Count())

	items := s.cart.Items()
	s.Equal([]string{"Lab report", "Poster", "Notes"}, []string{items[0].Name, items[1].Name, items[2].Name})
}

func (s *AggregatorTestSuite) TestItemsIsSnapshot() {
	_, err := s.cart.AddItem(s.T().Context(), domain.CartItem{
		Type:  domain.CartItemPrint,
		Name:  "Thesis",
		Price: 300,
		Meta:  "A4 - B/W - 2 copies",
		Files: []domain.FileDescriptor{{Path: "uploads/u/1_thesis.pdf", FileName: "thesis.pdf"}},
	})
	s.Require().NoError(err)

	items := s.cart.Items()
	items[0].Price = 1
	items[0].Files[0].FileName = "changed.pdf"

	fresh := s.cart.Items()
	s.Equal(int64(300), fresh[0].Price)
	s.Equal("A4 - B/W - 2 copies", fresh[0].Meta)
	s.Equal("thesis.pdf", fresh[0].Files[0].FileName)
}

func (s *AggregatorTestSuite) TestAddItem_Validation() {
	_, err := s.cart.AddItem(s.T().Context(), domain.CartItem{Type: domain.CartItemPrint, Price: 10})
	s.Require().ErrorIs(err, domain.ErrValidation)

	_, err = s.cart.AddItem(s.T().Context(), item("Refund", -5))
	s.Require().ErrorIs(err, domain.ErrValidation)

	s.Zero(s.cart.Count())
}

func (s *AggregatorTestSuite) TestObservers() {
	ctx := s.T().Context()
	var calls []string
	var totals []int64

	unsubscribeA := s.cart.Subscribe(func(snap Snapshot) {
		calls = append(calls, "a")
		totals = append(totals, snap.Total)
	})
	s.cart.Subscribe(func(Snapshot) { calls = append(calls, "b") })

	// подписка сразу получает текущее состояние.
	s.Equal([]string{"a", "b"}, calls)

	added, err := s.cart.AddItem(ctx, item("Poster", 120))
	s.Require().NoError(err)
	s.Equal([]string{"a", "b", "a", "b"}, calls)

	// удаление несуществующей позиции ничего не меняет и никого не уведомляет.
	s.False(s.cart.RemoveItem(ctx, "missing"))
	s.Len(calls, 4)

	s.True(s.cart.RemoveItem(ctx, added.ID))
	s.Equal([]int64{0, 120, 0}, totals)

	unsubscribeA()
	unsubscribeA()
	s.cart.Clear(ctx)
	s.Equal([]string{"a", "b", "a", "b", "a", "b", "b"}, calls)
}

func (s *AggregatorTestSuite) TestConcurrentChangesDeliveredInOrder() {
	var counts []int
	s.cart.Subscribe(func(snap Snapshot) {
		counts = append(counts, snap.Count)
	})

	const writers = 20
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.cart.AddItem(s.T().Context(), item("Handout", 5))
			s.NoError(err)
		}()
	}
	wg.Wait()

	// каждое состояние доставлено ровно один раз и по порядку, последнее совпадает с корзиной.
	s.Require().Len(counts, writers+1)
	for i, c := range counts {
		s.Equal(i, c)
	}

	saved, err := s.persister.Load(s.T().Context(), "user-1")
	s.Require().NoError(err)
	s.Len(saved, writers)
}

func (s *AggregatorTestSuite) TestRemoveItems() {
	ctx := s.T().Context()
	a, _ := s.cart.AddItem(ctx, item("Lab report", 80))
	b, _ := s.cart.AddItem(ctx, item("Poster", 120))
	c, _ := s.cart.AddItem(ctx, item("Notes", 45))

	var notified int
	s.cart.Subscribe(func(Snapshot) { notified++ })

	s.Equal(2, s.cart.RemoveItems(ctx, []string{a.ID, c.ID, "missing"}))
	s.Equal(2, notified)
	s.Equal([]domain.CartItem{b}, s.cart.Items())

	s.Zero(s.cart.RemoveItems(ctx, []string{"missing"}))
	s.Equal(2, notified)
}

func (s *AggregatorTestSuite) TestTakeKeepsItemsAddedDuringSubmit() {
	ctx := s.T().Context()
	_, err := s.cart.AddItem(ctx, item("Lab report", 80))
	s.Require().NoError(err)

	var submitted []domain.CartItem
	err = s.cart.Take(ctx, func(items []domain.CartItem) error {
		submitted = items
		_, addErr := s.cart.AddItem(ctx, item("Added meanwhile", 10))
		return addErr
	})
	s.Require().NoError(err)

	s.Require().Len(submitted, 1)
	s.Equal("Lab report", submitted[0].Name)
	left := s.cart.Items()
	s.Require().Len(left, 1)
	s.Equal("Added meanwhile", left[0].Name)
}

func (s *AggregatorTestSuite) TestTakeFailureKeepsCart() {
	ctx := s.T().Context()
	_, err := s.cart.AddItem(ctx, item("Lab report", 80))
	s.Require().NoError(err)

	errSubmit := errors.New("submit failed")
	err = s.cart.Take(ctx, func([]domain.CartItem) error { return errSubmit })
	s.Require().ErrorIs(err, errSubmit)
	s.Equal(1, s.cart.Count())
}

func (s *AggregatorTestSuite) TestConcurrentTakeSubmitsItemsOnce() {
	ctx := s.T().Context()
	_, err := s.cart.AddItem(ctx, item("Lab report", 80))
	s.Require().NoError(err)

	var mu sync.Mutex
	var nonEmpty int
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.cart.Take(ctx, func(items []domain.CartItem) error {
				if len(items) > 0 {
					mu.Lock()
					nonEmpty++
					mu.Unlock()
				}
				return nil
			})
		}()
	}
	wg.Wait()

	s.Equal(1, nonEmpty)
	s.Zero(s.cart.Count())
}

func (s *AggregatorTestSuite) TestPersistence() {
	ctx := s.T().Context()
	_, err := s.cart.AddItem(ctx, item("Poster", 120))
	s.Require().NoError(err)

	saved, err := s.persister.Load(ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(saved, 1)
	s.Equal("Poster", saved[0].Name)

	s.cart.Clear(ctx)
	saved, err = s.persister.Load(ctx, "user-1")
	s.Require().NoError(err)
	s.Empty(saved)
}

func (s *AggregatorTestSuite) TestPersistenceFailureIsLogged() {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	cart := NewAggregator("user-1", NewRedisPersister(rdb, time.Minute), s.logger)

	_, err := cart.AddItem(s.T().Context(), item("Poster", 120))
	s.Require().NoError(err)
	s.Equal(1, cart.Count())

	s.Require().NotNil(s.hook.LastEntry())
	s.Equal(logrus.WarnLevel, s.hook.LastEntry().Level)
}

type failingPersister struct{}

func (failingPersister) Load(context.Context, string) ([]domain.CartItem, error) {
	return nil, errors.New("down")
}

func (failingPersister) Save(context.Context, string, []domain.CartItem) error { return errors.New("down") }

func (failingPersister) Delete(context.Context, string) error { return errors.New("down") }

func TestManager(t *testing.T) {
	logger, _ := test.NewNullLogger()
	persister := NewMemoryPersister()
	m := NewManager(persister, time.Minute, logger)
	ctx := t.Context()

	first, err := m.Cart(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	again, _ := m.Cart(ctx, "user-1")
	if first != again {
		t.Fatal("expected the same cart for the same key")
	}
	other, _ := m.Cart(ctx, "user-2")
	if first == other {
		t.Fatal("expected separate carts per key")
	}

	if _, err = first.AddItem(ctx, item("Poster", 120)); err != nil {
		t.Fatal(err)
	}

	// выгруженная корзина восстанавливается из Persister.
	if n := m.evictIdle(time.Now().Add(2 * time.Minute)); n != 2 {
		t.Fatalf("evicted %d carts, want 2", n)
	}
	restored, _ := m.Cart(ctx, "user-1")
	if restored == first || restored.Total() != 120 {
		t.Fatalf("cart was not restored, total %d", restored.Total())
	}

	// корзина с подписчиком не выгружается.
	unsubscribe := restored.Subscribe(func(Snapshot) {})
	if n := m.evictIdle(time.Now().Add(2 * time.Minute)); n != 0 {
		t.Fatalf("evicted %d carts, want 0", n)
	}
	unsubscribe()

	broken := NewManager(failingPersister{}, time.Minute, logger)
	c, err := broken.Cart(ctx, "user-1")
	if err != nil || c.Count() != 0 {
		t.Fatalf("expected empty cart when restore fails, err %v", err)
	}
}
