// Package memrepo хранилище в памяти с теми же контрактами, что и pgrepo. Используется для локального запуска
// без postgres и в тестах сервисного слоя.
package memrepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/pkg/uow"
)

type orderRecord struct {
	order domain.Order
	seq   int64
}

// Store реализует uow.UOW. Транзакции сериализуются одним мьютексом, при ошибке состояние
// откатывается к снимку, сделанному перед транзакцией.
type Store struct {
	mu           sync.Mutex
	users        map[string]domain.User
	orders       map[string]orderRecord
	transactions []domain.Transaction
	seq          int64
	now          func() time.Time
}

func New() *Store {
	return &Store{
		users:  make(map[string]domain.User),
		orders: make(map[string]orderRecord),
		now:    time.Now,
	}
}

// SetClock подменяет источник времени для createdAt и updatedAt.
func (s *Store) SetClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

type snapshot struct {
	users        map[string]domain.User
	orders       map[string]orderRecord
	transactions int
	seq          int64
}

// Do выполняет fn атомарно относительно всех остальных операций хранилища.
func (s *Store) Do(ctx context.Context, fn func(context.Context, uow.TX) error) (err error) { //nolint:nonamedreturns
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("[memrepo] %w: %s", domain.ErrStoreUnavailable, ctxErr.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			err = fmt.Errorf("[memrepo] %w: %v", uow.ErrTransactionPanic, p)
			return
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(ctx, &transaction{store: s})
}

// GetRepository возвращает репозиторий, каждая операция которого выполняется под блокировкой хранилища.
func (s *Store) GetRepository(name uow.RepositoryName) (uow.Repository, error) {
	return s.repository(name, false)
}

func (s *Store) repository(name uow.RepositoryName, inTx bool) (uow.Repository, error) {
	switch repoargs.RepositoryName(name) {
	case repoargs.UserRepoName:
		return &UserRepository{s: s, inTx: inTx}, nil
	case repoargs.OrderRepoName:
		return &OrderRepository{s: s, inTx: inTx}, nil
	case repoargs.TransactionRepoName:
		return &TransactionRepository{s: s, inTx: inTx}, nil
	default:
		return nil, uow.ErrRepositoryNotRegistered
	}
}

func (s *Store) snapshot() snapshot {
	users := make(map[string]domain.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	orders := make(map[string]orderRecord, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}
	return snapshot{
		users:        users,
		orders:       orders,
		transactions: len(s.transactions),
		seq:          s.seq,
	}
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.orders = snap.orders
	s.transactions = s.transactions[:snap.transactions]
	s.seq = snap.seq
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

type transaction struct {
	store *Store
}

func (t *transaction) Get(name uow.RepositoryName) (uow.Repository, error) {
	return t.store.repository(name, true)
}

// guard блокирует хранилище для операции вне транзакции. Внутри Do блокировка уже взята.
func guard(s *Store, inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("[memrepo/%s] %w", fmt.Sprintf(format, args...), domain.ErrRecordNotFound)
}
