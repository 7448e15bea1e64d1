package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Persister хранилище корзин между запросами. Сохранение best-effort, корзина работает и без него.
type Persister interface {
	Load(ctx context.Context, key string) ([]domain.CartItem, error)
	Save(ctx context.Context, key string, items []domain.CartItem) error
	Delete(ctx context.Context, key string) error
}

const redisKeyPrefix = "cart:"

// RedisPersister хранит корзину JSON строкой с TTL. Каждое сохранение продлевает TTL.
type RedisPersister struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPersister(rdb *redis.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{rdb: rdb, ttl: ttl}
}

func (r *RedisPersister) Load(ctx context.Context, key string) ([]domain.CartItem, error) {
	val, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading cart %s: %w", key, err)
	}
	var items []domain.CartItem
	if err = json.Unmarshal(val, &items); err != nil {
		return nil, fmt.Errorf("decoding cart %s: %w", key, err)
	}
	return items, nil
}

func (r *RedisPersister) Save(ctx context.Context, key string, items []domain.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding cart %s: %w", key, err)
	}
	if err = r.rdb.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving cart %s: %w", key, err)
	}
	return nil
}

func (r *RedisPersister) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("deleting cart %s: %w", key, err)
	}
	return nil
}

// MemoryPersister хранит корзины в памяти процесса.
type MemoryPersister struct {
	mu    sync.Mutex
	carts map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{carts: make(map[string][]byte)}
}

func (m *MemoryPersister) Load(_ context.Context, key string) ([]domain.CartItem, error) {
	m.mu.Lock()
	data, ok := m.carts[key]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding cart %s: %w", key, err)
	}
	return items, nil
}

func (m *MemoryPersister) Save(_ context.Context, key string, items []domain.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding cart %s: %w", key, err)
	}
	m.mu.Lock()
	m.carts[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryPersister) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.carts, key)
	m.mu.Unlock()
	return nil
}
