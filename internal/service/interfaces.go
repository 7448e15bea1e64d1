package service

import (
	"context"
	"io"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/pkg/uow"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

type UserRepository interface {
	CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	GetCreditsForUpdate(ctx context.Context, id string) (int64, error)
	SetCredits(ctx context.Context, id string, credits int64) error
}

type TransactionRepository interface {
	Create(ctx context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error)
	GetByUserID(ctx context.Context, userID string, limit uint) ([]domain.Transaction, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Order, error)
	GetByUserID(ctx context.Context, userID string) ([]domain.Order, error)
	Find(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatusType) (*domain.Order, error)
	UpdateFiles(ctx context.Context, args repoargs.UpdateOrderFiles) (*domain.Order, error)
}

// CreditDebiter списывает кредиты внутри транзакции вызывающего.
type CreditDebiter interface {
	DeductInTx(ctx context.Context, tx uow.TX, userID string, amount int64, orderID *string) (*domain.Transaction, error)
}

// EventPublisher доставляет события заказов подписчикам.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent)
}

type WalletMetrics interface {
	CreditsAdded(amount int64)
	CreditsDeducted(amount int64)
	InsufficientCredits()
}

type ObjectStore interface {
	Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) (string, error)
}

// FileAttacher привязывает загруженные файлы к заказу.
type FileAttacher interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	AttachFiles(ctx context.Context, orderID string, files []domain.FileDescriptor) (*domain.Order, error)
}
