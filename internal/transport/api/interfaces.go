package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/printahead/internal/advisor"
	"github.com/fsdevblog/printahead/internal/cart"
	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/events"
	"github.com/fsdevblog/printahead/internal/service"
)

// UserServicer интерфейс исключительно для моков.
type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, string, error)
	Login(ctx context.Context, args service.LoginUserArgs) (*domain.User, string, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type OrderServicer interface {
	Create(ctx context.Context, args service.CreateOrderArgs) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetUserOrders(ctx context.Context, userID string) ([]domain.Order, error)
	GetAllOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatusType) (*domain.Order, error)
}

type WalletServicer interface {
	AddCredits(ctx context.Context, userID string, amount int64) (*domain.Transaction, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	GetTransactions(ctx context.Context, userID string, limit uint) ([]domain.Transaction, error)
}

type UploadServicer interface {
	UploadOrderFiles(ctx context.Context, orderID string, files []service.UploadFile) (*domain.Order, error)
	UploadDraftFiles(ctx context.Context, userID string, files []service.UploadFile) ([]domain.FileDescriptor, error)
}

type CheckoutServicer interface {
	Checkout(ctx context.Context, userID string, args service.CheckoutArgs) (*domain.Order, error)
}

type Advisor interface {
	Suggest(ctx context.Context, args advisor.SuggestArgs) domain.PrintSuggestion
}

type OrderStreamer interface {
	Subscribe() (*events.Subscription, func())
}

type CartManager interface {
	Cart(ctx context.Context, key string) (*cart.Aggregator, error)
}
