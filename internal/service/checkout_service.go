package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/printahead/internal/domain"
)

type OrderCreator interface {
	Create(ctx context.Context, args CreateOrderArgs) (*domain.Order, error)
}

// Cart корзина покупателя, из которой оформляется заказ. Take отдает submit снимок позиций и после
// успешного submit удаляет из корзины только их. Параллельные Take одной корзины идут по очереди.
type Cart interface {
	Take(ctx context.Context, submit func(items []domain.CartItem) error) error
}

type CartProvider interface {
	Cart(ctx context.Context, key string) (Cart, error)
}

// CheckoutService оформляет заказ из корзины юзера.
type CheckoutService struct {
	carts  CartProvider
	orders OrderCreator
}

func NewCheckoutService(carts CartProvider, orders OrderCreator) *CheckoutService {
	return &CheckoutService{
		carts:  carts,
		orders: orders,
	}
}

type CheckoutArgs struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail *string
	FilesExpected int
	PickupDate    string
	PickupTime    string
	Notes         string
	PaymentMethod domain.PaymentMethodType
}

// Checkout создает заказ из текущего содержимого корзины. Из корзины удаляются только позиции, попавшие
// в заказ, один раз и только после успешного создания заказа. При ошибке корзина остается как была.
// Повторный параллельный Checkout той же корзины видит уже пустую корзину.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, args CheckoutArgs) (*domain.Order, error) {
	cart, err := s.carts.Cart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	var order *domain.Order
	takeErr := cart.Take(ctx, func(items []domain.CartItem) error {
		if len(items) == 0 {
			return domain.NewValidationError("cartItems", "cart is empty")
		}
		var createErr error
		order, createErr = s.orders.Create(ctx, CreateOrderArgs{
			UserID:        &userID,
			CustomerName:  args.CustomerName,
			CustomerPhone: args.CustomerPhone,
			CustomerEmail: args.CustomerEmail,
			CartItems:     items,
			FilesExpected: args.FilesExpected,
			PickupDate:    args.PickupDate,
			PickupTime:    args.PickupTime,
			Notes:         args.Notes,
			PaymentMethod: args.PaymentMethod,
		})
		return createErr //nolint:wrapcheck
	})
	if takeErr != nil {
		return nil, fmt.Errorf("checkout: %w", takeErr)
	}
	return order, nil
}
