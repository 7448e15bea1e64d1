package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fsdevblog/printahead/internal/cart"
	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/memrepo"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/pkg/uow"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"
)

type managerCarts struct {
	m *cart.Manager
}

func (p managerCarts) Cart(ctx context.Context, key string) (Cart, error) {
	agg, err := p.m.Cart(ctx, key)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return agg, nil
}

// hookedCreator вызывает afterCreate после создания заказа, пока корзина еще не разобрана.
type hookedCreator struct {
	OrderCreator
	afterCreate func()
}

func (h hookedCreator) Create(ctx context.Context, args CreateOrderArgs) (*domain.Order, error) {
	order, err := h.OrderCreator.Create(ctx, args)
	if err == nil && h.afterCreate != nil {
		h.afterCreate()
	}
	return order, err //nolint:wrapcheck
}

type CheckoutServiceTestSuite struct {
	suite.Suite
	wallet  *WalletService
	orders  *OrderService
	carts   *cart.Manager
	service *CheckoutService
	user    *domain.User
}

func TestCheckoutServiceSuite(t *testing.T) {
	suite.Run(t, new(CheckoutServiceTestSuite))
}

func (s *CheckoutServiceTestSuite) SetupTest() {
	store := memrepo.New()

	var err error
	s.wallet, err = NewWalletService(store)
	s.Require().NoError(err)
	s.orders, err = NewOrderService(store, s.wallet, nil)
	s.Require().NoError(err)

	users, err := uow.GetRepositoryAs[UserRepository](store, uow.RepositoryName(repoargs.UserRepoName))
	s.Require().NoError(err)
	s.user, err = users.CreateUser(s.T().Context(), repoargs.CreateUser{Email: "student@campus.edu", PasswordHash: "h"})
	s.Require().NoError(err)

	l, _ := test.NewNullLogger()
	s.carts = cart.NewManager(cart.NewMemoryPersister(), time.Hour, l)
	s.service = NewCheckoutService(managerCarts{s.carts}, s.orders)
}

func (s *CheckoutServiceTestSuite) userCart() *cart.Aggregator {
	agg, err := s.carts.Cart(s.T().Context(), s.user.ID)
	s.Require().NoError(err)
	return agg
}

func (s *CheckoutServiceTestSuite) fillCart() *cart.Aggregator {
	agg := s.userCart()
	for _, item := range []domain.CartItem{
		{Type: domain.CartItemPrint, Name: "Lab report", Price: 80},
		{Type: domain.CartItemPrint, Name: "Poster", Price: 120},
		{Type: domain.CartItemStationery, Name: "Pens", Price: 45},
	} {
		_, err := agg.AddItem(s.T().Context(), item)
		s.Require().NoError(err)
	}
	return agg
}

func (s *CheckoutServiceTestSuite) checkoutArgs() CheckoutArgs {
	return CheckoutArgs{
		PickupDate:    "2026-11-02",
		PickupTime:    "10:00 AM",
		PaymentMethod: domain.PaymentMethodCredits,
	}
}

func (s *CheckoutServiceTestSuite) TestCheckout_ClearsCartOnce() {
	_, err := s.wallet.AddCredits(s.T().Context(), s.user.ID, 500)
	s.Require().NoError(err)
	agg := s.fillCart()

	var changes int
	agg.Subscribe(func(cart.Snapshot) { changes++ })

	order, err := s.service.Checkout(s.T().Context(), s.user.ID, s.checkoutArgs())
	s.Require().NoError(err)
	s.Equal(int64(245), order.Total)
	s.Len(order.CartItems, 3)
	s.Zero(agg.Count())
	// подписка + одно удаление позиций заказа.
	s.Equal(2, changes)

	balance, err := s.wallet.GetBalance(s.T().Context(), s.user.ID)
	s.Require().NoError(err)
	s.Equal(int64(255), balance)
}

func (s *CheckoutServiceTestSuite) TestCheckout_FailureKeepsCart() {
	agg := s.fillCart()

	_, err := s.service.Checkout(s.T().Context(), s.user.ID, s.checkoutArgs())
	s.Require().ErrorIs(err, domain.ErrInsufficientCredits)
	s.Equal(3, agg.Count())
}

func (s *CheckoutServiceTestSuite) TestCheckout_EmptyCart() {
	_, err := s.service.Checkout(s.T().Context(), s.user.ID, s.checkoutArgs())
	s.Require().ErrorIs(err, domain.ErrValidation)
}

func (s *CheckoutServiceTestSuite) TestCheckout_KeepsItemAddedDuringSubmit() {
	_, err := s.wallet.AddCredits(s.T().Context(), s.user.ID, 500)
	s.Require().NoError(err)
	agg := s.fillCart()

	svc := NewCheckoutService(managerCarts{s.carts}, hookedCreator{
		OrderCreator: s.orders,
		afterCreate: func() {
			_, addErr := agg.AddItem(s.T().Context(), domain.CartItem{
				Type: domain.CartItemStationery, Name: "Stapler", Price: 60,
			})
			s.NoError(addErr)
		},
	})

	order, err := svc.Checkout(s.T().Context(), s.user.ID, s.checkoutArgs())
	s.Require().NoError(err)
	s.Len(order.CartItems, 3)

	left := agg.Items()
	s.Require().Len(left, 1)
	s.Equal("Stapler", left[0].Name)
}

func (s *CheckoutServiceTestSuite) TestCheckout_ConcurrentCreatesOneOrder() {
	_, err := s.wallet.AddCredits(s.T().Context(), s.user.ID, 1000)
	s.Require().NoError(err)
	s.fillCart()

	const attempts = 4
	var wg sync.WaitGroup
	var mu sync.Mutex
	var created, empty int
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, checkoutErr := s.service.Checkout(s.T().Context(), s.user.ID, s.checkoutArgs())
			mu.Lock()
			defer mu.Unlock()
			if checkoutErr == nil {
				created++
				return
			}
			if s.ErrorIs(checkoutErr, domain.ErrValidation) {
				empty++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, created)
	s.Equal(attempts-1, empty)

	orders, err := s.orders.GetUserOrders(s.T().Context(), s.user.ID)
	s.Require().NoError(err)
	s.Len(orders, 1)
	balance, err := s.wallet.GetBalance(s.T().Context(), s.user.ID)
	s.Require().NoError(err)
	s.Equal(int64(755), balance)
}
