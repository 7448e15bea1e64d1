package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/internal/service/mocks"
	"github.com/fsdevblog/printahead/pkg/uow"
	uowmocks "github.com/fsdevblog/printahead/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type WalletServiceTestSuite struct {
	suite.Suite
	mockCtrl     *gomock.Controller
	mockUOW      *uowmocks.MockUOW
	mockTX       *uowmocks.MockTX
	mockUserRepo *mocks.MockUserRepository
	mockTrxRepo  *mocks.MockTransactionRepository
	mockMetrics  *mocks.MockWalletMetrics
	service      *WalletService
}

func TestWalletServiceSuite(t *testing.T) {
	suite.Run(t, new(WalletServiceTestSuite))
}

func (s *WalletServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockUserRepo = mocks.NewMockUserRepository(s.mockCtrl)
	s.mockTrxRepo = mocks.NewMockTransactionRepository(s.mockCtrl)
	s.mockMetrics = mocks.NewMockWalletMetrics(s.mockCtrl)

	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTrxRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTrxRepo, nil).AnyTimes()

	// транзакция uow просто вызывает функцию с мок транзакцией.
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		}).AnyTimes()

	var err error
	s.service, err = NewWalletService(s.mockUOW)
	s.Require().NoError(err)
	s.service.SetMetrics(s.mockMetrics)
}

func (s *WalletServiceTestSuite) TestAddCredits() {
	userID := "user-1"

	s.mockUserRepo.EXPECT().GetCreditsForUpdate(gomock.Any(), userID).Return(int64(40), nil)
	s.mockUserRepo.EXPECT().SetCredits(gomock.Any(), userID, int64(540)).Return(nil)
	s.mockTrxRepo.EXPECT().Create(gomock.Any(), repoargs.CreateTransaction{
		UserID:       userID,
		Amount:       500,
		Type:         domain.TransactionPurchase,
		BalanceAfter: 540,
	}).Return(&domain.Transaction{ID: "trx-1", UserID: userID, Amount: 500, BalanceAfter: 540}, nil)
	s.mockMetrics.EXPECT().CreditsAdded(int64(500))

	trx, err := s.service.AddCredits(s.T().Context(), userID, 500)
	s.Require().NoError(err)
	s.Equal(int64(540), trx.BalanceAfter)
}

func (s *WalletServiceTestSuite) TestAddCredits_InvalidAmount() {
	for _, amount := range []int64{0, -10} {
		_, err := s.service.AddCredits(s.T().Context(), "user-1", amount)
		s.Require().ErrorIs(err, domain.ErrValidation)
	}
}

func (s *WalletServiceTestSuite) TestAddCredits_UnknownUser() {
	s.mockUserRepo.EXPECT().GetCreditsForUpdate(gomock.Any(), "ghost").Return(int64(0), domain.ErrRecordNotFound)

	_, err := s.service.AddCredits(s.T().Context(), "ghost", 10)
	s.Require().ErrorIs(err, domain.ErrRecordNotFound)
}

func (s *WalletServiceTestSuite) TestDeductCredits() {
	userID := "user-1"
	orderID := "order-1"

	cases := []struct {
		name        string
		balance     int64
		amount      int64
		wantErr     error
		wantBalance int64
		noOrder     bool
	}{
		{name: "enough credits", balance: 500, amount: 245, wantBalance: 255},
		{name: "without order", balance: 500, amount: 10, wantBalance: 490, noOrder: true},
		{name: "exact balance", balance: 100, amount: 100, wantBalance: 0},
		{name: "insufficient credits", balance: 50, amount: 100, wantErr: domain.ErrInsufficientCredits},
		{name: "zero balance", balance: 0, amount: 1, wantErr: domain.ErrInsufficientCredits},
		{name: "invalid amount", balance: 100, amount: 0, wantErr: domain.ErrValidation},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			if t.amount > 0 {
				s.mockUserRepo.EXPECT().GetCreditsForUpdate(gomock.Any(), userID).Return(t.balance, nil)
			}
			if t.wantErr == nil {
				s.mockUserRepo.EXPECT().SetCredits(gomock.Any(), userID, t.wantBalance).Return(nil)
				s.mockTrxRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, args repoargs.CreateTransaction) (*domain.Transaction, error) {
						// списание хранится отрицательной суммой и ссылается на заказ, если он есть.
						s.Equal(-t.amount, args.Amount)
						s.Equal(domain.TransactionOrderPayment, args.Type)
						if t.noOrder {
							s.Nil(args.OrderID)
						} else {
							s.Require().NotNil(args.OrderID)
							s.Equal(orderID, *args.OrderID)
						}
						s.Equal(t.wantBalance, args.BalanceAfter)
						return &domain.Transaction{
							UserID:       args.UserID,
							Amount:       args.Amount,
							Type:         args.Type,
							OrderID:      args.OrderID,
							BalanceAfter: args.BalanceAfter,
						}, nil
					})
				s.mockMetrics.EXPECT().CreditsDeducted(t.amount)
			}
			if errors.Is(t.wantErr, domain.ErrInsufficientCredits) {
				s.mockMetrics.EXPECT().InsufficientCredits()
			}

			ref := &orderID
			if t.noOrder {
				ref = nil
			}
			trx, err := s.service.DeductCredits(s.T().Context(), userID, t.amount, ref)
			if t.wantErr != nil {
				s.Require().ErrorIs(err, t.wantErr)
				s.Nil(trx)
				return
			}
			s.Require().NoError(err)
			s.Equal(t.wantBalance, trx.BalanceAfter)
		})
	}
}

func (s *WalletServiceTestSuite) TestGetBalance() {
	s.mockUserRepo.EXPECT().FindByID(gomock.Any(), "user-1").Return(&domain.User{ID: "user-1", Credits: 255}, nil)
	s.mockUserRepo.EXPECT().FindByID(gomock.Any(), "ghost").Return(nil, domain.ErrRecordNotFound)
	s.mockUserRepo.EXPECT().FindByID(gomock.Any(), "broken").Return(nil, domain.ErrStoreUnavailable)

	balance, err := s.service.GetBalance(s.T().Context(), "user-1")
	s.Require().NoError(err)
	s.Equal(int64(255), balance)

	// юзер без записи имеет нулевой баланс.
	balance, err = s.service.GetBalance(s.T().Context(), "ghost")
	s.Require().NoError(err)
	s.Zero(balance)

	_, err = s.service.GetBalance(s.T().Context(), "broken")
	s.Require().ErrorIs(err, domain.ErrStoreUnavailable)
}

func (s *WalletServiceTestSuite) TestGetTransactions_Limit() {
	cases := []struct {
		name      string
		limit     uint
		wantLimit uint
	}{
		{name: "default", limit: 0, wantLimit: DefaultTransactionsLimit},
		{name: "custom", limit: 10, wantLimit: 10},
		{name: "capped", limit: 1000, wantLimit: MaxTransactionsLimit},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			s.mockTrxRepo.EXPECT().GetByUserID(gomock.Any(), "user-1", t.wantLimit).
				Return([]domain.Transaction{}, nil)
			_, err := s.service.GetTransactions(s.T().Context(), "user-1", t.limit)
			s.Require().NoError(err)
		})
	}
}
