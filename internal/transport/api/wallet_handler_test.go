package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type WalletHandlerTestSuite struct {
	suite.Suite
	tr     *testRouter
	userID string
	token  string
}

func TestWalletHandlerSuite(t *testing.T) {
	suite.Run(t, new(WalletHandlerTestSuite))
}

func (s *WalletHandlerTestSuite) SetupTest() {
	s.tr = newTestRouter(s.T(), gomock.NewController(s.T()))
	s.userID = "user-1"
	s.token = userToken(s.T(), s.userID, domain.RoleCustomer)
}

func (s *WalletHandlerTestSuite) TestBalance() {
	s.tr.wallet.EXPECT().GetBalance(gomock.Any(), s.userID).Return(int64(255), nil)

	var resp BalanceResponse
	status, env := s.tr.do(s.T(), http.MethodGet, BalanceRoute, nil, s.token, &resp)
	s.Equal(http.StatusOK, status)
	s.True(env.Success)
	s.Equal(int64(255), resp.Credits)
}

func (s *WalletHandlerTestSuite) TestAddCredits() {
	s.tr.wallet.EXPECT().AddCredits(gomock.Any(), s.userID, int64(500)).Return(&domain.Transaction{
		ID:           "trx-1",
		UserID:       s.userID,
		Amount:       500,
		Type:         domain.TransactionPurchase,
		BalanceAfter: 500,
		CreatedAt:    time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}, nil)

	cases := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{name: "purchase", body: map[string]any{"amount": 500}, wantStatus: http.StatusCreated},
		{name: "zero", body: map[string]any{"amount": 0}, wantStatus: http.StatusUnprocessableEntity},
		{name: "negative", body: map[string]any{"amount": -5}, wantStatus: http.StatusUnprocessableEntity},
		{name: "not a number", body: map[string]any{"amount": "lots"}, wantStatus: http.StatusBadRequest},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			var resp TransactionResponse
			status, env := s.tr.do(s.T(), http.MethodPost, CreditsRoute, t.body, s.token, &resp)
			s.Equal(t.wantStatus, status)
			if status == http.StatusCreated {
				s.True(env.Success)
				s.Equal(int64(500), resp.BalanceAfter)
				s.Equal(domain.TransactionPurchase, resp.Type)
				s.Equal("2026-10-01T09:00:00Z", resp.CreatedAt)
			}
		})
	}
}

func (s *WalletHandlerTestSuite) TestTransactions() {
	orderID := "order-1"
	s.tr.wallet.EXPECT().GetTransactions(gomock.Any(), s.userID, uint(0)).Return([]domain.Transaction{
		{ID: "trx-2", Amount: -245, Type: domain.TransactionOrderPayment, OrderID: &orderID, BalanceAfter: 255},
		{ID: "trx-1", Amount: 500, Type: domain.TransactionPurchase, BalanceAfter: 500},
	}, nil)
	s.tr.wallet.EXPECT().GetTransactions(gomock.Any(), s.userID, uint(10)).Return([]domain.Transaction{}, nil)
	s.tr.wallet.EXPECT().GetTransactions(gomock.Any(), s.userID, uint(20)).
		Return(nil, fmt.Errorf("getting transactions: %w", domain.ErrStoreUnavailable))

	var resp []TransactionResponse
	status, _ := s.tr.do(s.T(), http.MethodGet, TransactionsRoute, nil, s.token, &resp)
	s.Equal(http.StatusOK, status)
	s.Require().Len(resp, 2)
	s.Equal("order-1", *resp[0].OrderID)
	s.Nil(resp[1].OrderID)

	status, env := s.tr.do(s.T(), http.MethodGet, TransactionsRoute+"?limit=10", nil, s.token, nil)
	s.Equal(http.StatusOK, status)
	s.JSONEq("[]", string(env.Data))

	status, env = s.tr.do(s.T(), http.MethodGet, TransactionsRoute+"?limit=-1", nil, s.token, nil)
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("limit: must be a positive number", env.Error)

	status, env = s.tr.do(s.T(), http.MethodGet, TransactionsRoute+"?limit=20", nil, s.token, nil)
	s.Equal(http.StatusServiceUnavailable, status)
	s.Equal("service unavailable", env.Error)
}
