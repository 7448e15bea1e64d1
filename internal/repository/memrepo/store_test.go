package memrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/pkg/uow"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	store *Store
	user  *domain.User
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	s.store = New()
	users, err := uow.GetRepositoryAs[*UserRepository](s.store, uow.RepositoryName(repoargs.UserRepoName))
	s.Require().NoError(err)

	s.user, err = users.CreateUser(s.T().Context(), repoargs.CreateUser{
		Email:        "Student@Campus.edu",
		PasswordHash: "hash",
	})
	s.Require().NoError(err)
}

func (s *StoreTestSuite) TestDoRollsBackOnError() {
	errBoom := errors.New("boom")

	err := s.store.Do(s.T().Context(), func(ctx context.Context, tx uow.TX) error {
		users, repoErr := uow.GetAs[*UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		s.Require().NoError(repoErr)
		trxs, repoErr := uow.GetAs[*TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		s.Require().NoError(repoErr)

		s.Require().NoError(users.SetCredits(ctx, s.user.ID, 100))
		_, createErr := trxs.Create(ctx, repoargs.CreateTransaction{
			UserID:       s.user.ID,
			Amount:       100,
			Type:         domain.TransactionPurchase,
			BalanceAfter: 100,
		})
		s.Require().NoError(createErr)
		return errBoom
	})
	s.Require().ErrorIs(err, errBoom)

	users, _ := uow.GetRepositoryAs[*UserRepository](s.store, uow.RepositoryName(repoargs.UserRepoName))
	user, findErr := users.FindByID(s.T().Context(), s.user.ID)
	s.Require().NoError(findErr)
	s.Equal(int64(0), user.Credits)

	trxs, _ := uow.GetRepositoryAs[*TransactionRepository](s.store, uow.RepositoryName(repoargs.TransactionRepoName))
	list, listErr := trxs.GetByUserID(s.T().Context(), s.user.ID, 50)
	s.Require().NoError(listErr)
	s.Empty(list)
}

func (s *StoreTestSuite) TestDoRecoversPanic() {
	err := s.store.Do(s.T().Context(), func(ctx context.Context, tx uow.TX) error {
		users, repoErr := uow.GetAs[*UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		s.Require().NoError(repoErr)
		s.Require().NoError(users.SetCredits(ctx, s.user.ID, 70))
		panic("broken handler")
	})
	s.Require().ErrorIs(err, uow.ErrTransactionPanic)

	// хранилище разблокировано и откатено.
	users, _ := uow.GetRepositoryAs[*UserRepository](s.store, uow.RepositoryName(repoargs.UserRepoName))
	user, findErr := users.FindByID(s.T().Context(), s.user.ID)
	s.Require().NoError(findErr)
	s.Equal(int64(0), user.Credits)
}

func (s *StoreTestSuite) TestUsers() {
	users, _ := uow.GetRepositoryAs[*UserRepository](s.store, uow.RepositoryName(repoargs.UserRepoName))

	_, dupErr := users.CreateUser(s.T().Context(), repoargs.CreateUser{Email: "student@campus.edu"})
	s.Require().ErrorIs(dupErr, domain.ErrDuplicateKey)

	found, err := users.FindUserByEmail(s.T().Context(), "STUDENT@campus.edu")
	s.Require().NoError(err)
	s.Equal(s.user.ID, found.ID)
	s.Equal(domain.RoleCustomer, found.Role)

	s.Require().ErrorIs(users.SetCredits(s.T().Context(), s.user.ID, -1), domain.ErrInsufficientCredits)
	s.Require().ErrorIs(users.SetCredits(s.T().Context(), "missing", 1), domain.ErrRecordNotFound)
}

func (s *StoreTestSuite) TestOrdersFind() {
	orders, _ := uow.GetRepositoryAs[*OrderRepository](s.store, uow.RepositoryName(repoargs.OrderRepoName))
	ctx := s.T().Context()

	for _, o := range []domain.Order{
		{ID: "o1", PickupDate: "2026-01-10", Status: domain.OrderStatusPending, UserID: &s.user.ID},
		{ID: "o2", PickupDate: "2026-01-12", Status: domain.OrderStatusReady},
		{ID: "o3", PickupDate: "2026-01-15", Status: domain.OrderStatusPending},
	} {
		_, err := orders.Create(ctx, o)
		s.Require().NoError(err)
	}

	_, dupErr := orders.Create(ctx, domain.Order{ID: "o1"})
	s.Require().ErrorIs(dupErr, domain.ErrDuplicateKey)

	pending := domain.OrderStatusPending
	cases := []struct {
		name    string
		filter  domain.OrderFilter
		wantIDs []string
	}{
		{name: "all newest first", filter: domain.OrderFilter{}, wantIDs: []string{"o3", "o2", "o1"}},
		{name: "by status", filter: domain.OrderFilter{Status: &pending}, wantIDs: []string{"o3", "o1"}},
		{
			name:    "by pickup range",
			filter:  domain.OrderFilter{PickupFrom: "2026-01-11", PickupTo: "2026-01-15"},
			wantIDs: []string{"o3", "o2"},
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res, err := orders.Find(ctx, t.filter)
			s.Require().NoError(err)
			ids := make([]string, len(res))
			for i, o := range res {
				ids[i] = o.ID
			}
			s.Equal(t.wantIDs, ids)
		})
	}

	userOrders, err := orders.GetByUserID(ctx, s.user.ID)
	s.Require().NoError(err)
	s.Len(userOrders, 1)
}
