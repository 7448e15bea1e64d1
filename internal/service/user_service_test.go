package service

import (
	"context"
	"testing"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/internal/service/mocks"
	"github.com/fsdevblog/printahead/internal/service/tokens"
	"github.com/fsdevblog/printahead/pkg/uow"
	uowmocks "github.com/fsdevblog/printahead/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type UserServiceTestSuite struct {
	suite.Suite
	mockUOW      *uowmocks.MockUOW
	mockTX       *uowmocks.MockTX
	mockUserRepo *mocks.MockUserRepository
	mockPsswd    *mocks.MockPasswordHasher
	jwtSecret    []byte
	userService  *UserService
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (s *UserServiceTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(mockCtrl)
	s.mockUserRepo = mocks.NewMockUserRepository(mockCtrl)
	s.mockPsswd = mocks.NewMockPasswordHasher(mockCtrl)
	s.mockTX = uowmocks.NewMockTX(mockCtrl)

	s.jwtSecret = []byte("secret")

	// Мок получения репозитория из uow. Выполняется в инициализации сервиса.
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()

	userService, servErr := NewUserService(s.mockUOW, s.jwtSecret, s.mockPsswd)
	s.Require().NoError(servErr)
	s.userService = userService.SetAdminEmails([]string{" Desk@PrintAhead.in "})
}

func (s *UserServiceTestSuite) TestLogin() {
	savedUserEmail := "student@campus.edu"
	argsOk := LoginUserArgs{Email: savedUserEmail, Password: "<PASSWORD>"}
	argsWrongEmail := LoginUserArgs{Email: "wrong@campus.edu", Password: "<PASSWORD>"}
	argsWrongPass := LoginUserArgs{Email: savedUserEmail, Password: "wrong pass"}

	validHashPassword := "hash ok"

	savedUser := domain.User{
		ID:           "user-1",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		Email:        savedUserEmail,
		Role:         domain.RoleCustomer,
		PasswordHash: validHashPassword,
	}

	// Мок для сравнения пароля.
	s.mockPsswd.EXPECT().ComparePassword(argsOk.Password, validHashPassword).Return(true)
	s.mockPsswd.EXPECT().ComparePassword(argsWrongPass.Password, validHashPassword).Return(false)

	// Мок репозитория.
	s.mockUserRepo.EXPECT().
		FindUserByEmail(gomock.Any(), savedUserEmail).
		Return(&savedUser, nil).Times(2)
	s.mockUserRepo.EXPECT().
		FindUserByEmail(gomock.Any(), argsWrongEmail.Email).
		Return(nil, domain.ErrRecordNotFound)

	cases := []struct {
		name    string
		args    LoginUserArgs
		wantErr error
	}{
		{name: "ok", args: argsOk},
		{name: "wrong email", args: argsWrongEmail, wantErr: domain.ErrRecordNotFound},
		{name: "wrong password", args: argsWrongPass, wantErr: domain.ErrPasswordMissMatch},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			user, tokenStr, err := s.userService.Login(s.T().Context(), t.args)
			s.Require().ErrorIs(err, t.wantErr)

			if t.wantErr == nil {
				s.Equal(savedUser.ID, user.ID)
				claims, tokenErr := tokens.ValidateUserJWT(tokenStr, s.jwtSecret)
				s.Require().NoError(tokenErr)
				s.Equal(savedUser.ID, claims.ID)
				s.Equal(domain.RoleCustomer, claims.Role)
			}
		})
	}
}

func (s *UserServiceTestSuite) TestRegister() {
	validHashedPassword := "hashedPassword"

	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()
	s.mockPsswd.EXPECT().HashPassword(gomock.Any()).Return(validHashedPassword, nil).AnyTimes()
	s.mockUOW.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		}).AnyTimes()

	s.mockUserRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.CreateUser) (*domain.User, error) {
			if args.Email == "taken@campus.edu" {
				return nil, domain.ErrDuplicateKey
			}
			s.Equal(validHashedPassword, args.PasswordHash)
			return &domain.User{ID: "user-" + args.Email, Email: args.Email, Role: args.Role}, nil
		}).AnyTimes()

	cases := []struct {
		name     string
		args     RegisterUserArgs
		wantErr  error
		wantRole domain.RoleType
	}{
		{
			name:     "customer",
			args:     RegisterUserArgs{Email: "student@campus.edu", Password: "secret1"},
			wantRole: domain.RoleCustomer,
		},
		{
			name:     "configured admin",
			args:     RegisterUserArgs{Email: "desk@printahead.in", Password: "secret1"},
			wantRole: domain.RoleAdmin,
		},
		{
			name:    "duplicate email",
			args:    RegisterUserArgs{Email: "taken@campus.edu", Password: "secret1"},
			wantErr: domain.ErrDuplicateKey,
		},
		{
			name:    "invalid email",
			args:    RegisterUserArgs{Email: "not-an-email", Password: "secret1"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "short password",
			args:    RegisterUserArgs{Email: "student@campus.edu", Password: "123"},
			wantErr: domain.ErrValidation,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			user, tokenStr, err := s.userService.Register(s.T().Context(), t.args)
			s.Require().ErrorIs(err, t.wantErr)
			if t.wantErr != nil {
				s.Nil(user)
				s.Empty(tokenStr)
				return
			}

			s.Equal(t.wantRole, user.Role)
			claims, tokenErr := tokens.ValidateUserJWT(tokenStr, s.jwtSecret)
			s.Require().NoError(tokenErr)
			s.Equal(user.ID, claims.ID)
			s.Equal(t.wantRole, claims.Role)
		})
	}
}
