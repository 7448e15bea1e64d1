package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/repository/repoargs"
	"github.com/fsdevblog/printahead/internal/service/tokens"
	"github.com/fsdevblog/printahead/pkg/uow"
)

const JWTTokenExpire = 24 * time.Hour

type UserService struct {
	uow            uow.UOW
	userRepo       UserRepository
	psswd          PasswordHasher
	jwtTokenSecret []byte
	adminEmails    map[string]struct{}
}

func NewUserService(u uow.UOW, jwtTokenSecret []byte, psswd PasswordHasher) (*UserService, error) {
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr
	}
	return &UserService{
		uow:            u,
		userRepo:       userRepo,
		psswd:          psswd,
		jwtTokenSecret: jwtTokenSecret,
		adminEmails:    make(map[string]struct{}),
	}, nil
}

// SetAdminEmails юзеры с этими email получают роль admin при регистрации.
func (s *UserService) SetAdminEmails(emails []string) *UserService {
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			s.adminEmails[email] = struct{}{}
		}
	}
	return s
}

type RegisterUserArgs struct {
	Email       string `json:"email"       validate:"required,email,max=255"`
	Password    string `json:"password"    validate:"required,min=6,max=72"`
	DisplayName string `json:"displayName" validate:"max=255"`
}

// Register создает юзера с нулевым балансом. После успешного создания генерирует jwt token. Возвращает 3 значения:
// созданный юзер, токен и ошибку.
func (s *UserService) Register(ctx context.Context, args RegisterUserArgs) (*domain.User, string, error) {
	if err := domain.Validate(args); err != nil {
		return nil, "", fmt.Errorf("registering user: %w", err)
	}
	password, hashErr := s.psswd.HashPassword(args.Password)
	if hashErr != nil {
		return nil, "", fmt.Errorf("registering user: %s", hashErr.Error())
	}

	role := domain.RoleCustomer
	if _, ok := s.adminEmails[strings.ToLower(args.Email)]; ok {
		role = domain.RoleAdmin
	}

	var user *domain.User
	var token string
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		var userErr, tokenErr error
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}
		user, userErr = userRepo.CreateUser(c, repoargs.CreateUser{
			Email:        args.Email,
			DisplayName:  args.DisplayName,
			PasswordHash: password,
			Role:         role,
		})
		if userErr != nil {
			return userErr //nolint:wrapcheck
		}

		token, tokenErr = tokens.GenerateUserJWT(user.ID, user.Role, JWTTokenExpire, s.jwtTokenSecret)
		if tokenErr != nil {
			return tokenErr //nolint:wrapcheck
		}
		return nil
	})

	if txErr != nil {
		return nil, "", fmt.Errorf("registering user: %w", txErr)
	}
	return user, token, nil
}

type LoginUserArgs struct {
	Email    string
	Password string
}

// Login проверяет пару email/пароль. Возвращает domain.ErrRecordNotFound для неизвестного email и
// domain.ErrPasswordMissMatch для неверного пароля.
func (s *UserService) Login(ctx context.Context, args LoginUserArgs) (*domain.User, string, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, args.Email)
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}
	if !s.psswd.ComparePassword(args.Password, user.PasswordHash) {
		return nil, "", fmt.Errorf("login: %w", domain.ErrPasswordMissMatch)
	}

	token, tokenErr := tokens.GenerateUserJWT(user.ID, user.Role, JWTTokenExpire, s.jwtTokenSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("login: %w", tokenErr)
	}
	return user, token, nil
}

// GetUser возвращает профиль юзера.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}
