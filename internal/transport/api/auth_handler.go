package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService UserServicer
}

func NewAuthHandler(userService UserServicer) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

type UserRegisterParams struct {
	Email       string `binding:"required,email,max=255" json:"email"`
	Password    string `binding:"required,min=6,max=72"  json:"password"`
	DisplayName string `binding:"max=255"                json:"displayName"`
}

type UserResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"displayName"`
	Role        domain.RoleType `json:"role"`
	Credits     int64           `json:"credits"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

func newUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Credits:     user.Credits,
		CreatedAt:   user.CreatedAt,
	}
}

// Register POST RouteGroup + RegisterRoute. Регистрирует пользователя и аутентифицирует его.
func (h *AuthHandler) Register(c *gin.Context) {
	var params UserRegisterParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, jwtToken, createErr := h.userService.Register(ctx, service.RegisterUserArgs{
		Email:       params.Email,
		Password:    params.Password,
		DisplayName: params.DisplayName,
	})
	if createErr != nil {
		if errors.Is(createErr, domain.ErrDuplicateKey) {
			_ = c.Error(errors.New("user with this email already exists")).SetType(gin.ErrorTypePublic)
			c.Status(http.StatusConflict)
			c.Abort()
			return
		}
		abortWithError(c, createErr)
		return
	}

	c.Header("Authorization", "Bearer "+jwtToken)
	respond(c, http.StatusCreated, AuthResponse{User: newUserResponse(user), Token: jwtToken})
}

type UserLoginParams struct {
	Email    string `binding:"required,max=255"      json:"email"`
	Password string `binding:"required,min=6,max=72" json:"password"`
}

// Login POST RouteGroup + LoginRoute. Аутентификация по паре email/пароль.
func (h *AuthHandler) Login(c *gin.Context) {
	var params UserLoginParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, token, err := h.userService.Login(ctx, service.LoginUserArgs{
		Email:    params.Email,
		Password: params.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) || errors.Is(err, domain.ErrPasswordMissMatch) {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Error: "invalid credentials"})
			return
		}
		abortWithError(c, err)
		return
	}

	c.Header("Authorization", "Bearer "+token)
	respond(c, http.StatusOK, AuthResponse{User: newUserResponse(user), Token: token})
}

// Me GET RouteGroup + MeRoute. Профиль текущего юзера с актуальным балансом.
func (h *AuthHandler) Me(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := h.userService.GetUser(ctx, getUserIDFromContext(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, newUserResponse(user))
}
