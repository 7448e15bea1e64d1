package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/service/tokens"
	"github.com/gin-gonic/gin"
)

var ErrTokenNotExist = errors.New("token not exist")

const (
	CurrentUserIDKey   = "currentUserID"
	CurrentUserRoleKey = "currentUserRole"
)

// checkAuthorization извлекает токен из заголовка Authorization и проверяет его. Если токен не передан,
// вернется ErrTokenNotExist.
func checkAuthorization(c *gin.Context, jwtTokenSecret []byte) (*tokens.UserClaims, error) {
	tokenHeader := c.GetHeader("Authorization")
	bearer := "Bearer "

	if !strings.HasPrefix(tokenHeader, bearer) {
		return nil, ErrTokenNotExist
	}
	return tokens.ValidateUserJWT(tokenHeader[len(bearer):], jwtTokenSecret) //nolint:wrapcheck
}

func setCurrentUser(c *gin.Context, claims *tokens.UserClaims) {
	c.Set(CurrentUserIDKey, claims.ID)
	c.Set(CurrentUserRoleKey, claims.Role)
}

// AuthRequired проверяет, что запрос авторизован. Записывает в контекст id (CurrentUserIDKey)
// и роль (CurrentUserRoleKey) юзера.
func AuthRequired(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := checkAuthorization(c, jwtTokenSecret)
		if err != nil {
			if !errors.Is(err, ErrTokenNotExist) {
				_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}
		setCurrentUser(c, claims)
		c.Next()
	}
}

// OptionalAuth пропускает гостей. Если передан валидный токен, юзер записывается в контекст, как в AuthRequired.
// Невалидный токен считается ошибкой, чтобы клиент не оформил гостевой заказ случайно.
func OptionalAuth(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := checkAuthorization(c, jwtTokenSecret)
		switch {
		case errors.Is(err, ErrTokenNotExist):
		case err != nil:
			_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		default:
			setCurrentUser(c, claims)
		}
		c.Next()
	}
}

// AdminRequired ставится после AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CurrentUserRoleKey)
		if r, ok := role.(domain.RoleType); !ok || r != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "forbidden"})
			return
		}
		c.Next()
	}
}
