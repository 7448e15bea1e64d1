package api

import (
	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

// getUserIDFromContext берет из контекста gin ID текущего юзера. ID устанавливается в
// middlewares.AuthRequired и middlewares.OptionalAuth. Для гостя вернется пустая строка.
func getUserIDFromContext(c *gin.Context) string {
	userID, exist := c.Get(middlewares.CurrentUserIDKey)
	if !exist {
		return ""
	}
	id, ok := userID.(string)
	if !ok {
		return ""
	}
	return id
}

func isAdmin(c *gin.Context) bool {
	role, _ := c.Get(middlewares.CurrentUserRoleKey)
	r, ok := role.(domain.RoleType)
	return ok && r == domain.RoleAdmin
}

// canSeeOrder гостевой заказ доступен по ID, заказ юзера только ему и админу.
func canSeeOrder(c *gin.Context, order *domain.Order) bool {
	if order.UserID == nil || isAdmin(c) {
		return true
	}
	return *order.UserID == getUserIDFromContext(c)
}
