package api

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// envelope общая форма всех ответов api.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

// abortWithError ставит http статус по типу ошибки и кладет ее в контекст. Тело ответа пишет middlewares.Errors.
// Ошибки клиента публичные, их текст уходит в ответ. Остальные приватные.
func abortWithError(c *gin.Context, err error) {
	var (
		validationErr *domain.ValidationError
		transitionErr *domain.InvalidTransitionError
	)
	status := http.StatusInternalServerError
	var public error

	switch {
	case errors.As(err, &validationErr):
		status, public = http.StatusUnprocessableEntity, validationErr
	case errors.As(err, &transitionErr):
		status, public = http.StatusConflict, transitionErr
	case errors.Is(err, domain.ErrInsufficientCredits):
		status, public = http.StatusPaymentRequired, domain.ErrInsufficientCredits
	case errors.Is(err, domain.ErrOrderClosed):
		status, public = http.StatusConflict, domain.ErrOrderClosed
	case errors.Is(err, domain.ErrDuplicateKey):
		status, public = http.StatusConflict, domain.ErrDuplicateKey
	case errors.Is(err, domain.ErrRecordNotFound):
		status, public = http.StatusNotFound, domain.ErrRecordNotFound
	case errors.Is(err, domain.ErrForbidden):
		status, public = http.StatusForbidden, domain.ErrForbidden
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	if public != nil {
		// полная цепочка нужна только в логах.
		_ = c.Error(public).SetType(gin.ErrorTypePublic).SetMeta(err.Error())
	} else {
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
	}
	c.Status(status)
	c.Abort()
}

// abortWithBindError 422 для ошибок валидатора binding, 400 для остального (битый json, неверный тип).
func abortWithBindError(c *gin.Context, err error) {
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) && len(valErrs) > 0 {
		fe := valErrs[0]
		abortWithError(c, domain.NewValidationError(fe.Field(), "failed on the '"+fe.Tag()+"' rule"))
		return
	}
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	c.Status(http.StatusBadRequest)
	c.Abort()
}
