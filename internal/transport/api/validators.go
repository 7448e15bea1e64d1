package api

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// validateOrderStatus тег order_status: строка является известным статусом заказа.
func validateOrderStatus(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		status, isStatus := fl.Field().Interface().(domain.OrderStatusType)
		if !isStatus {
			return false
		}
		str = string(status)
	}
	return domain.OrderStatusType(str).Valid()
}

// validatePaymentMethod тег payment_method. Пустое значение допустимо, это оплата по умолчанию.
func validatePaymentMethod(fl validator.FieldLevel) bool {
	method, ok := fl.Field().Interface().(domain.PaymentMethodType)
	if !ok {
		return false
	}
	return method == "" || method.Valid()
}

func registerValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("validator registration: unexpected engine %T", binding.Validator.Engine())
			return
		}
		// в ошибках клиент видит имена полей из json.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0] //nolint:mnd
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		if regErr := v.RegisterValidation("order_status", validateOrderStatus); regErr != nil {
			err = fmt.Errorf("validator registration: %s", regErr.Error())
			return
		}
		if regErr := v.RegisterValidation("payment_method", validatePaymentMethod); regErr != nil {
			err = fmt.Errorf("validator registration: %s", regErr.Error())
		}
	})
	return err
}
