package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	// MaxUploadFileSize ограничение на размер одного файла печати.
	MaxUploadFileSize = 50 << 20
	// MaxUploadFiles ограничение на количество файлов в одном запросе.
	MaxUploadFiles = 20
	uploadFormField = "files"
	uploadKeysField = "keys"
)

type OrdersHandler struct {
	orderSvs  OrderServicer
	uploadSvs UploadServicer
}

func NewOrdersHandler(orderSvs OrderServicer, uploadSvs UploadServicer) *OrdersHandler {
	return &OrdersHandler{
		orderSvs:  orderSvs,
		uploadSvs: uploadSvs,
	}
}

type CreateOrderParams struct {
	CustomerName  string                   `json:"customerName"`
	CustomerPhone string                   `json:"customerPhone"`
	CustomerEmail *string                  `json:"customerEmail"`
	CartItems     []domain.CartItem        `json:"cartItems"`
	FilesExpected int                      `json:"filesExpected"`
	PickupDate    string                   `json:"pickupDate"`
	PickupTime    string                   `json:"pickupTime"`
	Notes         string                   `json:"notes"`
	PaymentMethod domain.PaymentMethodType `binding:"payment_method" json:"paymentMethod"`
}

// Create POST RouteGroup + OrdersRoute. Гость оформляет заказ без токена, юзер с токеном.
// Поля заказа проверяет сервис, ответ 422 с путем до поля.
func (o *OrdersHandler) Create(c *gin.Context) {
	var params CreateOrderParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	args := service.CreateOrderArgs{
		CustomerName:  params.CustomerName,
		CustomerPhone: params.CustomerPhone,
		CustomerEmail: params.CustomerEmail,
		CartItems:     params.CartItems,
		FilesExpected: params.FilesExpected,
		PickupDate:    params.PickupDate,
		PickupTime:    params.PickupTime,
		Notes:         params.Notes,
		PaymentMethod: params.PaymentMethod,
	}
	if userID := getUserIDFromContext(c); userID != "" {
		args.UserID = &userID
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.Create(reqCtx, args)
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}

// Index GET RouteGroup + OrdersRoute. Заказы текущего юзера, новые первыми.
func (o *OrdersHandler) Index(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	orders, err := o.orderSvs.GetUserOrders(reqCtx, getUserIDFromContext(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respond(c, http.StatusOK, orders)
}

// Show GET RouteGroup + OrderRoute. Чужой заказ отдается как несуществующий.
func (o *OrdersHandler) Show(c *gin.Context) {
	order, ok := o.visibleOrder(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, order)
}

// UploadFiles POST RouteGroup + OrderFilesRoute. multipart поле files, можно несколько файлов.
func (o *OrdersHandler) UploadFiles(c *gin.Context) {
	order, ok := o.visibleOrder(c)
	if !ok {
		return
	}
	files, ok := formFiles(c)
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultUploadTimeout)
	defer cancel()

	updated, err := o.uploadSvs.UploadOrderFiles(reqCtx, order.ID, files)
	respondUpload(c, http.StatusOK, updated, err)
}

type failedUpload struct {
	FileName string `json:"fileName"`
	Key      string `json:"key"`
}

type partialUploadResponse struct {
	Uploaded any            `json:"uploaded"`
	Failed   []failedUpload `json:"failed"`
}

// respondUpload 207 при частичной загрузке: в data то, что загрузилось, и ключи неудачных файлов для повтора.
func respondUpload(c *gin.Context, status int, data any, err error) {
	var partialErr *domain.PartialUploadError
	switch {
	case errors.As(err, &partialErr):
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		failed := make([]failedUpload, len(partialErr.Failed))
		for i, f := range partialErr.Failed {
			failed[i] = failedUpload{FileName: f.FileName, Key: f.Key}
		}
		c.JSON(http.StatusMultiStatus, envelope{
			Error: partialErr.Error(),
			Data:  partialUploadResponse{Uploaded: data, Failed: failed},
		})
	case err != nil:
		abortWithError(c, err)
	default:
		respond(c, status, data)
	}
}

// visibleOrder загружает заказ из параметра :id и проверяет доступ. При false ответ уже сформирован.
func (o *OrdersHandler) visibleOrder(c *gin.Context) (*domain.Order, bool) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.GetOrder(reqCtx, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	if !canSeeOrder(c, order) {
		abortWithError(c, domain.ErrRecordNotFound)
		return nil, false
	}
	return order, true
}

// formFiles достает файлы из multipart формы. Необязательное поле keys идет параллельно files:
// keys[i] ключ повторяемой загрузки files[i]. При false ответ уже сформирован.
func formFiles(c *gin.Context) ([]service.UploadFile, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		c.Status(http.StatusBadRequest)
		c.Abort()
		return nil, false
	}
	headers := form.File[uploadFormField]
	if len(headers) == 0 {
		abortWithError(c, domain.NewValidationError(uploadFormField, "is required"))
		return nil, false
	}
	if len(headers) > MaxUploadFiles {
		abortWithError(c, domain.NewValidationError(uploadFormField,
			fmt.Sprintf("must contain at most %d files", MaxUploadFiles)))
		return nil, false
	}
	keys := form.Value[uploadKeysField]
	if len(keys) > len(headers) {
		abortWithError(c, domain.NewValidationError(uploadKeysField, "must not outnumber files"))
		return nil, false
	}

	files := make([]service.UploadFile, len(headers))
	for i, fh := range headers {
		if fh.Size > MaxUploadFileSize {
			abortWithError(c, domain.NewValidationError(
				fmt.Sprintf("%s[%d]", uploadFormField, i),
				fmt.Sprintf("%s is larger than %d MB", fh.Filename, MaxUploadFileSize>>20), //nolint:mnd
			))
			return nil, false
		}
		var key string
		if i < len(keys) {
			key = keys[i]
		}
		files[i] = service.UploadFile{
			Key:         key,
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        openFormFile(fh),
		}
	}
	return files, true
}

func openFormFile(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open() //nolint:wrapcheck
	}
}

type UploadsHandler struct {
	uploadSvs UploadServicer
}

func NewUploadsHandler(uploadSvs UploadServicer) *UploadsHandler {
	return &UploadsHandler{uploadSvs: uploadSvs}
}

// Create POST RouteGroup + UploadsRoute. Загрузка файлов до оформления заказа, ответ описания файлов
// для позиций корзины.
func (u *UploadsHandler) Create(c *gin.Context) {
	files, ok := formFiles(c)
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultUploadTimeout)
	defer cancel()

	descriptors, err := u.uploadSvs.UploadDraftFiles(reqCtx, getUserIDFromContext(c), files)
	respondUpload(c, http.StatusCreated, descriptors, err)
}
