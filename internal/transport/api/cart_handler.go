package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/fsdevblog/printahead/internal/cart"
	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/fsdevblog/printahead/internal/service"
	"github.com/gin-gonic/gin"
)

// CartHandler корзина текущего юзера. Ключ корзины ID юзера.
type CartHandler struct {
	carts       CartManager
	checkoutSvs CheckoutServicer
	heartbeat   time.Duration
}

func NewCartHandler(carts CartManager, checkoutSvs CheckoutServicer) *CartHandler {
	return &CartHandler{
		carts:       carts,
		checkoutSvs: checkoutSvs,
		heartbeat:   DefaultSSEHeartbeat,
	}
}

func (h *CartHandler) cart(c *gin.Context) (*cart.Aggregator, bool) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	agg, err := h.carts.Cart(reqCtx, getUserIDFromContext(c))
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return agg, true
}

// Show GET RouteGroup + CartRoute.
func (h *CartHandler) Show(c *gin.Context) {
	agg, ok := h.cart(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, agg.Snapshot())
}

type AddCartItemParams struct {
	Type  domain.CartItemType     `json:"type"`
	Name  string                  `json:"name"`
	Price int64                   `json:"price"`
	Meta  string                  `json:"meta"`
	Files []domain.FileDescriptor `json:"files"`
}

type CartItemResponse struct {
	Item domain.CartItem `json:"item"`
	Cart cart.Snapshot   `json:"cart"`
}

// AddItem POST RouteGroup + CartItemsRoute.
func (h *CartHandler) AddItem(c *gin.Context) {
	var params AddCartItemParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}
	agg, ok := h.cart(c)
	if !ok {
		return
	}

	item, err := agg.AddItem(c, domain.CartItem{
		Type:  params.Type,
		Name:  params.Name,
		Price: params.Price,
		Meta:  params.Meta,
		Files: params.Files,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, CartItemResponse{Item: item, Cart: agg.Snapshot()})
}

// RemoveItem DELETE RouteGroup + CartItemRoute.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	agg, ok := h.cart(c)
	if !ok {
		return
	}
	if !agg.RemoveItem(c, c.Param("itemId")) {
		abortWithError(c, domain.ErrRecordNotFound)
		return
	}
	respond(c, http.StatusOK, agg.Snapshot())
}

// Clear DELETE RouteGroup + CartRoute.
func (h *CartHandler) Clear(c *gin.Context) {
	agg, ok := h.cart(c)
	if !ok {
		return
	}
	agg.Clear(c)
	respond(c, http.StatusOK, agg.Snapshot())
}

type CheckoutParams struct {
	CustomerName  string                   `json:"customerName"`
	CustomerPhone string                   `json:"customerPhone"`
	CustomerEmail *string                  `json:"customerEmail"`
	FilesExpected int                      `json:"filesExpected"`
	PickupDate    string                   `json:"pickupDate"`
	PickupTime    string                   `json:"pickupTime"`
	Notes         string                   `json:"notes"`
	PaymentMethod domain.PaymentMethodType `binding:"payment_method" json:"paymentMethod"`
}

// Checkout POST RouteGroup + CheckoutRoute. Заказ из корзины, корзина очищается после успеха.
func (h *CartHandler) Checkout(c *gin.Context) {
	var params CheckoutParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := h.checkoutSvs.Checkout(reqCtx, getUserIDFromContext(c), service.CheckoutArgs{
		CustomerName:  params.CustomerName,
		CustomerPhone: params.CustomerPhone,
		CustomerEmail: params.CustomerEmail,
		FilesExpected: params.FilesExpected,
		PickupDate:    params.PickupDate,
		PickupTime:    params.PickupTime,
		Notes:         params.Notes,
		PaymentMethod: params.PaymentMethod,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}

// Stream GET RouteGroup + CartStreamRoute. SSE: текущее состояние корзины и каждое следующее изменение.
// Медленный клиент получает только последнее состояние.
func (h *CartHandler) Stream(c *gin.Context) {
	agg, ok := h.cart(c)
	if !ok {
		return
	}

	updates := make(chan cart.Snapshot, 1)
	unsubscribe := agg.Subscribe(func(s cart.Snapshot) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			// выкидываем устаревшее состояние.
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	prepareSSE(c)
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap := <-updates:
			sendSSE(c, SSEventCart, snap)
		case <-heartbeat.C:
			sendSSE(c, SSEventPing, time.Now().Unix())
		}
		return true
	})
}
