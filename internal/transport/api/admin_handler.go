package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/gin-gonic/gin"
)

// AdminHandler просмотр и изменение статусов всех заказов.
type AdminHandler struct {
	orderSvs  OrderServicer
	stream    OrderStreamer
	heartbeat time.Duration
}

func NewAdminHandler(orderSvs OrderServicer, stream OrderStreamer) *AdminHandler {
	return &AdminHandler{
		orderSvs:  orderSvs,
		stream:    stream,
		heartbeat: DefaultSSEHeartbeat,
	}
}

type AdminOrdersQuery struct {
	Status    string `form:"status"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

// Index GET RouteGroup + AdminOrdersRoute. Фильтры status, startDate, endDate (по дате выдачи, включительно).
func (h *AdminHandler) Index(c *gin.Context) {
	var query AdminOrdersQuery
	if bindErr := c.ShouldBindQuery(&query); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}
	filter := domain.OrderFilter{
		PickupFrom: query.StartDate,
		PickupTo:   query.EndDate,
	}
	if query.Status != "" && query.Status != "all" {
		status := domain.OrderStatusType(query.Status)
		filter.Status = &status
	}

	orders, err := h.loadOrders(c, filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, orders)
}

type UpdateStatusParams struct {
	Status domain.OrderStatusType `binding:"required,order_status" json:"status"`
}

// UpdateStatus PATCH RouteGroup + AdminOrderStatusRoute. Недопустимый переход 409.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var params UpdateStatusParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := h.orderSvs.UpdateStatus(reqCtx, c.Param("id"), params.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

type OrderStats struct {
	Total      int   `json:"total"`
	Pending    int   `json:"pending"`
	Processing int   `json:"processing"`
	Ready      int   `json:"ready"`
	Completed  int   `json:"completed"`
	Cancelled  int   `json:"cancelled"`
	Revenue    int64 `json:"revenue"`
}

func countOrders(orders []domain.Order) OrderStats {
	stats := OrderStats{Total: len(orders)}
	for i := range orders {
		switch orders[i].Status {
		case domain.OrderStatusPending:
			stats.Pending++
		case domain.OrderStatusProcessing:
			stats.Processing++
		case domain.OrderStatusReady:
			stats.Ready++
		case domain.OrderStatusCompleted:
			stats.Completed++
			stats.Revenue += orders[i].Total
		case domain.OrderStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// Stats GET RouteGroup + AdminStatsRoute. Счетчики для панели админки, выручка по выданным заказам.
func (h *AdminHandler) Stats(c *gin.Context) {
	orders, err := h.loadOrders(c, domain.OrderFilter{})
	if err != nil {
		abortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, countOrders(orders))
}

// Stream GET RouteGroup + AdminStreamRoute. SSE поток заказов.
//
// Первое событие snapshot со всеми заказами, дальше order на каждое создание и смену статуса.
// Если клиент не успевает читать, события теряются и приходит resync с новым снимком.
func (h *AdminHandler) Stream(c *gin.Context) {
	// подписка раньше снимка, чтобы не пропустить изменения между ними.
	sub, unsubscribe := h.stream.Subscribe()
	defer unsubscribe()

	orders, err := h.loadOrders(c, domain.OrderFilter{})
	if err != nil {
		abortWithError(c, err)
		return
	}

	prepareSSE(c)
	sendSSE(c, SSEventSnapshot, orders)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event := <-sub.Events():
			sendSSE(c, SSEventOrder, event)
		case <-sub.Resync():
			sub.Drain()
			fresh, loadErr := h.loadOrders(c, domain.OrderFilter{})
			if loadErr != nil {
				_ = c.Error(loadErr).SetType(gin.ErrorTypePrivate)
				return false
			}
			sendSSE(c, SSEventResync, fresh)
		case <-heartbeat.C:
			sendSSE(c, SSEventPing, time.Now().Unix())
		}
		return true
	})
}

func (h *AdminHandler) loadOrders(c *gin.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	orders, err := h.orderSvs.GetAllOrders(reqCtx, filter)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}
