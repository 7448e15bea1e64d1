package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Wallet(t *testing.T) {
	r := New()
	r.CreditsAdded(500)
	r.CreditsDeducted(245)
	r.InsufficientCredits()

	assert.InDelta(t, 500, testutil.ToFloat64(r.credits.WithLabelValues("in")), 0)
	assert.InDelta(t, 245, testutil.ToFloat64(r.credits.WithLabelValues("out")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.insufficient), 0)
}

func TestRecorder_HandleEvent(t *testing.T) {
	r := New()
	event := domain.OrderEvent{Type: domain.OrderEventCreated, Order: domain.Order{Status: domain.OrderStatusPending}}
	r.HandleEvent(t.Context(), event)
	r.HandleEvent(t.Context(), event)

	got := testutil.ToFloat64(r.orderEvents.WithLabelValues(
		string(domain.OrderEventCreated), string(domain.OrderStatusPending)))
	assert.InDelta(t, 2, got, 0)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.CreditsAdded(1)
		r.CreditsDeducted(1)
		r.InsufficientCredits()
		r.HandleEvent(t.Context(), domain.OrderEvent{})
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(r.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecorder_MiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := New()
	router := gin.New()
	router.Use(r.Middleware())
	router.GET("/api/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(r.Handler()))

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.InDelta(t, 3, testutil.ToFloat64(r.requestTotal.WithLabelValues(http.MethodGet, "/api/orders/:id", "200")), 0)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "printahead_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
