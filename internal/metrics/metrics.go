// Package metrics метрики Prometheus: HTTP запросы, кошелек, события заказов.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "printahead"

// Recorder держит собственный реестр. Методы безопасны для nil получателя,
// поэтому метрики можно отключить, передав nil.
type Recorder struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	inFlight        prometheus.Gauge

	credits      *prometheus.CounterVec
	insufficient prometheus.Counter
	orderEvents  *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served.",
		}),
		credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "credits_total",
			Help:      "Credits moved through the ledger.",
		}, []string{"direction"}),
		insufficient: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "insufficient_credits_total",
			Help:      "Debits rejected because of a low balance.",
		}),
		orderEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "events_total",
			Help:      "Order lifecycle events by type and resulting status.",
		}, []string{"type", "status"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requestDuration,
		r.requestTotal,
		r.inFlight,
		r.credits,
		r.insufficient,
		r.orderEvents,
	)
	return r
}

func (r *Recorder) CreditsAdded(amount int64) {
	if r == nil {
		return
	}
	r.credits.WithLabelValues("in").Add(float64(amount))
}

func (r *Recorder) CreditsDeducted(amount int64) {
	if r == nil {
		return
	}
	r.credits.WithLabelValues("out").Add(float64(amount))
}

func (r *Recorder) InsufficientCredits() {
	if r == nil {
		return
	}
	r.insufficient.Inc()
}

// HandleEvent подписчик шины событий заказов.
func (r *Recorder) HandleEvent(_ context.Context, event domain.OrderEvent) {
	if r == nil {
		return
	}
	r.orderEvents.WithLabelValues(string(event.Type), string(event.Order.Status)).Inc()
}

// Middleware метрики запросов. Маршрут берется из шаблона gin, чтобы id не раздували кардинальность.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}
		start := time.Now()
		r.inFlight.Inc()
		defer r.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.requestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		r.requestTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
