package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AnswerCheckCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answer_checks_total",
			Help: "Total number of checked answers by result",
		},
		[]string{"language", "result"},
	)

	AnswerCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "answer_check_duration_seconds",
			Help:    "Duration of a full answer check request",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"language"},
	)

	EvaluatorPoolInUse = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evaluator_pool_in_use",
			Help: "Evaluator instances currently checked out per pool",
		},
		[]string{"pool"},
	)

	EvaluatorPoolWaiting = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evaluator_pool_waiting",
			Help: "Callers currently waiting on an evaluator per pool",
		},
		[]string{"pool"},
	)

	WsConnectionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_ws_connections",
			Help: "Currently open dashboard websocket connections",
		},
	)

	WsEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_ws_events_total",
			Help: "Dashboard events delivered to local subscribers",
		},
		[]string{"type"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(AnswerCheckCounter)
	prometheus.MustRegister(AnswerCheckDuration)
	prometheus.MustRegister(EvaluatorPoolInUse)
	prometheus.MustRegister(EvaluatorPoolWaiting)
	prometheus.MustRegister(WsConnectionsGauge)
	prometheus.MustRegister(WsEventCounter)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
