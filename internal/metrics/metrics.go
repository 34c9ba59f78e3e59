// Package metrics exposes Prometheus collectors for the HTTP surface
// and the verification pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_http_requests_total",
		Help: "HTTP requests by method, route and status class.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_verifications_total",
		Help: "Verification outcomes by gateway and state.",
	}, []string{"gateway", "state"})

	gatewayStatusCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_gateway_status_calls_total",
		Help: "Outbound gateway status calls by gateway and result.",
	}, []string{"gateway", "result"})

	webhooksApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_webhooks_applied_total",
		Help: "Ledger writes applied from gateway webhooks.",
	}, []string{"gateway", "status"})
)

// ObserveVerification records a finished verification attempt.
func ObserveVerification(gateway, state string) {
	verifications.WithLabelValues(gateway, state).Inc()
}

// ObserveStatusCall records an outbound gateway status call.
func ObserveStatusCall(gateway, result string) {
	gatewayStatusCalls.WithLabelValues(gateway, result).Inc()
}

// ObserveWebhook records an applied webhook.
func ObserveWebhook(gateway, status string) {
	webhooksApplied.WithLabelValues(gateway, status).Inc()
}

// Middleware tracks request counts and latency per route. The route
// template is used rather than the raw path so ids do not explode the
// label space.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		httpRequests.WithLabelValues(method, route, statusClass(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
