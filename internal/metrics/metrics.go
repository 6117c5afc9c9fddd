// Package metrics exposes Prometheus collectors for Google API calls,
// token refreshes and HTTP traffic on a dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gcal"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultRevoked = "revoked"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	googleRequests *prometheus.CounterVec
	googleDuration *prometheus.HistogramVec
	tokenRefresh   *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, plus Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		googleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "google_api_requests_total",
			Help:      "Google Calendar API calls by operation and result.",
		}, []string{"operation", "result"}),
		googleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "google_api_duration_seconds",
			Help:      "Latency of Google Calendar API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "OAuth token refresh attempts by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by method and status.",
		}, []string{"method", "status"}),
	}

	m.registry.MustRegister(
		m.googleRequests,
		m.googleDuration,
		m.tokenRefresh,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGoogleCall records one Google API call.
func (m *Metrics) ObserveGoogleCall(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.googleRequests.WithLabelValues(operation, result).Inc()
	m.googleDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// TokenRefreshed records a refresh attempt.
func (m *Metrics) TokenRefreshed(result string) {
	if m == nil {
		return
	}
	m.tokenRefresh.WithLabelValues(result).Inc()
}

// Middleware counts requests by method and final status code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	})
}
