package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes recorded by ObserveLogin.
const (
	LoginSucceeded = "succeeded"
	LoginRejected  = "rejected"
	LoginLocked    = "locked"
	LoginFailed    = "error"
)

// Metrics collects Prometheus metrics for the service.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	logins           *prometheus.CounterVec
	authRejections   *prometheus.CounterVec
	uploadRejections *prometheus.CounterVec
	uploadBytes      *prometheus.CounterVec
}

// NewMetrics initialises the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helmdesk_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "helmdesk_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helmdesk_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helmdesk_auth_rejections_total",
		Help: "Requests rejected by the auth gateway by status code.",
	}, []string{"status"})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helmdesk_upload_rejections_total",
		Help: "Uploads rejected before storage by bucket and reason.",
	}, []string{"bucket", "reason"})
	stored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helmdesk_upload_bytes_total",
		Help: "Bytes written to object storage per bucket.",
	}, []string{"bucket"})
	registry.MustRegister(requests, duration, logins, rejections, uploads, stored)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		logins:           logins,
		authRejections:   rejections,
		uploadRejections: uploads,
		uploadBytes:      stored,
	}
}

// Handler returns the http.Handler serving /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// ObserveLogin counts a login attempt.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// ObserveAuthRejection counts a 401 or 403 produced by the gateway.
func (m *Metrics) ObserveAuthRejection(status int) {
	if m == nil {
		return
	}
	m.authRejections.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveUploadRejection counts an upload refused before storage.
func (m *Metrics) ObserveUploadRejection(bucket, reason string) {
	if m == nil {
		return
	}
	m.uploadRejections.WithLabelValues(bucket, reason).Inc()
}

// ObserveUploadStored counts bytes accepted into a bucket.
func (m *Metrics) ObserveUploadStored(bucket string, size int64) {
	if m == nil || size < 0 {
		return
	}
	m.uploadBytes.WithLabelValues(bucket).Add(float64(size))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
