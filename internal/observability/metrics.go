package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the HTTP service and business events.
type Metrics struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	salesRecorded     prometheus.Counter
	stockReceipts     prometheus.Counter
	insufficientStock prometheus.Counter
	retries           prometheus.Counter
}

// NewMetrics initialises the registry with request and business metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mwf_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mwf_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	sales := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mwf_sales_recorded_total",
		Help: "Sales committed by the sale workflow.",
	})
	receipts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mwf_stock_receipts_total",
		Help: "Stock lots received.",
	})
	insufficient := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mwf_insufficient_stock_total",
		Help: "Sales rejected because the lots could not cover the requested quantity.",
	})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mwf_concurrency_retries_total",
		Help: "Sale workflow attempts retried after a concurrency conflict.",
	})
	registry.MustRegister(requests, duration, sales, receipts, insufficient, retries)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		salesRecorded:     sales,
		stockReceipts:     receipts,
		insufficientStock: insufficient,
		retries:           retries,
	}
}

// Handler returns the /metrics endpoint.
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

// Registerer exposes the registry for job metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// SaleRecorded counts a committed sale.
func (m *Metrics) SaleRecorded() {
	if m != nil {
		m.salesRecorded.Inc()
	}
}

// StockReceived counts a recorded stock lot.
func (m *Metrics) StockReceived() {
	if m != nil {
		m.stockReceipts.Inc()
	}
}

// InsufficientStock counts a sale rejected for lack of stock.
func (m *Metrics) InsufficientStock() {
	if m != nil {
		m.insufficientStock.Inc()
	}
}

// ConcurrencyRetry counts a retried sale attempt.
func (m *Metrics) ConcurrencyRetry() {
	if m != nil {
		m.retries.Inc()
	}
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
