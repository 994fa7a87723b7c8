package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsManager holds the service's Prometheus collectors.
type MetricsManager struct {
	Registry               *prometheus.Registry
	ListingsCreatedTotal   prometheus.Counter
	ListingsDeletedTotal   prometheus.Counter
	CommentsCreatedTotal   prometheus.Counter
	CompensationsTotal     *prometheus.CounterVec
	ImageDeleteFailedTotal *prometheus.CounterVec
	HTTPErrorsTotal        *prometheus.CounterVec
	HTTPLatency            *prometheus.HistogramVec
}

// NewMetricsManager creates and registers the collectors on a private registry.
func NewMetricsManager(serviceName string) *MetricsManager {
	// metric names may not contain dashes
	ns := strings.ReplaceAll(serviceName, "-", "_")
	registry := prometheus.NewRegistry()

	m := &MetricsManager{
		Registry: registry,
		ListingsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "listings_created_total",
			Help:      "Total number of listings created.",
		}),
		ListingsDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "listings_deleted_total",
			Help:      "Total number of listings deleted.",
		}),
		CommentsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "comments_created_total",
			Help:      "Total number of comments posted.",
		}),
		CompensationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "compensations_total",
			Help:      "Compensating image cleanups run after a failed create, by failed step.",
		}, []string{"step"}),
		ImageDeleteFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "image_delete_failed_total",
			Help:      "Remote image deletions that failed and were left for reconciliation.",
		}, []string{"reason"}),
		HTTPErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_errors_total",
			Help:      "HTTP responses with status >= 400 by route.",
		}, []string{"route", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		m.ListingsCreatedTotal,
		m.ListingsDeletedTotal,
		m.CommentsCreatedTotal,
		m.CompensationsTotal,
		m.ImageDeleteFailedTotal,
		m.HTTPErrorsTotal,
		m.HTTPLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// NewMetricsServer returns an HTTP server exposing /metrics for the registry.
func NewMetricsServer(port string, appLogger *logger.Logger, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	appLogger.Info("Prometheus metrics server configured", zap.String("port", port), zap.String("path", "/metrics"))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// The helpers below accept a nil manager so callers without metrics wiring
// (tests, one-off tools) need no guards.

func (m *MetricsManager) ListingCreated() {
	if m != nil {
		m.ListingsCreatedTotal.Inc()
	}
}

func (m *MetricsManager) ListingDeleted() {
	if m != nil {
		m.ListingsDeletedTotal.Inc()
	}
}

func (m *MetricsManager) CommentCreated() {
	if m != nil {
		m.CommentsCreatedTotal.Inc()
	}
}

// Compensation counts a cleanup run triggered by the failed create step.
func (m *MetricsManager) Compensation(step string) {
	if m != nil {
		m.CompensationsTotal.WithLabelValues(step).Inc()
	}
}

// ImageDeleteFailed counts a remote image left behind.
func (m *MetricsManager) ImageDeleteFailed(reason string) {
	if m != nil {
		m.ImageDeleteFailedTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveHTTP records latency and, for error statuses, the error counter.
func (m *MetricsManager) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
	if status >= 400 {
		m.HTTPErrorsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
}
