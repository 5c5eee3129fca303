// Package metrics exposes Prometheus metrics for the catalog service:
//
//   - metacatalog_operations_total: catalog operations by provider, operation and result
//   - metacatalog_operation_duration_seconds: catalog operation latency
//   - metacatalog_catalogs_open: catalog instances currently open
//   - metacatalog_http_requests_total: REST requests by route and status class
//   - metacatalog_http_request_duration_seconds: REST request latency
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ResultOK is the result label of a successful operation. Failures are
// labelled with their error kind.
const ResultOK = "ok"

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metacatalog_operations_total",
			Help: "Total number of catalog operations",
		},
		[]string{"provider", "operation", "result"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metacatalog_operation_duration_seconds",
			Help:    "Catalog operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	CatalogsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "metacatalog_catalogs_open",
			Help: "Number of open catalog instances",
		},
		[]string{"provider"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metacatalog_http_requests_total",
			Help: "Total number of REST requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metacatalog_http_request_duration_seconds",
			Help:    "REST request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "metacatalog_build_info",
			Help: "Build information",
		},
		[]string{"version"},
	)
)

// Init records the build information.
func Init(version string) {
	BuildInfo.WithLabelValues(version).Set(1)
}

// RecordOperation records one catalog operation. kind is the error kind of a
// failed operation and empty on success.
func RecordOperation(provider, operation, kind string, duration time.Duration) {
	result := ResultOK
	if kind != "" {
		result = kind
	}
	OperationsTotal.WithLabelValues(provider, operation, result).Inc()
	OperationDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordRequest records a REST request.
func RecordRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
