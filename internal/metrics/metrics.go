// Package metrics provides Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ftpweb_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ftpweb_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Upstream session metrics
	sessionOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ftpweb_session_operations_total",
			Help: "Total FTP operations run on the control connection",
		},
		[]string{"operation", "status"},
	)

	sessionOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ftpweb_session_operation_duration_seconds",
			Help:    "Time an FTP operation held the control connection",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	sessionQueueWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ftpweb_session_queue_wait_seconds",
			Help:    "Time an operation waited for the control connection",
			Buckets: prometheus.DefBuckets,
		},
	)

	sessionQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ftpweb_session_queue_depth",
			Help: "Operations waiting for the control connection",
		},
	)

	sessionReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ftpweb_session_reconnects_total",
			Help: "Upstream reconnect attempts",
		},
		[]string{"status"},
	)

	// Listing metrics
	listingFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ftpweb_listing_fallbacks_total",
			Help: "Listings that fell back to the root directory",
		},
	)

	listingLinesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ftpweb_listing_lines_dropped_total",
			Help: "Raw LIST lines that could not be parsed",
		},
	)

	// Download metrics
	downloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ftpweb_download_bytes_total",
			Help: "Total bytes sent to download clients",
		},
	)

	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ftpweb_downloads_total",
			Help: "Total number of downloads",
		},
		[]string{"mode", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSessionOperation records one operation run on the control connection.
func RecordSessionOperation(operation string, duration time.Duration, success bool) {
	sessionOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	sessionOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
}

// RecordQueueWait records how long an operation waited for its turn.
func RecordQueueWait(d time.Duration) {
	sessionQueueWait.Observe(d.Seconds())
}

// SetQueueDepth sets the number of queued session operations.
func SetQueueDepth(n int) {
	sessionQueueDepth.Set(float64(n))
}

// RecordReconnect records an upstream redial.
func RecordReconnect(success bool) {
	sessionReconnectsTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordListingFallback records a root fallback.
func RecordListingFallback() {
	listingFallbacksTotal.Inc()
}

// RecordDroppedLines records unparseable listing lines.
func RecordDroppedLines(n int) {
	if n > 0 {
		listingLinesDropped.Add(float64(n))
	}
}

// RecordDownload records a file download. mode is "buffered" or "stream".
func RecordDownload(mode string, bytes int64, success bool) {
	downloadBytesTotal.Add(float64(bytes))
	downloadsTotal.WithLabelValues(mode, statusLabel(success)).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics. Requests
// are labelled with the matched ServeMux pattern to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
	})
}
