// Package metrics exposes Prometheus collectors shared by the HTTP layer, the
// record store and media ingestion.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fotomutena_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fotomutena_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	storeOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fotomutena_store_operations_total",
		Help: "Record store backend operations by result.",
	}, []string{"backend", "op", "result"})

	mediaUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fotomutena_media_uploads_total",
		Help: "Media host uploads by result.",
	}, []string{"host", "result"})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, storeOps, mediaUploads)
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveStore records one backend call. result is "ok", "miss" or "error".
func ObserveStore(backend, op, result string) {
	storeOps.WithLabelValues(backend, op, result).Inc()
}

// ObserveUpload records one media host upload.
func ObserveUpload(host string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	mediaUploads.WithLabelValues(host, result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
