// Package metrics exposes Prometheus counters for the analysis pipeline and
// the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "eduscan_http_requests_total",
	Help: "Total number of API requests labelled by path and status",
}, []string{"path", "status"})

var analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "eduscan_analyses_total",
	Help: "Completed document analyses labelled by outcome",
}, []string{"status"})

var analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "eduscan_analysis_duration_seconds",
	Help:    "Wall time of a single document analysis including model calls.",
	Buckets: []float64{.5, 1, 2, 5, 10, 30, 60, 120, 300},
}, []string{"status"})

var uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "eduscan_uploads_total",
	Help: "Documents accepted for analysis",
})

// Collector satisfies the worker's Recorder interface and the API's upload
// hook. The zero value is ready to use; all state lives in the default
// Prometheus registry.
type Collector struct{}

// ObserveAnalysis records one finished analysis attempt.
func (Collector) ObserveAnalysis(status string, d time.Duration) {
	analysesTotal.WithLabelValues(status).Inc()
	analysisDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveUpload records one accepted upload.
func (Collector) ObserveUpload() {
	uploadsTotal.Inc()
}

// ObserveRequest records one served API request.
func (Collector) ObserveRequest(path string, status int) {
	httpRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
}

// Handler returns the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
