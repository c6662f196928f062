// Package metrics owns the gateway's Prometheus collectors. Each Recorder has
// its own registry so tests never share counters.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Recorder groups the HTTP and domain collectors.
type Recorder struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	uploadBytes  prometheus.Counter
	objectOps    *prometheus.CounterVec
	queueOps     *prometheus.CounterVec
	storeOps     *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests",
		}, []string{"path", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration (s)",
			Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10},
		}, []string{"path", "method"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "video_upload_bytes_total",
			Help: "Total bytes received in uploads",
		}),
		objectOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "object_storage_operations_total",
			Help: "Object storage operations",
		}, []string{"op", "status"}),
		queueOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_operations_total",
			Help: "Processing queue operations",
		}, []string{"op", "status"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_store_operations_total",
			Help: "Video metadata store operations",
		}, []string{"op", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_cache_lookups_total",
			Help: "Identity cache lookups by result",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		r.requests, r.latency, r.uploadBytes, r.objectOps, r.queueOps, r.storeOps, r.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry exposes the underlying registry for scraping in tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRequest counts a finished request. path should be a route pattern.
func (r *Recorder) ObserveRequest(method, path string, status int, d time.Duration) {
	method = strings.ToUpper(method)
	r.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	r.latency.WithLabelValues(path, method).Observe(d.Seconds())
}

// AddUploadBytes counts bytes received by an upload attempt.
func (r *Recorder) AddUploadBytes(n int) {
	r.uploadBytes.Add(float64(n))
}

// ObjectOp counts an object storage call (op: put, sign).
func (r *Recorder) ObjectOp(op string, err error) {
	r.objectOps.WithLabelValues(op, outcome(err)).Inc()
}

// QueueOp counts a queue call (op: send).
func (r *Recorder) QueueOp(op string, err error) {
	r.queueOps.WithLabelValues(op, outcome(err)).Inc()
}

// StoreOp counts a metadata store call (op: put, get, update, scan).
func (r *Recorder) StoreOp(op string, err error) {
	r.storeOps.WithLabelValues(op, outcome(err)).Inc()
}

// CacheLookup counts an identity cache lookup (result: hit, miss, error).
func (r *Recorder) CacheLookup(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}

func outcome(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
