// Package metrics exposes Prometheus collectors for the HTTP surface, the
// ingestion pipeline and store writes. All recording methods are nil-safe so
// components can run without metrics in tests.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry and every collector the service records.
type Metrics struct {
	registry       *prometheus.Registry
	requestCount   *prometheus.CounterVec
	filesIngested  *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
	storeWrites    *prometheus.CounterVec
}

// New creates a registry with process/go collectors and the service collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		filesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_files_total",
				Help: "Files accepted by the ingestion pipeline, by kind.",
			},
			[]string{"kind"},
		),
		decodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_decode_failures_total",
				Help: "Files whose preview could not be decoded, by kind.",
			},
			[]string{"kind"},
		),
		storeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_writes_total",
				Help: "Key-value store writes, by key family and result.",
			},
			[]string{"family", "result"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.filesIngested,
		m.decodeFailures,
		m.storeWrites,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		c.Next()

		// Route pattern (/v1/articles/:id) keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestCount.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}

// FileIngested records a file that went through classification.
func (m *Metrics) FileIngested(kind string) {
	if m == nil {
		return
	}
	m.filesIngested.WithLabelValues(kind).Inc()
}

// DecodeFailed records a per-file decode failure.
func (m *Metrics) DecodeFailed(kind string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(kind).Inc()
}

// StoreWrite records the outcome of a store write.
func (m *Metrics) StoreWrite(family string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeWrites.WithLabelValues(family, result).Inc()
}
