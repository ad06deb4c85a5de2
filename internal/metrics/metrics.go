// Package metrics exposes prometheus collectors for the HTTP surface and the
// dataset operations behind it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds one registry and every collector registered on it.
type Metrics struct {
	ServiceName string

	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	ingests       *prometheus.CounterVec
	queries       *prometheus.CounterVec
	mergedTables  prometheus.Counter
	mergedSkipped prometheus.Counter
}

// New creates the collectors on a fresh registry.
func New(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		ServiceName: serviceName,
		registry:    reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method", "path", "status"},
		),
		ingests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlitedb_ingest_total",
				Help: "Uploaded artifacts by kind and outcome",
			},
			[]string{"kind", "result"},
		),
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlitedb_query_total",
				Help: "Executed statements by outcome",
			},
			[]string{"result"},
		),
		mergedTables: factory.NewCounter(prometheus.CounterOpts{
			Name: "sqlitedb_merge_tables_total",
			Help: "Tables copied into project databases",
		}),
		mergedSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "sqlitedb_merge_skipped_total",
			Help: "Identifiers skipped by merges because no file backs them",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records count and latency of every request by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let echo write the response so the recorded status is final.
				c.Error(err)
			}

			method := c.Request().Method
			path := c.Path()
			status := strconv.Itoa(c.Response().Status)

			m.requests.WithLabelValues(m.ServiceName, method, path, status).Inc()
			m.duration.WithLabelValues(m.ServiceName, method, path, status).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// IngestDone counts one ingestion attempt.
func (m *Metrics) IngestDone(kind string, err error) {
	if kind == "" {
		kind = "unknown"
	}
	m.ingests.WithLabelValues(kind, result(err)).Inc()
}

// QueryDone counts one executed statement.
func (m *Metrics) QueryDone(err error) {
	m.queries.WithLabelValues(result(err)).Inc()
}

// MergeDone counts the tables and skipped identifiers of a finished merge.
func (m *Metrics) MergeDone(tables, skipped int) {
	m.mergedTables.Add(float64(tables))
	m.mergedSkipped.Add(float64(skipped))
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
