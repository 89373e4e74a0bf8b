package http

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/dataverse-mcp/internal/http"

// HTTPMetrics records request metrics to OpenTelemetry and, when a
// registerer is given, to Prometheus for the /metrics endpoint.
type HTTPMetrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	requestsTotal  metric.Int64Counter
	requestDur     metric.Float64Histogram
	responseSize   metric.Int64Histogram
	activeRequests metric.Int64UpDownCounter

	promRequests *prometheus.CounterVec
	promDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates a new HTTPMetrics instance. reg may be nil.
func NewHTTPMetrics(logger *zap.Logger, reg prometheus.Registerer) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &HTTPMetrics{
		meter:  otel.Meter(httpInstrumentationName),
		logger: logger,
	}
	m.init()
	if reg != nil {
		m.initPrometheus(reg)
	}
	return m
}

func (m *HTTPMetrics) init() {
	var err error

	m.requestsTotal, err = m.meter.Int64Counter(
		"dataverse_mcp.http.requests_total",
		metric.WithDescription("Total HTTP requests by method, endpoint and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create requests counter", zap.Error(err))
	}

	m.requestDur, err = m.meter.Float64Histogram(
		"dataverse_mcp.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.responseSize, err = m.meter.Int64Histogram(
		"dataverse_mcp.http.response_size_bytes",
		metric.WithDescription("HTTP response body size in bytes"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 5000, 10000, 50000, 100000, 500000),
	)
	if err != nil {
		m.logger.Warn("failed to create response size histogram", zap.Error(err))
	}

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"dataverse_mcp.http.active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create active requests gauge", zap.Error(err))
	}
}

func (m *HTTPMetrics) initPrometheus(reg prometheus.Registerer) {
	m.promRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataverse_mcp_http_requests_total",
			Help: "Total HTTP requests by method, endpoint and status",
		},
		[]string{"method", "endpoint", "status"},
	)
	m.promDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataverse_mcp_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	for _, c := range []prometheus.Collector{m.promRequests, m.promDuration} {
		if err := reg.Register(c); err != nil {
			m.logger.Warn("failed to register prometheus collector", zap.Error(err))
		}
	}
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := req.Context()

			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, 1)
			}

			err := next(c)
			if err != nil {
				// let echo write the error response so the status is final
				c.Error(err)
			}

			duration := time.Since(start)
			status := c.Response().Status
			endpoint := normalizePath(c.Path())

			attrs := metric.WithAttributes(
				attribute.String("method", req.Method),
				attribute.String("endpoint", endpoint),
				attribute.Int("status", status),
			)

			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, attrs)
			}
			if m.requestDur != nil {
				m.requestDur.Record(ctx, duration.Seconds(), attrs)
			}
			if m.responseSize != nil {
				m.responseSize.Record(ctx, c.Response().Size, attrs)
			}
			if m.promRequests != nil {
				m.promRequests.WithLabelValues(req.Method, endpoint, strconv.Itoa(status)).Inc()
				m.promDuration.WithLabelValues(req.Method, endpoint).Observe(duration.Seconds())
			}

			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, -1)
			}

			return nil
		}
	}
}

// normalizePath maps an unmatched route to "/" so unknown paths share one
// label. Routes are fixed, so matched paths pass through.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
