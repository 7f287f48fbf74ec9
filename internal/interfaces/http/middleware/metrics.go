package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// unmatchedRoute labels requests that matched no route so 404 scans do not
// create one series per path
const unmatchedRoute = "unmatched"

var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type httpInstruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var in httpInstruments
	var errs [3]error
	in.requests, errs[0] = meter.Int64Counter("http_server_request_total",
		metric.WithDescription("Total number of HTTP requests"), metric.WithUnit("{request}"))
	in.duration, errs[1] = meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpDurationBuckets...))
	in.inFlight, errs[2] = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"), metric.WithUnit("{request}"))
	if err := errors.Join(errs[:]...); err != nil {
		return nil, fmt.Errorf("create HTTP instruments: %w", err)
	}
	return &in, nil
}

// HTTPMetrics counts requests per route and status, records their latency
// and tracks how many are in flight. Without a usable meter it only calls
// the next handler.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	var in *httpInstruments
	if meter != nil {
		in, _ = newHTTPInstruments(meter)
	}
	if in == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		in.inFlight.Add(ctx, 1)
		defer in.inFlight.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		base := attribute.NewSet(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		)
		in.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributeSet(base))

		counted := append(base.ToSlice(), attribute.Int("http.status_code", c.Writer.Status()))
		if tenantID := c.GetString(JWTTenantIDKey); tenantID != "" {
			counted = append(counted, telemetry.AttrTenantID.String(tenantID))
		}
		in.requests.Add(ctx, 1, metric.WithAttributes(counted...))
	}
}
