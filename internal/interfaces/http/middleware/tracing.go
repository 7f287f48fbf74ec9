// Package middleware provides the gin middleware of the order lifecycle API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/orderflow/backend/internal/infrastructure/logger"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength bounds request IDs copied from headers into spans
const MaxRequestIDLength = 128

const (
	attrRequestID = attribute.Key("request_id")
	attrUserID    = attribute.Key("user_id")
	attrRole      = attribute.Key("actor.role")
	attrStatus    = attribute.Key("http.status_code")
	attrErrorMsg  = attribute.Key("error.message")
)

type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// UntracedPaths are served without a span; health checks hit /health constantly
	UntracedPaths []string
}

// Tracing starts a server span per request through otelgin. Spans are named
// "METHOD route", e.g. "POST /api/v1/orders/:type/:id/status".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	name := cfg.ServiceName
	if name == "" {
		name = telemetry.TracerName
	}
	untraced := slices.Clone(cfg.UntracedPaths)
	return otelgin.Middleware(name, otelgin.WithFilter(func(r *http.Request) bool {
		return !slices.Contains(untraced, r.URL.Path)
	}))
}

// SpanIdentity copies the request ID and the authenticated tenant and actor
// onto the request span. It must run after JWT auth.
func SpanIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			span.SetAttributes(identityAttributes(c)...)
		}
		c.Next()
	}
}

func identityAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	add := func(key attribute.Key, value string) {
		if value != "" {
			attrs = append(attrs, key.String(value))
		}
	}
	add(attrRequestID, spanRequestID(c))
	add(telemetry.AttrTenantID, c.GetString(JWTTenantIDKey))
	add(attrUserID, c.GetString(JWTUserIDKey))
	add(attrRole, c.GetString(JWTRoleKey))
	return attrs
}

func spanRequestID(c *gin.Context) string {
	id := c.GetString(logger.RequestIDKey)
	if id == "" {
		id = c.GetHeader(logger.RequestIDHeader)
	}
	if len(id) > MaxRequestIDLength {
		id = id[:MaxRequestIDLength]
	}
	return id
}

// SpanStatus marks the request span failed when the response is 4xx or 5xx.
// It must run after Tracing.
func SpanStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		span := trace.SpanFromContext(c.Request.Context())
		if status < http.StatusBadRequest || !span.IsRecording() {
			return
		}
		span.SetStatus(codes.Error, http.StatusText(status))
		span.SetAttributes(attrStatus.Int(status))
		if last := c.Errors.Last(); last != nil {
			span.SetAttributes(attrErrorMsg.String(last.Error()))
		}
	}
}
