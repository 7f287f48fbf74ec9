package logger

import (
	"context"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey struct{}

// scope is the request-scoped state carried in a context. Each With* call
// stores a modified copy so parent contexts are never mutated.
type scope struct {
	log       *zap.Logger
	requestID string
	tenantID  uuid.UUID
	actor     *shared.Actor
	orderID   uuid.UUID
}

func scopeOf(ctx context.Context) scope {
	if s, ok := ctx.Value(ctxKey{}).(scope); ok {
		return s
	}
	return scope{}
}

func (s scope) into(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// WithContext attaches log to ctx
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	s := scopeOf(ctx)
	s.log = log
	return s.into(ctx)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if s := scopeOf(ctx); s.log != nil {
		return s.log
	}
	return zap.NewNop()
}

// WithRequestID tags ctx and log with the request ID
func WithRequestID(ctx context.Context, log *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	s := scopeOf(ctx)
	s.requestID = requestID
	s.log = log.With(zap.String("request_id", requestID))
	return s.into(ctx), s.log
}

// WithActor tags ctx and log with the tenant and the authenticated user
func WithActor(ctx context.Context, log *zap.Logger, tenantID uuid.UUID, actor shared.Actor) (context.Context, *zap.Logger) {
	s := scopeOf(ctx)
	s.tenantID = tenantID
	s.actor = &actor
	s.log = log.With(
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", actor.ID.String()),
		zap.String("role", string(actor.Role)),
	)
	return s.into(ctx), s.log
}

// WithOrderID records the order being worked on. The logger is left alone;
// ContextLogger adds the field when it writes.
func WithOrderID(ctx context.Context, orderID uuid.UUID) context.Context {
	s := scopeOf(ctx)
	s.orderID = orderID
	return s.into(ctx)
}

func GetRequestID(ctx context.Context) string {
	return scopeOf(ctx).requestID
}

func GetTenantID(ctx context.Context) (uuid.UUID, bool) {
	id := scopeOf(ctx).tenantID
	return id, id != uuid.Nil
}

func GetActor(ctx context.Context) (shared.Actor, bool) {
	if a := scopeOf(ctx).actor; a != nil {
		return *a, true
	}
	return shared.Actor{}, false
}

func GetOrderID(ctx context.Context) (uuid.UUID, bool) {
	id := scopeOf(ctx).orderID
	return id, id != uuid.Nil
}

// GetTraceID returns the trace ID of the active span, or ""
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// ContextLogger writes through a zap.Logger, adding the trace and order
// fields found in ctx at write time.
//
//	logger.L(ctx).Info("order transitioned", zap.String("to", "POD"))
type ContextLogger struct {
	ctx  context.Context
	base *zap.Logger
}

// L uses the logger attached to ctx
func L(ctx context.Context) *ContextLogger {
	return WithLogger(ctx, FromContext(ctx))
}

// WithLogger uses log instead of the logger attached to ctx
func WithLogger(ctx context.Context, log *zap.Logger) *ContextLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, base: log}
}

func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, base: cl.base.With(fields...)}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.Zap().Debug(msg, fields...)
}

func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.Zap().Info(msg, fields...)
}

func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.Zap().Warn(msg, fields...)
}

func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.Zap().Error(msg, fields...)
}

// Zap returns the underlying logger with the ctx fields applied
func (cl *ContextLogger) Zap() *zap.Logger {
	var extra []zap.Field
	if sc := trace.SpanContextFromContext(cl.ctx); sc.IsValid() {
		extra = append(extra,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if orderID, ok := GetOrderID(cl.ctx); ok {
		extra = append(extra, zap.String("order_id", orderID.String()))
	}
	if len(extra) == 0 {
		return cl.base
	}
	return cl.base.With(extra...)
}
