package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// SQLSTATE codes raised by row lock contention; the transaction scopes turn
// them into retryable conflicts, so they are not logged as failures
var contentionCodes = map[string]bool{
	"55P03": true, // lock_not_available
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

const truncatedSQLLen = 64

// GormLogger writes GORM statements to zap with the request, tenant and order
// carried on the context
type GormLogger struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	fullSQL       bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is reported as slow.
// Zero disables slow query reporting.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

// WithFullSQL keeps the full statement with bound values; otherwise it is cut
// to its first 64 characters
func WithFullSQL(enabled bool) GormLoggerOption {
	return func(l *GormLogger) { l.fullSQL = enabled }
}

func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		logLevel:      level,
		slowThreshold: 200 * time.Millisecond,
		fullSQL:       true,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, msg, data...)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, msg, data...)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, msg, data...)
}

func (l *GormLogger) printf(ctx context.Context, level gormlogger.LogLevel, msg string, data ...any) {
	if l.logLevel < level {
		return
	}
	cl := WithLogger(ctx, l.logger)
	line := fmt.Sprintf(msg, data...)
	switch level {
	case gormlogger.Error:
		cl.Error(line)
	case gormlogger.Warn:
		cl.Warn(line)
	default:
		cl.Info(line)
	}
}

type traceOutcome int

const (
	outcomeSkip traceOutcome = iota
	outcomeQuery
	outcomeSlow
	outcomeContention
	outcomeFailure
)

func (l *GormLogger) classify(elapsed time.Duration, err error) traceOutcome {
	switch {
	case l.logLevel <= gormlogger.Silent:
		return outcomeSkip
	case err != nil:
		// not-found drives normal control flow in the repositories
		if errors.Is(err, gormlogger.ErrRecordNotFound) {
			return outcomeSkip
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && contentionCodes[pgErr.Code] {
			if l.logLevel >= gormlogger.Warn {
				return outcomeContention
			}
			return outcomeSkip
		}
		if l.logLevel >= gormlogger.Error {
			return outcomeFailure
		}
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.logLevel >= gormlogger.Warn:
		return outcomeSlow
	case l.logLevel >= gormlogger.Info:
		return outcomeQuery
	}
	return outcomeSkip
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	outcome := l.classify(elapsed, err)
	if outcome == outcomeSkip {
		return
	}

	sql, rows := fc()
	if !l.fullSQL && len(sql) > truncatedSQLLen {
		sql = sql[:truncatedSQLLen] + "..."
	}
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if tenantID, ok := GetTenantID(ctx); ok {
		fields = append(fields, zap.String("tenant_id", tenantID.String()))
	}
	if orderID, ok := GetOrderID(ctx); ok {
		fields = append(fields, zap.String("order_id", orderID.String()))
	}

	switch outcome {
	case outcomeFailure:
		l.logger.Error("SQL Error", append(fields, zap.Error(err))...)
	case outcomeContention:
		l.logger.Warn("SQL lock contention", append(fields, zap.Error(err))...)
	case outcomeSlow:
		l.logger.Warn(fmt.Sprintf("SLOW SQL >= %v", l.slowThreshold), fields...)
	case outcomeQuery:
		l.logger.Debug("SQL Query", fields...)
	}
}

// MapGormLogLevel maps the application log level to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
