package telemetry

import (
	"errors"
	"time"

	"github.com/orderflow/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultSlowQuery = 200 * time.Millisecond
	startedAtKey     = "telemetry:started_at"
)

type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound values in spans; never in production
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DBTracingConfigFrom derives the database tracing settings from the telemetry config
func DBTracingConfigFrom(cfg config.TelemetryConfig) DBTracingConfig {
	out := DBTracingConfig{
		Enabled:         cfg.Enabled && cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: cfg.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}
	if out.SlowQueryThresh <= 0 {
		out.SlowQueryThresh = defaultSlowQuery
	}
	return out
}

// DBTracingPlugin installs otelgorm and annotates its spans with the table,
// affected rows, FOR UPDATE/SHARE locking and slow-query markers.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

var _ gorm.Plugin = (*DBTracingPlugin)(nil)

func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register installs the annotations and otelgorm on db; disabled config is a no-op
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}
	// annotations go first so their after-hooks run while otelgorm's span is open
	if err := db.Use(p); err != nil {
		return err
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh))
	return nil
}

func (p *DBTracingPlugin) Name() string {
	return "orderflow:span_annotations"
}

// Initialize hooks every gorm operation on both sides of its main callback
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := map[string][2]func(string, func(*gorm.DB)) error{
		"create": {cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		"query":  {cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		"update": {cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		"delete": {cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		"raw":    {cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	var errs []error
	for op, h := range hooks {
		errs = append(errs,
			h[0](p.Name()+":start_"+op, startClock),
			h[1](p.Name()+":annotate_"+op, p.annotate),
		)
	}
	return errors.Join(errs...)
}

func startClock(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Context == nil {
		return
	}
	span := trace.SpanFromContext(stmt.Context)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{attribute.Int64("db.rows_affected", stmt.RowsAffected)}
	if stmt.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", stmt.Table))
	}
	if isRowLocking(stmt) {
		attrs = append(attrs, attribute.Bool("db.row_lock", true))
	}
	if v, ok := db.InstanceGet(startedAtKey); ok {
		if elapsed := time.Since(v.(time.Time)); elapsed > p.config.SlowQueryThresh {
			attrs = append(attrs,
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()))
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds())))
		}
	}
	span.SetAttributes(attrs...)

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}

// isRowLocking reports whether the statement carries a FOR UPDATE/SHARE clause
func isRowLocking(stmt *gorm.Statement) bool {
	c, ok := stmt.Clauses[clause.Locking{}.Name()]
	if !ok {
		return false
	}
	_, ok = c.Expression.(clause.Locking)
	return ok
}
