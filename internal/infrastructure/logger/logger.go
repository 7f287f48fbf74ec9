// Package logger builds the zap loggers used across the service and carries
// request-scoped fields (request, tenant, actor, order) through context.
package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/orderflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination. Fields are attached to
// every entry; the server uses them for service name and environment.
type Config struct {
	Level      string
	Format     string // json or console
	Output     string // stdout, stderr or a file path
	TimeFormat string
	Fields     map[string]string
}

const defaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FromAppConfig derives the server's logger settings. Production always
// logs JSON whatever the configured format.
func FromAppConfig(app config.AppConfig, log config.LogConfig) *Config {
	cfg := &Config{
		Level:  "info",
		Format: "console",
		Output: "stdout",
		Fields: map[string]string{"service": app.Name, "env": app.Env},
	}
	if log.Level != "" {
		cfg.Level = log.Level
	}
	if log.Format != "" {
		cfg.Format = log.Format
	}
	if log.Output != "" {
		cfg.Output = log.Output
	}
	if app.Env == "production" {
		cfg.Format = "json"
	}
	return cfg
}

func New(cfg *Config) (*zap.Logger, error) {
	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if len(cfg.Fields) > 0 {
		fields := make([]zap.Field, 0, len(cfg.Fields))
		for k, v := range cfg.Fields {
			if v != "" {
				fields = append(fields, zap.String(k, v))
			}
		}
		opts = append(opts, zap.Fields(fields...))
	}
	return zap.New(zapcore.NewCore(encoderFor(cfg), sink, parseLevel(cfg.Level)), opts...), nil
}

// parseLevel accepts zap level names plus "warning"; anything else is info
func parseLevel(level string) zapcore.Level {
	level = strings.ToLower(level)
	if level == "warning" {
		return zapcore.WarnLevel
	}
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return parsed
}

func encoderFor(cfg *Config) zapcore.Encoder {
	layout := cfg.TimeFormat
	if layout == "" {
		layout = defaultTimeFormat
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if cfg.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", output, err)
	}
	return zapcore.AddSync(file), nil
}
