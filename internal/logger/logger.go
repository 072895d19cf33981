// Package logger provides the structured logging interface used by the
// shorturls server and the extract job.
package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for structured logging.
type Logger interface {
	// Debug logs a message at debug level.
	Debug(msg string, fields ...Field)
	// Info logs a message at info level.
	Info(msg string, fields ...Field)
	// Warn logs a message at warning level.
	Warn(msg string, fields ...Field)
	// Error logs a message at error level.
	Error(msg string, fields ...Field)
	// With returns a new logger with the given fields attached.
	With(fields ...Field) Logger
	// Sync flushes any buffered log entries.
	Sync() error
}

// Field is a type alias for zap.Field.
type Field = zap.Field

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level (debug, info, warn, error).
	Level string `env:"LOG_LEVEL" yaml:"level"`
	// Development disables sampling so every log line is visible.
	Development bool `yaml:"development"`
	// OutputPaths is a list of URLs or file paths to write log output to.
	OutputPaths []string `yaml:"output_paths"`
}

// zapLogger is a zap-based implementation of the Logger interface.
type zapLogger struct {
	logger *zap.Logger
}

// New creates a new Logger instance with the given configuration.
func New(cfg Config) (Logger, error) {
	// JSON output in all environments so log aggregation stays uniform
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}
	if cfg.Development {
		zapCfg.Sampling = nil
	}

	z, err := zapCfg.Build(
		zap.AddCallerSkip(1), // Skip the wrapper function
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return &zapLogger{logger: z}, nil
}

// parseLevel converts a string level to zapcore.Level.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug logs a message at debug level.
func (l *zapLogger) Debug(msg string, fields ...Field) {
	l.logger.Debug(msg, fields...)
}

// Info logs a message at info level.
func (l *zapLogger) Info(msg string, fields ...Field) {
	l.logger.Info(msg, fields...)
}

// Warn logs a message at warning level.
func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.logger.Warn(msg, fields...)
}

// Error logs a message at error level.
func (l *zapLogger) Error(msg string, fields ...Field) {
	l.logger.Error(msg, fields...)
}

// With returns a new logger with the given fields attached.
func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}

// Sync flushes any buffered log entries.
func (l *zapLogger) Sync() error {
	return l.logger.Sync()
}

// String creates a string field.
func String(key, val string) Field {
	return zap.String(key, val)
}

// Int creates an int field.
func Int(key string, val int) Field {
	return zap.Int(key, val)
}

// Int64 creates an int64 field.
func Int64(key string, val int64) Field {
	return zap.Int64(key, val)
}

// Duration creates a duration field.
func Duration(key string, val time.Duration) Field {
	return zap.Duration(key, val)
}

// Error creates an error field with the key "error".
func Error(err error) Field {
	return zap.Error(err)
}

// Any creates a field that can hold any value.
func Any(key string, val any) Field {
	return zap.Any(key, val)
}
