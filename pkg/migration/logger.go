package migration

import (
	"context"

	"github.com/devkit-go/pgtk/pkg/observability"
)

// Logger provides structured logging capabilities for migration operations.
// This interface is compatible with the observability.Logger interface.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Uint creates an unsigned integer field.
func Uint(key string, value uint) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field.
func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with any value type.
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// noopLogger is a no-op implementation of Logger that discards all log messages.
type noopLogger struct{}

// NewNoopLogger creates a logger that discards all log messages.
// This is useful when logging is not required or during testing.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (n *noopLogger) Debug(ctx context.Context, msg string, fields ...Field) {}
func (n *noopLogger) Info(ctx context.Context, msg string, fields ...Field)  {}
func (n *noopLogger) Warn(ctx context.Context, msg string, fields ...Field)  {}
func (n *noopLogger) Error(ctx context.Context, msg string, fields ...Field) {}

// observabilityAdapter adapts an observability.Logger — the facade
// pkg/pool and pkg/stash are built against — into a migration Logger,
// so WithLogger can be pointed at the same noop/fake/otel-backed logger
// that the pool already uses instead of requiring a separate instance.
type observabilityAdapter struct {
	logger observability.Logger
}

// FromObservability wraps an observability.Logger for use with WithLogger.
func FromObservability(logger observability.Logger) Logger {
	return &observabilityAdapter{logger: logger}
}

func (o *observabilityAdapter) Debug(ctx context.Context, msg string, fields ...Field) {
	o.logger.Debug(ctx, msg, toObservabilityFields(fields)...)
}

func (o *observabilityAdapter) Info(ctx context.Context, msg string, fields ...Field) {
	o.logger.Info(ctx, msg, toObservabilityFields(fields)...)
}

func (o *observabilityAdapter) Warn(ctx context.Context, msg string, fields ...Field) {
	o.logger.Warn(ctx, msg, toObservabilityFields(fields)...)
}

func (o *observabilityAdapter) Error(ctx context.Context, msg string, fields ...Field) {
	o.logger.Error(ctx, msg, toObservabilityFields(fields)...)
}

func toObservabilityFields(fields []Field) []observability.Field {
	out := make([]observability.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, observability.Field{Key: f.Key, Value: f.Value})
	}
	return out
}
