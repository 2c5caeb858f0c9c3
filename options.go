package events

import (
	"log/slog"
	"time"

	"github.com/glimte/mmate-events/sink"
)

// LoggerOption configures an EventLogger
type LoggerOption func(*EventLogger)

// WithLogger sets the logger used for warnings and sink failures
func WithLogger(logger *slog.Logger) LoggerOption {
	return func(l *EventLogger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithSchemaRegistry replaces the default in-process schema registry
func WithSchemaRegistry(registry SchemaRegistry) LoggerOption {
	return func(l *EventLogger) {
		if registry != nil {
			l.schemas = registry
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(collector MetricsCollector) LoggerOption {
	return func(l *EventLogger) {
		if collector != nil {
			l.metrics = collector
		}
	}
}

// WithClock sets the time source for envelope timestamps
func WithClock(now func() time.Time) LoggerOption {
	return func(l *EventLogger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithFormatter sets the formatter attached to registered sinks
func WithFormatter(formatter sink.Formatter) LoggerOption {
	return func(l *EventLogger) {
		if formatter != nil {
			l.formatter = formatter
		}
	}
}

// WithSinks registers sinks at construction
func WithSinks(sinks ...sink.Sink) LoggerOption {
	return func(l *EventLogger) {
		l.initialSinks = append(l.initialSinks, sinks...)
	}
}

// EmitOption configures a single Emit call
type EmitOption func(*emitConfig)

type emitConfig struct {
	timestamp time.Time
}

// WithTimestamp overrides the envelope timestamp
func WithTimestamp(ts time.Time) EmitOption {
	return func(c *emitConfig) {
		c.timestamp = ts
	}
}
