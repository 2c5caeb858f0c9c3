package sink

import (
	"context"
	"encoding/json"
	"log/slog"
)

// SlogSink emits one slog record per event
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// SlogSinkOption configures the slog sink
type SlogSinkOption func(*SlogSink)

// WithSlogLevel sets the record level
func WithSlogLevel(level slog.Level) SlogSinkOption {
	return func(s *SlogSink) {
		s.level = level
	}
}

// NewSlogSink creates a sink writing to logger
func NewSlogSink(logger *slog.Logger, opts ...SlogSinkOption) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}

	s := &SlogSink{logger: logger, level: slog.LevelInfo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write implements Sink
func (s *SlogSink) Write(ctx context.Context, rec Record) error {
	s.logger.LogAttrs(ctx, s.level, "event",
		slog.String("schemaId", rec.Key.ID),
		slog.Int("version", rec.Key.Version),
		slog.Any("event", json.RawMessage(rec.Body)),
	)
	return nil
}
